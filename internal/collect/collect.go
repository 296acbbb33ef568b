// Package collect exposes the single core operation: scan a project tree and
// assemble a budgeted document from it.
package collect

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mattsilv/codesight/internal/assemble"
	"github.com/mattsilv/codesight/internal/group"
	"github.com/mattsilv/codesight/internal/pattern"
	"github.com/mattsilv/codesight/internal/scan"
	"github.com/mattsilv/codesight/internal/tokenizer"
	"github.com/mattsilv/codesight/internal/truncate"
	"github.com/mattsilv/codesight/internal/types"
	"github.com/mattsilv/codesight/internal/utils"
)

const (
	errorRootMissingFormat = "root directory %q: %w"
	errorRootNotDirectory  = "root path %q is not a directory"
	errorNonPositiveLimit  = "token limit must be positive, got %d"
	errorNilCounter        = "token counter is required"
	errorCompilePatterns   = "compile exclusion patterns: %w"
)

// ExclusionInputs carries every source of exclusion rules supplied by the caller.
type ExclusionInputs struct {
	GitignoreLines    []string
	UserPatterns      []string
	IncludeTests      bool
	IncludeSelf       bool
	IncludeStructural bool
	// OutputFileName guards the run's own output from re-collection; it is
	// honored even when IncludeSelf opens the working directory.
	OutputFileName string
}

// Options configures one collection run.
type Options struct {
	// Root is the project directory to collect.
	Root string
	// Exclusions select which files participate.
	Exclusions ExclusionInputs
	// TokenLimit bounds the assembled document.
	TokenLimit int
	// Preamble is the prompt text embedded before file content.
	Preamble string
	// Counter measures token cost for the whole run.
	Counter tokenizer.Counter
	// Policy reduces stale files under budget pressure; nil selects the line heuristic.
	Policy truncate.Policy
	// StalenessThreshold overrides the default truncation eligibility age when positive.
	StalenessThreshold time.Duration
	// ScanWorkers overrides the scanner worker pool size when positive.
	ScanWorkers int
	// Logger receives progress diagnostics; nil disables them.
	Logger *zap.Logger
}

// Result is the outcome of one collection run.
type Result struct {
	Document string
	Summary  types.AssemblySummary
	Skipped  []types.SkippedEntry
}

// Run validates the configuration, scans the tree, orders the groups, and
// assembles the document. Configuration problems are the only fatal class:
// once scanning starts, per-entry and per-file failures degrade locally and a
// document plus summary is always returned.
func Run(ctx context.Context, options Options) (Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rootInformation, statError := os.Stat(options.Root)
	if statError != nil {
		return Result{}, fmt.Errorf(errorRootMissingFormat, options.Root, statError)
	}
	if !rootInformation.IsDir() {
		return Result{}, fmt.Errorf(errorRootNotDirectory, options.Root)
	}
	if options.TokenLimit <= 0 {
		return Result{}, fmt.Errorf(errorNonPositiveLimit, options.TokenLimit)
	}
	if options.Counter == nil {
		return Result{}, fmt.Errorf(errorNilCounter)
	}

	matcher, compileError := pattern.Compile(pattern.Inputs{
		UserPatterns:      options.Exclusions.UserPatterns,
		GitignoreLines:    options.Exclusions.GitignoreLines,
		IncludeTests:      options.Exclusions.IncludeTests,
		IncludeSelf:       options.Exclusions.IncludeSelf,
		IncludeStructural: options.Exclusions.IncludeStructural,
		OutputFileName:    options.Exclusions.OutputFileName,
	})
	if compileError != nil {
		return Result{}, fmt.Errorf(errorCompilePatterns, compileError)
	}

	scanResult, scanError := scan.Scan(ctx, scan.Options{
		Root:        options.Root,
		Matcher:     matcher,
		WorkerCount: options.ScanWorkers,
	})
	if scanError != nil {
		return Result{}, scanError
	}
	logger.Debug("scan complete",
		zap.Int("directories", len(scanResult.Files)),
		zap.Int("skipped", len(scanResult.Skipped)),
	)

	directoryGroups := group.Prepare(scanResult.Files)

	policy := options.Policy
	if policy == nil {
		policy = truncate.NewLinePolicy()
	}

	document, summary, assembleError := assemble.Assemble(ctx, directoryGroups, assemble.Options{
		ProjectName:        utils.ProjectName(options.Root),
		Preamble:           options.Preamble,
		TokenLimit:         options.TokenLimit,
		Counter:            options.Counter,
		Policy:             policy,
		StalenessThreshold: options.StalenessThreshold,
	})
	if assembleError != nil {
		return Result{}, assembleError
	}
	logger.Debug("assembly complete",
		zap.Int("included", summary.FilesIncluded),
		zap.Int("truncated", summary.FilesTruncated),
		zap.Int("skipped", summary.FilesSkipped),
		zap.Int("tokens", summary.TokensUsed),
	)

	return Result{Document: document, Summary: summary, Skipped: scanResult.Skipped}, nil
}
