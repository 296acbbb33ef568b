// Package assemble builds the bounded-size output document from sorted
// directory groups while tracking a token budget.
package assemble

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/mattsilv/codesight/internal/tokenizer"
	"github.com/mattsilv/codesight/internal/truncate"
	"github.com/mattsilv/codesight/internal/types"
	"github.com/mattsilv/codesight/internal/utils"
)

const (
	// defaultReadConcurrency bounds the content-read pool inside one directory group.
	defaultReadConcurrency = 8

	headerFormat          = "# CodeSight: %s (%s)"
	headerDateLayout      = "2006-01-02"
	overviewHeading       = "# Files:"
	overviewEntryFormat   = "# - %s%s"
	directoryHeaderFormat = "\n# Directory: %s/"
	fileHeaderFormat      = "# --- %s (%s) ---"
	startMarker           = "\n# --- Start Code Files ---"
	endMarker             = "\n# --- End Code Files ---"
	truncationNote        = "\n# Note: Some older files were truncated to stay within token limits."
	skipNoteFormat        = "\n# %s: skipped (token limit)"
	binaryNoteFormat      = "\n# %s: binary content omitted"
	readErrorFormat       = "\n# --- Error reading file: %s ---\n# Error: %v"
)

// Options configures one assembly pass.
type Options struct {
	// ProjectName labels the document header.
	ProjectName string
	// Preamble is the externally supplied prompt text embedded before content.
	Preamble string
	// TokenLimit is the budget ceiling for the whole document.
	TokenLimit int
	// Counter measures token cost; the same counter feeds the running ledger.
	Counter tokenizer.Counter
	// Policy reduces stale files under budget pressure; nil disables truncation.
	Policy truncate.Policy
	// StalenessThreshold is the minimum age before truncation applies.
	// Zero selects types.DefaultStalenessThreshold.
	StalenessThreshold time.Duration
	// ReadConcurrency overrides the per-group content read pool size when positive.
	ReadConcurrency int
	// Clock supplies the current time; nil selects time.Now.
	Clock func() time.Time
}

// ledger is the single mutable budget counter. It is owned exclusively by the
// sequential decision pass; content reads run concurrently but never touch it.
type ledger struct {
	consumed int
	limit    int
}

// fits reports whether a candidate cost still fits the remaining budget.
func (budget *ledger) fits(cost int) bool {
	return budget.consumed+cost <= budget.limit
}

// charge advances the counter. Charges happen only after a fit check, so the
// counter is monotonically non-decreasing and never overshoots by more than
// one evaluated candidate.
func (budget *ledger) charge(cost int) {
	budget.consumed += cost
}

// readOutcome carries one file's content from the parallel read phase into the
// ordered decision phase.
type readOutcome struct {
	content string
	binary  bool
	err     error
}

// Assemble walks the sorted groups and produces the output document plus a
// summary of inclusion decisions. File reads within a group are parallel;
// accept/truncate/skip decisions are applied strictly in recency order by a
// single writer, because budget outcomes are order-dependent.
func Assemble(ctx context.Context, groups []types.DirectoryGroup, options Options) (string, types.AssemblySummary, error) {
	if options.Counter == nil {
		return "", types.AssemblySummary{}, fmt.Errorf("assemble: token counter is nil")
	}

	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}
	stalenessThreshold := options.StalenessThreshold
	if stalenessThreshold <= 0 {
		stalenessThreshold = types.DefaultStalenessThreshold
	}
	readConcurrency := options.ReadConcurrency
	if readConcurrency <= 0 {
		readConcurrency = defaultReadConcurrency
	}

	now := clock()
	parts := []string{
		fmt.Sprintf(headerFormat, options.ProjectName, now.Format(headerDateLayout)),
		overviewHeading,
	}
	parts = append(parts, buildOverview(groups)...)
	if options.Preamble != "" {
		parts = append(parts, "", options.Preamble)
	}
	parts = append(parts, startMarker)

	budget := &ledger{limit: options.TokenLimit}
	prefixCost, prefixCostError := options.Counter.CountString(strings.Join(parts, "\n"))
	if prefixCostError != nil {
		return "", types.AssemblySummary{}, fmt.Errorf("assemble: count document prefix: %w", prefixCostError)
	}
	budget.charge(prefixCost)

	summary := types.AssemblySummary{}
	anyTruncated := false

	for _, currentGroup := range groups {
		if contextError := ctx.Err(); contextError != nil {
			return "", types.AssemblySummary{}, contextError
		}

		orderedFiles := orderByRecency(currentGroup.Files)
		outcomes, readError := readGroupContent(ctx, orderedFiles, readConcurrency)
		if readError != nil {
			return "", types.AssemblySummary{}, readError
		}

		directoryHeader := fmt.Sprintf(directoryHeaderFormat, currentGroup.DirectoryPath)
		parts = append(parts, directoryHeader)
		if headerCost, costError := options.Counter.CountString(directoryHeader); costError == nil {
			budget.charge(headerCost)
		}

		// Decisions run sequentially in recency order: first fit wins, never best fit.
		for fileIndex, record := range orderedFiles {
			summary.FilesConsidered++
			outcome := outcomes[fileIndex]

			if outcome.err != nil {
				parts = append(parts, fmt.Sprintf(readErrorFormat, record.RelativePath, outcome.err))
				summary.FilesSkipped++
				continue
			}
			if outcome.binary {
				parts = append(parts, fmt.Sprintf(binaryNoteFormat, path.Base(record.RelativePath)))
				summary.FilesSkipped++
				continue
			}

			fileHeader := fmt.Sprintf(fileHeaderFormat, path.Base(record.RelativePath), relativeAge(record.ModTime, now))
			block := "\n" + fileHeader + "\n" + outcome.content
			cost, costError := options.Counter.CountString(block)
			if costError != nil {
				parts = append(parts, fmt.Sprintf(readErrorFormat, record.RelativePath, costError))
				summary.FilesSkipped++
				continue
			}

			if budget.fits(cost) {
				parts = append(parts, block)
				budget.charge(cost)
				summary.FilesIncluded++
				continue
			}

			if options.Policy != nil && now.Sub(record.ModTime) > stalenessThreshold {
				reducedBlock := "\n" + fileHeader + "\n" + options.Policy.Reduce(outcome.content)
				reducedCost, reducedCostError := options.Counter.CountString(reducedBlock)
				if reducedCostError == nil && budget.fits(reducedCost) {
					parts = append(parts, reducedBlock)
					budget.charge(reducedCost)
					summary.FilesTruncated++
					anyTruncated = true
					continue
				}
			}

			parts = append(parts, fmt.Sprintf(skipNoteFormat, path.Base(record.RelativePath)))
			summary.FilesSkipped++
		}
	}

	if anyTruncated {
		parts = append(parts, truncationNote)
	}
	parts = append(parts, endMarker)

	summary.TokensUsed = budget.consumed
	return strings.Join(parts, "\n"), summary, nil
}

// buildOverview renders the structural overview: every group in sorted order,
// files listed alphabetically by name without content.
func buildOverview(groups []types.DirectoryGroup) []string {
	var lines []string
	for _, currentGroup := range groups {
		directoryLabel := ""
		if currentGroup.DirectoryPath != "." {
			directoryLabel = currentGroup.DirectoryPath + "/"
		}
		names := make([]string, 0, len(currentGroup.Files))
		for _, record := range currentGroup.Files {
			names = append(names, path.Base(record.RelativePath))
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, fmt.Sprintf(overviewEntryFormat, directoryLabel, name))
		}
	}
	return lines
}

// orderByRecency returns the records sorted newest first, ties broken by path
// ascending for determinism.
func orderByRecency(records []types.FileRecord) []types.FileRecord {
	ordered := append([]types.FileRecord(nil), records...)
	sort.Slice(ordered, func(firstIndex, secondIndex int) bool {
		first, second := ordered[firstIndex], ordered[secondIndex]
		if !first.ModTime.Equal(second.ModTime) {
			return first.ModTime.After(second.ModTime)
		}
		return first.RelativePath < second.RelativePath
	})
	return ordered
}

// readGroupContent reads every file of one group on a bounded pool. Read
// failures are captured per file; only context cancellation aborts the group.
func readGroupContent(ctx context.Context, records []types.FileRecord, concurrency int) ([]readOutcome, error) {
	outcomes := make([]readOutcome, len(records))
	readGroup, readCtx := errgroup.WithContext(ctx)
	readGroup.SetLimit(concurrency)
	for recordIndex, record := range records {
		recordIndex, record := recordIndex, record
		readGroup.Go(func() error {
			if contextError := readCtx.Err(); contextError != nil {
				return contextError
			}
			fileBytes, readError := os.ReadFile(record.AbsolutePath)
			if readError != nil {
				outcomes[recordIndex] = readOutcome{err: readError}
				return nil
			}
			if utils.HasBinaryContent(fileBytes) {
				outcomes[recordIndex] = readOutcome{binary: true}
				return nil
			}
			outcomes[recordIndex] = readOutcome{content: normalizeContent(decodeText(fileBytes))}
			return nil
		})
	}
	if waitError := readGroup.Wait(); waitError != nil {
		return nil, waitError
	}
	return outcomes, nil
}

// decodeText converts file bytes to a string, dropping invalid byte sequences
// instead of failing the run.
func decodeText(fileBytes []byte) string {
	return strings.ToValidUTF8(string(fileBytes), "")
}

// excessBlankLinesExpression matches runs of three or more newlines.
var excessBlankLinesExpression = regexp.MustCompile(`\n{3,}`)

// trailingWhitespaceExpression matches spaces and tabs at the end of a line.
var trailingWhitespaceExpression = regexp.MustCompile(`(?m)[ \t]+$`)

// normalizeContent reduces token cost without losing meaning: duplicate blank
// lines collapse to one, trailing whitespace is trimmed, and the content ends
// with exactly one newline.
func normalizeContent(content string) string {
	content = excessBlankLinesExpression.ReplaceAllString(content, "\n\n")
	content = trailingWhitespaceExpression.ReplaceAllString(content, "")
	return strings.TrimSpace(content) + "\n"
}

// relativeAge renders a human-readable age such as "3 hours ago".
func relativeAge(modificationTime, now time.Time) string {
	return humanize.RelTime(modificationTime, now, "ago", "from now")
}
