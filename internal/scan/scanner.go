// Package scan walks a project tree and collects file metadata on a bounded worker pool.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mattsilv/codesight/internal/pattern"
	"github.com/mattsilv/codesight/internal/types"
	"github.com/mattsilv/codesight/internal/utils"
)

const (
	// defaultBatchSize is the number of candidate paths handed to one worker task.
	defaultBatchSize = 256
	// workersPerCore scales the stat worker pool with available parallelism.
	workersPerCore = 4
)

// Options configures one scan pass.
type Options struct {
	// Root is the absolute directory to scan.
	Root string
	// Matcher filters entries by their path relative to Root.
	Matcher *pattern.Matcher
	// BatchSize overrides the candidate batch size when positive.
	BatchSize int
	// WorkerCount overrides the stat worker pool size when positive.
	WorkerCount int
}

// candidate is one filesystem entry queued for metadata collection.
type candidate struct {
	absolutePath string
	relativePath string
}

// batchOutcome holds one worker's partial mapping and skip records. Partial
// outcomes are merged by the coordinator only after every worker completed.
type batchOutcome struct {
	files   map[string][]types.FileRecord
	skipped []types.SkippedEntry
}

// Scan enumerates every entry under options.Root, filters it through the
// matcher, and returns the directory-keyed file records together with entries
// that had to be skipped. Excluded directories are pruned during enumeration;
// symbolic links are never followed. Metadata reads are distributed across a
// bounded worker pool because stat calls dominate the cost on large trees.
func Scan(ctx context.Context, options Options) (types.ScanResult, error) {
	if options.Root == "" {
		return types.ScanResult{}, fmt.Errorf("scan: root directory is empty")
	}
	if options.Matcher == nil {
		return types.ScanResult{}, fmt.Errorf("scan: matcher is nil")
	}

	candidates, walkSkipped, walkError := enumerate(ctx, options.Root, options.Matcher)
	if walkError != nil {
		return types.ScanResult{}, walkError
	}

	batchSize := options.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	workerCount := options.WorkerCount
	if workerCount <= 0 {
		workerCount = runtime.NumCPU() * workersPerCore
	}

	batches := partition(candidates, batchSize)
	outcomes := make([]batchOutcome, len(batches))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workerCount)
	for batchIndex, batch := range batches {
		batchIndex, batch := batchIndex, batch
		group.Go(func() error {
			if contextError := groupCtx.Err(); contextError != nil {
				return contextError
			}
			outcomes[batchIndex] = collectBatch(batch, options.Matcher)
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		// Abandon in-flight partial mappings rather than merging them.
		return types.ScanResult{}, waitError
	}

	result := types.ScanResult{Files: make(map[string][]types.FileRecord)}
	result.Skipped = append(result.Skipped, walkSkipped...)
	for _, outcome := range outcomes {
		for directoryPath, records := range outcome.files {
			result.Files[directoryPath] = append(result.Files[directoryPath], records...)
		}
		result.Skipped = append(result.Skipped, outcome.skipped...)
	}
	return result, nil
}

// enumerate lists candidate files beneath root, pruning excluded directories.
// Unreadable entries become skip records instead of aborting the walk.
func enumerate(ctx context.Context, root string, matcher *pattern.Matcher) ([]candidate, []types.SkippedEntry, error) {
	var candidates []candidate
	var skipped []types.SkippedEntry

	walkFunction := func(currentPath string, directoryEntry fs.DirEntry, walkError error) error {
		if contextError := ctx.Err(); contextError != nil {
			return contextError
		}
		if walkError != nil {
			skipped = append(skipped, types.SkippedEntry{Path: currentPath, Reason: walkError.Error()})
			if directoryEntry != nil && directoryEntry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relativePath := utils.RelativePathOrSelf(currentPath, root)
		if directoryEntry.IsDir() {
			if relativePath != "." && matcher.Matches(relativePath, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if directoryEntry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		candidates = append(candidates, candidate{absolutePath: currentPath, relativePath: relativePath})
		return nil
	}

	if walkError := filepath.WalkDir(root, walkFunction); walkError != nil {
		return nil, nil, walkError
	}
	return candidates, skipped, nil
}

// partition splits candidates into fixed-size batches.
func partition(candidates []candidate, batchSize int) [][]candidate {
	if len(candidates) == 0 {
		return nil
	}
	batches := make([][]candidate, 0, (len(candidates)+batchSize-1)/batchSize)
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, candidates[start:end])
	}
	return batches
}

// collectBatch stats and filters one batch, producing a local partial mapping.
func collectBatch(batch []candidate, matcher *pattern.Matcher) batchOutcome {
	outcome := batchOutcome{files: make(map[string][]types.FileRecord)}
	for _, entry := range batch {
		fileInformation, statError := os.Lstat(entry.absolutePath)
		if statError != nil {
			outcome.skipped = append(outcome.skipped, types.SkippedEntry{Path: entry.absolutePath, Reason: statError.Error()})
			continue
		}
		if !fileInformation.Mode().IsRegular() {
			continue
		}
		if matcher.Matches(entry.relativePath, false) {
			continue
		}
		parentDirectory := path.Dir(entry.relativePath)
		outcome.files[parentDirectory] = append(outcome.files[parentDirectory], types.FileRecord{
			AbsolutePath: entry.absolutePath,
			RelativePath: entry.relativePath,
			ModTime:      fileInformation.ModTime(),
			SizeBytes:    fileInformation.Size(),
		})
	}
	return outcome
}
