// Package types defines every cross-package data structure used by the codesight CLI.
package types

import "time"

const (
	// CommandCollect identifies the collect command.
	CommandCollect = "collect"

	// PromptImprovement selects the code-improvement prompt template.
	PromptImprovement = "improvement"
	// PromptBugfix selects the bug-hunting prompt template.
	PromptBugfix = "bugfix"

	// DefaultTokenLimit bounds the assembled document size when no limit is configured.
	DefaultTokenLimit = 100_000
	// DefaultStalenessThreshold is the age beyond which a file becomes eligible for truncation.
	DefaultStalenessThreshold = 7 * 24 * time.Hour
)

// FileRecord describes one regular file that passed the exclusion filter.
// Records are created during traversal and never mutated afterwards.
type FileRecord struct {
	AbsolutePath string
	RelativePath string
	ModTime      time.Time
	SizeBytes    int64
}

// DirectoryGroup is the set of included files sharing an immediate parent
// directory, together with the most recent modification time among them.
type DirectoryGroup struct {
	DirectoryPath string
	Files         []FileRecord
	MostRecent    time.Time
}

// SkippedEntry records a filesystem entry that could not be processed during a scan.
type SkippedEntry struct {
	Path   string
	Reason string
}

// ScanResult maps relative directory paths to the files collected beneath them.
// The root directory itself is keyed as ".".
type ScanResult struct {
	Files   map[string][]FileRecord
	Skipped []SkippedEntry
}

// AssemblySummary captures aggregate information about one assembly pass.
type AssemblySummary struct {
	FilesConsidered int
	FilesIncluded   int
	FilesTruncated  int
	FilesSkipped    int
	TokensUsed      int
}
