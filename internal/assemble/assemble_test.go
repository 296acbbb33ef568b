package assemble_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattsilv/codesight/internal/assemble"
	"github.com/mattsilv/codesight/internal/group"
	"github.com/mattsilv/codesight/internal/truncate"
	"github.com/mattsilv/codesight/internal/types"
)

// wordCounter counts whitespace-separated words so budgets are predictable.
type wordCounter struct{}

// Name returns the counter identifier.
func (wordCounter) Name() string { return "words" }

// CountString counts the words of the input.
func (wordCounter) CountString(input string) (int, error) {
	return len(strings.Fields(input)), nil
}

// fixedNow is the reference time injected through the Clock option.
var fixedNow = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

// writeFileAt creates a file and pins its modification time.
func writeFileAt(testingInstance *testing.T, rootDirectory, relativePath, content string, modificationTime time.Time) types.FileRecord {
	testingInstance.Helper()
	fullPath := filepath.Join(rootDirectory, filepath.FromSlash(relativePath))
	if directoryError := os.MkdirAll(filepath.Dir(fullPath), 0o755); directoryError != nil {
		testingInstance.Fatalf("mkdir for %s: %v", relativePath, directoryError)
	}
	if writeError := os.WriteFile(fullPath, []byte(content), 0o644); writeError != nil {
		testingInstance.Fatalf("write %s: %v", relativePath, writeError)
	}
	if timeError := os.Chtimes(fullPath, modificationTime, modificationTime); timeError != nil {
		testingInstance.Fatalf("chtimes %s: %v", relativePath, timeError)
	}
	return types.FileRecord{
		AbsolutePath: fullPath,
		RelativePath: relativePath,
		ModTime:      modificationTime,
	}
}

// defaultOptions builds assembly options with the word counter and line policy.
func defaultOptions(tokenLimit int) assemble.Options {
	return assemble.Options{
		ProjectName: "sample",
		TokenLimit:  tokenLimit,
		Counter:     wordCounter{},
		Policy:      truncate.NewLinePolicy(),
		Clock:       func() time.Time { return fixedNow },
	}
}

// TestRecentFileWinsOverStaleFile covers the budget scenario where the fresh
// group is emitted first and the stale file is truncated to fit.
func TestRecentFileWinsOverStaleFile(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	staleRecord := writeFileAt(testingInstance, rootDirectory, "a/old.py", strings.Repeat("old_token ", 500), fixedNow.Add(-31*24*time.Hour))
	freshRecord := writeFileAt(testingInstance, rootDirectory, "b/new.py", strings.Repeat("new_token ", 500), fixedNow.Add(-time.Hour))

	groups := group.Prepare(map[string][]types.FileRecord{
		"a": {staleRecord},
		"b": {freshRecord},
	})

	document, summary, assembleError := assemble.Assemble(context.Background(), groups, defaultOptions(700))
	if assembleError != nil {
		testingInstance.Fatalf("assemble: %v", assembleError)
	}

	freshPosition := strings.Index(document, "# Directory: b/")
	stalePosition := strings.Index(document, "# Directory: a/")
	if freshPosition < 0 || stalePosition < 0 || freshPosition > stalePosition {
		testingInstance.Errorf("expected the fresh group before the stale group (fresh=%d, stale=%d)", freshPosition, stalePosition)
	}
	if !strings.Contains(document, "new_token") {
		testingInstance.Error("expected the fresh file verbatim")
	}
	if strings.Contains(document, "old_token") {
		testingInstance.Error("expected the stale file body to be truncated away")
	}
	if !strings.Contains(document, truncate.TruncationMarker) {
		testingInstance.Error("expected a truncation marker for the stale file")
	}
	if !strings.Contains(document, "# Note: Some older files were truncated") {
		testingInstance.Error("expected the closing truncation note")
	}

	if summary.FilesIncluded != 1 || summary.FilesTruncated != 1 || summary.FilesSkipped != 0 {
		testingInstance.Errorf("unexpected summary: %+v", summary)
	}
	if summary.TokensUsed > 700 {
		testingInstance.Errorf("ledger exceeded the limit: %d", summary.TokensUsed)
	}
}

// TestStaleFileSkippedWhenTruncationDoesNotFit covers the skip branch.
func TestStaleFileSkippedWhenTruncationDoesNotFit(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	staleRecord := writeFileAt(testingInstance, rootDirectory, "a/old.py", strings.Repeat("old_token ", 500), fixedNow.Add(-31*24*time.Hour))
	freshRecord := writeFileAt(testingInstance, rootDirectory, "b/new.py", strings.Repeat("new_token ", 500), fixedNow.Add(-time.Hour))

	groups := group.Prepare(map[string][]types.FileRecord{
		"a": {staleRecord},
		"b": {freshRecord},
	})

	document, summary, assembleError := assemble.Assemble(context.Background(), groups, defaultOptions(535))
	if assembleError != nil {
		testingInstance.Fatalf("assemble: %v", assembleError)
	}

	if !strings.Contains(document, "# old.py: skipped (token limit)") {
		testingInstance.Error("expected a skip note for the stale file")
	}
	if summary.FilesIncluded != 1 || summary.FilesTruncated != 0 || summary.FilesSkipped != 1 {
		testingInstance.Errorf("unexpected summary: %+v", summary)
	}
}

// TestTinyBudgetStillProducesDocument covers a limit below the fixed prefix cost.
func TestTinyBudgetStillProducesDocument(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	freshRecord := writeFileAt(testingInstance, rootDirectory, "app.py", "print('hello world')\n", fixedNow.Add(-time.Hour))

	groups := group.Prepare(map[string][]types.FileRecord{".": {freshRecord}})

	options := defaultOptions(5)
	options.Preamble = "PREAMBLE_SENTINEL text"

	document, summary, assembleError := assemble.Assemble(context.Background(), groups, options)
	if assembleError != nil {
		testingInstance.Fatalf("assemble: %v", assembleError)
	}

	if summary.FilesIncluded != 0 {
		testingInstance.Errorf("expected zero included files, got %d", summary.FilesIncluded)
	}
	if !strings.Contains(document, "# CodeSight: sample") {
		testingInstance.Error("expected the document header despite the tiny budget")
	}
	if !strings.Contains(document, "# - app.py") {
		testingInstance.Error("expected the structural overview despite the tiny budget")
	}
	if !strings.Contains(document, "PREAMBLE_SENTINEL") {
		testingInstance.Error("expected the preamble despite the tiny budget")
	}
	if !strings.Contains(document, "# app.py: skipped (token limit)") {
		testingInstance.Error("expected a skip note for the fresh file")
	}
}

// TestInvalidByteSequencesAreRecovered covers best-effort decoding.
func TestInvalidByteSequencesAreRecovered(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	fullPath := filepath.Join(rootDirectory, "legacy.py")
	if writeError := os.WriteFile(fullPath, []byte{'h', 'i', 0xff, '!', '\n'}, 0o644); writeError != nil {
		testingInstance.Fatalf("write: %v", writeError)
	}
	modificationTime := fixedNow.Add(-time.Hour)
	if timeError := os.Chtimes(fullPath, modificationTime, modificationTime); timeError != nil {
		testingInstance.Fatalf("chtimes: %v", timeError)
	}
	record := types.FileRecord{AbsolutePath: fullPath, RelativePath: "legacy.py", ModTime: modificationTime}

	groups := group.Prepare(map[string][]types.FileRecord{".": {record}})

	document, summary, assembleError := assemble.Assemble(context.Background(), groups, defaultOptions(10_000))
	if assembleError != nil {
		testingInstance.Fatalf("assemble: %v", assembleError)
	}
	if !strings.Contains(document, "hi!") {
		testingInstance.Error("expected the recoverable portion of the content")
	}
	if summary.FilesIncluded != 1 {
		testingInstance.Errorf("expected the file to be included, got %+v", summary)
	}
	if summary.TokensUsed > 10_000 {
		testingInstance.Errorf("ledger exceeded the limit: %d", summary.TokensUsed)
	}
}

// TestBinaryContentIsOmitted verifies NUL-bearing files become a note.
func TestBinaryContentIsOmitted(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	fullPath := filepath.Join(rootDirectory, "blob.bin")
	if writeError := os.WriteFile(fullPath, []byte{0x00, 0x01, 0x02}, 0o644); writeError != nil {
		testingInstance.Fatalf("write: %v", writeError)
	}
	modificationTime := fixedNow.Add(-time.Hour)
	if timeError := os.Chtimes(fullPath, modificationTime, modificationTime); timeError != nil {
		testingInstance.Fatalf("chtimes: %v", timeError)
	}
	record := types.FileRecord{AbsolutePath: fullPath, RelativePath: "blob.bin", ModTime: modificationTime}

	document, summary, assembleError := assemble.Assemble(context.Background(), group.Prepare(map[string][]types.FileRecord{".": {record}}), defaultOptions(10_000))
	if assembleError != nil {
		testingInstance.Fatalf("assemble: %v", assembleError)
	}
	if !strings.Contains(document, "# blob.bin: binary content omitted") {
		testingInstance.Error("expected a binary omission note")
	}
	if summary.FilesSkipped != 1 {
		testingInstance.Errorf("expected the binary file to be skipped, got %+v", summary)
	}
}

// TestUnreadableFileDegradesToInlineNote verifies a read failure never aborts assembly.
func TestUnreadableFileDegradesToInlineNote(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	missingRecord := types.FileRecord{
		AbsolutePath: filepath.Join(rootDirectory, "vanished.py"),
		RelativePath: "vanished.py",
		ModTime:      fixedNow.Add(-time.Hour),
	}
	presentRecord := writeFileAt(testingInstance, rootDirectory, "present.py", "still here\n", fixedNow.Add(-2*time.Hour))

	groups := group.Prepare(map[string][]types.FileRecord{".": {missingRecord, presentRecord}})

	document, summary, assembleError := assemble.Assemble(context.Background(), groups, defaultOptions(10_000))
	if assembleError != nil {
		testingInstance.Fatalf("assemble: %v", assembleError)
	}
	if !strings.Contains(document, "# --- Error reading file: vanished.py ---") {
		testingInstance.Error("expected an inline error note for the unreadable file")
	}
	if !strings.Contains(document, "still here") {
		testingInstance.Error("expected assembly to continue past the failure")
	}
	if summary.FilesSkipped != 1 || summary.FilesIncluded != 1 {
		testingInstance.Errorf("unexpected summary: %+v", summary)
	}
}

// TestAssemblyIsDeterministic verifies identical inputs yield identical documents.
func TestAssemblyIsDeterministic(testingInstance *testing.T) {
	rootDirectory := testingInstance.TempDir()
	firstRecord := writeFileAt(testingInstance, rootDirectory, "x/first.py", "alpha beta\n", fixedNow.Add(-time.Hour))
	secondRecord := writeFileAt(testingInstance, rootDirectory, "y/second.py", "gamma delta\n", fixedNow.Add(-2*time.Hour))

	buckets := map[string][]types.FileRecord{
		"x": {firstRecord},
		"y": {secondRecord},
	}

	firstDocument, firstSummary, firstError := assemble.Assemble(context.Background(), group.Prepare(buckets), defaultOptions(10_000))
	secondDocument, secondSummary, secondError := assemble.Assemble(context.Background(), group.Prepare(buckets), defaultOptions(10_000))
	if firstError != nil || secondError != nil {
		testingInstance.Fatalf("assemble errors: %v, %v", firstError, secondError)
	}
	if firstDocument != secondDocument {
		testingInstance.Error("expected byte-identical documents across runs")
	}
	if firstSummary != secondSummary {
		testingInstance.Errorf("expected identical summaries: %+v vs %+v", firstSummary, secondSummary)
	}
}
