package group_test

import (
	"testing"
	"time"

	"github.com/mattsilv/codesight/internal/group"
	"github.com/mattsilv/codesight/internal/types"
)

// recordAt builds a file record with the provided modification time.
func recordAt(relativePath string, modificationTime time.Time) types.FileRecord {
	return types.FileRecord{
		AbsolutePath: "/project/" + relativePath,
		RelativePath: relativePath,
		ModTime:      modificationTime,
	}
}

// TestPrepareOrdersByRecency verifies descending order with path tie-breaks.
func TestPrepareOrdersByRecency(testingInstance *testing.T) {
	baseTime := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	buckets := map[string][]types.FileRecord{
		"old": {
			recordAt("old/a.py", baseTime.Add(-48*time.Hour)),
			recordAt("old/b.py", baseTime.Add(-72*time.Hour)),
		},
		"fresh": {
			recordAt("fresh/new.py", baseTime),
		},
		"tied-b": {
			recordAt("tied-b/x.py", baseTime.Add(-24*time.Hour)),
		},
		"tied-a": {
			recordAt("tied-a/y.py", baseTime.Add(-24*time.Hour)),
		},
		"empty": {},
	}

	groups := group.Prepare(buckets)

	expectedOrder := []string{"fresh", "tied-a", "tied-b", "old"}
	if len(groups) != len(expectedOrder) {
		testingInstance.Fatalf("expected %d groups, got %d", len(expectedOrder), len(groups))
	}
	for position, expectedPath := range expectedOrder {
		if groups[position].DirectoryPath != expectedPath {
			testingInstance.Errorf("position %d: expected %q, got %q", position, expectedPath, groups[position].DirectoryPath)
		}
	}

	if !groups[len(groups)-1].MostRecent.Equal(baseTime.Add(-48 * time.Hour)) {
		testingInstance.Errorf("expected the group timestamp to be the newest file's, got %v", groups[len(groups)-1].MostRecent)
	}
}

// TestPrepareIsIdempotent verifies repeated preparation yields the same order.
func TestPrepareIsIdempotent(testingInstance *testing.T) {
	baseTime := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	buckets := map[string][]types.FileRecord{
		"a": {recordAt("a/one.py", baseTime.Add(-time.Hour))},
		"b": {recordAt("b/two.py", baseTime)},
		"c": {recordAt("c/three.py", baseTime.Add(-2*time.Hour))},
	}

	firstPass := group.Prepare(buckets)
	secondPass := group.Prepare(buckets)

	if len(firstPass) != len(secondPass) {
		testingInstance.Fatalf("pass lengths differ: %d vs %d", len(firstPass), len(secondPass))
	}
	for position := range firstPass {
		if firstPass[position].DirectoryPath != secondPass[position].DirectoryPath {
			testingInstance.Errorf("position %d differs: %q vs %q", position, firstPass[position].DirectoryPath, secondPass[position].DirectoryPath)
		}
	}
}
