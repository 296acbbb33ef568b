// Package group orders scanned directories by the recency of their files.
package group

import (
	"sort"

	"github.com/mattsilv/codesight/internal/types"
)

// Prepare converts the directory-keyed mapping into directory groups sorted by
// the most recent modification time, newest first. Ties are broken by the
// relative directory path ascending so the ordering is a deterministic total
// order across runs. Empty buckets are dropped. Prepare is a pure transform
// and is idempotent on already-sorted input.
func Prepare(buckets map[string][]types.FileRecord) []types.DirectoryGroup {
	groups := make([]types.DirectoryGroup, 0, len(buckets))
	for directoryPath, records := range buckets {
		if len(records) == 0 {
			continue
		}
		mostRecent := records[0].ModTime
		for _, record := range records[1:] {
			if record.ModTime.After(mostRecent) {
				mostRecent = record.ModTime
			}
		}
		groups = append(groups, types.DirectoryGroup{
			DirectoryPath: directoryPath,
			Files:         records,
			MostRecent:    mostRecent,
		})
	}

	sort.Slice(groups, func(firstIndex, secondIndex int) bool {
		first, second := groups[firstIndex], groups[secondIndex]
		if !first.MostRecent.Equal(second.MostRecent) {
			return first.MostRecent.After(second.MostRecent)
		}
		return first.DirectoryPath < second.DirectoryPath
	})
	return groups
}
