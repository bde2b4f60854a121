// Package temporal indexes radar captures by timestamp and answers
// nearest-timestamp queries for LiDAR keyframes.
package temporal

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Capture is one indexed sensor file.
type Capture struct {
	Timestamp int64
	Path      string
}

// Index is an immutable, timestamp-sorted list of captures.
type Index struct {
	entries []Capture
}

// ParseTimestamp extracts the integer timestamp encoded in a capture's
// base name, e.g. "/x/1700000000123.pcd" -> 1700000000123.
func ParseTimestamp(path string) (int64, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ts, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// Build indexes paths by the timestamp in their base names. Paths whose
// names do not parse are dropped.
func Build(paths []string) *Index {
	entries := make([]Capture, 0, len(paths))
	for _, p := range paths {
		ts, ok := ParseTimestamp(p)
		if !ok {
			continue
		}
		entries = append(entries, Capture{Timestamp: ts, Path: p})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return &Index{entries: entries}
}

// Len returns the number of indexed captures.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// Captures returns a copy of the indexed captures in timestamp order.
func (x *Index) Captures() []Capture {
	if x == nil {
		return nil
	}
	return append([]Capture(nil), x.entries...)
}

// Nearest returns the capture whose timestamp is closest to ts. Queries
// outside the indexed range clamp to the boundary entry; an exact tie
// between two neighbours resolves to the earlier one.
func (x *Index) Nearest(ts int64) (Capture, bool) {
	n := x.Len()
	if n == 0 {
		return Capture{}, false
	}

	i := sort.Search(n, func(i int) bool { return x.entries[i].Timestamp >= ts })
	switch {
	case i == 0:
		return x.entries[0], true
	case i == n:
		return x.entries[n-1], true
	}

	before, after := x.entries[i-1], x.entries[i]
	if after.Timestamp-ts < ts-before.Timestamp {
		return after, true
	}
	return before, true
}
