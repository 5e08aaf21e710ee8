// Package textdiff computes the changed region between two versions of a
// document by trimming the common prefix and suffix. The result bounds the
// edit safely; it is not a minimal edit script.
package textdiff

import (
	"sort"
	"strings"
	"time"
)

// Op classifies a content diff.
type Op string

// Supported diff operations.
const (
	OpInsert  Op = "insert"
	OpDelete  Op = "delete"
	OpReplace Op = "replace"
)

// Diff describes a single contiguous changed region. Offsets are byte
// offsets into the old content; [StartOffset, EndOffset) covers OldText.
type Diff struct {
	Op          Op        `json:"op"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	OldText     string    `json:"old_text"`
	NewText     string    `json:"new_text"`
	Timestamp   time.Time `json:"timestamp"`
}

// Delta is the signed length change the diff applies to the document.
func (d Diff) Delta() int {
	return len(d.NewText) - len(d.OldText)
}

// Calculator computes content diffs. Documents at or above LineModeThreshold
// bytes are trimmed line-by-line instead of byte-by-byte to bound comparison
// cost; both modes produce byte offsets.
type Calculator struct {
	// LineModeThreshold selects line-mode trimming for documents whose old
	// or new content is at least this many bytes. Zero means DefaultLineModeThreshold.
	LineModeThreshold int

	now func() time.Time
}

// DefaultLineModeThreshold is the document size at which the calculator
// switches from byte-wise to line-wise trimming.
const DefaultLineModeThreshold = 10_000

// NewCalculator returns a Calculator with default thresholds.
func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// Diff returns the changed region between oldContent and newContent, or an
// empty slice when they are equal. At most one diff is produced: multiple
// edits between recalculation points collapse into the single region spanned
// by the prefix/suffix trim.
func (c *Calculator) Diff(oldContent, newContent string) []Diff {
	if oldContent == newContent {
		return nil
	}

	threshold := c.LineModeThreshold
	if threshold <= 0 {
		threshold = DefaultLineModeThreshold
	}

	var prefix, suffix int
	if len(oldContent) >= threshold || len(newContent) >= threshold {
		prefix, suffix = trimLines(oldContent, newContent)
	} else {
		prefix, suffix = trimBytes(oldContent, newContent)
	}

	oldText := oldContent[prefix : len(oldContent)-suffix]
	newText := newContent[prefix : len(newContent)-suffix]
	if oldText == "" && newText == "" {
		return nil
	}

	op := OpReplace
	switch {
	case oldText == "":
		op = OpInsert
	case newText == "":
		op = OpDelete
	}

	ts := time.Now()
	if c.now != nil {
		ts = c.now()
	}

	return []Diff{{
		Op:          op,
		StartOffset: prefix,
		EndOffset:   prefix + len(oldText),
		OldText:     oldText,
		NewText:     newText,
		Timestamp:   ts,
	}}
}

// trimBytes returns the byte lengths of the common prefix and suffix of a
// and b. The prefix and suffix never overlap in either string.
func trimBytes(a, b string) (prefix, suffix int) {
	max := min(len(a), len(b))
	for prefix < max && a[prefix] == b[prefix] {
		prefix++
	}
	for suffix < max-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	return prefix, suffix
}

// trimLines trims common prefix and suffix whole lines, returning byte
// lengths. Coarser than trimBytes but linear in line count.
func trimLines(a, b string) (prefix, suffix int) {
	alines := splitAfterLines(a)
	blines := splitAfterLines(b)

	maxLines := min(len(alines), len(blines))
	i := 0
	for i < maxLines && alines[i] == blines[i] {
		prefix += len(alines[i])
		i++
	}

	j := 0
	for j < maxLines-i && alines[len(alines)-1-j] == blines[len(blines)-1-j] {
		suffix += len(alines[len(alines)-1-j])
		j++
	}
	return prefix, suffix
}

// splitAfterLines splits s into lines, each retaining its trailing newline,
// so concatenating the parts reproduces s exactly.
func splitAfterLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, "\n")
}

// Apply replays diffs onto oldContent and returns the resulting content.
// Diffs are applied from the end of the document backwards so earlier
// offsets stay valid.
func Apply(oldContent string, diffs []Diff) string {
	if len(diffs) == 0 {
		return oldContent
	}

	sorted := make([]Diff, len(diffs))
	copy(sorted, diffs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartOffset > sorted[j].StartOffset
	})

	out := oldContent
	for _, d := range sorted {
		out = out[:d.StartOffset] + d.NewText + out[d.EndOffset:]
	}
	return out
}

// SortByPosition orders diffs by ascending start offset, breaking ties by
// timestamp, so cumulative delta accumulation is deterministic.
func SortByPosition(diffs []Diff) []Diff {
	sorted := make([]Diff, len(diffs))
	copy(sorted, diffs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartOffset != sorted[j].StartOffset {
			return sorted[i].StartOffset < sorted[j].StartOffset
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
