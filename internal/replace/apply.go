package replace

import (
	"fmt"
	"go/format"
	"sort"

	"github.com/gnoswap-labs/ssr/internal/matcher"
	"github.com/gnoswap-labs/ssr/internal/types"
)

// Apply expands tmpl for every result and splices the expansions into
// src. Results are taken in source order; one that overlaps an earlier
// result is skipped. The returned edits are in source order and refer to
// offsets in src, before imports are fixed up.
func Apply(src []byte, results []*matcher.Result, tmpl *Template) ([]byte, []types.Edit, error) {
	ordered := make([]*matcher.Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	var edits []types.Edit
	last := -1
	for _, r := range ordered {
		if r.Start < last || r.Start < 0 || r.End > len(src) {
			continue
		}
		text, err := tmpl.Expand(r)
		if err != nil {
			return nil, nil, err
		}
		edits = append(edits, types.Edit{Start: r.Start, End: r.End, Text: text})
		last = r.End
	}

	out := Splice(src, edits)
	if len(edits) > 0 {
		fixed, err := FixImports(src, out, tmpl.Imports)
		if err != nil {
			return nil, nil, fmt.Errorf("imports: %w", err)
		}
		out = fixed
	}
	if tmpl.Reformat && len(edits) > 0 {
		formatted, err := format.Source(out)
		if err != nil {
			return nil, nil, fmt.Errorf("reformat: %w", err)
		}
		out = formatted
	}
	return out, edits, nil
}

// Splice applies non-overlapping edits sorted by Start.
func Splice(src []byte, edits []types.Edit) []byte {
	out := make([]byte, 0, len(src))
	pos := 0
	for _, e := range edits {
		out = append(out, src[pos:e.Start]...)
		out = append(out, e.Text...)
		pos = e.End
	}
	return append(out, src[pos:]...)
}
