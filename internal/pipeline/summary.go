package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// FormatMatchSummary renders an OutputResult as the plain-text match
// summary named in §6: one line per icon group naming its best match per
// slot, followed by any remaining distinctly-named candidates that
// cleared threshold.
func FormatMatchSummary(output OutputResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build type: %s\n", output.BuildType)

	for _, group := range sortedGroupKeys(output.Matches) {
		fmt.Fprintf(&b, "\n%s:\n", group)
		slots := output.Matches[group]
		for _, slotIndex := range sortedSlotKeys(slots) {
			results := slots[slotIndex]
			if len(results) == 0 {
				fmt.Fprintf(&b, "  slot %d: no match\n", slotIndex)
				continue
			}
			best := results[0]
			fmt.Fprintf(&b, "  slot %d: %s (overlay=%s score=%.3f method=%s)\n",
				slotIndex, best.Name, best.Overlay, best.Score, best.Method)

			for _, other := range dedupByName(results[1:], best.Name) {
				fmt.Fprintf(&b, "    also: %s (overlay=%s score=%.3f method=%s)\n",
					other.Name, other.Overlay, other.Score, other.Method)
			}
		}
	}
	return b.String()
}

// dedupByName drops results whose Name has already been reported,
// starting with exclude, so the same catalog file isn't printed twice
// across overlay/scale variants.
func dedupByName(results []catalogmodel.MatchResult, exclude string) []catalogmodel.MatchResult {
	seen := map[string]bool{exclude: true}
	out := make([]catalogmodel.MatchResult, 0, len(results))
	for _, r := range results {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}

func sortedGroupKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSlotKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
