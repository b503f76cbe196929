package engine

import "fmt"

// displayNames deduplicates reported drive names while preserving input
// order. Some storage controllers report several physical drives under
// one identical model string; the first occurrence keeps the raw name,
// the n-th repeat gets a " #n" suffix with n starting at 2.
func displayNames(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]int, len(raw))
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s #%d", name, n)
		}
		out = append(out, name)
	}
	return out
}
