package conflict

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/metaguard/pkg/metadata"
)

// previewLimit is how many following items an overwrite prompt lists.
const previewLimit = 10

// BatchOptions returns the choices offered for item i of n. The remaining
// choices are offered only when later items exist.
func BatchOptions(i, n int) []Option {
	opts := []Option{{Choice: Overwrite}, {Choice: Skip}}
	if i < n-1 {
		k := n - i
		opts = append(opts,
			Option{Choice: OverwriteRemaining, Count: k},
			Option{Choice: SkipRemaining, Count: k})
	}
	return opts
}

// DecideBatch asks decide about each of n items in order and returns the
// indices to skip in ascending order. ok is false when an answer was not
// among the offered options, which the caller treats as cancellation.
func DecideBatch(n int, decide func(i int, opts []Option) Choice) (skipped []int, ok bool) {
	skipped = []int{}
	for i := 0; i < n; i++ {
		opts := BatchOptions(i, n)
		choice := decide(i, opts)
		if !offered(opts, choice) {
			return nil, false
		}
		switch choice {
		case Skip:
			skipped = append(skipped, i)
		case OverwriteRemaining:
			return skipped, true
		case SkipRemaining:
			for j := i; j < n; j++ {
				skipped = append(skipped, j)
			}
			return skipped, true
		}
	}
	return skipped, true
}

// OverwriteMessage describes item i of items along with a preview of the
// items that follow it.
func OverwriteMessage(items []metadata.LocalComponent, i int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s named %q already exists in your local project. Do you want to overwrite it?", items[i].Type, items[i].FileName)

	following := len(items) - i - 1
	if following <= 0 {
		return b.String()
	}
	noun := "components"
	if following == 1 {
		noun = "component"
	}
	fmt.Fprintf(&b, "\n\n%d other existing %s:", following, noun)
	end := i + 1 + previewLimit
	if end > len(items) {
		end = len(items)
	}
	for _, c := range items[i+1 : end] {
		b.WriteString("\n" + c.String())
	}
	if rest := len(items) - i - 1 - previewLimit; rest > 0 {
		fmt.Fprintf(&b, "\n+%d more not shown", rest)
	}
	return b.String()
}
