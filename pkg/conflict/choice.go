package conflict

import (
	"context"
	"fmt"
)

// Choice is a symbolic prompt answer. Prompters map it to display text.
type Choice int

const (
	// None means the prompt was dismissed.
	None Choice = iota
	Overwrite
	Skip
	OverwriteRemaining
	SkipRemaining
	Override
	ShowConflicts
)

var choiceNames = map[Choice]string{
	None:               "none",
	Overwrite:          "overwrite",
	Skip:               "skip",
	OverwriteRemaining: "overwrite-remaining",
	SkipRemaining:      "skip-remaining",
	Override:           "override",
	ShowConflicts:      "show-conflicts",
}

func (c Choice) String() string {
	if name, ok := choiceNames[c]; ok {
		return name
	}
	return fmt.Sprintf("choice(%d)", int(c))
}

// Option is one offered choice. Count is the number of items a "remaining"
// choice applies to and is zero otherwise.
type Option struct {
	Choice Choice
	Count  int
}

// Label is the default English display text.
func (o Option) Label() string {
	switch o.Choice {
	case Overwrite:
		return "Overwrite"
	case Skip:
		return "Skip"
	case OverwriteRemaining:
		return fmt.Sprintf("Overwrite All (%d)", o.Count)
	case SkipRemaining:
		return fmt.Sprintf("Skip All (%d)", o.Count)
	case Override:
		return "Override Conflicts"
	case ShowConflicts:
		return "Show Conflicts"
	default:
		return o.Choice.String()
	}
}

// Prompter asks the user to pick one of options. It returns None when the
// prompt is dismissed or ctx is done.
type Prompter interface {
	Choose(ctx context.Context, message string, options []Option) Choice
}

func offered(options []Option, c Choice) bool {
	for _, o := range options {
		if o.Choice == c {
			return true
		}
	}
	return false
}
