// Package terminal implements the interactive prompt and error notifications
// on a text terminal.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/fulmenhq/metaguard/pkg/conflict"
	"github.com/fulmenhq/metaguard/pkg/logger"
)

const (
	defaultWidth = 100
	maxAttempts  = 3
)

// Prompter asks numbered multiple choice questions. It is not safe for
// concurrent use.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	width       int
	// pending carries a read left running by a cancelled prompt.
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

// NewPrompter creates a prompter reading answers from in. When in is a file
// that is not a terminal every prompt is treated as dismissed; other readers
// are assumed to carry scripted answers.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, interactive: true, width: defaultWidth}
	if f, ok := in.(*os.File); ok {
		p.interactive = term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) { // #nosec G115
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 { // #nosec G115
			p.width = w
		}
	}
	return p
}

// Interactive reports whether answers can be read.
func (p *Prompter) Interactive() bool { return p.interactive }

// Choose implements conflict.Prompter. An empty answer, end of input, an
// unreadable answer after repeated attempts, or ctx cancellation yields None.
func (p *Prompter) Choose(ctx context.Context, message string, options []conflict.Option) conflict.Choice {
	if !p.interactive {
		logger.Warn("Prompt skipped: input is not a terminal", logger.Int("options", len(options)))
		return conflict.None
	}

	p.render(message, options)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, _ = fmt.Fprintf(p.out, "❓ Select 1-%d (empty to cancel): ", len(options))
		line, err := p.readLine(ctx)
		if err != nil {
			_, _ = fmt.Fprintln(p.out)
			return conflict.None
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return conflict.None
		}
		if choice, ok := parseAnswer(line, options); ok {
			return choice
		}
		_, _ = fmt.Fprintf(p.out, "Invalid selection %q\n", line)
	}
	return conflict.None
}

func (p *Prompter) render(message string, options []conflict.Option) {
	_, _ = fmt.Fprintln(p.out)
	for _, line := range strings.Split(message, "\n") {
		_, _ = fmt.Fprintln(p.out, runewidth.Truncate(line, p.width, "..."))
	}
	_, _ = fmt.Fprintln(p.out)
	for i, o := range options {
		_, _ = fmt.Fprintf(p.out, "  [%d] %s\n", i+1, o.Label())
	}
}

// readLine waits for the next answer line. A read abandoned by ctx stays
// in flight and its line is handed to the next call, so the reader never has
// two goroutines.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	if p.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			line, err := p.in.ReadString('\n')
			if err == io.EOF && line != "" {
				err = nil
			}
			ch <- readResult{line, err}
		}()
		p.pending = ch
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.pending:
		p.pending = nil
		return r.line, r.err
	}
}

// parseAnswer accepts an option number or, case-insensitively, its label.
func parseAnswer(answer string, options []conflict.Option) (conflict.Choice, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1].Choice, true
		}
		return conflict.None, false
	}
	for _, o := range options {
		if strings.EqualFold(answer, o.Label()) || strings.EqualFold(answer, o.Choice.String()) {
			return o.Choice, true
		}
	}
	return conflict.None, false
}

// Notifier prints error notifications.
type Notifier struct {
	out io.Writer
}

// NewNotifier creates a notifier writing to out.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

// ShowError implements conflict.Notifier.
func (n *Notifier) ShowError(message string) {
	_, _ = fmt.Fprintf(n.out, "❌ %s\n", message)
}
