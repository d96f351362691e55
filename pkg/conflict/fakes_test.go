package conflict

import (
	"context"
	"errors"
	"sync"

	"github.com/fulmenhq/metaguard/pkg/diff"
	"github.com/fulmenhq/metaguard/pkg/metadata"
	"github.com/fulmenhq/metaguard/pkg/snapshot"
)

type fakeIdentity struct {
	id string
}

func (f fakeIdentity) Identity() (string, bool) { return f.id, f.id != "" }

// scriptedPrompter answers with the scripted choices in order and records
// every prompt. An exhausted script answers None.
type scriptedPrompter struct {
	script   []Choice
	messages []string
	options  [][]Option
}

func (p *scriptedPrompter) Choose(_ context.Context, message string, options []Option) Choice {
	p.messages = append(p.messages, message)
	p.options = append(p.options, options)
	if len(p.script) == 0 {
		return None
	}
	c := p.script[0]
	p.script = p.script[1:]
	return c
}

func (p *scriptedPrompter) calls() int { return len(p.messages) }

type recordingChannel struct {
	lines []string
	shown int
}

func (c *recordingChannel) AppendLine(line string) { c.lines = append(c.lines, line) }
func (c *recordingChannel) Show()                  { c.shown++ }

type telemetryEvent struct {
	name, message string
}

type recordingTelemetry struct {
	events []telemetryEvent
}

func (t *recordingTelemetry) SendException(name, message string) {
	t.events = append(t.events, telemetryEvent{name, message})
}

type showCall struct {
	title, identity string
	reveal          bool
	results         *diff.DirectoryDiffResults
}

type recordingVisualizer struct {
	shows  []showCall
	resets []string
}

func (v *recordingVisualizer) Show(title, identity string, reveal bool, results *diff.DirectoryDiffResults) {
	v.shows = append(v.shows, showCall{title, identity, reveal, results})
}

func (v *recordingVisualizer) Reset(identity string) { v.resets = append(v.resets, identity) }

type recordingNotifier struct {
	errors []string
}

func (n *recordingNotifier) ShowError(message string) { n.errors = append(n.errors, message) }

type countingLock struct {
	mu      sync.Mutex
	unlocks int
}

func (l *countingLock) Unlock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocks++
	return nil
}

type stubDiffer struct {
	results *diff.DirectoryDiffResults
	err     error
	calls   int
	last    diff.DetectionConfig
}

func (d *stubDiffer) CompareForConflicts(_ context.Context, cfg diff.DetectionConfig) (*diff.DirectoryDiffResults, error) {
	d.calls++
	d.last = cfg
	return d.results, d.err
}

type stubLoader struct {
	snap  *snapshot.Snapshot
	err   error
	calls int
}

func (l *stubLoader) LoadSnapshot(context.Context, string, string, string, bool) (*snapshot.Snapshot, error) {
	l.calls++
	return l.snap, l.err
}

type stubBuilder struct {
	results *diff.DirectoryDiffResults
	panics  bool
	calls   int
}

func (b *stubBuilder) BuildDiffs(*snapshot.Snapshot) *diff.DirectoryDiffResults {
	b.calls++
	if b.panics {
		panic("corrupt snapshot")
	}
	return b.results
}

// mapPaths resolves components through a fixed table.
type mapPaths map[string][]string

func (m mapPaths) SourcePaths(c metadata.LocalComponent) ([]string, error) {
	paths, ok := m[c.FileName]
	if !ok {
		return nil, errors.New("no paths")
	}
	return paths, nil
}

func diffsOf(paths ...string) *diff.DirectoryDiffResults {
	r := &diff.DirectoryDiffResults{ScannedLocal: len(paths) + 2, ScannedRemote: len(paths) + 1}
	for _, p := range paths {
		r.Add(diff.FileDiff{LocalRelPath: p, RemoteRelPath: p})
	}
	return r
}

type fixture struct {
	prompter   *scriptedPrompter
	channel    *recordingChannel
	telemetry  *recordingTelemetry
	visualizer *recordingVisualizer
}

func newFixture(identity string, script ...Choice) (fixture, Collaborators) {
	f := fixture{
		prompter:   &scriptedPrompter{script: script},
		channel:    &recordingChannel{},
		telemetry:  &recordingTelemetry{},
		visualizer: &recordingVisualizer{},
	}
	return f, Collaborators{
		Identity:   fakeIdentity{id: identity},
		Prompter:   f.prompter,
		Channel:    f.channel,
		Telemetry:  f.telemetry,
		Visualizer: f.visualizer,
	}
}
