package conflict

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/metaguard/pkg/metadata"
)

const classesDir = "force-app/main/default/classes"

type existenceFixture struct {
	root      string
	prompter  *scriptedPrompter
	notifier  *recordingNotifier
	telemetry *recordingTelemetry
	checker   *LocalExistenceChecker
}

func newExistenceFixture(t *testing.T, existing []string, script ...Choice) existenceFixture {
	t.Helper()
	root := t.TempDir()
	for _, name := range existing {
		p := filepath.Join(root, classesDir, name+".cls")
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("public class "+name+" {}"), 0o644))
	}
	f := existenceFixture{
		root:      root,
		prompter:  &scriptedPrompter{script: script},
		notifier:  &recordingNotifier{},
		telemetry: &recordingTelemetry{},
	}
	f.checker = NewLocalExistenceChecker(ExistenceConfig{
		Paths:         metadata.DefaultRegistry(),
		WorkspaceRoot: root,
		Prompter:      f.prompter,
		Notifier:      f.notifier,
		Telemetry:     f.telemetry,
	})
	return f
}

func classes(names ...string) []metadata.LocalComponent {
	out := make([]metadata.LocalComponent, 0, len(names))
	for _, n := range names {
		out = append(out, metadata.LocalComponent{Type: "ApexClass", FileName: n, OutputDir: classesDir})
	}
	return out
}

func TestLocalExistence_NothingExists(t *testing.T) {
	f := newExistenceFixture(t, nil)
	in := Continue(metadata.ComponentList(classes("A", "B")))

	out := f.checker.Check(context.Background(), in)

	assert.Equal(t, in, out)
	assert.Equal(t, 0, f.prompter.calls())
}

func TestLocalExistence_AllOverwrite(t *testing.T) {
	f := newExistenceFixture(t, []string{"A", "B"}, Overwrite, Overwrite)
	in := Continue(metadata.ComponentList(classes("A", "B", "C")))

	out := f.checker.Check(context.Background(), in)

	require.False(t, out.Cancelled())
	assert.Equal(t, classes("A", "B", "C"), out.Payload().Components())
	assert.Equal(t, 2, f.prompter.calls(), "only existing components are prompted")
	assert.Contains(t, f.prompter.messages[0], `"A" already exists`)
}

func TestLocalExistence_SkipNarrowsList(t *testing.T) {
	f := newExistenceFixture(t, []string{"A", "B", "C"}, Skip, OverwriteRemaining)
	in := Continue(metadata.ComponentList(classes("A", "B", "C", "D")))

	out := f.checker.Check(context.Background(), in)

	require.False(t, out.Cancelled())
	assert.Equal(t, classes("B", "C", "D"), out.Payload().Components())
	assert.Equal(t, 2, f.prompter.calls())
	assert.Equal(t, []Option{
		{Choice: Overwrite}, {Choice: Skip},
		{Choice: OverwriteRemaining, Count: 3}, {Choice: SkipRemaining, Count: 3},
	}, f.prompter.options[0])
}

func TestLocalExistence_SkipAllCancels(t *testing.T) {
	f := newExistenceFixture(t, []string{"A", "B"}, Skip, Skip)
	out := f.checker.Check(context.Background(), Continue(metadata.ComponentList(classes("A", "B", "C"))))
	assert.True(t, out.Cancelled())

	f = newExistenceFixture(t, []string{"A", "B"}, SkipRemaining)
	out = f.checker.Check(context.Background(), Continue(metadata.ComponentList(classes("A", "B"))))
	assert.True(t, out.Cancelled())
}

func TestLocalExistence_DismissalCancels(t *testing.T) {
	f := newExistenceFixture(t, []string{"A", "B"}, Overwrite)
	out := f.checker.Check(context.Background(), Continue(metadata.ComponentList(classes("A", "B"))))
	assert.True(t, out.Cancelled())
}

func TestLocalExistence_Single(t *testing.T) {
	f := newExistenceFixture(t, []string{"A"}, Overwrite)
	in := Continue(metadata.SingleComponent(classes("A")[0]))
	out := f.checker.Check(context.Background(), in)
	assert.Equal(t, in, out)
	assert.Equal(t, []Option{{Choice: Overwrite}, {Choice: Skip}}, f.prompter.options[0])

	f = newExistenceFixture(t, []string{"A"}, Skip)
	out = f.checker.Check(context.Background(), in)
	assert.True(t, out.Cancelled())
}

func TestLocalExistence_MissingSuffixIsReported(t *testing.T) {
	f := newExistenceFixture(t, []string{"A"}, Overwrite)
	unknown := metadata.LocalComponent{Type: "Mystery", FileName: "Thing", OutputDir: classesDir}
	list := append(classes("A"), unknown)

	out := f.checker.Check(context.Background(), Continue(metadata.ComponentList(list)))

	require.False(t, out.Cancelled())
	assert.Equal(t, list, out.Payload().Components())
	assert.Equal(t, []string{"Missing suffix for Mystery"}, f.notifier.errors)
	require.Len(t, f.telemetry.events, 1)
	assert.Equal(t, ExceptionOverwritePrompt, f.telemetry.events[0].name)
	assert.Equal(t, 1, f.prompter.calls())
}

func TestLocalExistence_ExplicitSuffixProbesDescriptor(t *testing.T) {
	f := newExistenceFixture(t, nil, Overwrite)
	p := filepath.Join(f.root, "out", "Widget.widget-meta.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("<x/>"), 0o644))

	c := metadata.LocalComponent{Type: "Widget", FileName: "Widget", Suffix: "widget", OutputDir: "out"}
	out := f.checker.Check(context.Background(), Continue(metadata.SingleComponent(c)))

	assert.False(t, out.Cancelled())
	assert.Equal(t, 1, f.prompter.calls())
	assert.Empty(t, f.notifier.errors)
}

func TestLocalExistence_DirectoryIsNotAFile(t *testing.T) {
	f := newExistenceFixture(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, classesDir, "A.cls"), 0o755))

	out := f.checker.Check(context.Background(), Continue(metadata.ComponentList(classes("A"))))
	assert.False(t, out.Cancelled())
	assert.Equal(t, 0, f.prompter.calls())
}

func TestLocalExistence_CustomPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), nil, 0o644))
	prompter := &scriptedPrompter{script: []Choice{Overwrite}}
	checker := NewLocalExistenceChecker(ExistenceConfig{
		Paths:         mapPaths{"A": {"a.txt"}},
		WorkspaceRoot: root,
		Prompter:      prompter,
		Notifier:      &recordingNotifier{},
		Telemetry:     &recordingTelemetry{},
	})
	out := checker.Check(context.Background(), Continue(metadata.ComponentList(classes("A", "B"))))
	assert.False(t, out.Cancelled())
	assert.Equal(t, 1, prompter.calls())
}

func TestLocalExistence_RepeatedComponentPromptedOnce(t *testing.T) {
	f := newExistenceFixture(t, []string{"A"}, Overwrite)
	out := f.checker.Check(context.Background(), Continue(metadata.ComponentList(classes("A", "B", "A"))))

	require.False(t, out.Cancelled())
	assert.Equal(t, classes("A", "B"), out.Payload().Components())
	assert.Equal(t, 1, f.prompter.calls())

	f = newExistenceFixture(t, []string{"A"}, Skip, Overwrite)
	out = f.checker.Check(context.Background(), Continue(metadata.ComponentList(classes("A", "A"))))
	assert.True(t, out.Cancelled(), "skipping the only existing component cancels")
	assert.Equal(t, 1, f.prompter.calls())
}
