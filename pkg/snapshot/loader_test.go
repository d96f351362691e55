package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/metaguard/pkg/metadata"
)

const pkgDir = "force-app/main/default"

type fixedLookup struct {
	times map[string]time.Time
	err   error
	orgs  []string
}

func (f *fixedLookup) Lookup(_ context.Context, org string, keys []string) (map[string]time.Time, error) {
	f.orgs = append(f.orgs, org)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]time.Time)
	for _, k := range keys {
		if ts, ok := f.times[k]; ok {
			out[k] = ts
		}
	}
	return out, nil
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newLoaderFixture(t *testing.T, lookup TimestampLookup) (*Loader, string, string) {
	t.Helper()
	ws := t.TempDir()
	cache := t.TempDir()
	write(t, filepath.Join(ws, pkgDir, "classes", "Invoice.cls"), "class")
	write(t, filepath.Join(ws, pkgDir, "classes", "Invoice.cls-meta.xml"), "meta")
	write(t, filepath.Join(ws, pkgDir, "triggers", "OnInvoice.trigger"), "trigger")
	write(t, filepath.Join(ws, "manifest", "package.xml"), `<Package>
  <types><members>Invoice</members><name>ApexClass</name></types>
</Package>`)
	write(t, filepath.Join(cache, "dev", PropertiesFileName),
		`[{"type":"ApexClass","fullName":"Invoice","fileName":"classes/Invoice.cls","lastModifiedDate":"2025-03-02T09:30:00Z"}]`)
	return NewLoader(metadata.DefaultRegistry(), pkgDir, cache, lookup), ws, cache
}

func TestLoader_SourcePath(t *testing.T) {
	recorded := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	lookup := &fixedLookup{times: map[string]time.Time{"ApexClass#Invoice": recorded}}
	loader, ws, _ := newLoaderFixture(t, lookup)

	snap, err := loader.LoadSnapshot(context.Background(), "dev", pkgDir, ws, false)
	require.NoError(t, err)

	assert.Equal(t, "dev", snap.Identity)
	assert.False(t, snap.IsManifest)
	assert.ElementsMatch(t, []LocalEntry{
		{Type: "ApexClass", FullName: "Invoice", RelPath: pkgDir + "/classes/Invoice.cls"},
		{Type: "ApexTrigger", FullName: "OnInvoice", RelPath: pkgDir + "/triggers/OnInvoice.trigger"},
	}, snap.Local)
	require.Len(t, snap.Remote, 1)
	assert.Equal(t, "classes/Invoice.cls", snap.Remote[0].CachePath)
	assert.True(t, recorded.Equal(snap.Recorded["ApexClass#Invoice"]))
	assert.Equal(t, []string{"dev"}, lookup.orgs)
}

func TestLoader_Manifest(t *testing.T) {
	loader, ws, _ := newLoaderFixture(t, &fixedLookup{})

	snap, err := loader.LoadSnapshot(context.Background(), "dev", "manifest/package.xml", ws, true)
	require.NoError(t, err)
	assert.True(t, snap.IsManifest)
	assert.Equal(t, []LocalEntry{
		{Type: "ApexClass", FullName: "Invoice", RelPath: pkgDir + "/classes/Invoice.cls"},
	}, snap.Local)
	assert.Empty(t, snap.Recorded)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("no cached snapshot", func(t *testing.T) {
		loader, ws, _ := newLoaderFixture(t, &fixedLookup{})
		_, err := loader.LoadSnapshot(context.Background(), "other", pkgDir, ws, false)
		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr), "err = %v", err)
		assert.Equal(t, pkgDir, loadErr.Selection)
		assert.ErrorIs(t, err, ErrNoSnapshot)
	})

	t.Run("identity outside cache", func(t *testing.T) {
		loader, ws, cache := newLoaderFixture(t, &fixedLookup{})
		write(t, filepath.Join(filepath.Dir(cache), "evil", PropertiesFileName), `[]`)
		_, err := loader.LoadSnapshot(context.Background(), "../evil", pkgDir, ws, false)
		assert.ErrorIs(t, err, ErrInvalidIdentity)
	})

	t.Run("bad manifest", func(t *testing.T) {
		loader, ws, _ := newLoaderFixture(t, &fixedLookup{})
		_, err := loader.LoadSnapshot(context.Background(), "dev", "manifest/missing.xml", ws, true)
		var mErr *metadata.ManifestError
		assert.True(t, errors.As(err, &mErr), "err = %v", err)
	})

	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("database locked")
		loader, ws, _ := newLoaderFixture(t, &fixedLookup{err: boom})
		_, err := loader.LoadSnapshot(context.Background(), "dev", pkgDir, ws, false)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("corrupt properties", func(t *testing.T) {
		loader, ws, cache := newLoaderFixture(t, &fixedLookup{})
		write(t, filepath.Join(cache, "dev", PropertiesFileName), "{")
		_, err := loader.LoadSnapshot(context.Background(), "dev", pkgDir, ws, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse remote properties")
	})
}

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties([]byte(`[
  {"type":"ApexClass","fullName":"Invoice","fileName":"classes/Invoice.cls","lastModifiedDate":"2025-03-02T09:30:00.000Z"},
  {"type":"CustomObject","fullName":"Account","fileName":"objects/Account","lastModifiedDate":"2025-03-01T00:00:00Z"}
]`))
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "Account", props[1].FullName)
	assert.Equal(t, 2025, props[0].LastModified.Year())

	empty, err := ParseProperties([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseProperties([]byte(`{"type":"ApexClass"}`))
	assert.Error(t, err)
}

func TestOrgDir(t *testing.T) {
	cache := t.TempDir()

	dir, err := OrgDir(cache, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "dev@example.com"), dir)

	for _, identity := range []string{"", ".", "..", "../evil", "a/b", `a\b`} {
		_, err := OrgDir(cache, identity)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "identity %q", identity)
	}
}
