package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/metaguard/pkg/conflict"
	"github.com/fulmenhq/metaguard/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	recordedAt = "2025-03-01T10:00:00Z"
	changedAt  = "2025-03-02T09:30:00Z"
)

// recordSync records properties for org and returns the cached properties path.
func recordSync(t *testing.T, root, org string) string {
	t.Helper()
	writeProjectFile(t, root, ".sf/sync/properties.json", properties(recordedAt))
	out, err := execRoot(t, "", "cache", "record", "--target-org", org, "--properties", ".sf/sync/properties.json")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Recorded 1 components for "+org)

	cached := filepath.Join(os.Getenv("METAGUARD_HOME"), "cache", org, snapshot.PropertiesFileName)
	require.FileExists(t, cached)
	return cached
}

func TestDeploy_NoIdentityCancels(t *testing.T) {
	newProject(t)

	out, err := execRoot(t, "", "deploy", "--source-path", classesDir)
	var cancelled *cancelledError
	require.True(t, errors.As(err, &cancelled), "err = %v, out = %s", err, out)
	assert.Equal(t, conflict.NoIdentityMessage, cancelled.message)
	assert.False(t, deployQueue.Held())
}

func TestDeploy_NoChangesSinceSync(t *testing.T) {
	root := newProject(t)
	recordSync(t, root, "dev@example.com")

	out, err := execRoot(t, "", "deploy", "--target-org", "dev@example.com", "--source-path", classesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Approved for deploy: "+classesDir)
	assert.False(t, deployQueue.Held())
}

func TestDeploy_RemoteChangeOverride(t *testing.T) {
	root := newProject(t)
	cached := recordSync(t, root, "dev@example.com")
	writeProjectFile(t, filepath.Dir(cached), snapshot.PropertiesFileName, properties(changedAt))

	// options are [Show Conflicts, Override Conflicts]
	out, err := execRoot(t, "2\n", "deploy", "--target-org", "dev@example.com", "--source-path", classesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Conflicts detected: 1 differences")
	assert.Contains(t, out, classesDir+"/Invoice.cls")
	assert.Contains(t, out, "Approved for deploy")
	assert.False(t, deployQueue.Held())
}

func TestDeploy_RemoteChangeShowConflicts(t *testing.T) {
	root := newProject(t)
	cached := recordSync(t, root, "dev@example.com")
	writeProjectFile(t, filepath.Dir(cached), snapshot.PropertiesFileName, properties(changedAt))

	out, err := execRoot(t, "1\n", "deploy", "--target-org", "dev@example.com", "--source-path", classesDir)
	var cancelled *cancelledError
	require.True(t, errors.As(err, &cancelled), "err = %v, out = %s", err, out)
	assert.Contains(t, out, "metaguard cache show --target-org dev@example.com")
	assert.NotContains(t, out, "Approved for deploy")
	assert.False(t, deployQueue.Held())
}

func TestDeploy_NoConflictCheck(t *testing.T) {
	newProject(t)

	out, err := execRoot(t, "", "deploy", "--no-conflict-check", "--source-path", classesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Approved for deploy: "+classesDir)
}

func TestDeploy_RequiresSelection(t *testing.T) {
	newProject(t)

	_, err := execRoot(t, "", "deploy")
	require.Error(t, err)

	_, err = execRoot(t, "", "deploy", "--manifest", "manifest/package.xml", "--source-path", classesDir)
	require.Error(t, err)
}

func TestDeploy_SelectionOutsideWorkspace(t *testing.T) {
	newProject(t)

	_, err := execRoot(t, "", "deploy", "--no-conflict-check", "--source-path", t.TempDir())
	var cfgErr *configError
	require.True(t, errors.As(err, &cfgErr), "err = %v", err)
}

func TestDeploy_ContentStrategyManifest(t *testing.T) {
	root := newProject(t)
	writeProjectFile(t, root, ".metaguard.yaml", "conflict_detection:\n  strategy: content\n")
	writeProjectFile(t, root, "manifest/package.xml",
		`<Package><types><members>Invoice</members><name>ApexClass</name></types></Package>`)
	orgCopy := filepath.Join(os.Getenv("METAGUARD_HOME"), "cache", "dev")
	writeProjectFile(t, orgCopy, classesDir+"/Invoice.cls", "public class Invoice { Integer changedInOrg; }")
	writeProjectFile(t, orgCopy, classesDir+"/Invoice.cls-meta.xml", "<ApexClass/>")

	// options are [Override Conflicts, Show Conflicts]
	out, err := execRoot(t, "1\n", "deploy", "--target-org", "dev", "--manifest", "manifest/package.xml")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Conflicts detected: 1 differences (2 remote / 2 local files scanned)")
	assert.Contains(t, out, "Approved for deploy: manifest/package.xml")
	assert.False(t, deployQueue.Held())
}
