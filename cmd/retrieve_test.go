package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieve_NewComponentNeedsNoPrompt(t *testing.T) {
	newProject(t)

	out, err := execRoot(t, "", "retrieve", "--component", "ApexClass:Payment", "--output-dir", classesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "ApexClass:Payment")
	assert.NotContains(t, out, "Overwrite")
}

func TestRetrieve_ExistingComponentOverwrite(t *testing.T) {
	newProject(t)

	out, err := execRoot(t, "1\n", "retrieve", "--component", "ApexClass:Invoice", "--output-dir", classesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Approved for retrieve:")
	assert.Contains(t, out, "  ApexClass:Invoice")
}

func TestRetrieve_ExistingComponentDismissed(t *testing.T) {
	newProject(t)

	out, err := execRoot(t, "", "retrieve", "--component", "ApexClass:Invoice", "--output-dir", classesDir)
	var cancelled *cancelledError
	require.True(t, errors.As(err, &cancelled), "err = %v, out = %s", err, out)
	assert.NotContains(t, out, "Approved for retrieve")
}

func TestRetrieve_SkipNarrowsList(t *testing.T) {
	root := newProject(t)
	writeProjectFile(t, root, classesDir+"/Receipt.cls", "public class Receipt {}")

	// Invoice is skipped, Receipt overwritten, Payment is new
	out, err := execRoot(t, "Skip\nOverwrite\n", "retrieve",
		"--component", "ApexClass:Invoice",
		"--component", "ApexClass:Payment",
		"--component", "ApexClass:Receipt",
		"--output-dir", classesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "  ApexClass:Payment")
	assert.Contains(t, out, "  ApexClass:Receipt")
	assert.NotContains(t, out, "  ApexClass:Invoice")
}

func TestRetrieve_SkipAllPresentedCancels(t *testing.T) {
	newProject(t)

	out, err := execRoot(t, "Skip\n", "retrieve",
		"--component", "ApexClass:Invoice",
		"--component", "ApexClass:Payment",
		"--output-dir", classesDir)
	var cancelled *cancelledError
	require.True(t, errors.As(err, &cancelled), "err = %v, out = %s", err, out)
}

func TestRetrieve_NoConflictCheck(t *testing.T) {
	newProject(t)

	out, err := execRoot(t, "", "retrieve", "--no-conflict-check", "--component", "ApexClass:Invoice", "--output-dir", classesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "  ApexClass:Invoice")
}

func TestRetrieve_InvalidInput(t *testing.T) {
	newProject(t)

	_, err := execRoot(t, "", "retrieve", "--component", "Invoice", "--output-dir", classesDir)
	var cfgErr *configError
	require.True(t, errors.As(err, &cfgErr), "err = %v", err)

	_, err = execRoot(t, "", "retrieve", "--component", "ApexClass:Invoice", "--output-dir", "../elsewhere")
	require.True(t, errors.As(err, &cfgErr), "err = %v", err)

	_, err = execRoot(t, "", "retrieve", "--component", "ApexClass:Invoice")
	require.Error(t, err)
}

func TestRetrieve_ManifestChecksOrg(t *testing.T) {
	root := newProject(t)
	writeProjectFile(t, root, "manifest/package.xml",
		`<Package><types><members>Invoice</members><name>ApexClass</name></types></Package>`)
	recordSync(t, root, "dev@example.com")

	out, err := execRoot(t, "", "retrieve", "--target-org", "dev@example.com", "--manifest", "manifest/package.xml")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Approved for retrieve: manifest/package.xml")

	_, err = execRoot(t, "", "retrieve", "--manifest", "manifest/package.xml")
	var cancelled *cancelledError
	require.True(t, errors.As(err, &cancelled), "err = %v", err)
}
