package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestImportCmd_File(t *testing.T) {
	a := setupTestServices(t)
	path := filepath.Join(t.TempDir(), "queue-runbook.md")
	writeFile(t, path, runbook)

	out, err := execute(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported")
	assert.Contains(t, out, "(4 chunks)")
	assert.Contains(t, out, "1 file imported, 0 files replaced, 0 files unchanged, 0 files skipped")

	docs, err := a.Corpus.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "queue-runbook.md", docs[0].Filename)
}

func TestImportCmd_Reimport(t *testing.T) {
	setupTestServices(t)
	path := filepath.Join(t.TempDir(), "notes.md")
	writeFile(t, path, "# One\nfirst\n")

	_, err := execute(t, "import", path)
	require.NoError(t, err)

	out, err := execute(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 file unchanged")

	writeFile(t, path, "# One\nfirst\n# Two\nsecond\n")
	out, err = execute(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 file replaced")
}

func TestImportCmd_Directory(t *testing.T) {
	a := setupTestServices(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# A\nalpha\n")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "beta notes\n")
	writeFile(t, filepath.Join(dir, "logo.png"), "\x89PNG")
	writeFile(t, filepath.Join(dir, ".hidden", "c.md"), "# C\n")

	out, err := execute(t, "import", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 files imported")
	assert.Contains(t, out, "1 file skipped")

	docs, err := a.Corpus.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestImportCmd_FailureReturnsError(t *testing.T) {
	setupTestServices(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.md"), "# Good\n")
	writeFile(t, filepath.Join(dir, "bad.txt"), "\xff\xfe\xfd")

	out, err := execute(t, "import", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "1 file imported")
}

func TestImportCmd_MissingPath(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "import", filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
}

func TestImportCmd_RequiresArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "import")
	require.Error(t, err)
}
