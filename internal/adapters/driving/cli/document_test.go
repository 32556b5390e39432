package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range documentCmd.Commands() {
		names[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"list": true, "show": true, "export": true, "delete": true}, names)
	assert.Contains(t, documentCmd.Aliases, "doc")
}

func TestDocumentList_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents imported yet")
}

func TestDocumentList(t *testing.T) {
	a := setupTestServices(t)
	res := importRunbook(t, a)

	out, err := execute(t, "doc", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "queue-runbook")
	assert.Contains(t, out, res.Document.ID)
	assert.Contains(t, out, "Total: 1 document\n")
}

func TestDocumentShow(t *testing.T) {
	a := setupTestServices(t)
	res := importRunbook(t, a)

	out, err := execute(t, "document", "show", res.Document.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Document: queue-runbook")
	assert.Contains(t, out, res.Document.SourceHash)
	assert.Contains(t, out, "Chunks (4):")
	assert.Contains(t, out, "(root)")
	assert.Contains(t, out, "    Retries ")
	assert.Contains(t, out, "      Dead letters ")
}

func TestDocumentShow_NotFound(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "document", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDocumentExport_Stdout(t *testing.T) {
	a := setupTestServices(t)
	res := importRunbook(t, a)

	out, err := execute(t, "document", "export", res.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, runbook, out)
}

func TestDocumentExport_File(t *testing.T) {
	a := setupTestServices(t)
	res := importRunbook(t, a)
	path := filepath.Join(t.TempDir(), "out.md")

	out, err := execute(t, "document", "export", res.Document.ID, "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, runbook, string(data))
}

func TestDocumentDelete(t *testing.T) {
	a := setupTestServices(t)
	res := importRunbook(t, a)

	out, err := execute(t, "document", "delete", res.Document.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	docs, err := a.Corpus.ListDocuments(t.Context())
	require.NoError(t, err)
	assert.Empty(t, docs)

	resolved, err := execute(t, "resolve", "workers")
	require.NoError(t, err)
	assert.Contains(t, resolved, "No matching topics.")
}
