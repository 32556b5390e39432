package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/app"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

const runbook = `Operational notes for the queue.
# Retries
Failed jobs are retried with exponential backoff.
## Dead letters
After five attempts a job moves to the dead letter queue.
# Scaling
Add workers when the backlog grows.
`

// setupTestServices injects an in-memory knowledge base for one test.
func setupTestServices(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), app.Options{Ephemeral: true})
	require.NoError(t, err)
	SetServices(a.Corpus, a.Resolution, a.Retrieval, a.Index, a.Settings)
	t.Cleanup(func() {
		SetServices(nil, nil, nil, nil, nil)
		a.Close() //nolint:errcheck
	})
	return a
}

func importRunbook(t *testing.T, a *app.App) *domain.ImportResult {
	t.Helper()
	res, err := a.Corpus.Import(context.Background(), domain.ImportRequest{
		Filename: "queue-runbook.md",
		Content:  []byte(runbook),
	})
	require.NoError(t, err)
	return res
}

// execute runs the root command with fresh flag values and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := Execute(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default, since cobra keeps values
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil) //nolint:errcheck
		} else {
			f.Value.Set(f.DefValue) //nolint:errcheck
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "sercha-kb", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"import", "resolve", "get", "document", "chunk",
		"reindex", "purge", "watch", "browse", "mcp", "settings", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "data-dir", "ephemeral"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestBootstrap_OpensEphemeralApp(t *testing.T) {
	SetServices(nil, nil, nil, nil, nil)
	t.Cleanup(func() { SetServices(nil, nil, nil, nil, nil) })

	out, err := execute(t, "--ephemeral", "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents imported yet")
	assert.Nil(t, opened, "Execute closes the app it opened")
}

func TestBootstrap_OpensDataDir(t *testing.T) {
	SetServices(nil, nil, nil, nil, nil)
	t.Cleanup(func() { SetServices(nil, nil, nil, nil, nil) })

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\nhello\n"), 0o600))

	_, err := execute(t, "--data-dir", dir, "import", path)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "metadata.db"))

	SetServices(nil, nil, nil, nil, nil)
	out, err := execute(t, "--data-dir", dir, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.md")
}

func TestBootstrap_SkipsWhenServicesInjected(t *testing.T) {
	a := setupTestServices(t)
	importRunbook(t, a)

	out, err := execute(t, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "queue-runbook.md")
	assert.Nil(t, opened)
}
