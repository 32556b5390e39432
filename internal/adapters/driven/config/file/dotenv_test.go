package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDotEnv(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvName), []byte(content), 0600))
}

func TestLoadDotEnv(t *testing.T) {
	dataDir := t.TempDir()
	workDir := t.TempDir()
	writeDotEnv(t, dataDir, "SERCHA_KB_TEST_KEY=from-data-dir\n")
	writeDotEnv(t, workDir, "SERCHA_KB_TEST_KEY=from-work-dir\nSERCHA_KB_TEST_OTHER=other\n")
	t.Setenv("SERCHA_KB_TEST_KEY", "")
	os.Unsetenv("SERCHA_KB_TEST_KEY")
	t.Setenv("SERCHA_KB_TEST_OTHER", "")
	os.Unsetenv("SERCHA_KB_TEST_OTHER")

	loaded, err := LoadDotEnv(dataDir, "", workDir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dataDir, DotEnvName),
		filepath.Join(workDir, DotEnvName),
	}, loaded)
	assert.Equal(t, "from-data-dir", os.Getenv("SERCHA_KB_TEST_KEY"))
	assert.Equal(t, "other", os.Getenv("SERCHA_KB_TEST_OTHER"))
}

func TestLoadDotEnv_KeepsExistingEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeDotEnv(t, dir, "SERCHA_KB_TEST_KEY=from-file\n")
	t.Setenv("SERCHA_KB_TEST_KEY", "from-shell")

	_, err := LoadDotEnv(dir)

	require.NoError(t, err)
	assert.Equal(t, "from-shell", os.Getenv("SERCHA_KB_TEST_KEY"))
}

func TestLoadDotEnv_MissingFileSkipped(t *testing.T) {
	loaded, err := LoadDotEnv(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeDotEnv(t, dir, "SERCHA_KB_TEST_BROKEN='unterminated\n")

	_, err := LoadDotEnv(dir)

	assert.Error(t, err)
}
