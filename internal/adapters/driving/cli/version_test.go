package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Short(t *testing.T) {
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	// Save and restore version
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "sercha-kb version test-version-1.0.0")
}

func TestVersionCmd_DoesNotOpenKnowledgeBase(t *testing.T) {
	SetServices(nil, nil, nil, nil, nil)
	t.Setenv("HOME", t.TempDir())

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "sercha-kb version dev")
	assert.Nil(t, corpusService)
}
