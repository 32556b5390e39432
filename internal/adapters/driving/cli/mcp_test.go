package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/mcp"
)

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_MissingServices(t *testing.T) {
	a := setupTestServices(t)
	SetServices(a.Corpus, nil, nil, a.Index, a.Settings)

	_, err := execute(t, "mcp", "serve")
	require.Error(t, err)
	assert.ErrorIs(t, err, mcp.ErrMissingResolutionService)
}
