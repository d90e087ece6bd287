package cli

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Equal(t, "a", flag.Shorthand)
	assert.Empty(t, flag.DefValue)
}

func TestServeCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "serve", "extra")

	assert.Error(t, err)
}

func TestServeCmd_RequiresServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentService = nil

	_, err := execute(t, "serve", "--addr", "127.0.0.1:0")

	assert.Error(t, err)
	assert.False(t, mocks.ingest.started)
}

func TestStartBackground_WithoutApplication(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	stop, err := startBackground(cmd)
	require.NoError(t, err)
	assert.True(t, mocks.ingest.started)

	stop()
	assert.True(t, mocks.ingest.stopped)
}

func TestMCPCmd_HasServe(t *testing.T) {
	var names []string
	for _, cmd := range mcpCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "serve")

	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	host := mcpServeCmd.Flags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "localhost", host.DefValue)
}

func TestMCPServeCmd_RequiresQueryService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	queryService = nil

	_, err := execute(t, "mcp", "serve")

	assert.Error(t, err)
	assert.False(t, mocks.ingest.started)
}
