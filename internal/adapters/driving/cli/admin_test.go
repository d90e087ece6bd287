package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCmd_HasResetStale(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range adminCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Equal(t, []string{"reset-stale"}, names)
}

func TestAdminResetStaleCmd_NothingStale(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "admin", "reset-stale")

	require.NoError(t, err)
	assert.Contains(t, out, "No stale documents.")
}

func TestAdminResetStaleCmd_ListsReset(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.admin.ids = []string{"doc-1", "doc-7"}

	out, err := execute(t, "admin", "reset-stale")

	require.NoError(t, err)
	assert.Contains(t, out, "  doc-1\n  doc-7\n")
	assert.Contains(t, out, "Reset 2 documents to pending.")
}

func TestAdminResetStaleCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	adminService = nil

	_, err := execute(t, "admin", "reset-stale")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "admin service not configured")
}
