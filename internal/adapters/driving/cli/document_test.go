package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// Document Command Tests

func TestDocumentCmd_Use(t *testing.T) {
	assert.Equal(t, "document", documentCmd.Use)
}

func TestDocumentCmd_Short(t *testing.T) {
	assert.Equal(t, "Manage uploaded documents", documentCmd.Short)
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commands := documentCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "get")
	assert.Contains(t, commandNames, "content")
	assert.Contains(t, commandNames, "chunks")
	assert.Contains(t, commandNames, "delete")
	assert.Contains(t, commandNames, "resubmit")
}

// Document List Tests

func TestDocumentListCmd_Executes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "list")

	assert.NoError(t, err)
	assert.Contains(t, out, "Documents:")
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "Test Document 1.pdf")
	assert.Contains(t, out, "Status: pending")
	assert.Contains(t, out, "Total: 2 documents")
	assert.Empty(t, mocks.document.lastFilter.Status)
}

func TestDocumentListCmd_StatusFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "list", "--status", "failed")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, mocks.document.lastFilter.Status)
	assert.Contains(t, out, "No documents found.")
}

func TestDocumentListCmd_InvalidStatus(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "document", "list", "--status", "archived")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentListCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "document", "list", "src-1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

// Document Get Tests

func TestDocumentGetCmd_Use(t *testing.T) {
	assert.Equal(t, "get [doc-id]", documentGetCmd.Use)
}

func TestDocumentGetCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"document", "get"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentGetCmd_ExecutesWithArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "get", "doc-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Name:     Test Document 1.pdf")
	assert.Contains(t, out, "Status:   completed")
	assert.Contains(t, out, "Chunks:   3")
	assert.Contains(t, out, "Created:  2024-03-01 09:30:00")
	assert.Contains(t, out, "author: Ada")
	assert.Less(t, bytes.Index([]byte(out), []byte("author")), bytes.Index([]byte(out), []byte("page_count")))
}

func TestDocumentGetCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "document", "get", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "failed to get document")
}

// Document Content Tests

func TestDocumentContentCmd_Use(t *testing.T) {
	assert.Equal(t, "content [doc-id]", documentContentCmd.Use)
}

func TestDocumentContentCmd_ExecutesWithArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "content", "doc-1")

	assert.NoError(t, err)
	assert.Equal(t, "Extracted document text.\n", out)
}

// Document Chunks Tests

func TestDocumentChunksCmd_ExecutesWithArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "chunks", "doc-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "[0] chars 0-12, page 1")
	assert.Contains(t, out, "[1] chars 13-26\n")
	assert.Contains(t, out, "Second chunk.")
	assert.Contains(t, out, "Total: 2 chunks")
}

// Document Delete Tests

func TestDocumentDeleteCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "document", "delete")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentDeleteCmd_ExecutesWithArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "delete", "doc-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 deleted.")
	assert.Equal(t, []string{"doc-1"}, mocks.document.deleted)
}

func TestDocumentDeleteCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "document", "delete", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Document Resubmit Tests

func TestDocumentResubmitCmd_ExecutesWithArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "resubmit", "doc-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "queued for reprocessing")
	assert.Equal(t, []string{"doc-1"}, mocks.document.resubmitted)
}

// Service Not Configured Tests

func TestDocumentCmds_ServiceNotConfigured(t *testing.T) {
	tests := [][]string{
		{"document", "list"},
		{"document", "get", "doc-1"},
		{"document", "content", "doc-1"},
		{"document", "chunks", "doc-1"},
		{"document", "delete", "doc-1"},
		{"document", "resubmit", "doc-1"},
	}

	for _, args := range tests {
		t.Run(args[1], func(t *testing.T) {
			cleanup := setupTestServices()
			defer cleanup()
			documentService = nil

			_, err := execute(t, args...)

			assert.Error(t, err)
			assert.Contains(t, err.Error(), "document service not configured")
		})
	}
}
