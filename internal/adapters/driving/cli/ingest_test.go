package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestCmd_RequiresFile(t *testing.T) {
	_, err := execute(t, "ingest")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_UploadsFiles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	first := writeTestFile(t, "report.pdf", "%PDF-1.4 fake")
	second := writeTestFile(t, "notes.txt", "plain notes")

	out, err := execute(t, "ingest", first, second)

	require.NoError(t, err)
	require.Len(t, mocks.ingest.requests, 2)
	assert.Equal(t, "report.pdf", mocks.ingest.requests[0].Name)
	assert.Equal(t, []byte("%PDF-1.4 fake"), mocks.ingest.requests[0].Content)
	assert.Equal(t, "notes.txt", mocks.ingest.requests[1].Name)
	assert.Contains(t, out, "accepted as doc-new (pending)")
	assert.Empty(t, mocks.ingest.processed)
}

func TestIngestCmd_PassesOverrides(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, "page.data", "<p>hello</p>")

	_, err := execute(t, "ingest", "--format", "html", "--parser", "html",
		"--metadata", `{"team":"docs","priority":2}`, path)

	require.NoError(t, err)
	require.Len(t, mocks.ingest.requests, 1)
	req := mocks.ingest.requests[0]
	assert.Equal(t, "html", req.Format)
	assert.Equal(t, "html", req.ParserID)
	assert.Equal(t, map[string]any{"team": "docs", "priority": float64(2)}, req.Metadata)
}

func TestIngestCmd_InvalidMetadata(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, "a.txt", "text")

	_, err := execute(t, "ingest", "--metadata", "not json", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --metadata")
	assert.Empty(t, mocks.ingest.requests)
}

func TestIngestCmd_Duplicate(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, "dup.txt", "seen before")

	out, err := execute(t, "ingest", "--wait", path)

	require.NoError(t, err)
	assert.Contains(t, out, "already uploaded as doc-1 (completed)")
	assert.Empty(t, mocks.ingest.processed)
}

func TestIngestCmd_Wait(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, "guide.pdf", "pdf bytes")

	out, err := execute(t, "ingest", "-w", path)

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-new"}, mocks.ingest.processed)
	assert.Contains(t, out, "completed: 3 chunks indexed with pdf")
}

func TestIngestCmd_EmptyFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, "empty.txt", "")

	_, err := execute(t, "ingest", path)

	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestIngestCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "absent.pdf"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestService = nil

	_, err := execute(t, "ingest", "a.txt")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}
