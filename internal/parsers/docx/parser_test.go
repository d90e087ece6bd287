package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

const documentXMLTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>A1</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>B1</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

const appXMLFixture = `<?xml version="1.0" encoding="UTF-8"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"><Pages>3</Pages></Properties>`

// buildDocx creates an in-memory docx archive with the given parts.
func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSupportedFormats(t *testing.T) {
	formats := New().SupportedFormats()
	assert.Contains(t, formats, "docx")
	assert.Len(t, formats, 2)
}

func TestParse_Success(t *testing.T) {
	content := buildDocx(t, map[string]string{
		documentPart: documentXMLTemplate,
		appPart:      appXMLFixture,
	})

	res, err := New().Parse(context.Background(), content, "docx")
	require.NoError(t, err)

	assert.Equal(t, "First paragraph\nSecond paragraph\nA1\tB1", res.Text)
	assert.Equal(t, "docx-xml", res.Metadata.ExtractionMethod)
	require.NotNil(t, res.Metadata.PageCount)
	assert.Equal(t, 3, *res.Metadata.PageCount)
}

func TestParse_NoAppProperties(t *testing.T) {
	content := buildDocx(t, map[string]string{documentPart: documentXMLTemplate})

	res, err := New().Parse(context.Background(), content, "docx")
	require.NoError(t, err)
	assert.Nil(t, res.Metadata.PageCount)
}

func TestParse_CorruptArchive(t *testing.T) {
	_, err := New().Parse(context.Background(), []byte("PK\x03\x04 truncated"), "docx")
	assert.ErrorIs(t, err, domain.ErrParseFailure)
}

func TestParse_MissingDocumentPart(t *testing.T) {
	content := buildDocx(t, map[string]string{"other.xml": "<x/>"})

	_, err := New().Parse(context.Background(), content, "docx")
	assert.ErrorIs(t, err, domain.ErrParseFailure)
}

func TestParse_MalformedXML(t *testing.T) {
	content := buildDocx(t, map[string]string{documentPart: "<w:document><w:body>"})

	_, err := New().Parse(context.Background(), content, "docx")
	assert.ErrorIs(t, err, domain.ErrParseFailure)
}

func TestParse_EmptyDocument(t *testing.T) {
	content := buildDocx(t, map[string]string{
		documentPart: `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p/></w:body></w:document>`,
	})

	_, err := New().Parse(context.Background(), content, "docx")
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}
