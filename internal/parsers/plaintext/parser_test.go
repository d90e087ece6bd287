package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Parser = (*Parser)(nil)
}

func TestSupportedFormats(t *testing.T) {
	formats := New().SupportedFormats()

	assert.Contains(t, formats, "txt")
	assert.Contains(t, formats, "text/plain")
	assert.Contains(t, formats, "csv")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		expected string
	}{
		{"utf8", []byte("hello world"), "hello world"},
		{"utf8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, "bom text"...), "bom text"},
		{"utf16 le", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"utf16 be", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi"},
		{"multibyte", []byte("café naïve"), "café naïve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Parse(context.Background(), tt.content, "txt")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Text)
			assert.Equal(t, "text", res.Metadata.ExtractionMethod)
			assert.Nil(t, res.Metadata.PageCount)
		})
	}
}

func TestParse_InvalidUTF8(t *testing.T) {
	_, err := New().Parse(context.Background(), []byte{0xff, 0xfe, 0xfd}, "txt")
	// 0xff 0xfe is a UTF-16 LE BOM; the remainder has odd length
	assert.ErrorIs(t, err, domain.ErrUnsupportedEncoding)

	_, err = New().Parse(context.Background(), []byte{'a', 0xc3, 0x28}, "txt")
	assert.ErrorIs(t, err, domain.ErrUnsupportedEncoding)
}

func TestParse_Empty(t *testing.T) {
	for _, content := range [][]byte{nil, []byte("   \n\t")} {
		_, err := New().Parse(context.Background(), content, "txt")
		assert.ErrorIs(t, err, domain.ErrEmptyContent)
	}
}

func TestParse_Deterministic(t *testing.T) {
	content := []byte("same input\nsame output")

	a, err := New().Parse(context.Background(), content, "txt")
	require.NoError(t, err)
	b, err := New().Parse(context.Background(), content, "txt")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestParse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Parse(ctx, []byte("text"), "txt")
	assert.ErrorIs(t, err, context.Canceled)
}
