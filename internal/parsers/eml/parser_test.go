package eml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func TestParse_PlainText(t *testing.T) {
	msg := "From: Alice <alice@example.com>\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Quarterly report\r\n" +
		"Date: Mon, 2 Jan 2006 15:04:05 -0700\r\n" +
		"\r\n" +
		"The numbers are in.\r\n"

	res, err := New().Parse(context.Background(), []byte(msg), "eml")
	require.NoError(t, err)

	assert.Contains(t, res.Text, "From: Alice <alice@example.com>")
	assert.Contains(t, res.Text, "Subject: Quarterly report")
	assert.Contains(t, res.Text, "The numbers are in.")
	assert.Equal(t, "email", res.Metadata.ExtractionMethod)
}

func TestParse_EncodedSubject(t *testing.T) {
	msg := "Subject: =?UTF-8?B?w5xiZXJzaWNodA==?=\r\n\r\nbody\r\n"

	res, err := New().Parse(context.Background(), []byte(msg), "eml")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Subject: Übersicht")
}

func TestParse_MultipartPrefersPlain(t *testing.T) {
	msg := "Subject: Alt\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n\r\n" +
		"<p>html body</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n\r\n" +
		"plain caf=C3=A9\r\n" +
		"--XYZ--\r\n"

	res, err := New().Parse(context.Background(), []byte(msg), "eml")
	require.NoError(t, err)

	assert.Contains(t, res.Text, "plain café")
	assert.NotContains(t, res.Text, "html body")
}

func TestParse_HTMLOnlyBase64(t *testing.T) {
	msg := "Content-Type: text/html\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		"PHA+SGVsbG8gPGI+d29ybGQ8L2I+PC9wPg==\r\n"

	res, err := New().Parse(context.Background(), []byte(msg), "eml")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.Text)
}

func TestParse_Invalid(t *testing.T) {
	_, err := New().Parse(context.Background(), []byte("no headers here"), "eml")
	assert.ErrorIs(t, err, domain.ErrParseFailure)
}

func TestParse_EmptyBody(t *testing.T) {
	_, err := New().Parse(context.Background(), []byte("Subject: nothing\r\n\r\n   \r\n"), "eml")
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}
