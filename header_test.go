package mailmsg

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHeaderString(t *testing.T, name string, v HeaderValue) string {
	t.Helper()
	var buf bytes.Buffer
	w := newCountingSink(&buf)
	require.NoError(t, writeHeader(w, name, v))
	return buf.String()
}

func TestWriteHeaderSimpleText(t *testing.T) {
	got := writeHeaderString(t, "Subject", Text("hello world"))
	assert.Equal(t, "Subject: hello world\r\n", got)
}

func TestWriteHeaderNonASCIITextUsesEncodedWord(t *testing.T) {
	got := writeHeaderString(t, "Subject", Text("héllo"))
	assert.Contains(t, got, "=?UTF-8?")
	assert.True(t, strings.HasSuffix(got, "\r\n"))
}

func TestWriteHeaderDateTime(t *testing.T) {
	loc := time.FixedZone("", 3600)
	got := writeHeaderString(t, "Date", DateTimeHeader(time.Date(2009, 11, 10, 23, 0, 0, 0, loc)))
	assert.Equal(t, "Date: Tue, 10 Nov 2009 23:00:00 +0100\r\n", got)
}

func TestWriteHeaderMessageIDWrapsAngleBrackets(t *testing.T) {
	got := writeHeaderString(t, "Message-ID", MessageIDs("abc123@example.com"))
	assert.Equal(t, "Message-ID: <abc123@example.com>\r\n", got)
}

func TestWriteHeaderAddressList(t *testing.T) {
	got := writeHeaderString(t, "To", Addr(AddressList{
		Mailbox{Addr: "a@example.com"},
		Mailbox{Addr: "b@example.com"},
	}))
	assert.Equal(t, "To: a@example.com, b@example.com\r\n", got)
}

func TestWriteHeaderFoldsLongLines(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := writeHeaderString(t, "Subject", Text(strings.TrimSpace(long)))
	for _, line := range strings.Split(strings.TrimRight(got, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 78)
	}
}

func TestWriteHeaderRawRejectsBareLF(t *testing.T) {
	var buf bytes.Buffer
	w := newCountingSink(&buf)
	err := writeHeader(w, "X-Test", Raw([]byte("a\nb")))
	assert.Error(t, err)
	var merr *MalformedHeaderError
	assert.ErrorAs(t, err, &merr)
}

func TestWriteHeaderRawPassesWellFormedFolding(t *testing.T) {
	got := writeHeaderString(t, "X-Test", Raw([]byte("a\r\n b")))
	assert.Equal(t, "X-Test: a\r\n b\r\n", got)
}

func TestWriteHeaderContentTypeWithParams(t *testing.T) {
	params := NewParamList()
	params.Set("charset", "utf-8")
	got := writeHeaderString(t, "Content-Type", ContentTypeHeader("text/plain", params))
	assert.Equal(t, "Content-Type: text/plain; charset=utf-8\r\n", got)
}

func TestWriteHeaderKeywords(t *testing.T) {
	got := writeHeaderString(t, "Keywords", Keywords("alpha", "beta"))
	assert.Equal(t, "Keywords: alpha, beta\r\n", got)
}
