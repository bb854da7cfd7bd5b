package mailmsg

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func buildAndWrite(t *testing.T, m *Message) string {
	t.Helper()
	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	return buf.String()
}

func TestWriteToSimpleTextMessage(t *testing.T) {
	m := NewMessage(
		WithClock(fixedClock(time.Date(2009, 11, 10, 23, 0, 0, 0, time.UTC))),
		WithEntropy(bytes.NewReader(bytes.Repeat([]byte{0x01}, 16))),
		WithHostname("mail.example.com"),
	)
	m.SetHeader("From", Addr(Mailbox{Addr: "john@example.com"}))
	m.SetHeader("To", Addr(Mailbox{Addr: "jane@example.com"}))
	m.SetHeader("Subject", Text("hello world"))
	m.Root = Leaf("text/plain", []byte("hi there\r\n")).WithParam("charset", "us-ascii")

	out := buildAndWrite(t, m)
	assert.Contains(t, out, "From: john@example.com\r\n")
	assert.Contains(t, out, "To: jane@example.com\r\n")
	assert.Contains(t, out, "Subject: hello world\r\n")
	assert.Contains(t, out, "Content-Type: text/plain; charset=us-ascii\r\n")
	assert.Contains(t, out, "Content-Transfer-Encoding: 7bit\r\n")
	assert.Contains(t, out, "Message-ID: <")
	assert.Contains(t, out, "Date: Tue, 10 Nov 2009 23:00:00 +0000\r\n")
	assert.NotContains(t, out, "MIME-Version")
	assert.True(t, strings.HasSuffix(out, "hi there\r\n\r\n"))
}

func TestWriteToNonASCIISubjectGetsEncodedWordWithoutMimeVersion(t *testing.T) {
	m := NewMessage(WithClock(fixedClock(time.Now())))
	m.SetHeader("From", Addr(Mailbox{Addr: "john@example.com"}))
	m.SetHeader("Subject", Text("Café Meeting"))
	m.Root = Leaf("text/plain", []byte("hi")).WithParam("charset", "utf-8")

	out := buildAndWrite(t, m)
	assert.Contains(t, out, "Subject: =?UTF-8?")
	// The only part is a 7bit leaf, so no MIME-Version is synthesized.
	assert.NotContains(t, out, "MIME-Version: 1.0\r\n")
}

func TestWriteToAttachmentWithNonASCIIFilename(t *testing.T) {
	m := NewMessage()
	m.SetHeader("From", Addr(Mailbox{Addr: "a@example.com"}))
	att := Leaf("application/pdf", []byte("%PDF-1.4 fake")).AsAttachment("résumé.pdf")
	m.Root = NewMultipart("multipart/mixed",
		Leaf("text/plain", []byte("see attached")).WithParam("charset", "us-ascii"),
		att,
	)

	out := buildAndWrite(t, m)
	assert.Contains(t, out, "filename*0*=UTF-8''r%C3%A9sum%C3%A9.pdf")
	assert.Contains(t, out, "Content-Disposition: attachment")
	assert.Contains(t, out, "Content-Type: multipart/mixed;\r\n boundary=")
}

func TestWriteToBinaryAttachmentUsesBase64(t *testing.T) {
	m := NewMessage()
	m.SetHeader("From", Addr(Mailbox{Addr: "a@example.com"}))
	binary := make([]byte, 300)
	for i := range binary {
		binary[i] = byte(i % 256)
	}
	m.Root = NewMultipart("multipart/mixed",
		Leaf("text/plain", []byte("body")).WithParam("charset", "us-ascii"),
		Leaf("application/octet-stream", binary).AsAttachment("data.bin"),
	)

	out := buildAndWrite(t, m)
	assert.Contains(t, out, "Content-Transfer-Encoding: base64\r\n")
	for _, line := range strings.Split(out, "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
}

func TestWriteToMultipartAlternativeWithInlineImage(t *testing.T) {
	m := NewMessage()
	m.SetHeader("From", Addr(Mailbox{Addr: "a@example.com"}))

	alt := NewMultipart("multipart/alternative",
		Leaf("text/plain", []byte("plain body")).WithParam("charset", "us-ascii"),
		Leaf("text/html", []byte("<p>html body</p><img src=\"cid:logo1\">")).WithParam("charset", "us-ascii"),
	)
	img := Leaf("image/png", []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}).AsInline("logo.png", "logo1")
	m.Root = NewMultipart("multipart/related", alt, img)

	out := buildAndWrite(t, m)
	assert.Contains(t, out, "Content-Type: multipart/related;\r\n boundary=")
	assert.Contains(t, out, "Content-Type: multipart/alternative;\r\n boundary=")
	assert.Contains(t, out, "Content-ID: <logo1>")
	assert.Contains(t, out, "Content-Disposition: inline")
}

func TestWriteToGeneratesContentIDWhenInlineCIDEmpty(t *testing.T) {
	m := NewMessage(WithHostname("mail.example.com"))
	m.SetHeader("From", Addr(Mailbox{Addr: "a@example.com"}))
	img := Leaf("image/png", []byte{0x89, 'P', 'N', 'G'}).AsInline("logo.png", "")
	m.Root = NewMultipart("multipart/related",
		Leaf("text/plain", []byte("body")).WithParam("charset", "us-ascii"),
		img,
	)

	out := buildAndWrite(t, m)
	assert.Contains(t, out, "Content-ID: <")
	assert.Contains(t, out, "@mail.example.com>")
}

func TestWriteToAttachmentWithoutCIDGetsNone(t *testing.T) {
	m := NewMessage()
	m.SetHeader("From", Addr(Mailbox{Addr: "a@example.com"}))
	m.Root = NewMultipart("multipart/mixed",
		Leaf("text/plain", []byte("body")).WithParam("charset", "us-ascii"),
		Leaf("application/pdf", []byte("%PDF body")).AsAttachment("doc.pdf"),
	)

	out := buildAndWrite(t, m)
	assert.NotContains(t, out, "Content-ID:")
}

func TestWriteToNestedMultipartBoundariesDontCollide(t *testing.T) {
	m := NewMessage()
	m.SetHeader("From", Addr(Mailbox{Addr: "a@example.com"}))

	inner := NewMultipart("multipart/alternative",
		Leaf("text/plain", []byte("plain")).WithParam("charset", "us-ascii"),
		Leaf("text/html", []byte("<p>html</p>")).WithParam("charset", "us-ascii"),
	)
	outer := NewMultipart("multipart/mixed",
		inner,
		Leaf("application/pdf", []byte("%PDF body")).AsAttachment("doc.pdf"),
	)
	m.Root = outer

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	count := strings.Count(out, "Content-Type: multipart/")
	assert.Equal(t, 2, count)
}

func TestWriteToWorksOnZeroValueMessage(t *testing.T) {
	// Message{} (no NewMessage call) must behave exactly like NewMessage():
	// env is left entirely zero, so this exercises the lazy-default path
	// rather than panicking on a nil m.env.now.
	m := &Message{Root: Leaf("text/plain", []byte("hi")).WithParam("charset", "us-ascii")}
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Date: ")
	assert.Contains(t, buf.String(), "Message-ID: <")
}

func TestWriteToRequiresRootPart(t *testing.T) {
	m := NewMessage()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	assert.Error(t, err)
}

func TestWriteToInvalidTransferEncodingOverrideErrors(t *testing.T) {
	m := NewMessage()
	m.Root = Leaf("text/plain", []byte("x"))
	m.Root.TransferEncoding = "bogus"
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	assert.Error(t, err)
	var ierr *InvariantError
	assert.ErrorAs(t, err, &ierr)
}
