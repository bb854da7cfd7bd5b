package mailmsg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeBodyPlainASCIIIs7Bit(t *testing.T) {
	got := analyzeBody([]byte("hello world\r\n"), true)
	assert.Equal(t, CTE7Bit, got)
}

func TestAnalyzeBodyMostlyTextWithAccentsIsQuotedPrintable(t *testing.T) {
	body := []byte(strings.Repeat("plain ascii text ", 20) + "café")
	got := analyzeBody(body, true)
	assert.Equal(t, CTEQuotedPrintable, got)
}

func TestAnalyzeBodyHeavilyBinaryTextIsBase64(t *testing.T) {
	body := make([]byte, 100)
	for i := range body {
		body[i] = byte(200 + i%50)
	}
	got := analyzeBody(body, true)
	assert.Equal(t, CTEBase64, got)
}

func TestAnalyzeBodyNonTextWithHighBitIsBase64(t *testing.T) {
	got := analyzeBody([]byte{0x00, 0x01, 0xff, 0xfe}, false)
	assert.Equal(t, CTEBase64, got)
}

func TestAnalyzeBodyNonTextCleanBytesAre7Bit(t *testing.T) {
	got := analyzeBody([]byte("plain ascii, no binary"), false)
	assert.Equal(t, CTE7Bit, got)
}

func TestAnalyzeBodyLongLineForces8BitOrBetter(t *testing.T) {
	body := []byte(strings.Repeat("a", 1000))
	got := analyzeBody(body, true)
	assert.NotEqual(t, CTE7Bit, got)
}
