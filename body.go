package mailmsg

import "strings"

// TransferEncoding names a Content-Transfer-Encoding chosen by the Body
// Analyzer or supplied explicitly by the caller.
type TransferEncoding string

const (
	CTE7Bit            TransferEncoding = "7bit"
	CTEQuotedPrintable TransferEncoding = "quoted-printable"
	CTEBase64          TransferEncoding = "base64"
)

// nonTextBinaryShare is the threshold below which a text/* body with some
// 8-bit or control bytes is still considered mostly-ASCII and gets
// quoted-printable rather than base64.
const nonTextBinaryShare = 0.17

// isBinaryByte reports whether b falls in the set of bytes that count
// against a body's "mostly ASCII" classification: controls other than
// TAB/LF/CR, and anything >= 0x80.
func isBinaryByte(b byte) bool {
	switch {
	case b == 9 || b == 10 || b == 13:
		return false
	case b < 32:
		return true
	case b == 127:
		return true
	case b >= 128:
		return true
	default:
		return false
	}
}

func isMediaTypeText(contentType string) bool {
	return strings.HasPrefix(contentType, "text/")
}

// analyzeBody classifies body per spec.md §4.3 and returns the minimal
// correct Content-Transfer-Encoding. text reports whether the part's media
// type major is "text".
func analyzeBody(body []byte, text bool) TransferEncoding {
	if sevenBitClean(body) {
		return CTE7Bit
	}
	if !text {
		return CTEBase64
	}
	if binaryShare(body) < nonTextBinaryShare {
		return CTEQuotedPrintable
	}
	return CTEBase64
}

// sevenBitClean reports whether body satisfies the 7bit CTE's
// constraints: every byte in {9, 10, 13, 32-126}, no NUL, every line
// <= 998 bytes.
func sevenBitClean(body []byte) bool {
	lineLen := 0
	for _, b := range body {
		if b == '\n' {
			lineLen = 0
			continue
		}
		switch {
		case b == 9 || b == 13:
		case b >= 32 && b <= 126:
		default:
			return false
		}
		lineLen++
		if lineLen > 998 {
			return false
		}
	}
	return true
}

func binaryShare(body []byte) float64 {
	if len(body) == 0 {
		return 0
	}
	var n int
	for _, b := range body {
		if isBinaryByte(b) {
			n++
		}
	}
	return float64(n) / float64(len(body))
}
