// Package mailmsg builds RFC 5322 / MIME Internet mail messages and
// serializes them to their canonical on-the-wire byte form.
//
// A Message is an ordered list of top-level headers plus exactly one root
// MimePart. A MimePart is either a Leaf (body bytes, one content type) or a
// Multipart (an ordered list of child MimePart). Construct the tree, then
// call WriteTo to stream the wire bytes to an io.Writer.
//
// Parsing, address validation beyond what serialization requires, signing,
// and delivery are out of scope; this package only emits bytes.
package mailmsg

import (
	"io"

	"golang.org/x/text/unicode/norm"
)

// Disposition marks how a MimePart should be presented by the receiving
// mail user agent.
type Disposition int

const (
	// DispositionUnspecified omits the Content-Disposition header entirely.
	DispositionUnspecified Disposition = iota
	// DispositionInline asks the MUA to render the part in the body.
	DispositionInline
	// DispositionAttachment asks the MUA to offer the part as a download.
	DispositionAttachment
)

func (d Disposition) String() string {
	switch d {
	case DispositionInline:
		return "inline"
	case DispositionAttachment:
		return "attachment"
	default:
		return ""
	}
}

// Header is a single (name, value) pair. Duplicates of the same name are
// allowed; a Message or MimePart's header list is ordered and insertion
// order is preserved through serialization.
type Header struct {
	Name  string
	Value HeaderValue
}

// Body is the sealed variant of a MimePart's payload: either Bytes (owned,
// fully in memory), Reader (borrowed, streamed without full buffering), or
// Multipart (an ordered list of child parts). The interface is closed to
// this package's three implementations; see design note in DESIGN.md on
// why Go expresses spec.md's tagged body variant this way.
type Body interface {
	isBody()
}

// Bytes is an owned, fully in-memory leaf body.
type Bytes []byte

func (Bytes) isBody() {}

// Reader is a borrowed, streamed leaf body. Because the Body Analyzer's
// 7bit/quoted-printable/base64 heuristic (§4.3) requires scanning the full
// body, a Reader-backed leaf must either carry an explicit
// TransferEncoding override on its MimePart or will be serialized as
// base64 (the analyzer's own fallback for content it cannot classify as
// mostly-ASCII text).
type Reader struct {
	R io.Reader
}

func (Reader) isBody() {}

// MultipartBody is an ordered sequence of child parts. A MimePart carrying
// a MultipartBody MUST have a content type starting with "multipart/"; the
// boundary parameter is never set by the caller — it is computed and
// injected during serialization (§4.4).
type MultipartBody struct {
	Children []*MimePart
}

func (MultipartBody) isBody() {}

// MimePart is a node in the MIME tree: a content type, its parameters, any
// additional per-part headers, a disposition, and a body.
type MimePart struct {
	// ContentType is the media type, e.g. "text/plain" or
	// "multipart/mixed". It MUST start with "multipart/" iff Body is a
	// MultipartBody.
	ContentType string

	// Params are additional Content-Type parameters (e.g. "charset"),
	// excluding "boundary" which is computed at serialization time.
	// Names are case-insensitive and unique; insertion order is
	// preserved in the emitted header.
	Params *ParamList

	// Headers are additional headers emitted after the part's own
	// Content-Type, Content-Transfer-Encoding, Content-Disposition and
	// Content-ID headers.
	Headers []Header

	// Disposition and Filename together control the
	// Content-Disposition header. Filename may be empty even when
	// Disposition is set.
	Disposition Disposition
	Filename    string

	// CID, if non-empty, is used verbatim as the Content-ID value
	// (without angle brackets) for an inline part referenced by a
	// "cid:" URL from a sibling text/html part. If empty and Disposition
	// is DispositionInline, WriteTo generates one at serialization time.
	CID string

	// TransferEncoding overrides the Body Analyzer's choice when
	// non-empty. Must be one of "7bit", "quoted-printable", or
	// "base64"; an invalid override is an InvariantError.
	TransferEncoding string

	Body Body
}

// Leaf returns a new non-multipart MimePart with an owned, in-memory body.
func Leaf(contentType string, body []byte) *MimePart {
	return &MimePart{
		ContentType: contentType,
		Params:      NewParamList(),
		Body:        Bytes(body),
	}
}

// LeafReader returns a new non-multipart MimePart streaming its body from r.
// See Reader for the Content-Transfer-Encoding caveat.
func LeafReader(contentType string, r io.Reader) *MimePart {
	return &MimePart{
		ContentType: contentType,
		Params:      NewParamList(),
		Body:        Reader{R: r},
	}
}

// NewMultipart returns a new multipart MimePart, e.g. contentType
// "multipart/mixed" or "multipart/alternative".
func NewMultipart(contentType string, children ...*MimePart) *MimePart {
	return &MimePart{
		ContentType: contentType,
		Params:      NewParamList(),
		Body:        MultipartBody{Children: children},
	}
}

// WithParam sets a Content-Type parameter and returns the receiver, for
// chained construction.
func (p *MimePart) WithParam(name, value string) *MimePart {
	p.Params.Set(name, value)
	return p
}

// AsAttachment sets Disposition to attachment with the given filename.
func (p *MimePart) AsAttachment(filename string) *MimePart {
	p.Disposition = DispositionAttachment
	p.Filename = filename
	return p
}

// AsInline sets Disposition to inline, optionally with a filename and a
// Content-ID (without angle brackets) for "cid:" references. Pass "" for
// cid to have WriteTo generate one at serialization time.
func (p *MimePart) AsInline(filename, cid string) *MimePart {
	p.Disposition = DispositionInline
	p.Filename = filename
	p.CID = cid
	return p
}

// AddHeader appends an additional header to the part, preserving insertion
// order and allowing duplicate names.
func (p *MimePart) AddHeader(name string, value HeaderValue) *MimePart {
	p.Headers = append(p.Headers, Header{Name: name, Value: value})
	return p
}

// isMultipart reports whether p's content type is a multipart/* type.
func (p *MimePart) isMultipart() bool {
	return len(p.ContentType) >= len("multipart/") && p.ContentType[:len("multipart/")] == "multipart/"
}

// Message is the root container: an ordered list of top-level headers plus
// exactly one root MimePart.
type Message struct {
	// Headers are the message's top-level (envelope) headers, in
	// insertion order. Duplicates are allowed.
	Headers []Header

	// Root is the single top-level MimePart. If it is a MultipartBody,
	// the message is a MIME multipart message; otherwise the message
	// body is the single part's body.
	Root *MimePart

	env env
}

// NewMessage returns an empty Message configured with the given options.
// Message{} zero values also work; NewMessage only exists to accept
// Options.
func NewMessage(opts ...Option) *Message {
	e := defaultEnv()
	for _, opt := range opts {
		opt(&e)
	}
	return &Message{env: e}
}

// SetHeader appends a header, allowing duplicate names (use ReplaceHeader to
// enforce uniqueness for headers like Subject or From).
func (m *Message) SetHeader(name string, value HeaderValue) *Message {
	m.Headers = append(m.Headers, Header{Name: name, Value: value})
	return m
}

// ReplaceHeader removes any existing headers with the given name (matched
// case-insensitively) and appends a single header with the given value.
func (m *Message) ReplaceHeader(name string, value HeaderValue) *Message {
	m.Headers = removeHeader(m.Headers, name)
	return m.SetHeader(name, value)
}

// HasHeader reports whether name (matched case-insensitively) already
// appears among the message's top-level headers.
func (m *Message) HasHeader(name string) bool {
	return findHeader(m.Headers, name) != nil
}

func findHeader(headers []Header, name string) *Header {
	for i := range headers {
		if equalFoldASCII(headers[i].Name, name) {
			return &headers[i]
		}
	}
	return nil
}

func removeHeader(headers []Header, name string) []Header {
	out := headers[:0:0]
	for _, h := range headers {
		if !equalFoldASCII(h.Name, name) {
			out = append(out, h)
		}
	}
	return out
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// normalizeText returns s normalized to NFC (canonical composition), so
// that visually identical text typed with different combining-mark
// sequences serializes to the same bytes. Non-text headers (Raw, URL,
// MessageIdList) are never passed through this.
func normalizeText(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
