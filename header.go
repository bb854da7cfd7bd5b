package mailmsg

import (
	"fmt"
	"strings"
	"time"
)

// HeaderValue is the sealed variant of a header's structured value:
// Address, DateTime, MessageIdList, ContentType, Text, URL, Raw, or
// TextList. Construct one with the Addr/DateTimeHeader/MessageIDs/
// ContentTypeHeader/Text/URL/Raw/Keywords helpers below.
type HeaderValue interface {
	isHeaderValue()
}

type addressValue struct{ v Address }
type dateTimeValue struct{ t time.Time }
type messageIDListValue struct{ ids []string }
type contentTypeValue struct {
	mediaType string
	params    *ParamList
}
type textValue struct{ s string }
type urlValue struct{ u string }
type rawValue struct{ b []byte }
type textListValue struct{ items []string }

func (addressValue) isHeaderValue()      {}
func (dateTimeValue) isHeaderValue()      {}
func (messageIDListValue) isHeaderValue() {}
func (contentTypeValue) isHeaderValue()   {}
func (textValue) isHeaderValue()          {}
func (urlValue) isHeaderValue()           {}
func (rawValue) isHeaderValue()           {}
func (textListValue) isHeaderValue()      {}

// Addr wraps a single mailbox, group, or address list as a HeaderValue,
// e.g. for From, To, Cc, Bcc, Reply-To, Sender.
func Addr(a Address) HeaderValue { return addressValue{v: a} }

// DateTimeHeader wraps a time.Time as an RFC 5322 date-time HeaderValue,
// e.g. for Date.
func DateTimeHeader(t time.Time) HeaderValue { return dateTimeValue{t: t} }

// MessageIDs wraps one or more message identifiers as a HeaderValue, e.g.
// for Message-ID, In-Reply-To, References. Each id is wrapped in angle
// brackets if not already.
func MessageIDs(ids ...string) HeaderValue { return messageIDListValue{ids: ids} }

// ContentTypeHeader wraps a media type and its parameters as a
// HeaderValue. MimePart.ContentType/Params is the usual path for this;
// this constructor exists for headers that carry a content-type-shaped
// value outside of a part (e.g. a forwarded message's embedded headers).
func ContentTypeHeader(mediaType string, params *ParamList) HeaderValue {
	return contentTypeValue{mediaType: mediaType, params: params}
}

// Text wraps free-form Unicode text as a HeaderValue, e.g. for Subject,
// Comments.
func Text(s string) HeaderValue { return textValue{s: s} }

// URL wraps an ASCII URL as a HeaderValue, rendered wrapped in angle
// brackets, e.g. for List-Unsubscribe.
func URL(u string) HeaderValue { return urlValue{u: u} }

// Raw wraps bytes to be inserted verbatim after "Name: ", with only a
// trailing CRLF appended. The caller is responsible for ensuring b is
// already a validly folded header value; see MalformedHeaderError.
func Raw(b []byte) HeaderValue { return rawValue{b: b} }

// Keywords wraps a comma-joined list of free-form text items as a
// HeaderValue, e.g. for the Keywords header (RFC 5322 §3.6.5).
func Keywords(items ...string) HeaderValue { return textListValue{items: items} }

const (
	foldTargetCol = 78
	foldHardMax   = 998
)

// writeHeader writes "Name: <folded value>\r\n" to w.
func writeHeader(w *countingSink, name string, v HeaderValue) error {
	switch val := v.(type) {
	case rawValue:
		if err := validateRawHeaderValue(name, val.b); err != nil {
			return err
		}
		if _, err := w.WriteString(name + ": "); err != nil {
			return err
		}
		if _, err := w.Write(val.b); err != nil {
			return err
		}
		_, err := w.WriteString("\r\n")
		return err
	}

	tokens, sep := headerTokens(v)
	return writeFolded(w, name, tokens, sep)
}

// headerTokens renders v into the ordered list of fold-candidate tokens
// and the punctuation that separates them (",", ";", or "" for a bare
// space).
func headerTokens(v HeaderValue) (tokens []string, sep string) {
	switch val := v.(type) {
	case addressValue:
		if list, ok := val.v.(AddressList); ok {
			toks := make([]string, len(list))
			for i, addr := range list {
				toks[i] = renderAddress(addr)
			}
			return toks, ","
		}
		return []string{renderAddress(val.v)}, ","
	case dateTimeValue:
		return []string{formatDateTime(val.t)}, ""
	case messageIDListValue:
		toks := make([]string, len(val.ids))
		for i, id := range val.ids {
			toks[i] = wrapMessageID(id)
		}
		return toks, ""
	case contentTypeValue:
		toks := []string{val.mediaType}
		if val.params != nil {
			for _, name := range val.params.Names() {
				value, _ := val.params.Get(name)
				toks = append(toks, renderParam(name, value)...)
			}
		}
		return toks, ";"
	case textValue:
		return textTokens(val.s), ""
	case urlValue:
		return []string{"<" + val.u + ">"}, ""
	case textListValue:
		toks := make([]string, len(val.items))
		for i, item := range val.items {
			toks[i] = renderText(item)
		}
		return toks, ","
	default:
		return nil, ""
	}
}

func wrapMessageID(id string) string {
	if strings.HasPrefix(id, "<") && strings.HasSuffix(id, ">") {
		return id
	}
	return "<" + id + ">"
}

// renderText renders free-form text as a bare token when it's pure ASCII
// with no header-unsafe characters, or as a run of RFC 2047 encoded-words
// (already internally folded) otherwise.
func renderText(s string) string {
	s = normalizeText(s)
	if isASCII(s) && !needsEncodedWord(s) {
		return s
	}
	return joinEncodedWords(encodeWords(s))
}

// textTokens splits s into fold-candidate tokens for an unstructured text
// header: individual words when s is plain ASCII, or the RFC 2047
// encoded-words produced by encodeWords otherwise. Splitting on words (not
// returning a single joined string) is what lets writeFolded insert folds
// at natural boundaries instead of emitting one unbreakable over-long line.
func textTokens(s string) []string {
	s = normalizeText(s)
	if isASCII(s) && !needsEncodedWord(s) {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return []string{""}
		}
		return fields
	}
	return encodeWords(s)
}

func needsEncodedWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 && c != '\t' {
			return true
		}
	}
	return false
}

// writeFolded writes "name: " followed by tokens joined with sep,
// inserting a fold (CRLF + single space) before whichever token would
// otherwise push the line past foldTargetCol. Tokens that already contain
// embedded CRLF (pre-folded encoded-word runs) are treated atomically:
// only their first visual line counts against the current column, and
// their last visual line becomes the new current column.
func writeFolded(w *countingSink, name string, tokens []string, sep string) error {
	prefix := name + ": "
	if _, err := w.WriteString(prefix); err != nil {
		return err
	}
	col := len(prefix)

	for i, tok := range tokens {
		firstLen, lastLen := tokenLineLens(tok)
		if i == 0 {
			if _, err := w.WriteString(tok); err != nil {
				return err
			}
			col = lastLen
			if !strings.Contains(tok, "\r\n") {
				col = len(prefix) + firstLen
			}
			continue
		}

		punct := sep
		// The leading space before the token is the fold point: when
		// folding we replace it with CRLF + one space; when not, it's
		// just one literal space.
		need := col + len(punct) + 1 + firstLen
		if need > foldTargetCol {
			if _, err := w.WriteString(punct + "\r\n "); err != nil {
				return err
			}
			col = 1 + firstLen
		} else {
			if _, err := w.WriteString(punct + " "); err != nil {
				return err
			}
			col += len(punct) + 1
			col += firstLen
		}
		if _, err := w.WriteString(tok); err != nil {
			return err
		}
		if strings.Contains(tok, "\r\n") {
			col = lastLen
		}
	}

	_, err := w.WriteString("\r\n")
	return err
}

// tokenLineLens returns the length of tok's first visual line and its
// last visual line (equal to len(tok) when tok has no embedded CRLF).
func tokenLineLens(tok string) (first, last int) {
	idx := strings.Index(tok, "\r\n")
	if idx < 0 {
		return len(tok), len(tok)
	}
	lastIdx := strings.LastIndex(tok, "\r\n")
	return idx, len(tok) - (lastIdx + 2)
}

func validateRawHeaderValue(name string, data []byte) error {
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '\r':
			if i+1 >= len(data) || data[i+1] != '\n' {
				return &MalformedHeaderError{Header: name, Reason: fmt.Sprintf("bare CR at offset %d", i)}
			}
			if i+2 >= len(data) || (data[i+2] != ' ' && data[i+2] != '\t') {
				return &MalformedHeaderError{Header: name, Reason: "CRLF not followed by folding whitespace"}
			}
			i++
		case c == '\n':
			return &MalformedHeaderError{Header: name, Reason: fmt.Sprintf("bare LF at offset %d", i)}
		case c < 0x20 && c != '\t':
			return &MalformedHeaderError{Header: name, Reason: fmt.Sprintf("control byte 0x%02x at offset %d", c, i)}
		case c == 0x7f:
			return &MalformedHeaderError{Header: name, Reason: fmt.Sprintf("DEL byte at offset %d", i)}
		}
	}
	return nil
}
