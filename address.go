package mailmsg

import "strings"

// Address is the sealed variant of an RFC 5322 address: a single mailbox, a
// named group of mailboxes, or an ordered list of addresses (for headers
// like To/Cc that may mix mailboxes and groups).
type Address interface {
	isAddress()
}

// Mailbox is a single address, optionally with a display name.
type Mailbox struct {
	Display string // may be empty
	Addr    string // local-part@domain
}

func (Mailbox) isAddress() {}

// Group is a named collection of mailboxes, rendered as "name: a, b;".
type Group struct {
	Name    string
	Members []Mailbox
}

func (Group) isAddress() {}

// AddressList is an ordered list of addresses (mailboxes and/or groups),
// rendered comma-separated.
type AddressList []Address

func (AddressList) isAddress() {}

// rfc5322Specials are the RFC 5322 "specials" that force a display-name to be
// quoted (or encoded, if non-ASCII is also present).
const rfc5322Specials = `()<>[]:;@\,."`

// needsQuoting reports whether s must be wrapped in a quoted-string to be
// used as a display-name, because it contains specials or a control byte
// other than TAB. Whitespace alone, including leading, trailing or
// repeated spaces, does not make it report true.
func needsQuoting(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(rfc5322Specials, c) >= 0 {
			return true
		}
		if c < 0x20 && c != '\t' {
			return true
		}
	}
	return false
}

// isASCII reports whether s contains only bytes < 0x80.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// quoteDisplayName renders s as an RFC 5322 quoted-string: surrounding
// quotes, with '\' and '"' backslash-escaped. s must be ASCII; callers must
// route non-ASCII display names through encoded-words instead.
func quoteDisplayName(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// renderAddress returns the RFC 5322 rendering of a, which may be a single
// Mailbox, a Group, or an AddressList. AddressList members are joined with
// ", " into one string. headerTokens does not use this join for a
// top-level AddressList (it makes one fold token per member), so the join
// applies to an AddressList nested inside another.
func renderAddress(a Address) string {
	switch v := a.(type) {
	case Mailbox:
		return renderMailbox(v)
	case Group:
		return renderGroup(v)
	case AddressList:
		parts := make([]string, len(v))
		for i, addr := range v {
			parts[i] = renderAddress(addr)
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func renderGroup(g Group) string {
	members := make([]string, len(g.Members))
	for i, m := range g.Members {
		members[i] = renderMailbox(m)
	}
	name := normalizeText(g.Name)
	if !isASCII(name) {
		name = joinEncodedWords(encodeWords(name))
	} else if needsQuoting(name) {
		name = quoteDisplayName(name)
	}
	return name + ": " + strings.Join(members, ", ") + ";"
}

// renderMailbox returns the RFC 5322 rendering of a single mailbox,
// independent of line folding (folding is applied by the header writer at a
// higher level). Non-ASCII display names are rendered as one or more
// encoded-words; ASCII display names needing quoting are quoted; a plain
// ASCII display name with no specials is emitted bare. A mailbox with no
// display name renders as the bare addr-spec, with no angle brackets
// (spec.md §4.2).
func renderMailbox(m Mailbox) string {
	display := normalizeText(m.Display)
	if display == "" {
		return m.Addr
	}
	addr := "<" + m.Addr + ">"
	if !isASCII(display) {
		return joinEncodedWords(encodeWords(display)) + " " + addr
	}
	if needsQuoting(display) {
		return quoteDisplayName(display) + " " + addr
	}
	return display + " " + addr
}
