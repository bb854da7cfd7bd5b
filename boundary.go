package mailmsg

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/google/uuid"
)

// boundaryPrefix matches the "----=_NextPart_..." shape real-world MIME
// generators emit, observed in the wild (Outlook/Exchange-style boundaries
// such as "--=_NextPart_5213_0a55_d6217661_9281_11d9_a2b8_0040529d55d7").
const boundaryPrefix = "----=_NextPart_"

// maxBoundaryAttempts bounds the generate-then-verify loop. A collision on
// a fresh 128-bit random value is cryptographically improbable; exceeding this is
// itself evidence of a broken entropy source.
const maxBoundaryAttempts = 8

// generateBoundary produces a boundary string guaranteed not to appear as
// a line within any of the already-encoded descendant bodies in probes,
// regenerating on collision (spec.md §4.4's permitted "generate first,
// then verify" strategy).
func (m *Message) generateBoundary(probes [][]byte) (string, error) {
	for attempt := 0; attempt < maxBoundaryAttempts; attempt++ {
		candidate, err := m.randomBoundary()
		if err != nil {
			return "", err
		}
		if !boundaryCollides(candidate, probes) {
			return candidate, nil
		}
		m.env.log.WithField("candidate", candidate).Warn("mailmsg: boundary collision, regenerating")
	}
	return "", invariantf("could not generate a non-colliding boundary after %d attempts", maxBoundaryAttempts)
}

func (m *Message) randomBoundary() (string, error) {
	id, err := m.randomUUID()
	if err != nil {
		return "", err
	}
	return boundaryPrefix + hex.EncodeToString(id[:]), nil
}

// newMessageID returns an unwrapped "<random-hex>@host" identifier, using
// at least 80 bits of entropy from the injected source.
func (m *Message) newMessageID() (string, error) {
	id, err := m.randomUUID()
	if err != nil {
		return "", err
	}
	host := m.env.hostname
	if host == "" {
		host = "localhost"
	}
	return hex.EncodeToString(id[:]) + "@" + host, nil
}

// newContentID returns a freshly generated "<random-hex>@host" Content-ID
// value (without angle brackets) for an inline part whose caller left AsInline's cid argument empty (spec.md
// §4.5's "derived from the caller's cid: identifier or generated").
func (m *Message) newContentID() (string, error) {
	id, err := m.randomUUID()
	if err != nil {
		return "", err
	}
	host := m.env.hostname
	if host == "" {
		host = "localhost"
	}
	return hex.EncodeToString(id[:]) + "@" + host, nil
}

func (m *Message) randomUUID() (uuid.UUID, error) {
	var id uuid.UUID
	if m.env.entropy != nil {
		if _, err := io.ReadFull(m.env.entropy, id[:]); err != nil {
			return uuid.UUID{}, err
		}
		return id, nil
	}
	return uuid.New(), nil
}

// boundaryCollides reports whether "--boundary" appears as a line (i.e. at
// the start of a line, per RFC 2046's delimiter matching) in any probe.
func boundaryCollides(boundary string, probes [][]byte) bool {
	needle := []byte("--" + boundary)
	for _, p := range probes {
		if lineStartsWith(p, needle) {
			return true
		}
	}
	return false
}

func lineStartsWith(body, needle []byte) bool {
	start := 0
	for start <= len(body) {
		end := bytes.IndexByte(body[start:], '\n')
		var line []byte
		if end < 0 {
			line = body[start:]
		} else {
			line = body[start : start+end]
		}
		line = bytes.TrimRight(line, "\r")
		if bytes.HasPrefix(line, needle) {
			return true
		}
		if end < 0 {
			break
		}
		start += end + 1
	}
	return false
}
