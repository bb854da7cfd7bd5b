package mailmsg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBoundaryDeterministicWithFixedEntropy(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x42}, 32)
	m := NewMessage(WithEntropy(bytes.NewReader(entropy)))
	b1, err := m.generateBoundary(nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b1, boundaryPrefix))

	m2 := NewMessage(WithEntropy(bytes.NewReader(entropy)))
	b2, err := m2.generateBoundary(nil)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestGenerateBoundaryRegeneratesOnCollision(t *testing.T) {
	// Feed the same 16 bytes twice so the first candidate collides with a
	// probe, forcing a second attempt to draw fresh entropy.
	first := bytes.Repeat([]byte{0x11}, 16)
	second := bytes.Repeat([]byte{0x22}, 16)
	entropy := append(append([]byte{}, first...), second...)
	m := NewMessage(WithEntropy(bytes.NewReader(entropy)))

	collidingBoundary, err := m.randomBoundary()
	require.NoError(t, err)

	m2 := NewMessage(WithEntropy(bytes.NewReader(entropy)))
	probes := [][]byte{[]byte("--" + collidingBoundary)}
	got, err := m2.generateBoundary(probes)
	require.NoError(t, err)
	assert.NotEqual(t, collidingBoundary, got)
}

func TestLineStartsWithFindsMidBodyLine(t *testing.T) {
	body := []byte("first line\r\n--boundary\r\nrest")
	assert.True(t, lineStartsWith(body, []byte("--boundary")))
	assert.False(t, lineStartsWith(body, []byte("--other")))
}

func TestNewMessageIDUsesHostname(t *testing.T) {
	m := NewMessage(WithHostname("mail.example.com"))
	id, err := m.newMessageID()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@mail.example.com"))
}
