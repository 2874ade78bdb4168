// Package scan locates byte signatures in the host's loaded image and
// rewrites the bytes around them.
package scan

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/modhook/hostlink/types"
)

// Find returns the offset of the first occurrence of pattern in buf. It
// anchors on the first pattern byte and only verifies candidates where a full
// match fits in buf.
func Find(buf, pattern []byte) (int, bool) {
	if len(pattern) == 0 || len(pattern) > len(buf) {
		return 0, false
	}
	first := pattern[0]
	last := len(buf) - len(pattern)
	for i := 0; i <= last; {
		j := bytes.IndexByte(buf[i:last+1], first)
		if j < 0 {
			return 0, false
		}
		i += j
		if bytes.Equal(buf[i:i+len(pattern)], pattern) {
			return i, true
		}
		i++
	}
	return 0, false
}

// FindAll returns every offset at which pattern occurs, overlapping matches
// included, in ascending order.
func FindAll(buf, pattern []byte) []int {
	var offsets []int
	for base := 0; ; {
		off, ok := Find(buf[base:], pattern)
		if !ok {
			return offsets
		}
		offsets = append(offsets, base+off)
		base += off + 1
	}
}

// Signature is one versioned patch: the bytes to look for, where to write
// relative to the match, and what to write there.
type Signature struct {
	Name        string
	Pattern     []byte
	Delta       int
	Replacement []byte
	// Checksum pins the executable release the signature was derived from.
	// Zero matches any release.
	Checksum types.Checksum
}

// Validate checks the signature is usable.
func (s Signature) Validate() error {
	switch {
	case len(s.Pattern) == 0:
		return fmt.Errorf("signature %q: empty pattern", s.Name)
	case len(s.Replacement) == 0:
		return fmt.Errorf("signature %q: empty replacement", s.Name)
	case s.Delta < 0:
		return fmt.Errorf("signature %q: negative delta %d", s.Name, s.Delta)
	}
	return nil
}

// ParseHex parses space separated hex bytes such as "4C 8B B4 24".
func ParseHex(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("parse hex %q: %w", s, err)
	}
	return b, nil
}

// FormatHex renders bytes the way ParseHex reads them.
func FormatHex(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return strings.Join(parts, " ")
}
