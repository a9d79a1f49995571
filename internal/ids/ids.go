// Package ids generates the identifiers used across the server: sortable
// table and hand IDs, and short invite codes for private tables.
package ids

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32).
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// InviteAlphabet holds the characters of an invite code. It leaves out
// 0, O, 1, I, L and U so codes survive being read aloud or retyped.
const InviteAlphabet = "23456789ABCDEFGHJKMNPQRSTVWXYZ"

// InviteCodeLength is the number of characters in an invite code.
const InviteCodeLength = 6

// maxInviteAttempts bounds the collision retries for one invite code.
const maxInviteAttempts = 64

// ErrInviteCodesExhausted is returned when no unused invite code was found.
var ErrInviteCodesExhausted = errors.New("no unused invite code available")

// Generator produces IDs and invite codes. With a nil rng it draws from
// crypto/rand through uuid; tests pass a seeded rng for reproducible output.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. rng may be nil.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// New returns "<prefix>_<26 base32 chars>" built from a UUIDv7, so IDs with
// the same prefix sort by creation time.
func (g *Generator) New(prefix string) string {
	id := g.uuid()
	if prefix == "" {
		return encodeBase32(id)
	}
	return prefix + "_" + encodeBase32(id)
}

// UUID returns a random UUIDv7 for session identifiers.
func (g *Generator) UUID() uuid.UUID {
	return g.uuid()
}

func (g *Generator) uuid() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	var (
		id  uuid.UUID
		err error
	)
	if g.rng != nil {
		id, err = uuid.NewV7FromReader(rngReader{g.rng})
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("failed to generate uuid: " + err.Error())
	}
	return id
}

// InviteCode returns a code for which taken reports false. taken sees codes
// in canonical upper case.
func (g *Generator) InviteCode(taken func(code string) bool) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var buf [InviteCodeLength]byte
	for range maxInviteAttempts {
		for i := range buf {
			buf[i] = InviteAlphabet[g.intN(len(InviteAlphabet))]
		}
		code := string(buf[:])
		if taken == nil || !taken(code) {
			return code, nil
		}
	}
	return "", ErrInviteCodesExhausted
}

func (g *Generator) intN(n int) int {
	if g.rng != nil {
		return g.rng.IntN(n)
	}
	return rand.IntN(n)
}

// NormalizeInviteCode maps user input onto the canonical form used as a
// lookup key.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInviteCode reports whether code (in any case) is well formed.
func ValidInviteCode(code string) bool {
	code = NormalizeInviteCode(code)
	if len(code) != InviteCodeLength {
		return false
	}
	for i := range len(code) {
		if strings.IndexByte(InviteAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// Validate checks an ID produced by New with the given prefix.
func Validate(prefix, id string) error {
	if prefix != "" {
		rest, ok := strings.CutPrefix(id, prefix+"_")
		if !ok {
			return fmt.Errorf("id %q lacks prefix %q", id, prefix)
		}
		id = rest
	}
	if len(id) != 26 {
		return fmt.Errorf("id must be exactly 26 characters, got %d", len(id))
	}
	// The first character carries only three bits of the 128.
	if id[0] > '7' {
		return fmt.Errorf("id first character must be 0-7, got %c", id[0])
	}
	for i := range len(id) {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}

// encodeBase32 encodes 128 bits as 26 characters, most significant first,
// with two zero bits of padding at the front.
func encodeBase32(data [16]byte) string {
	var out [26]byte
	// Read 5-bit groups from the right so the padding lands in the first
	// character.
	var acc uint32
	bits := 0
	pos := len(out) - 1
	for i := len(data) - 1; i >= 0; i-- {
		acc |= uint32(data[i]) << bits
		bits += 8
		for bits >= 5 {
			out[pos] = alphabet[acc&0x1f]
			pos--
			acc >>= 5
			bits -= 5
		}
	}
	out[0] = alphabet[acc&0x1f]
	return string(out[:])
}

// rngReader adapts a math/rand source to io.Reader for uuid.
type rngReader struct{ r *rand.Rand }

var _ io.Reader = rngReader{}

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.r.Uint32())
	}
	return len(p), nil
}
