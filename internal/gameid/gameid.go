// Package gameid generates the identifiers used for tables, matches, seats
// and participants: a short type prefix and a UUIDv7 encoded as 26 characters
// of Crockford base32, so ids sort by creation time.
package gameid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// encodedLen is the length of the base32 part of an id.
const encodedLen = 26

// Prefixes for each kind of id.
const (
	Table       = "tbl"
	Match       = "mch"
	Seat        = "seat"
	Participant = "ptc"
	User        = "usr"
)

// Generator creates ids from a configurable entropy source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator reading randomness from r, or from
// crypto/rand when r is nil. Tests pass a seeded reader to get stable ids.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{rand: r}
}

var std = NewGenerator(nil)

// New returns a fresh id with the given prefix, e.g. "mch_01h5n0et5q6mt3v7ms1234abcd".
func New(prefix string) string {
	return std.New(prefix)
}

// New returns a fresh id with the given prefix.
func (g *Generator) New(prefix string) string {
	var (
		u   uuid.UUID
		err error
	)
	if g.rand != nil {
		u, err = uuid.NewV7FromReader(g.rand)
	} else {
		u, err = uuid.NewV7()
	}
	if err != nil {
		panic("failed to generate uuid: " + err.Error())
	}
	if prefix == "" {
		return encodeBase32(u)
	}
	return prefix + "_" + encodeBase32(u)
}

// encodeBase32 encodes the 128 bits as 130 bits with two leading zero bits,
// five bits per character, most significant first.
func encodeBase32(u uuid.UUID) string {
	out := make([]byte, encodedLen)
	for i := range out {
		var v byte
		for b := 0; b < 5; b++ {
			v <<= 1
			if p := i*5 + b - 2; p >= 0 {
				v |= (u[p/8] >> (7 - p%8)) & 1
			}
		}
		out[i] = alphabet[v]
	}
	return string(out)
}

func decodeBase32(s string) (uuid.UUID, error) {
	var u uuid.UUID
	if len(s) != encodedLen {
		return u, fmt.Errorf("id must be exactly %d characters, got %d", encodedLen, len(s))
	}
	if s[0] > '7' {
		return u, fmt.Errorf("id first character must be 0-7, got %c", s[0])
	}
	for i := 0; i < encodedLen; i++ {
		v := strings.IndexByte(alphabet, s[i])
		if v < 0 {
			return u, fmt.Errorf("invalid character %c at position %d", s[i], i)
		}
		for b := 0; b < 5; b++ {
			p := i*5 + b - 2
			if p < 0 {
				continue
			}
			if v>>(4-b)&1 == 1 {
				u[p/8] |= 1 << (7 - p%8)
			}
		}
	}
	return u, nil
}

// Parse splits an id into its prefix and UUID.
func Parse(id string) (prefix string, u uuid.UUID, err error) {
	enc := id
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		prefix, enc = id[:i], id[i+1:]
	}
	u, err = decodeBase32(enc)
	if err != nil {
		return "", uuid.Nil, err
	}
	return prefix, u, nil
}

// Validate checks that id is well formed and, when want is not empty, that it
// carries that prefix.
func Validate(id, want string) error {
	prefix, _, err := Parse(id)
	if err != nil {
		return err
	}
	if want != "" && prefix != want {
		return fmt.Errorf("id %q: expected prefix %q, got %q", id, want, prefix)
	}
	return nil
}
