package code

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/rand"
)

// Alphabet is the set of characters a code is drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyz1234567890ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const DefaultLength = 5

var ErrInvalidLength = errors.New("code length must be at least 1")

// Generator draws random codes from Alphabet.
//
// A Generator is not safe for concurrent use. It shares its random source with
// whoever handed it in; callers sharing one source must serialize access.
type Generator struct {
	length int
	rng    *rand.Rand
}

// New returns a Generator for codes of the given length. A nil rng gets a
// time-seeded source of its own.
func New(length int, rng *rand.Rand) (*Generator, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidLength, length)
	}
	if rng == nil {
		rng = NewRand(uint64(time.Now().UnixNano()))
	}
	return &Generator{length: length, rng: rng}, nil
}

// MustNew is New for lengths known to be valid; it panics otherwise.
func MustNew(length int, rng *rand.Rand) *Generator {
	g, err := New(length, rng)
	if err != nil {
		panic(err)
	}
	return g
}

// NewRand returns a random source seeded with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func (g *Generator) Length() int { return g.length }

// Generate returns a fresh code of Length()+1 characters.
func (g *Generator) Generate() string {
	var sb strings.Builder
	sb.Grow(g.length + 1)
	for i := 0; i <= g.length; i++ {
		sb.WriteByte(Alphabet[g.rng.Intn(len(Alphabet))])
	}
	return sb.String()
}

// InAlphabet reports whether every character of s is in Alphabet.
func InAlphabet(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
