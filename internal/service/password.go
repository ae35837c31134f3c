package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

var (
	ErrRandomnessUnavailable = errors.New("secure random source unavailable")
	ErrInvalidPasswordPolicy = errors.New("invalid password policy")
)

type PasswordGenerator interface {
	Generate(length int, alphabet string) (string, error)
}

type PasswordHasher interface {
	Hash(plaintext string) string
	// Equal compares two hashes in constant time.
	Equal(stored, candidate string) bool
}

// Generator draws each character uniformly from the alphabet using a
// cryptographically secure source.
type Generator struct {
	random io.Reader
}

func NewGenerator() *Generator {
	return &Generator{random: rand.Reader}
}

// NewGeneratorWithReader is for callers that need a specific entropy source.
// The reader must be cryptographically secure.
func NewGeneratorWithReader(r io.Reader) *Generator {
	return &Generator{random: r}
}

// Generate draws characters, not bytes, so multi-byte alphabets yield valid
// UTF-8. Duplicate characters are allowed and simply weigh the distribution.
func (g *Generator) Generate(length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: length must be positive", ErrInvalidPasswordPolicy)
	}
	if alphabet == "" {
		return "", fmt.Errorf("%w: alphabet is empty", ErrInvalidPasswordPolicy)
	}
	if !utf8.ValidString(alphabet) {
		return "", fmt.Errorf("%w: alphabet is not valid UTF-8", ErrInvalidPasswordPolicy)
	}

	symbols := []rune(alphabet)
	size := big.NewInt(int64(len(symbols)))
	password := make([]rune, length)
	for i := range password {
		n, err := rand.Int(g.random, size)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrRandomnessUnavailable, err)
		}
		password[i] = symbols[n.Int64()]
	}

	return string(password), nil
}

// Argon2Hasher derives an Argon2id key from the password and the
// process-wide salt, so equal inputs always hash the same.
type Argon2Hasher struct {
	salt        []byte
	memory      uint32
	iterations  uint32
	parallelism uint8
	keyLength   uint32
}

func NewArgon2Hasher(salt string) *Argon2Hasher {
	return &Argon2Hasher{
		salt:        []byte(salt),
		memory:      19 * 1024, // KiB
		iterations:  2,
		parallelism: 1,
		keyLength:   32,
	}
}

func (h *Argon2Hasher) Hash(plaintext string) string {
	key := argon2.IDKey([]byte(plaintext), h.salt, h.iterations, h.memory, h.parallelism, h.keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.iterations,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func (h *Argon2Hasher) Equal(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
