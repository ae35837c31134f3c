package service

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source closed")
}

func TestGeneratorGenerate(t *testing.T) {
	g := NewGenerator()

	tests := []struct {
		name     string
		length   int
		alphabet string
	}{
		{"digits", 6, "0123456789"},
		{"alphanumeric", 12, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"},
		{"single character", 5, "a"},
		{"duplicates allowed", 8, "aab"},
		{"multi-byte", 6, "äöü"},
		{"mixed width", 10, "a€𝄞z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			password, err := g.Generate(tt.length, tt.alphabet)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if n := utf8.RuneCountInString(password); n != tt.length {
				t.Errorf("expected length %d, got %d", tt.length, n)
			}
			if !utf8.ValidString(password) {
				t.Errorf("password %q is not valid UTF-8", password)
			}
			for _, c := range password {
				if !strings.ContainsRune(tt.alphabet, c) {
					t.Errorf("character %q not in alphabet %q", c, tt.alphabet)
				}
			}
		})
	}
}

func TestGeneratorCoversAlphabet(t *testing.T) {
	password, err := NewGenerator().Generate(2000, "01")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	zeros := strings.Count(password, "0")
	if zeros < 800 || zeros > 1200 {
		t.Errorf("expected roughly even distribution, got %d zeros out of 2000", zeros)
	}
}

func TestGeneratorInvalidPolicy(t *testing.T) {
	g := NewGenerator()

	if _, err := g.Generate(0, "0123"); !errors.Is(err, ErrInvalidPasswordPolicy) {
		t.Errorf("expected ErrInvalidPasswordPolicy for zero length, got %v", err)
	}
	if _, err := g.Generate(6, ""); !errors.Is(err, ErrInvalidPasswordPolicy) {
		t.Errorf("expected ErrInvalidPasswordPolicy for empty alphabet, got %v", err)
	}
	if _, err := g.Generate(6, "ab\xff"); !errors.Is(err, ErrInvalidPasswordPolicy) {
		t.Errorf("expected ErrInvalidPasswordPolicy for invalid UTF-8 alphabet, got %v", err)
	}
}

func TestGeneratorRandomnessUnavailable(t *testing.T) {
	g := NewGeneratorWithReader(failingReader{})

	password, err := g.Generate(6, "0123456789")
	if !errors.Is(err, ErrRandomnessUnavailable) {
		t.Fatalf("expected ErrRandomnessUnavailable, got %v", err)
	}
	if password != "" {
		t.Errorf("expected no password on failure, got %q", password)
	}
}

func TestArgon2Hasher(t *testing.T) {
	h := NewArgon2Hasher("pepper-and-salt")

	first := h.Hash("010101")
	second := h.Hash("010101")
	if first != second {
		t.Fatal("expected hashing to be deterministic for the same salt")
	}
	if !strings.HasPrefix(first, "$argon2id$") {
		t.Errorf("unexpected hash format: %s", first)
	}
	if strings.Contains(first, "010101") {
		t.Error("hash must not contain the plaintext")
	}
	if !h.Equal(first, second) {
		t.Error("expected equal hashes to compare equal")
	}

	if h.Equal(first, h.Hash("010100")) {
		t.Error("different passwords must not compare equal")
	}

	other := NewArgon2Hasher("another-salt")
	if other.Hash("010101") == first {
		t.Error("different salts must produce different hashes")
	}

	if h.Equal(first, "") {
		t.Error("empty candidate must not compare equal")
	}
}
