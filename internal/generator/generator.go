// Package generator produces random passwords that satisfy per-class
// minimum counts, word-based memorable passwords and numeric PINs.
package generator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Character classes
const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Digits    = "0123456789"
	Special   = "!@#$%^&*()-_=+[]{}|;:,.<>?/~`"
)

// Length bounds accepted by Validate
const (
	MinLength = 4
	MaxLength = 64
)

// Type selects how a password is built
type Type string

const (
	TypeRandom    Type = "random"
	TypeMemorable Type = "memorable"
	TypePIN       Type = "pin"
)

// Suggested lengths when switching to a type
const (
	DefaultMemorableLength = 16
	DefaultPINLength       = 6
)

// Types lists the supported password types in display order
var Types = []Type{TypeRandom, TypeMemorable, TypePIN}

// DefaultLength returns the length a new password of type t starts with
func DefaultLength(t Type) int {
	switch t {
	case TypeMemorable:
		return DefaultMemorableLength
	case TypePIN:
		return DefaultPINLength
	default:
		return DefaultSettings().Length
	}
}

var (
	ErrNoCharacterTypes = errors.New("At least one character type must be selected.")
	ErrLengthTooShort   = errors.New("Length is too short for the minimum counts specified.")
	ErrLengthOutOfRange = fmt.Errorf("Length must be between %d and %d.", MinLength, MaxLength)
	ErrNegativeMinimum  = errors.New("Minimum counts cannot be negative.")
	ErrUnknownType      = errors.New("Password type must be random, memorable or pin.")
)

// Settings describes which character classes a password draws from and
// how many characters each class must contribute at minimum. Memorable
// passwords only honor UseDigits and UseSpecial; PINs only Length.
type Settings struct {
	Type       Type `json:"type,omitempty" yaml:"type,omitempty"`
	Length     int  `json:"length" yaml:"length"`
	UseUpper   bool `json:"use_upper" yaml:"use_upper"`
	UseLower   bool `json:"use_lower" yaml:"use_lower"`
	UseDigits  bool `json:"use_digits" yaml:"use_digits"`
	UseSpecial bool `json:"use_special" yaml:"use_special"`
	MinUpper   int  `json:"min_upper" yaml:"min_upper"`
	MinLower   int  `json:"min_lower" yaml:"min_lower"`
	MinDigits  int  `json:"min_digits" yaml:"min_digits"`
}

// DefaultSettings returns the settings a new session starts with
func DefaultSettings() Settings {
	return Settings{
		Length:    14,
		UseUpper:  true,
		UseLower:  true,
		UseDigits: true,
		MinUpper:  1,
		MinLower:  1,
		MinDigits: 1,
	}
}

// PasswordType returns s.Type, treating empty as random
func (s Settings) PasswordType() Type {
	if s.Type == "" {
		return TypeRandom
	}
	return s.Type
}

// Validate reports whether a password can be generated from s
func (s Settings) Validate() error {
	switch s.PasswordType() {
	case TypeRandom:
	case TypeMemorable, TypePIN:
		if s.Length < MinLength || s.Length > MaxLength {
			return ErrLengthOutOfRange
		}
		return nil
	default:
		return ErrUnknownType
	}

	if !s.UseUpper && !s.UseLower && !s.UseDigits && !s.UseSpecial {
		return ErrNoCharacterTypes
	}

	if (s.UseUpper && s.MinUpper < 0) || (s.UseLower && s.MinLower < 0) || (s.UseDigits && s.MinDigits < 0) {
		return ErrNegativeMinimum
	}

	if s.Length < MinLength || s.Length > MaxLength {
		return ErrLengthOutOfRange
	}

	if s.Length < s.MinimumRequired() {
		return ErrLengthTooShort
	}

	return nil
}

// MinimumRequired sums the minimum counts of the enabled classes
func (s Settings) MinimumRequired() int {
	n := 0
	if s.UseUpper {
		n += s.MinUpper
	}
	if s.UseLower {
		n += s.MinLower
	}
	if s.UseDigits {
		n += s.MinDigits
	}
	return n
}

// Pool returns the characters of every enabled class
func (s Settings) Pool() string {
	var b strings.Builder
	if s.UseUpper {
		b.WriteString(Uppercase)
	}
	if s.UseLower {
		b.WriteString(Lowercase)
	}
	if s.UseDigits {
		b.WriteString(Digits)
	}
	if s.UseSpecial {
		b.WriteString(Special)
	}
	return b.String()
}

// Generator draws passwords from a random source
type Generator struct {
	rand io.Reader
}

// Option configures a Generator
type Option func(*Generator)

// WithRand replaces the default crypto/rand source
func WithRand(r io.Reader) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

// New creates a generator backed by crypto/rand unless overridden
func New(opts ...Option) *Generator {
	g := &Generator{rand: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a password satisfying s
func (g *Generator) Generate(s Settings) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	switch s.PasswordType() {
	case TypeMemorable:
		return g.memorable(s)
	case TypePIN:
		return g.pin(s.Length)
	default:
		return g.random(s)
	}
}

// random draws the class minimums first, fills from the combined pool and
// shuffles
func (g *Generator) random(s Settings) (string, error) {
	password := make([]byte, 0, s.Length)
	var err error

	if s.UseUpper {
		if password, err = g.appendFrom(password, Uppercase, s.MinUpper); err != nil {
			return "", err
		}
	}
	if s.UseLower {
		if password, err = g.appendFrom(password, Lowercase, s.MinLower); err != nil {
			return "", err
		}
	}
	if s.UseDigits {
		if password, err = g.appendFrom(password, Digits, s.MinDigits); err != nil {
			return "", err
		}
	}

	if remaining := s.Length - len(password); remaining > 0 {
		if password, err = g.appendFrom(password, s.Pool(), remaining); err != nil {
			return "", err
		}
	}

	if err := g.shuffle(password); err != nil {
		return "", err
	}

	return string(password), nil
}

// appendFrom appends n characters drawn uniformly from chars
func (g *Generator) appendFrom(dst []byte, chars string, n int) ([]byte, error) {
	for i := 0; i < n; i++ {
		idx, err := g.intn(len(chars))
		if err != nil {
			return nil, err
		}
		dst = append(dst, chars[idx])
	}
	return dst, nil
}

// shuffle performs an in-place Fisher-Yates shuffle
func (g *Generator) shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

func (g *Generator) intn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(v.Int64()), nil
}
