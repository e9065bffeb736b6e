package generator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_DefaultSettings(t *testing.T) {
	pw, err := New().Generate(DefaultSettings())
	require.NoError(t, err)

	assert.Len(t, pw, 14)
	upper, lower, digits, other := CountClasses(pw)
	assert.GreaterOrEqual(t, upper, 1)
	assert.GreaterOrEqual(t, lower, 1)
	assert.GreaterOrEqual(t, digits, 1)
	assert.Zero(t, other)
}

func TestGenerate_CustomLength(t *testing.T) {
	s := DefaultSettings()
	s.Length = 20

	pw, err := New().Generate(s)
	require.NoError(t, err)
	assert.Len(t, pw, 20)
}

func TestGenerate_SingleClass(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		allowed  string
	}{
		{
			name:     "uppercase only",
			settings: Settings{Length: 14, UseUpper: true, MinUpper: 1},
			allowed:  Uppercase,
		},
		{
			name:     "lowercase only",
			settings: Settings{Length: 14, UseLower: true, MinLower: 1},
			allowed:  Lowercase,
		},
		{
			name:     "digits only",
			settings: Settings{Length: 14, UseDigits: true, MinDigits: 1},
			allowed:  Digits,
		},
		{
			name:     "special only",
			settings: Settings{Length: 14, UseSpecial: true},
			allowed:  Special,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pw, err := New().Generate(tt.settings)
			require.NoError(t, err)
			assert.Len(t, pw, 14)
			for _, r := range pw {
				assert.True(t, strings.ContainsRune(tt.allowed, r), "unexpected character %q", r)
			}
		})
	}
}

func TestGenerate_MinimumRequirements(t *testing.T) {
	s := Settings{
		Length:    10,
		UseUpper:  true,
		UseLower:  true,
		UseDigits: true,
		MinUpper:  3,
		MinLower:  3,
		MinDigits: 4,
	}

	// Repeat to catch shuffles that would drop a required character
	for i := 0; i < 50; i++ {
		pw, err := New().Generate(s)
		require.NoError(t, err)
		require.Len(t, pw, 10)

		upper, lower, digits, _ := CountClasses(pw)
		assert.Equal(t, 3, upper)
		assert.Equal(t, 3, lower)
		assert.Equal(t, 4, digits)
	}
}

func TestGenerate_SpecialWithMinimums(t *testing.T) {
	s := Settings{
		Length:     16,
		UseUpper:   true,
		UseLower:   true,
		UseDigits:  true,
		UseSpecial: true,
		MinUpper:   2,
		MinLower:   2,
		MinDigits:  2,
	}

	pw, err := New().Generate(s)
	require.NoError(t, err)
	assert.Len(t, pw, 16)

	upper, lower, digits, _ := CountClasses(pw)
	assert.GreaterOrEqual(t, upper, 2)
	assert.GreaterOrEqual(t, lower, 2)
	assert.GreaterOrEqual(t, digits, 2)

	pool := s.Pool()
	for _, r := range pw {
		assert.True(t, strings.ContainsRune(pool, r))
	}
}

func TestGenerate_DisabledClassMinimumIgnored(t *testing.T) {
	s := Settings{Length: 4, UseLower: true, MinLower: 1, MinUpper: 10, MinDigits: 10}

	pw, err := New().Generate(s)
	require.NoError(t, err)
	assert.Len(t, pw, 4)
	assert.Equal(t, strings.ToLower(pw), pw)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     error
	}{
		{
			name:     "defaults are valid",
			settings: DefaultSettings(),
		},
		{
			name:     "no character types",
			settings: Settings{Length: 14},
			want:     ErrNoCharacterTypes,
		},
		{
			name:     "length too short for minimums",
			settings: Settings{Length: 5, UseUpper: true, UseLower: true, UseDigits: true, MinUpper: 2, MinLower: 2, MinDigits: 2},
			want:     ErrLengthTooShort,
		},
		{
			name:     "length below range",
			settings: Settings{Length: 3, UseLower: true},
			want:     ErrLengthOutOfRange,
		},
		{
			name:     "length above range",
			settings: Settings{Length: MaxLength + 1, UseLower: true},
			want:     ErrLengthOutOfRange,
		},
		{
			name:     "negative minimum",
			settings: Settings{Length: 8, UseDigits: true, MinDigits: -1},
			want:     ErrNegativeMinimum,
		},
		{
			name:     "unknown type",
			settings: Settings{Type: "passphrase", Length: 14, UseLower: true},
			want:     ErrUnknownType,
		},
		{
			name:     "pin ignores character types",
			settings: Settings{Type: TypePIN, Length: 6},
		},
		{
			name:     "memorable ignores minimums",
			settings: Settings{Type: TypeMemorable, Length: 4, UseUpper: true, MinUpper: 10},
		},
		{
			name:     "pin length out of range",
			settings: Settings{Type: TypePIN, Length: 3},
			want:     ErrLengthOutOfRange,
		},
		{
			name:     "memorable length out of range",
			settings: Settings{Type: TypeMemorable, Length: MaxLength + 1},
			want:     ErrLengthOutOfRange,
		},
		{
			name:     "minimums exactly fill length",
			settings: Settings{Length: 6, UseUpper: true, UseLower: true, UseDigits: true, MinUpper: 2, MinLower: 2, MinDigits: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	assert.Equal(t, "At least one character type must be selected.", ErrNoCharacterTypes.Error())
	assert.Equal(t, "Length is too short for the minimum counts specified.", ErrLengthTooShort.Error())
}

func TestGenerate_InvalidSettings(t *testing.T) {
	_, err := New().Generate(Settings{Length: 14})
	assert.ErrorIs(t, err, ErrNoCharacterTypes)
}

func TestGenerate_RandomSourceFailure(t *testing.T) {
	_, err := New(WithRand(failingReader{})).Generate(DefaultSettings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}

func TestPool(t *testing.T) {
	s := Settings{UseUpper: true, UseSpecial: true}
	assert.Equal(t, Uppercase+Special, s.Pool())

	s = Settings{UseLower: true, UseDigits: true}
	assert.Equal(t, Lowercase+Digits, s.Pool())
}

func TestGenerate_PIN(t *testing.T) {
	pw, err := New().Generate(Settings{Type: TypePIN, Length: DefaultPINLength})
	require.NoError(t, err)

	assert.Len(t, pw, 6)
	_, _, digits, _ := CountClasses(pw)
	assert.Equal(t, 6, digits)
}

func TestGenerate_Memorable(t *testing.T) {
	for _, length := range []int{MinLength, DefaultMemorableLength, MaxLength} {
		pw, err := New().Generate(Settings{Type: TypeMemorable, Length: length})
		require.NoError(t, err)

		assert.Len(t, pw, length)
		assert.True(t, pw[0] >= 'A' && pw[0] <= 'Z', pw)
		upper, lower, _, _ := CountClasses(pw)
		assert.Equal(t, length, upper+lower, pw)
	}
}

func TestGenerate_MemorableSuffix(t *testing.T) {
	s := Settings{Type: TypeMemorable, Length: DefaultMemorableLength, UseDigits: true, UseSpecial: true}

	for i := 0; i < 20; i++ {
		pw, err := New().Generate(s)
		require.NoError(t, err)
		require.Len(t, pw, DefaultMemorableLength)

		assert.True(t, strings.ContainsRune(MemorableSymbols, rune(pw[len(pw)-1])), pw)
		assert.True(t, pw[len(pw)-2] >= '0' && pw[len(pw)-2] <= '9', pw)

		_, _, digits, other := CountClasses(pw)
		assert.Equal(t, 1, other, pw)
		assert.True(t, digits == 1 || digits == 2, pw)
	}
}

func TestGenerate_MemorableDigitsOnly(t *testing.T) {
	pw, err := New().Generate(Settings{Type: TypeMemorable, Length: 10, UseDigits: true})
	require.NoError(t, err)

	assert.Len(t, pw, 10)
	assert.True(t, pw[len(pw)-1] >= '0' && pw[len(pw)-1] <= '9', pw)
	_, _, _, other := CountClasses(pw)
	assert.Zero(t, other)
}

func TestPasswordType(t *testing.T) {
	assert.Equal(t, TypeRandom, DefaultSettings().PasswordType())
	assert.Equal(t, TypePIN, Settings{Type: TypePIN}.PasswordType())

	assert.Equal(t, 14, DefaultLength(TypeRandom))
	assert.Equal(t, DefaultMemorableLength, DefaultLength(TypeMemorable))
	assert.Equal(t, DefaultPINLength, DefaultLength(TypePIN))
}

func TestWordList(t *testing.T) {
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		assert.False(t, seen[w], "duplicate word %q", w)
		seen[w] = true
		assert.Equal(t, strings.ToLower(w), w)
	}
}
