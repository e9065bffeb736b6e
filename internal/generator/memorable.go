package generator

import (
	"strconv"
	"strings"
)

// MemorableSymbols are the symbols a memorable password may end with
const MemorableSymbols = "!@#$%^&*"

var words = []string{
	"apple", "beach", "cloud", "dream", "earth", "fruit", "glass",
	"happy", "juice", "kite", "light", "music", "night", "ocean",
	"paper", "queen", "river", "storm", "tiger", "unity", "voice",
	"water", "xylophone", "yellow", "zebra", "bread", "chair", "dance",
	"eagle", "flute", "grape", "honey", "igloo", "jewel", "koala",
	"mountain", "forest", "window", "garden", "flower", "planet", "rocket",
	"school", "pencil", "orange", "banana", "monkey", "puzzle", "castle",
	"bridge", "camera", "dragon", "energy", "family", "giant", "helmet",
	"island", "jungle", "kitten", "lemon", "mirror", "notebook", "octopus",
	"pillow", "quartz", "rainbow", "sunset", "train", "umbrella", "violin",
	"whale", "yogurt", "zucchini", "anchor", "button", "circle", "desert",
	"engine", "feather", "guitar", "insect", "jacket", "ladder",
	"magnet", "needle", "ostrich", "panda", "quiver", "robot", "saddle",
	"teapot", "unicorn", "village", "wallet", "yawn", "zipper", "artist",
	"bottle", "candle", "donkey", "envelope", "glove", "hammer",
	"icicle", "kangaroo", "lantern", "meadow", "napkin", "orchid",
	"parrot", "quokka", "scooter", "ticket", "utensil", "vulture",
	"yacht", "zeppelin",
}

// memorable joins capitalized words up to s.Length and replaces the tail
// with a number below 100 and a symbol when those classes are enabled
func (g *Generator) memorable(s Settings) (string, error) {
	var b strings.Builder
	for b.Len() < s.Length {
		idx, err := g.intn(len(words))
		if err != nil {
			return "", err
		}
		word := words[idx]
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	password := b.String()[:s.Length]

	var suffix string
	if s.UseDigits {
		n, err := g.intn(100)
		if err != nil {
			return "", err
		}
		suffix += strconv.Itoa(n)
	}
	if s.UseSpecial {
		idx, err := g.intn(len(MemorableSymbols))
		if err != nil {
			return "", err
		}
		suffix += MemorableSymbols[idx : idx+1]
	}

	return password[:s.Length-len(suffix)] + suffix, nil
}

// pin returns length random digits
func (g *Generator) pin(length int) (string, error) {
	password, err := g.appendFrom(make([]byte, 0, length), Digits, length)
	if err != nil {
		return "", err
	}
	return string(password), nil
}
