package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sashakarcz/passify/internal/generator"
	"github.com/sashakarcz/passify/internal/history"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, prints the generated passwords and returns the exit code
func run(args []string, stdout, stderr io.Writer) int {
	defaults := generator.DefaultSettings()

	fs := flag.NewFlagSet("passgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	passwordType := fs.String("type", string(generator.TypeRandom), "Password type: random, memorable or pin")
	length := fs.Int("length", defaults.Length, "Password length (memorable defaults to 16, pin to 6)")
	upper := fs.Bool("upper", defaults.UseUpper, "Include uppercase letters")
	lower := fs.Bool("lower", defaults.UseLower, "Include lowercase letters")
	digits := fs.Bool("digits", defaults.UseDigits, "Include digits")
	special := fs.Bool("special", defaults.UseSpecial, "Include special characters")
	minUpper := fs.Int("min-upper", defaults.MinUpper, "Minimum uppercase letters")
	minLower := fs.Int("min-lower", defaults.MinLower, "Minimum lowercase letters")
	minDigits := fs.Int("min-digits", defaults.MinDigits, "Minimum digits")
	count := fs.Int("count", 1, "Number of passwords to generate")
	historyFile := fs.String("history", "", "Append generated passwords to this history file")
	showStrength := fs.Bool("strength", false, "Print the strength of each password")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *count < 1 {
		fmt.Fprintln(stderr, "Error: -count must be at least 1")
		return 2
	}

	lengthSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "length" {
			lengthSet = true
		}
	})
	if !lengthSet {
		*length = generator.DefaultLength(generator.Type(*passwordType))
	}

	settings := generator.Settings{
		Type:       generator.Type(*passwordType),
		Length:     *length,
		UseUpper:   *upper,
		UseLower:   *lower,
		UseDigits:  *digits,
		UseSpecial: *special,
	}
	// Minimums of disabled classes do not apply
	if settings.UseUpper {
		settings.MinUpper = *minUpper
	}
	if settings.UseLower {
		settings.MinLower = *minLower
	}
	if settings.UseDigits {
		settings.MinDigits = *minDigits
	}

	var store history.Store
	if *historyFile != "" {
		store = history.NewFileStore(*historyFile, history.DefaultMaxEntries)
	}

	gen := generator.New()
	ctx := context.Background()

	for i := 0; i < *count; i++ {
		password, err := gen.Generate(settings)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}

		fmt.Fprintf(stdout, "Generated password: %s\n", password)
		if *showStrength {
			strength := generator.ScoreStrength(password)
			fmt.Fprintf(stdout, "Strength: %s (%d/100)\n", strength.Label, strength.Score)
		}

		if store != nil {
			if err := store.Save(ctx, password); err != nil {
				fmt.Fprintf(stderr, "Error: failed to save history: %v\n", err)
				return 1
			}
		}
	}

	return 0
}
