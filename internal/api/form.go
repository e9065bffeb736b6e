package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sashakarcz/passify/internal/generator"
)

var errInvalidForm = errors.New("Invalid form submission.")

// defaultFormMinimum applies when an enabled class has no min_* field
const defaultFormMinimum = 1

// parseSettingsForm reads generator settings from a submitted form. A
// checkbox counts as enabled when its field is present at all. Minimums of
// disabled classes are zero. A missing type means random.
func parseSettingsForm(r *http.Request) (generator.Settings, error) {
	if err := r.ParseForm(); err != nil {
		return generator.Settings{}, errInvalidForm
	}
	form := r.PostForm

	length, err := formInt(form, "length", generator.DefaultSettings().Length)
	if err != nil {
		return generator.Settings{}, err
	}

	s := generator.Settings{
		Type:       generator.Type(strings.TrimSpace(form.Get("type"))),
		Length:     length,
		UseUpper:   formHas(form, "use_upper"),
		UseLower:   formHas(form, "use_lower"),
		UseDigits:  formHas(form, "use_digits"),
		UseSpecial: formHas(form, "use_special"),
	}

	if s.MinUpper, err = formMinimum(form, s.UseUpper, "min_upper"); err != nil {
		return generator.Settings{}, err
	}
	if s.MinLower, err = formMinimum(form, s.UseLower, "min_lower"); err != nil {
		return generator.Settings{}, err
	}
	if s.MinDigits, err = formMinimum(form, s.UseDigits, "min_digits"); err != nil {
		return generator.Settings{}, err
	}

	return s, nil
}

func formHas(form url.Values, key string) bool {
	_, ok := form[key]
	return ok
}

func formMinimum(form url.Values, enabled bool, key string) (int, error) {
	if !enabled {
		return 0, nil
	}
	return formInt(form, key, defaultFormMinimum)
}

// formInt parses an integer field. Absent fields take def; present but
// malformed fields, including empty ones, are an error.
func formInt(form url.Values, key string, def int) (int, error) {
	if !formHas(form, key) {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(form.Get(key)))
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number.", fieldLabel(key))
	}
	return n, nil
}

func fieldLabel(key string) string {
	switch key {
	case "length":
		return "Length"
	case "min_upper":
		return "Minimum uppercase"
	case "min_lower":
		return "Minimum lowercase"
	case "min_digits":
		return "Minimum digits"
	default:
		return key
	}
}
