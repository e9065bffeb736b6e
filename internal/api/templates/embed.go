// Package templates renders the HTML pages of the web interface.
package templates

import (
	"embed"
	"html/template"
	"strconv"

	"github.com/sashakarcz/passify/internal/generator"
)

//go:embed *.tmpl
var files embed.FS

var funcs = template.FuncMap{
	"meterStyle": func(score int, color string) template.CSS {
		score = max(0, min(score, 100))
		return template.CSS("width: " + strconv.Itoa(score) + "%; background-color: " + color)
	},
	"defaultLength": generator.DefaultLength,
	"typeLabel":     typeLabel,
}

// pages holds every page parsed together with the layout
var pages = map[string]*template.Template{
	"index.tmpl":   template.Must(parse("index.tmpl")),
	"history.tmpl": template.Must(parse("history.tmpl")),
	"login.tmpl":   template.Must(parse("login.tmpl")),
}

func parse(name string) (*template.Template, error) {
	return template.New(name).Funcs(funcs).ParseFS(files, "layout.tmpl", name)
}

func typeLabel(t generator.Type) string {
	switch t {
	case generator.TypeMemorable:
		return "Memorable"
	case generator.TypePIN:
		return "PIN"
	default:
		return "Random"
	}
}
