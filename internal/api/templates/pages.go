package templates

import (
	"bytes"
	"fmt"

	"github.com/sashakarcz/passify/internal/generator"
	"github.com/sashakarcz/passify/internal/history"
)

// Nav is the header state shared by every page
type Nav struct {
	Active      string
	AuthEnabled bool
	Username    string
}

// IndexData is the generator page state
type IndexData struct {
	Nav
	Settings  generator.Settings
	Password  string
	Strength  *generator.Strength
	Error     string
	MinLength int
	MaxLength int
	Special   string
	Types     []generator.Type
}

// HistoryData is the history page state
type HistoryData struct {
	Nav
	Entries        []history.Entry
	ArchiveEnabled bool
	StreamURL      string
}

// LoginData is the login page state
type LoginData struct {
	Nav
	LoginName string
	Next      string
	Error     string
}

// RenderIndex renders the generator page
func RenderIndex(data IndexData) ([]byte, error) {
	data.Active = "index"
	if data.MinLength == 0 {
		data.MinLength = generator.MinLength
	}
	if data.MaxLength == 0 {
		data.MaxLength = generator.MaxLength
	}
	if data.Special == "" {
		data.Special = generator.Special
	}
	if data.Types == nil {
		data.Types = generator.Types
	}
	return render("index.tmpl", data)
}

// RenderHistory renders the history page
func RenderHistory(data HistoryData) ([]byte, error) {
	data.Active = "history"
	if data.Entries == nil {
		data.Entries = []history.Entry{}
	}
	return render("history.tmpl", data)
}

// RenderLogin renders the login form
func RenderLogin(data LoginData) ([]byte, error) {
	data.Active = "login"
	if data.Next == "" {
		data.Next = "/"
	}
	return render("login.tmpl", data)
}

func render(name string, data any) ([]byte, error) {
	tmpl, ok := pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
