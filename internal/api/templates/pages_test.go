package templates_test

import (
	"testing"
	"time"

	"github.com/sashakarcz/passify/internal/api/templates"
	"github.com/sashakarcz/passify/internal/generator"
	"github.com/sashakarcz/passify/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIndex_Form(t *testing.T) {
	page, err := templates.RenderIndex(templates.IndexData{Settings: generator.DefaultSettings()})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "<title>Password Generator - Passify</title>")
	assert.Contains(t, html, "<h1>Password Generator</h1>")
	assert.Contains(t, html, `name="length" min="4" max="64" value="14"`)
	assert.Contains(t, html, `name="use_upper" data-min="min_upper" checked`)
	assert.NotContains(t, html, `name="use_special" checked`)
	assert.NotContains(t, html, "Your Password:")
	assert.Contains(t, html, `src="/static/app.js"`)
	assert.Contains(t, html, `name="type" value="random" data-length="14" checked`)
	assert.Contains(t, html, `name="type" value="pin" data-length="6">`)
	assert.Contains(t, html, `<fieldset id="character-types">`)
}

func TestRenderIndex_PINType(t *testing.T) {
	page, err := templates.RenderIndex(templates.IndexData{
		Settings: generator.Settings{Type: generator.TypePIN, Length: 6},
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, `name="type" value="pin" data-length="6" checked`)
	assert.Contains(t, html, `name="type" value="memorable" data-length="16">`)
	assert.NotContains(t, html, `value="random" data-length="14" checked`)
	assert.Contains(t, html, `<fieldset id="character-types" hidden>`)
	assert.Contains(t, html, "> PIN</label>")
}

func TestRenderIndex_Password(t *testing.T) {
	strength := generator.ScoreStrength("Abcdefgh1234!@#$")
	page, err := templates.RenderIndex(templates.IndexData{
		Settings: generator.DefaultSettings(),
		Password: "Abcdefgh1234!@#$",
		Strength: &strength,
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "Your Password:")
	assert.Contains(t, html, `value="Abcdefgh1234!@#$"`)
	assert.Contains(t, html, "width: 100%")
	assert.Contains(t, html, strength.Label)
}

func TestRenderIndex_EscapesError(t *testing.T) {
	page, err := templates.RenderIndex(templates.IndexData{Error: "<script>alert(1)</script>"})
	require.NoError(t, err)

	html := string(page)
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderIndex_DisabledMinimums(t *testing.T) {
	page, err := templates.RenderIndex(templates.IndexData{Settings: generator.Settings{Length: 10, UseLower: true}})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, `name="min_upper" min="0" max="64" value="0" disabled`)
	assert.NotContains(t, html, `name="min_lower" min="0" max="64" value="0" disabled`)
}

func TestRenderHistory(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	page, err := templates.RenderHistory(templates.HistoryData{
		Entries: []history.Entry{
			{Timestamp: ts, Password: "newest"},
			{Password: "legacy line"},
		},
		StreamURL: "/api/v1/activity/stream",
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "<h1>Password History</h1>")
	assert.Contains(t, html, "2024-02-03 04:05:06")
	assert.Contains(t, html, "<code>newest</code>")
	assert.Contains(t, html, "<code>legacy line</code>")
	assert.Contains(t, html, `data-event-stream="/api/v1/activity/stream"`)
	assert.NotContains(t, html, "archive-now")
}

func TestRenderHistory_Empty(t *testing.T) {
	page, err := templates.RenderHistory(templates.HistoryData{ArchiveEnabled: true})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "No passwords generated yet.")
	assert.Contains(t, html, `id="archive-now"`)
}

func TestRenderLogin(t *testing.T) {
	page, err := templates.RenderLogin(templates.LoginData{
		Nav:       templates.Nav{AuthEnabled: true},
		LoginName: "admin",
		Error:     "Invalid username or password",
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, `name="next" value="/"`)
	assert.Contains(t, html, `value="admin"`)
	assert.Contains(t, html, "Invalid username or password")
	assert.NotContains(t, html, "Log out")
}
