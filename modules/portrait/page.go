package portrait

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"

	"portrait-studio-server/modules/common/config"
)

//go:embed templates/index.html
var templateFS embed.FS

// Page - the single-page form
type Page struct {
	tmpl *template.Template
}

type pageData struct {
	SessionID    string
	State        template.JS
	MaxUpload    string
}

func NewPage() *Page {
	return &Page{tmpl: template.Must(template.ParseFS(templateFS, "templates/index.html"))}
}

// Render - page for sessionID with the initial state inlined
func (p *Page) Render(w io.Writer, sessionID string, state StateView, maxUploadBytes int64) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.tmpl.Execute(w, pageData{
		SessionID:    sessionID,
		State:        template.JS(raw),
		MaxUpload:    config.SizeLabel(maxUploadBytes),
	})
}
