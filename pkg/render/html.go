package render

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

const (
	timelineTemplate = "timeline.html.tmpl"
	settingsTemplate = "settings.html.tmpl"
	pageTemplate     = "page.html.tmpl"
	stylesheetFile   = "style.css"
	scriptFile       = "script.js"
)

// MenuItem is one entry in the host's navigation
type MenuItem struct {
	Slug    string
	Name    string
	Content string
}

// SettingsView feeds the admin settings fragment
type SettingsView struct {
	Feeds    string
	ReadOnly bool
}

// PageView wraps rendered fragments in a standalone document
type PageView struct {
	Title   string
	Current string
	Menu    []MenuItem
	Head    template.HTML
	Body    template.HTML
	Scripts template.HTML
}

// HTMLRenderer renders the timeline and its surrounding markup.
// Every feed-derived string is escaped by html/template.
type HTMLRenderer struct {
	timeline *template.Template
	settings *template.Template
	page     *template.Template

	stylesheet []byte
	script     []byte
}

var _ Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer loads the templates and assets, preferring on-disk overrides
func NewHTMLRenderer() (*HTMLRenderer, error) {
	r := &HTMLRenderer{}

	var err error
	if r.timeline, err = loadTemplate(timelineTemplate); err != nil {
		return nil, err
	}
	if r.settings, err = loadTemplate(settingsTemplate); err != nil {
		return nil, err
	}
	if r.page, err = loadTemplate(pageTemplate); err != nil {
		return nil, err
	}
	if r.stylesheet, err = readTemplateFile(stylesheetFile); err != nil {
		return nil, err
	}
	if r.script, err = readTemplateFile(scriptFile); err != nil {
		return nil, err
	}

	return r, nil
}

func loadTemplate(name string) (*template.Template, error) {
	content, err := readTemplateFile(name)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).Funcs(TemplateFuncs()).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	slog.Debug("Template loaded successfully", "name", name)
	return tmpl, nil
}

type timelineData struct {
	Mode        ViewMode
	SourceCount int
	Items       feed.Timeline
}

// Render writes the timeline fragment, or the matching empty state
func (r *HTMLRenderer) Render(w io.Writer, v View) error {
	data := timelineData{
		Mode:        ParseViewMode(string(v.Mode)),
		SourceCount: v.SourceCount,
		Items:       v.Timeline,
	}

	if err := r.timeline.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", timelineTemplate, err)
	}
	return nil
}

// RenderSettings writes the feed list form fragment
func (r *HTMLRenderer) RenderSettings(w io.Writer, v SettingsView) error {
	if err := r.settings.Execute(w, v); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", settingsTemplate, err)
	}
	return nil
}

// RenderPage writes a complete HTML document around prerendered fragments
func (r *HTMLRenderer) RenderPage(w io.Writer, v PageView) error {
	if err := r.page.Execute(w, v); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", pageTemplate, err)
	}
	return nil
}

// Stylesheet returns the timeline CSS
func (r *HTMLRenderer) Stylesheet() []byte {
	return r.stylesheet
}

// Script returns the view toggle JavaScript
func (r *HTMLRenderer) Script() []byte {
	return r.script
}
