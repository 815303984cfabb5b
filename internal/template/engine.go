package template

import (
	"bytes"
	"fmt"
	"html"
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/glamyouup/mailflow/internal/domain"
)

// RenderedEmail is the output of rendering a template: subject line, HTML
// body, and a plain-text alternative derived from the HTML.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

const (
	platformName = "GlamYouUp"
	supportURL   = "https://support.glamyouup.com"
)

var (
	htmlTagPattern   = regexp.MustCompile(`<[^<]+?>`)
	whitespaceRepeat = regexp.MustCompile(`\s+`)
)

// Engine renders subject and body templates against a variable map merged
// with platform-wide globals.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Render executes the template. Every required variable must be present in
// vars; a missing one fails with ErrValidation before anything is rendered.
func (e *Engine) Render(tmpl *domain.Template, vars map[string]any) (*RenderedEmail, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}
	if missing := tmpl.MissingVariables(vars); len(missing) > 0 {
		return nil, fmt.Errorf(
			"%w: missing required variables: %s",
			domain.ErrValidation, strings.Join(missing, ", "),
		)
	}

	ctx := e.buildContext(vars)

	subject, err := renderSubject(tmpl.SubjectTemplate, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject for template %q: %w", tmpl.Type, err)
	}

	body, err := renderBody(tmpl.BodyTemplate, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body for template %q: %w", tmpl.Type, err)
	}

	return &RenderedEmail{
		Subject: subject,
		HTML:    body,
		Text:    HTMLToText(body),
	}, nil
}

func (e *Engine) buildContext(vars map[string]any) map[string]any {
	ctx := map[string]any{
		"platform_name": platformName,
		"support_url":   supportURL,
		"current_year":  e.now().Year(),
	}
	for k, v := range vars {
		ctx[k] = v
	}
	return ctx
}

func renderSubject(src string, ctx map[string]any) (string, error) {
	t, err := texttemplate.New("subject").Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func renderBody(src string, ctx map[string]any) (string, error) {
	t, err := htmltemplate.New("body").Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// HTMLToText strips tags and collapses whitespace to produce the text/plain
// alternative for multipart emails.
func HTMLToText(src string) string {
	text := htmlTagPattern.ReplaceAllString(src, " ")
	text = html.UnescapeString(text)
	text = whitespaceRepeat.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
