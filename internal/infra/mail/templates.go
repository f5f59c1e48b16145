package mail

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"
)

// ErrUnknownTemplate is returned when no template directory matches the name.
var ErrUnknownTemplate = errors.New("mail: unknown template")

//go:embed templates
var templatesFS embed.FS

// Rendered is a message ready to be handed to a transport.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer executes the embedded subject, text and html templates of a message.
type Renderer struct {
	subjects map[string]*texttemplate.Template
	texts    map[string]*texttemplate.Template
	htmls    map[string]*htmltemplate.Template
}

// NewRenderer parses every template directory under templates/.
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read mail templates: %w", err)
	}

	r := &Renderer{
		subjects: make(map[string]*texttemplate.Template),
		texts:    make(map[string]*texttemplate.Template),
		htmls:    make(map[string]*htmltemplate.Template),
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := "templates/" + name

		subject, err := texttemplate.ParseFS(templatesFS, dir+"/subject.txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", name, err)
		}
		text, err := texttemplate.ParseFS(templatesFS, dir+"/body.txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s text body: %w", name, err)
		}
		html, err := htmltemplate.ParseFS(templatesFS, dir+"/body.html")
		if err != nil {
			return nil, fmt.Errorf("parse %s html body: %w", name, err)
		}

		r.subjects[name] = subject.Option("missingkey=error")
		r.texts[name] = text.Option("missingkey=error")
		r.htmls[name] = html.Option("missingkey=error")
	}

	return r, nil
}

// Render fills the named template with vars.
func (r *Renderer) Render(name string, vars map[string]string) (*Rendered, error) {
	subject, ok := r.subjects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err := subject.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", name, err)
	}
	out := &Rendered{Subject: strings.TrimSpace(buf.String())}

	buf.Reset()
	if err := r.texts[name].Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("render %s text body: %w", name, err)
	}
	out.Text = buf.String()

	buf.Reset()
	if err := r.htmls[name].Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("render %s html body: %w", name, err)
	}
	out.HTML = buf.String()

	return out, nil
}
