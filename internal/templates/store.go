// Package templates resolves and renders notification templates. A
// template comes either from inline content or from a named file in a
// search directory; the bundled defaults ship embedded in the binary.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	texttemplate "text/template"
)

//go:embed templates/*.txt
var bundledFS embed.FS

// bundledDir is the embedded directory holding the default templates
const bundledDir = "templates"

// Template kinds select the rendering engine
const (
	KindPlain = "plain"
	KindHTML  = "html"
)

var (
	// ErrTemplateConflict indicates both inline content and a template
	// path were configured for the same slot
	ErrTemplateConflict = errors.New("only one of inline template content or a template path can be given")

	// ErrTemplateNotFound indicates the named template file is absent
	// from the search directory
	ErrTemplateNotFound = errors.New("template file not found")
)

// executor is satisfied by both text/template and html/template
type executor interface {
	Execute(w io.Writer, data interface{}) error
}

// Source identifies where a template's content came from. Two templates
// compiled from equal sources render identically, so Source doubles as
// the identity used for formatter equality.
type Source struct {
	Inline   string
	Dir      string
	Filename string
	Kind     string
}

// Template is a compiled, reusable template. Rendering is strict: a
// context key referenced by the template but absent from the supplied
// context makes Render fail instead of substituting an empty string.
type Template struct {
	exec   executor
	source Source
}

// Source returns the identity the template was compiled from
func (t *Template) Source() Source {
	return t.source
}

// Render executes the template against the given context
func (t *Template) Render(context map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.exec.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// Resolve produces a compiled template from either inline content or a
// named file. When dir is empty the bundled templates are searched; when
// filename is empty defaultFilename is used. Configuring inline content
// together with dir or filename is a configuration error.
func Resolve(inline, dir, filename, defaultFilename, kind string) (*Template, error) {
	if inline != "" && (dir != "" || filename != "") {
		return nil, ErrTemplateConflict
	}

	if kind == "" {
		kind = KindPlain
	}

	if inline != "" {
		return compile("inline", inline, Source{Inline: inline, Kind: kind})
	}

	if filename == "" {
		filename = defaultFilename
	}

	content, err := readTemplate(dir, filename)
	if err != nil {
		return nil, err
	}

	return compile(filename, content, Source{Dir: dir, Filename: filename, Kind: kind})
}

func readTemplate(dir, filename string) (string, error) {
	var data []byte
	var err error

	if dir == "" {
		data, err = bundledFS.ReadFile(bundledDir + "/" + filename)
	} else {
		data, err = os.ReadFile(filepath.Join(dir, filename))
	}

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, filename)
		}
		return "", fmt.Errorf("read template %s: %w", filename, err)
	}

	return string(data), nil
}

func compile(name, content string, source Source) (*Template, error) {
	var exec executor
	var err error

	switch source.Kind {
	case KindHTML:
		exec, err = htmltemplate.New(name).Option("missingkey=error").Parse(content)
	default:
		exec, err = texttemplate.New(name).Option("missingkey=error").Parse(content)
	}

	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	return &Template{exec: exec, source: source}, nil
}
