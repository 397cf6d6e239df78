// Package formatter turns build and worker events into rendered
// notification messages. A formatter pairs a body template (and optional
// subject template) with the context-assembly logic feeding it.
package formatter

import (
	"context"
	"fmt"

	"github.com/lei/build-notify/internal/models"
	"github.com/lei/build-notify/internal/status"
	"github.com/lei/build-notify/internal/templates"
)

// Bundled template filenames used when no template is configured
const (
	defaultBuildTemplate         = "default_mail.txt"
	defaultMissingWorkerTemplate = "missing_mail.txt"
)

// ExtendContextFunc is an optional hook invoked once per formatting call
// after the base context is assembled and before the configured extra
// context is merged. It may mutate or add entries, and may perform
// asynchronous work of its own; it must honor ctx cancellation.
type ExtendContextFunc func(ctx context.Context, master *models.Master, rc Context) error

// Config is the per-formatter configuration surface, fixed at
// construction. Exactly one of InlineTemplate and
// TemplateDir/TemplateFilename may be set, and likewise for the subject
// slot.
type Config struct {
	TemplateDir      string
	TemplateFilename string
	InlineTemplate   string
	SubjectFilename  string
	InlineSubject    string
	TemplateType     string // "plain" (default) or "html"
	ExtraContext     map[string]interface{}

	// Hints for the data-fetching collaborator; the formatter itself
	// never fetches anything.
	WantProperties bool
	WantSteps      bool
	WantLogs       bool
}

// renderer holds the compiled templates and the fixed extra-context map
// shared by both formatter variants
type renderer struct {
	body    *templates.Template
	subject *templates.Template
	typeTag string
	extra   map[string]interface{}
}

func newRenderer(cfg Config, defaultFilename string) (renderer, error) {
	typeTag := cfg.TemplateType
	if typeTag == "" {
		typeTag = templates.KindPlain
	}

	body, err := templates.Resolve(cfg.InlineTemplate, cfg.TemplateDir, cfg.TemplateFilename, defaultFilename, typeTag)
	if err != nil {
		return renderer{}, fmt.Errorf("resolve body template: %w", err)
	}

	var subject *templates.Template
	if cfg.InlineSubject != "" || cfg.SubjectFilename != "" {
		// The shared template directory only applies to file-based
		// subjects; subject lines are always plain text
		subjectDir := ""
		if cfg.InlineSubject == "" {
			subjectDir = cfg.TemplateDir
		}
		subject, err = templates.Resolve(cfg.InlineSubject, subjectDir, cfg.SubjectFilename, "", templates.KindPlain)
		if err != nil {
			return renderer{}, fmt.Errorf("resolve subject template: %w", err)
		}
	}

	return renderer{
		body:    body,
		subject: subject,
		typeTag: typeTag,
		extra:   cfg.ExtraContext,
	}, nil
}

// render produces the final message from a fully merged context
func (r *renderer) render(rc Context) (*models.Message, error) {
	body, err := r.body.Render(rc)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{Body: body, Type: r.typeTag}

	if r.subject != nil {
		subject, err := r.subject.Render(rc)
		if err != nil {
			return nil, err
		}
		msg.Subject = subject
	}

	return msg, nil
}

// mergeExtra applies the configured extra-context overrides. They are
// merged last so they always win, including over computed fields.
func (r *renderer) mergeExtra(rc Context) {
	for k, v := range r.extra {
		rc[k] = v
	}
}

// equal reports value equality over the resolved template sources and
// type tag
func (r *renderer) equal(other *renderer) bool {
	if r.body.Source() != other.body.Source() {
		return false
	}
	if (r.subject == nil) != (other.subject == nil) {
		return false
	}
	if r.subject != nil && r.subject.Source() != other.subject.Source() {
		return false
	}
	return r.typeTag == other.typeTag
}

// Formatter renders build-completion notifications
type Formatter struct {
	renderer

	// ExtendContext, when set, can add or override context entries
	// before rendering
	ExtendContext ExtendContextFunc

	wantProperties bool
	wantSteps      bool
	wantLogs       bool
}

// New creates a build formatter from its configuration. Template
// resolution and compilation happen here, so configuration errors
// surface before any rendering attempt.
func New(cfg Config) (*Formatter, error) {
	r, err := newRenderer(cfg, defaultBuildTemplate)
	if err != nil {
		return nil, err
	}

	return &Formatter{
		renderer:       r,
		wantProperties: cfg.WantProperties,
		wantSteps:      cfg.WantSteps,
		wantLogs:       cfg.WantLogs,
	}, nil
}

// WantProperties reports whether the caller should populate build
// properties before invoking the formatter
func (f *Formatter) WantProperties() bool { return f.wantProperties }

// WantSteps reports whether the caller should populate build steps
func (f *Formatter) WantSteps() bool { return f.wantSteps }

// WantLogs reports whether the caller should populate step logs
func (f *Formatter) WantLogs() bool { return f.wantLogs }

// Equal reports whether two formatters would render identically: same
// resolved template sources, same type tag
func (f *Formatter) Equal(other *Formatter) bool {
	if other == nil {
		return false
	}
	return f.renderer.equal(&other.renderer)
}

// MessageForBuild formats a notification describing one finished build.
// The pipeline is assemble, extend, merge, render; there is no
// cross-invocation state, so a formatter is safe for concurrent reuse as
// long as its ExtendContext hook is reentrant.
func (f *Formatter) MessageForBuild(ctx context.Context, mode models.ReportingMode, builderName string,
	build *models.Build, master *models.Master, blamelist []string) (*models.Message, error) {
	stamps := build.SourceStamps()

	rc := BuildContext(mode, builderName, build, build.PreviousResults(), blamelist,
		status.ProjectsText(stamps, master.Title),
		master.BuildURL(build.Builder.BuilderID, build.Number),
		master.URL)

	if f.ExtendContext != nil {
		if err := f.ExtendContext(ctx, master, rc); err != nil {
			return nil, fmt.Errorf("extend context: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mergeExtra(rc)
	return f.render(rc)
}

// MissingWorkerFormatter renders worker-missing notifications
type MissingWorkerFormatter struct {
	renderer
	ExtendContext ExtendContextFunc
}

// NewMissingWorker creates a missing-worker formatter from its
// configuration
func NewMissingWorker(cfg Config) (*MissingWorkerFormatter, error) {
	r, err := newRenderer(cfg, defaultMissingWorkerTemplate)
	if err != nil {
		return nil, err
	}
	return &MissingWorkerFormatter{renderer: r}, nil
}

// Equal reports value equality over the resolved template sources and
// type tag
func (f *MissingWorkerFormatter) Equal(other *MissingWorkerFormatter) bool {
	if other == nil {
		return false
	}
	return f.renderer.equal(&other.renderer)
}

// MessageForMissingWorker formats a notification about a worker that
// went away
func (f *MissingWorkerFormatter) MessageForMissingWorker(ctx context.Context, master *models.Master, worker *models.Worker) (*models.Message, error) {
	rc := MissingWorkerContext(master.Title, master.URL, worker)

	if f.ExtendContext != nil {
		if err := f.ExtendContext(ctx, master, rc); err != nil {
			return nil, fmt.Errorf("extend context: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mergeExtra(rc)
	return f.render(rc)
}
