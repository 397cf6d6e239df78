package formatter

import (
	"context"
	"errors"
	"testing"

	"github.com/lei/build-notify/internal/models"
	"github.com/lei/build-notify/internal/templates"
)

func testBuild() *models.Build {
	return &models.Build{
		Number:      17,
		Results:     models.ResultSuccess,
		StateString: "build successful",
		Builder:     models.Builder{BuilderID: 3, Name: "linux-amd64"},
		Buildset: &models.Buildset{
			SourceStamps: []*models.SourceStamp{
				{Branch: "main", Revision: "abc123", Project: "corelib"},
			},
		},
		Properties: map[string]models.Property{
			"workername": {Value: "worker-1", Source: "Worker"},
		},
	}
}

func testMaster() *models.Master {
	return &models.Master{Title: "Example CI", URL: "http://ci.example.com/"}
}

func TestBuildContextKeys(t *testing.T) {
	rc := BuildContext(models.ReportingMode{"all"}, "linux-amd64", testBuild(),
		nil, []string{"alice"}, "corelib", "http://ci.example.com/#/builders/3/builds/17", "http://ci.example.com/")

	wantKeys := []string{
		"results", "mode", "buildername", "workername", "buildset", "build",
		"projects", "previous_results", "status_detected", "build_url",
		"buildbot_url", "blamelist", "summary", "sourcestamps",
	}
	for _, key := range wantKeys {
		if _, ok := rc[key]; !ok {
			t.Errorf("BuildContext() missing key %q", key)
		}
	}

	if rc["workername"] != "worker-1" {
		t.Errorf("workername = %v, want worker-1", rc["workername"])
	}
	if rc["status_detected"] != "passing build" {
		t.Errorf("status_detected = %v, want passing build", rc["status_detected"])
	}
	if rc["summary"] != "Build succeeded!" {
		t.Errorf("summary = %v, want Build succeeded!", rc["summary"])
	}
}

func TestBuildContextUnknownWorker(t *testing.T) {
	build := testBuild()
	build.Properties = nil

	rc := BuildContext(models.ReportingMode{"all"}, "linux-amd64", build, nil, nil, "corelib", "", "")
	if rc["workername"] != "<unknown>" {
		t.Errorf("workername = %v, want <unknown>", rc["workername"])
	}
}

func TestMessageForBuildInlineRoundTrip(t *testing.T) {
	f, err := New(Config{InlineTemplate: "{{ .summary }}"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg, err := f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if err != nil {
		t.Fatalf("MessageForBuild() error = %v", err)
	}

	if msg.Body != "Build succeeded!" {
		t.Errorf("Body = %q, want %q", msg.Body, "Build succeeded!")
	}
	if msg.Type != "plain" {
		t.Errorf("Type = %q, want plain", msg.Type)
	}
	if msg.Subject != "" {
		t.Errorf("Subject = %q, want empty", msg.Subject)
	}
}

func TestMessageForBuildSubject(t *testing.T) {
	f, err := New(Config{
		InlineTemplate: "{{ .summary }}",
		InlineSubject:  "{{ .status_detected }} on {{ .buildername }}",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg, err := f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if err != nil {
		t.Fatalf("MessageForBuild() error = %v", err)
	}

	if msg.Subject != "passing build on linux-amd64" {
		t.Errorf("Subject = %q, want %q", msg.Subject, "passing build on linux-amd64")
	}
}

func TestMessageForBuildDefaultTemplate(t *testing.T) {
	f, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg, err := f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("MessageForBuild() error = %v", err)
	}
	if msg.Body == "" {
		t.Error("Body is empty")
	}
}

func TestMessageForBuildExtraContextWins(t *testing.T) {
	f, err := New(Config{
		InlineTemplate: "{{ .summary }}",
		ExtraContext:   map[string]interface{}{"summary": "overridden"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	msg, err := f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if err != nil {
		t.Fatalf("MessageForBuild() error = %v", err)
	}
	if msg.Body != "overridden" {
		t.Errorf("Body = %q, extra context must have final precedence", msg.Body)
	}
}

func TestMessageForBuildExtensionHook(t *testing.T) {
	f, err := New(Config{InlineTemplate: "{{ .release_notes }}"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.ExtendContext = func(ctx context.Context, master *models.Master, rc Context) error {
		rc["release_notes"] = "nothing to report"
		return nil
	}

	msg, err := f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if err != nil {
		t.Fatalf("MessageForBuild() error = %v", err)
	}
	if msg.Body != "nothing to report" {
		t.Errorf("Body = %q, want %q", msg.Body, "nothing to report")
	}
}

func TestMessageForBuildExtensionHookOverriddenByExtra(t *testing.T) {
	f, err := New(Config{
		InlineTemplate: "{{ .note }}",
		ExtraContext:   map[string]interface{}{"note": "from config"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.ExtendContext = func(ctx context.Context, master *models.Master, rc Context) error {
		rc["note"] = "from hook"
		return nil
	}

	msg, err := f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if err != nil {
		t.Fatalf("MessageForBuild() error = %v", err)
	}
	if msg.Body != "from config" {
		t.Errorf("Body = %q, extra context must win over the hook", msg.Body)
	}
}

func TestMessageForBuildExtensionHookError(t *testing.T) {
	hookErr := errors.New("upstream fetch failed")

	f, err := New(Config{InlineTemplate: "{{ .summary }}"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.ExtendContext = func(ctx context.Context, master *models.Master, rc Context) error {
		return hookErr
	}

	_, err = f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if !errors.Is(err, hookErr) {
		t.Errorf("MessageForBuild() error = %v, want wrapped hook error", err)
	}
}

func TestMessageForBuildCancelled(t *testing.T) {
	f, err := New(Config{InlineTemplate: "{{ .summary }}"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.ExtendContext = func(ctx context.Context, master *models.Master, rc Context) error {
		cancel()
		return nil
	}

	_, err = f.MessageForBuild(ctx, models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("MessageForBuild() error = %v, want context.Canceled", err)
	}
}

func TestMessageForBuildMissingKeyFails(t *testing.T) {
	f, err := New(Config{InlineTemplate: "{{ .never_populated }}"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = f.MessageForBuild(context.Background(), models.ReportingMode{"all"},
		"linux-amd64", testBuild(), testMaster(), nil)
	if err == nil {
		t.Fatal("MessageForBuild() error = nil, want undefined context key error")
	}
}

func TestNewConflictingTemplates(t *testing.T) {
	_, err := New(Config{InlineTemplate: "{{ .summary }}", TemplateFilename: "default_mail.txt"})
	if !errors.Is(err, templates.ErrTemplateConflict) {
		t.Errorf("New() error = %v, want ErrTemplateConflict", err)
	}
}

func TestFormatterEqual(t *testing.T) {
	a, err := New(Config{InlineTemplate: "{{ .summary }}"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(Config{InlineTemplate: "{{ .summary }}"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(Config{InlineTemplate: "{{ .projects }}"})
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(Config{InlineTemplate: "{{ .summary }}", TemplateType: "html"})
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(Config{InlineTemplate: "{{ .summary }}", InlineSubject: "s"})
	if err != nil {
		t.Fatal(err)
	}

	if !a.Equal(b) {
		t.Error("formatters with equal template sources must be equal")
	}
	if a.Equal(c) {
		t.Error("formatters with different body templates must not be equal")
	}
	if a.Equal(d) {
		t.Error("formatters with different type tags must not be equal")
	}
	if a.Equal(e) {
		t.Error("formatters with and without subject templates must not be equal")
	}
	if a.Equal(nil) {
		t.Error("Equal(nil) must be false")
	}
}

func TestMessageForMissingWorker(t *testing.T) {
	f, err := NewMissingWorker(Config{
		InlineTemplate: "worker {{ .worker.Name }} of {{ .buildbot_title }} went away",
	})
	if err != nil {
		t.Fatalf("NewMissingWorker() error = %v", err)
	}

	msg, err := f.MessageForMissingWorker(context.Background(), testMaster(),
		&models.Worker{WorkerID: 9, Name: "worker-9"})
	if err != nil {
		t.Fatalf("MessageForMissingWorker() error = %v", err)
	}

	want := "worker worker-9 of Example CI went away"
	if msg.Body != want {
		t.Errorf("Body = %q, want %q", msg.Body, want)
	}
}

func TestMessageForMissingWorkerDefaultTemplate(t *testing.T) {
	f, err := NewMissingWorker(Config{})
	if err != nil {
		t.Fatalf("NewMissingWorker() error = %v", err)
	}

	msg, err := f.MessageForMissingWorker(context.Background(), testMaster(),
		&models.Worker{WorkerID: 9, Name: "worker-9"})
	if err != nil {
		t.Fatalf("MessageForMissingWorker() error = %v", err)
	}
	if msg.Body == "" {
		t.Error("Body is empty")
	}
}
