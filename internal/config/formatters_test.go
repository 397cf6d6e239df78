package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFormatters(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formatters.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFormatters(t *testing.T) {
	path := writeFormatters(t, `
formatters:
  - name: default
    mode: [change, problem]
    template: "{{ .summary }}"
    subject: "{{ .status_detected }}"
    extra_context:
      team: platform
  - name: worker-alerts
    kind: missing-worker
    want_steps: true
    want_properties: false
`)

	defs, err := LoadFormatters(path, nil)
	if err != nil {
		t.Fatalf("LoadFormatters() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}

	def := defs[0]
	if def.Kind != KindBuild {
		t.Errorf("Kind = %q, want build (default)", def.Kind)
	}
	if !def.Mode.Has("change") || !def.Mode.Has("problem") {
		t.Errorf("Mode = %v, want change+problem", def.Mode)
	}
	if def.Formatter.InlineTemplate != "{{ .summary }}" {
		t.Errorf("InlineTemplate = %q", def.Formatter.InlineTemplate)
	}
	if !def.Formatter.WantProperties {
		t.Error("WantProperties should default to true")
	}
	if def.Formatter.ExtraContext["team"] != "platform" {
		t.Errorf("ExtraContext = %v", def.Formatter.ExtraContext)
	}

	worker := defs[1]
	if worker.Kind != KindMissingWorker {
		t.Errorf("Kind = %q, want missing-worker", worker.Kind)
	}
	if worker.Formatter.WantProperties {
		t.Error("WantProperties = true, want explicit false")
	}
	if !worker.Formatter.WantSteps {
		t.Error("WantSteps = false, want true")
	}
}

func TestLoadFormattersDeprecatedTemplateName(t *testing.T) {
	path := writeFormatters(t, `
formatters:
  - name: legacy
    template_name: default_mail.txt
`)

	defs, err := LoadFormatters(path, nil)
	if err != nil {
		t.Fatalf("LoadFormatters() error = %v", err)
	}
	if got := defs[0].Formatter.TemplateFilename; got != "default_mail.txt" {
		t.Errorf("TemplateFilename = %q, want the translated alias value", got)
	}
}

func TestLoadFormattersErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"missing name",
			"formatters:\n  - template: \"{{ .summary }}\"\n",
		},
		{
			"duplicate name",
			"formatters:\n  - name: a\n  - name: a\n",
		},
		{
			"unknown kind",
			"formatters:\n  - name: a\n    kind: bogus\n",
		},
		{
			"alias and canonical both set",
			"formatters:\n  - name: a\n    template_name: x.txt\n    template_filename: y.txt\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFormatters(t, tt.content)
			if _, err := LoadFormatters(path, nil); err == nil {
				t.Error("LoadFormatters() error = nil, want error")
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("master:\n  url: http://ci.example.com/\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Master.Title != "Build Notify" {
		t.Errorf("Master.Title = %q, want default", cfg.Master.Title)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json defaults", cfg.Logging)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("WEBHOOK_TOKEN", "tok-123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "channels:\n  - name: chat\n    url: http://chat.example.com/hook\n    bearer_token: ${WEBHOOK_TOKEN}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Channels[0].BearerToken != "tok-123" {
		t.Errorf("BearerToken = %q, want tok-123", cfg.Channels[0].BearerToken)
	}
	if cfg.Channels[0].Kind != "webhook" {
		t.Errorf("Kind = %q, want webhook default", cfg.Channels[0].Kind)
	}
}
