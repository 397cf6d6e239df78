package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lei/build-notify/internal/formatter"
	"github.com/lei/build-notify/internal/models"
	"github.com/lei/build-notify/pkg/logger"
)

// Formatter kinds
const (
	KindBuild         = "build"
	KindMissingWorker = "missing-worker"
)

// FormattersConfig represents the formatters configuration file structure
type FormattersConfig struct {
	Formatters []FormatterDefinition `yaml:"formatters"`
}

// FormatterDefinition represents one named formatter in the config file
type FormatterDefinition struct {
	Name             string                 `yaml:"name"`
	Kind             string                 `yaml:"kind"`
	Mode             []string               `yaml:"mode"`
	TemplateDir      string                 `yaml:"template_dir"`
	TemplateFilename string                 `yaml:"template_filename"`
	TemplateName     string                 `yaml:"template_name"` // deprecated alias for template_filename
	Template         string                 `yaml:"template"`
	SubjectFilename  string                 `yaml:"subject_filename"`
	Subject          string                 `yaml:"subject"`
	TemplateType     string                 `yaml:"template_type"`
	ExtraContext     map[string]interface{} `yaml:"extra_context"`
	WantProperties   *bool                  `yaml:"want_properties"`
	WantSteps        bool                   `yaml:"want_steps"`
	WantLogs         bool                   `yaml:"want_logs"`
}

// Definition is a parsed formatter definition ready for construction
type Definition struct {
	Name      string
	Kind      string
	Mode      models.ReportingMode
	Formatter formatter.Config
}

// LoadFormatters reads and parses the formatters configuration file
func LoadFormatters(path string, log *logger.Logger) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formatters config file: %w", err)
	}

	var cfg FormattersConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse formatters config: %w", err)
	}

	// Validate and convert
	defs := make([]*Definition, 0, len(cfg.Formatters))
	seen := make(map[string]bool)

	for i, fd := range cfg.Formatters {
		if fd.Name == "" {
			return nil, fmt.Errorf("formatter at index %d missing name", i)
		}
		if seen[fd.Name] {
			return nil, fmt.Errorf("duplicate formatter name %q", fd.Name)
		}
		seen[fd.Name] = true

		kind := fd.Kind
		if kind == "" {
			kind = KindBuild
		}
		if kind != KindBuild && kind != KindMissingWorker {
			return nil, fmt.Errorf("formatter %s: unknown kind %q", fd.Name, fd.Kind)
		}

		// template_name predates template_filename; translate it here so
		// the runtime model never sees the alias
		filename := fd.TemplateFilename
		if fd.TemplateName != "" {
			if filename != "" {
				return nil, fmt.Errorf("formatter %s: template_name and template_filename are aliases, set only template_filename", fd.Name)
			}
			if log != nil {
				log.Warn("template_name is deprecated, use template_filename",
					"formatter", fd.Name)
			}
			filename = fd.TemplateName
		}

		wantProperties := true
		if fd.WantProperties != nil {
			wantProperties = *fd.WantProperties
		}

		defs = append(defs, &Definition{
			Name: fd.Name,
			Kind: kind,
			Mode: models.ReportingMode(fd.Mode),
			Formatter: formatter.Config{
				TemplateDir:      fd.TemplateDir,
				TemplateFilename: filename,
				InlineTemplate:   fd.Template,
				SubjectFilename:  fd.SubjectFilename,
				InlineSubject:    fd.Subject,
				TemplateType:     fd.TemplateType,
				ExtraContext:     fd.ExtraContext,
				WantProperties:   wantProperties,
				WantSteps:        fd.WantSteps,
				WantLogs:         fd.WantLogs,
			},
		})
	}

	return defs, nil
}
