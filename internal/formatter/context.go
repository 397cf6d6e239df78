package formatter

import (
	"github.com/lei/build-notify/internal/models"
	"github.com/lei/build-notify/internal/status"
)

// Context is the map of named values exposed to templates during
// rendering. Keys are only ever added or overridden, never removed.
type Context map[string]interface{}

// unknownWorker is the sentinel used when a build carries no
// workername property
const unknownWorker = "<unknown>"

// BuildContext assembles the rendering context for a build-completion
// event. All URL and project strings must already be resolved by the
// caller; the assembler performs no I/O.
func BuildContext(mode models.ReportingMode, builderName string, build *models.Build,
	previous *models.BuildResult, blamelist []string, projects, buildURL, masterURL string) Context {
	return Context{
		"results":          build.Results,
		"mode":             mode,
		"buildername":      builderName,
		"workername":       workerName(build),
		"buildset":         build.Buildset,
		"build":            build,
		"projects":         projects,
		"previous_results": previous,
		"status_detected":  status.DetectedStatusText(mode, build.Results, previous),
		"build_url":        buildURL,
		"buildbot_url":     masterURL,
		"blamelist":        blamelist,
		"summary":          status.SummaryText(build, build.Results),
		"sourcestamps":     status.SourceStampText(build.SourceStamps()),
	}
}

// MissingWorkerContext assembles the rendering context for a
// worker-missing event. The worker record is passed through untouched.
func MissingWorkerContext(title, masterURL string, worker *models.Worker) Context {
	return Context{
		"buildbot_title": title,
		"buildbot_url":   masterURL,
		"worker":         worker,
	}
}

func workerName(build *models.Build) string {
	if prop, ok := build.Properties["workername"]; ok {
		if name, ok := prop.Value.(string); ok && name != "" {
			return name
		}
	}
	return unknownWorker
}
