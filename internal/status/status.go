// Package status derives short human-readable descriptions of build
// outcomes. All functions are pure and never fail: every result code maps
// to some text.
package status

import (
	"fmt"
	"strings"

	"github.com/lei/build-notify/internal/models"
)

// DetectedStatusText returns a short phrase describing the build outcome,
// taking the previous build's result into account for change-oriented
// reporting modes. The "change" rule is checked before the "problem" rule;
// the first match wins.
func DetectedStatusText(mode models.ReportingMode, results models.BuildResult, previous *models.BuildResult) string {
	switch results {
	case models.ResultFailure:
		if mode.Has("change") && previous != nil && *previous != results {
			return "new failure"
		}
		if mode.Has("problem") && previous != nil && *previous != models.ResultSuccess && *previous != models.ResultFailure {
			return "new failure"
		}
		return "failed build"
	case models.ResultWarnings:
		return "problem in the build"
	case models.ResultSuccess:
		if mode.Has("change") && previous != nil && *previous != results {
			return "restored build"
		}
		return "passing build"
	case models.ResultException:
		return "build exception"
	default:
		return fmt.Sprintf("%s build", results)
	}
}

// SummaryText returns the one-line summary for a finished build. The
// build's state string is appended for warnings and failures; cancelled
// builds deliberately never carry the suffix.
func SummaryText(build *models.Build, results models.BuildResult) string {
	suffix := ""
	if build != nil && build.StateString != "" {
		suffix = ": " + build.StateString
	}

	switch results {
	case models.ResultSuccess:
		return "Build succeeded!"
	case models.ResultWarnings:
		return "Build Had Warnings" + suffix
	case models.ResultCancelled:
		return "Build was cancelled"
	default:
		return "BUILD FAILED" + suffix
	}
}

// SourceStampText renders one line per sourcestamp, each with a trailing
// newline. An empty stamp list yields an empty string.
func SourceStampText(stamps []*models.SourceStamp) string {
	var b strings.Builder

	for _, ss := range stamps {
		source := ""
		if ss.Branch != "" {
			source += fmt.Sprintf("[branch %s] ", ss.Branch)
		}
		if ss.Revision != "" {
			source += ss.Revision
		} else {
			source += "HEAD"
		}
		if ss.Patch != nil {
			source += " (plus patch)"
		}

		discriminator := ""
		if ss.Codebase != "" {
			discriminator = fmt.Sprintf(" '%s'", ss.Codebase)
		}

		fmt.Fprintf(&b, "Build Source Stamp%s: %s\n", discriminator, source)
	}

	return b.String()
}

// ProjectsText joins the distinct non-empty project names across the
// stamps with ", ", preserving first-occurrence order so the same input
// always renders the same text. When no stamp names a project the
// defaultTitle is used instead.
func ProjectsText(stamps []*models.SourceStamp, defaultTitle string) string {
	var projects []string
	seen := make(map[string]bool)

	for _, ss := range stamps {
		if ss.Project == "" || seen[ss.Project] {
			continue
		}
		seen[ss.Project] = true
		projects = append(projects, ss.Project)
	}

	if len(projects) == 0 {
		return defaultTitle
	}

	return strings.Join(projects, ", ")
}
