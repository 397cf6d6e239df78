package status

import (
	"testing"

	"github.com/lei/build-notify/internal/models"
)

func resultPtr(r models.BuildResult) *models.BuildResult {
	return &r
}

func TestDetectedStatusText(t *testing.T) {
	tests := []struct {
		name     string
		mode     models.ReportingMode
		results  models.BuildResult
		previous *models.BuildResult
		want     string
	}{
		{"failure plain", models.ReportingMode{"failing"}, models.ResultFailure, nil, "failed build"},
		{"failure change from success", models.ReportingMode{"change"}, models.ResultFailure, resultPtr(models.ResultSuccess), "new failure"},
		{"failure change from warnings", models.ReportingMode{"change"}, models.ResultFailure, resultPtr(models.ResultWarnings), "new failure"},
		{"failure change same result", models.ReportingMode{"change"}, models.ResultFailure, resultPtr(models.ResultFailure), "failed build"},
		{"failure change no previous", models.ReportingMode{"change"}, models.ResultFailure, nil, "failed build"},
		{"failure problem from warnings", models.ReportingMode{"problem"}, models.ResultFailure, resultPtr(models.ResultWarnings), "new failure"},
		{"failure problem from success", models.ReportingMode{"problem"}, models.ResultFailure, resultPtr(models.ResultSuccess), "failed build"},
		{"failure problem from failure", models.ReportingMode{"problem"}, models.ResultFailure, resultPtr(models.ResultFailure), "failed build"},
		{"failure problem no previous", models.ReportingMode{"problem"}, models.ResultFailure, nil, "failed build"},
		{"warnings", models.ReportingMode{"all"}, models.ResultWarnings, nil, "problem in the build"},
		{"success plain", models.ReportingMode{"passing"}, models.ResultSuccess, nil, "passing build"},
		{"success restored", models.ReportingMode{"change"}, models.ResultSuccess, resultPtr(models.ResultFailure), "restored build"},
		{"success change same result", models.ReportingMode{"change"}, models.ResultSuccess, resultPtr(models.ResultSuccess), "passing build"},
		{"success change no previous", models.ReportingMode{"change"}, models.ResultSuccess, nil, "passing build"},
		{"exception", models.ReportingMode{"all"}, models.ResultException, nil, "build exception"},
		{"cancelled", models.ReportingMode{"all"}, models.ResultCancelled, nil, "cancelled build"},
		{"retry", models.ReportingMode{"all"}, models.ResultRetry, nil, "retry build"},
		{"unrecognized code", models.ReportingMode{"all"}, models.BuildResult(42), nil, "unknown build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectedStatusText(tt.mode, tt.results, tt.previous)
			if got != tt.want {
				t.Errorf("DetectedStatusText() = %q, want %q", got, tt.want)
			}
			if got == "" {
				t.Error("DetectedStatusText() must never be empty")
			}
		})
	}
}

func TestSummaryText(t *testing.T) {
	tests := []struct {
		name    string
		build   *models.Build
		results models.BuildResult
		want    string
	}{
		{"success", &models.Build{StateString: "build successful"}, models.ResultSuccess, "Build succeeded!"},
		{"warnings with state", &models.Build{StateString: "compiling"}, models.ResultWarnings, "Build Had Warnings: compiling"},
		{"warnings without state", &models.Build{}, models.ResultWarnings, "Build Had Warnings"},
		{"failure with state", &models.Build{StateString: "compiling"}, models.ResultFailure, "BUILD FAILED: compiling"},
		{"failure without state", &models.Build{}, models.ResultFailure, "BUILD FAILED"},
		{"exception", &models.Build{StateString: "worker lost"}, models.ResultException, "BUILD FAILED: worker lost"},
		{"cancelled ignores state", &models.Build{StateString: "interrupted"}, models.ResultCancelled, "Build was cancelled"},
		{"nil build", nil, models.ResultFailure, "BUILD FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SummaryText(tt.build, tt.results); got != tt.want {
				t.Errorf("SummaryText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSourceStampText(t *testing.T) {
	tests := []struct {
		name   string
		stamps []*models.SourceStamp
		want   string
	}{
		{"empty", nil, ""},
		{
			"branch and revision",
			[]*models.SourceStamp{{Branch: "main", Revision: "abc123"}},
			"Build Source Stamp: [branch main] abc123\n",
		},
		{
			"no revision falls back to HEAD",
			[]*models.SourceStamp{{Branch: "dev"}},
			"Build Source Stamp: [branch dev] HEAD\n",
		},
		{
			"codebase and patch",
			[]*models.SourceStamp{{Revision: "def456", Codebase: "libfoo", Patch: map[string]interface{}{"level": 1}}},
			"Build Source Stamp 'libfoo': def456 (plus patch)\n",
		},
		{
			"multiple stamps",
			[]*models.SourceStamp{
				{Branch: "main", Revision: "abc123"},
				{Revision: "def456", Codebase: "libfoo"},
			},
			"Build Source Stamp: [branch main] abc123\nBuild Source Stamp 'libfoo': def456\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SourceStampText(tt.stamps); got != tt.want {
				t.Errorf("SourceStampText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjectsText(t *testing.T) {
	tests := []struct {
		name   string
		stamps []*models.SourceStamp
		title  string
		want   string
	}{
		{"empty falls back to title", nil, "MyProject", "MyProject"},
		{"all blank falls back to title", []*models.SourceStamp{{}, {}}, "X", "X"},
		{"single project", []*models.SourceStamp{{Project: "A"}}, "X", "A"},
		{
			"deduplicated in first-occurrence order",
			[]*models.SourceStamp{{Project: "A"}, {Project: "B"}, {Project: "A"}},
			"X",
			"A, B",
		},
		{
			"blank projects skipped",
			[]*models.SourceStamp{{Project: ""}, {Project: "B"}},
			"X",
			"B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectsText(tt.stamps, tt.title); got != tt.want {
				t.Errorf("ProjectsText() = %q, want %q", got, tt.want)
			}
		})
	}
}
