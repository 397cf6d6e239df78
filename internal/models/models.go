package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildResult is the numeric result code attached to a finished build.
// The codes are wire values and must not be renumbered.
type BuildResult int

const (
	ResultSuccess   BuildResult = 0
	ResultWarnings  BuildResult = 1
	ResultFailure   BuildResult = 2
	ResultSkipped   BuildResult = 3
	ResultException BuildResult = 4
	ResultRetry     BuildResult = 5
	ResultCancelled BuildResult = 6
)

// resultNames maps result codes to their canonical display names
var resultNames = []string{
	"success",
	"warnings",
	"failure",
	"skipped",
	"exception",
	"retry",
	"cancelled",
}

// String returns the canonical display name for the result code.
// Unrecognized codes map to "unknown" rather than failing.
func (r BuildResult) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "unknown"
}

// ReportingMode is the set of string tags controlling which status-change
// wording applies (e.g. "change", "problem", "failing", "passing").
type ReportingMode []string

// Has reports whether the mode contains the given tag
func (m ReportingMode) Has(tag string) bool {
	for _, t := range m {
		if t == tag {
			return true
		}
	}
	return false
}

// SourceStamp describes one codebase's checkout state for a build
type SourceStamp struct {
	Branch   string      `json:"branch,omitempty"`
	Revision string      `json:"revision,omitempty"`
	Patch    interface{} `json:"patch,omitempty"`
	Codebase string      `json:"codebase,omitempty"`
	Project  string      `json:"project,omitempty"`
}

// Buildset groups the sourcestamps a build was triggered from
type Buildset struct {
	BuildsetID   int64          `json:"bsid,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	SourceStamps []*SourceStamp `json:"sourcestamps"`
}

// Builder identifies the builder a build ran on
type Builder struct {
	BuilderID int64  `json:"builderid"`
	Name      string `json:"name"`
}

// Property is one build property: an actual value plus the tag of
// whatever set it. The wire shape is a 2-element [value, source] array.
type Property struct {
	Value  interface{}
	Source string
}

// UnmarshalJSON decodes the [value, source] array form
func (p *Property) UnmarshalJSON(data []byte) error {
	var pair []interface{}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode property: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("property must be a [value, source] pair, got %d elements", len(pair))
	}
	source, ok := pair[1].(string)
	if !ok {
		return fmt.Errorf("property source must be a string, got %T", pair[1])
	}
	p.Value = pair[0]
	p.Source = source
	return nil
}

// MarshalJSON encodes back to the [value, source] array form
func (p Property) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Value, p.Source})
}

// Build is one execution of a builder, as reported by the CI master.
// The gateway treats it as read-only input.
type Build struct {
	Number      int                 `json:"number"`
	Results     BuildResult         `json:"results"`
	StateString string              `json:"state_string,omitempty"`
	Builder     Builder             `json:"builder"`
	Buildset    *Buildset           `json:"buildset"`
	Properties  map[string]Property `json:"properties,omitempty"`
	PrevBuild   *Build              `json:"prev_build,omitempty"`
}

// SourceStamps returns the build's sourcestamps, tolerating a nil buildset
func (b *Build) SourceStamps() []*SourceStamp {
	if b == nil || b.Buildset == nil {
		return nil
	}
	return b.Buildset.SourceStamps
}

// PreviousResults returns the previous build's result code when known
func (b *Build) PreviousResults() *BuildResult {
	if b == nil || b.PrevBuild == nil {
		return nil
	}
	r := b.PrevBuild.Results
	return &r
}

// Worker identifies a worker; passed through untouched into the
// rendering context of missing-worker notifications.
type Worker struct {
	WorkerID int64                  `json:"workerid"`
	Name     string                 `json:"name"`
	Info     map[string]interface{} `json:"workerinfo,omitempty"`
}

// Master describes the CI master a notification is about. The gateway
// never talks to the master; it only embeds its title and URLs into
// rendered messages.
type Master struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// BuildURL returns the master's page for one build
func (m *Master) BuildURL(builderID int64, number int) string {
	base := m.URL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%s#/builders/%d/builds/%d", base, builderID, number)
}

// Message is a fully rendered notification, ready for delivery
type Message struct {
	Body    string `json:"body"`
	Type    string `json:"type"` // "plain" or "html"
	Subject string `json:"subject,omitempty"`
}
