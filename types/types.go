// Package types defines the core data structures for flaky spec analysis: the run-report contract written by the
// RSpec recorder, the GitHub entities the client works with, and the aggregated statistics.
package types

import (
	"cmp"
	"fmt"
	"time"
)

// MaxBacktraceFrames is the number of stack frames the recorder keeps per exception.
const MaxBacktraceFrames = 10

// Status is the outcome of one example in one run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Passed reports whether the example passed. Every other status counts as a failure for rate purposes.
func (s Status) Passed() bool {
	return s == StatusPassed
}

// Exception describes why an example failed.
type Exception struct {
	Class     string   `json:"class"`
	Message   string   `json:"message"`
	Backtrace []string `json:"backtrace,omitempty"`
}

// ExampleResult is one example's outcome in one run.
type ExampleResult struct {
	Timestamp       time.Time  `json:"timestamp"`
	Exception       *Exception `json:"exception,omitempty"`
	Description     string     `json:"description"`
	FullDescription string     `json:"full_description"`
	FilePath        string     `json:"file_path"`
	Status          Status     `json:"status" jsonschema:"enum=passed,enum=failed,enum=pending"`
	LineNumber      int        `json:"line_number" jsonschema:"minimum=0"`
	RunTime         float64    `json:"run_time" jsonschema:"minimum=0"`
}

// Key returns the identity used to correlate the same example across runs.
func (ex *ExampleResult) Key() Identity {
	return Identity{
		FilePath:        ex.FilePath,
		LineNumber:      ex.LineNumber,
		FullDescription: ex.FullDescription,
	}
}

// FailureMessage returns the exception message. The second result is false only when the example has no exception;
// an exception with an empty message still reports "".
func (ex *ExampleResult) FailureMessage() (string, bool) {
	if ex.Exception == nil {
		return "", false
	}

	return ex.Exception.Message, true
}

// RunReport is the structured record of every example's outcome in one CI run.
type RunReport struct {
	RunStartTime  time.Time       `json:"run_start_time"`
	RunEndTime    time.Time       `json:"run_end_time"`
	Examples      []ExampleResult `json:"examples"`
	TotalExamples int             `json:"total_examples" jsonschema:"minimum=0"`
	Duration      float64         `json:"duration" jsonschema:"minimum=0"`
}

// Identity is the tuple of source file, line number and full description.
type Identity struct {
	FilePath        string `json:"file_path"`
	FullDescription string `json:"full_description"`
	LineNumber      int    `json:"line_number"`
}

// Location returns the `file:line` form of the identity.
func (id Identity) Location() string {
	return fmt.Sprintf("%s:%d", id.FilePath, id.LineNumber)
}

// Compare orders identities by file path, then line number, then description.
func (id Identity) Compare(other Identity) int {
	return cmp.Or(
		cmp.Compare(id.FilePath, other.FilePath),
		cmp.Compare(id.LineNumber, other.LineNumber),
		cmp.Compare(id.FullDescription, other.FullDescription),
	)
}

// FlakySpec holds the statistics of one example identity across all fetched runs.
type FlakySpec struct {
	LastFailure *time.Time `json:"last_failure,omitempty"`
	Identity
	Description     string   `json:"description"`
	FailureMessages []string `json:"failure_messages"`
	TotalRuns       int      `json:"total_runs"`
	Failures        int      `json:"failures"`
	Passes          int      `json:"passes"`
	FailureRate     float64  `json:"failure_rate"`
}

// Analysis is the result of aggregating a set of run-reports.
type Analysis struct {
	GeneratedAt        time.Time   `json:"generated_at"`
	FirstRunStart      time.Time   `json:"first_run_start"`
	Specs              []FlakySpec `json:"flaky_specs"`
	RunsProcessed      int         `json:"runs_processed"`
	DocumentsDiscarded int         `json:"documents_discarded"`
	TotalExamples      int         `json:"total_examples"`
}

// MostFlaky returns the highest ranked spec, if any.
func (a *Analysis) MostFlaky() (FlakySpec, bool) {
	if len(a.Specs) == 0 {
		return FlakySpec{}, false
	}

	return a.Specs[0], true
}

// WorkflowRun represents a GitHub Actions workflow run.
type WorkflowRun struct {
	CreatedAt  time.Time `json:"created_at"`
	HeadSHA    string    `json:"head_sha"`
	HeadBranch string    `json:"head_branch"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HTMLURL    string    `json:"html_url"`
	ID         int64     `json:"id"`
	RunNumber  int       `json:"run_number"`
}

// Artifact is a downloadable archive attached to a workflow run.
type Artifact struct {
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	DownloadURL string    `json:"download_url"`
	ID          int64     `json:"id"`
	RunID       int64     `json:"run_id"`
	Size        int64     `json:"size"`
	Expired     bool      `json:"expired"`
}

// Document is one raw JSON body together with a description of where it came from.
type Document struct {
	// Source is a human readable origin used in log messages, e.g. `rspec-results-1/report.json`.
	Source string
	// Artifact and Entry are set for documents extracted from an artifact archive.
	Artifact string
	Entry    string
	Body     []byte
	RunID    int64
}

// FetchManifest records what the fetch command downloaded.
type FetchManifest struct {
	LastUpdated time.Time     `json:"last_updated"`
	Repository  string        `json:"repository"`
	Branch      string        `json:"branch"`
	Workflow    string        `json:"workflow"`
	Runs        []WorkflowRun `json:"runs"`
	Artifacts   []Artifact    `json:"artifacts"`
	Files       []string      `json:"files"`
}
