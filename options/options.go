// Package options provides the set of options that configure the behavior of the flaky-report program.
package options

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gruntwork-io/flaky-report/internal/aggregator"
	"github.com/gruntwork-io/flaky-report/internal/github"
	"github.com/gruntwork-io/flaky-report/internal/report"
	"github.com/gruntwork-io/flaky-report/internal/telemetry"
	"github.com/gruntwork-io/flaky-report/internal/util"
	"github.com/gruntwork-io/flaky-report/pkg/log"
)

const (
	DefaultBranch         = "main"
	DefaultLimit          = 5
	DefaultArtifactFilter = "rspec-results*"
	DefaultIssueTitle     = github.DefaultIssueTitle
	DefaultConcurrency    = 4
	DefaultTimeout        = 10 * time.Minute
	DefaultOutputDir      = "flaky-artifacts"
	DefaultInputDir       = "."

	// MaxLimit caps how many runs can be requested in one invocation.
	MaxLimit = 1000

	defaultLogLevel = log.InfoLevel
)

var repositoryPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Options represents options that configure the behavior of the flaky-report program.
type Options struct {
	// Writer receives the rendered report.
	Writer io.Writer
	// ErrWriter receives log output.
	ErrWriter io.Writer

	Logger    log.Logger
	Telemetry *telemetry.Options

	// Repository is the `owner/repo` the workflow runs belong to.
	Repository string
	// Workflow is the workflow file name (e.g. `ci.yml`) or its numeric ID.
	Workflow string
	Branch   string
	// ArtifactFilter is a glob selecting the artifacts that carry run-reports.
	ArtifactFilter string
	Token          string
	// GitHubAPIURL overrides the GitHub API endpoint, e.g. for GitHub Enterprise.
	GitHubAPIURL string
	IssueTitle   string

	// Format is the report format printed to Writer.
	Format string
	// ReportFile optionally receives a copy of the report in Format.
	ReportFile string
	OutputDir  string
	InputDir   string
	LogFormat  string

	LogLevel log.Level

	Limit       int
	Concurrency int
	MinFailures int
	MaxRetries  int

	Timeout    time.Duration
	RetrySleep time.Duration

	SkipFailedRuns bool
	DryRun         bool
	Pretty         bool
	OnlyMixed      bool
	DisableColor   bool
}

// NewOptions creates a new Options object with reasonable defaults for real usage.
func NewOptions() *Options {
	return NewOptionsWithWriters(os.Stdout, os.Stderr)
}

// NewOptionsWithWriters creates a new Options object writing the report to stdout and logs to stderr.
func NewOptionsWithWriters(stdout, stderr io.Writer) *Options {
	return &Options{
		Writer:         stdout,
		ErrWriter:      stderr,
		Logger:         log.New(log.WithOutput(stderr), log.WithLevel(defaultLogLevel)),
		Telemetry:      &telemetry.Options{},
		Branch:         DefaultBranch,
		ArtifactFilter: DefaultArtifactFilter,
		IssueTitle:     DefaultIssueTitle,
		Format:         string(report.FormatMarkdown),
		OutputDir:      DefaultOutputDir,
		InputDir:       DefaultInputDir,
		LogFormat:      log.TextFormat,
		LogLevel:       defaultLogLevel,
		Limit:          DefaultLimit,
		Concurrency:    DefaultConcurrency,
		MinFailures:    1,
		MaxRetries:     util.DefaultMaxRetries,
		Timeout:        DefaultTimeout,
		RetrySleep:     util.DefaultSleepBetweenRetries,
	}
}

// OwnerAndRepo splits Repository into its owner and name.
func (opts *Options) OwnerAndRepo() (string, string, error) {
	if !repositoryPattern.MatchString(opts.Repository) {
		return "", "", &ConfigurationError{
			Setting: "repo",
			Reason:  "expected owner/repo, got " + quoteOrEmpty(opts.Repository),
		}
	}

	owner, repo, _ := strings.Cut(opts.Repository, "/")

	return owner, repo, nil
}

// RetryPolicy returns the retry policy applied to each upstream request.
func (opts *Options) RetryPolicy() util.RetryPolicy {
	return util.RetryPolicy{
		MaxRetries: opts.MaxRetries,
		Backoff:    util.FixedBackoff(opts.RetrySleep),
	}
}

// AggregatorOptions returns the filters applied when ranking specs.
func (opts *Options) AggregatorOptions() aggregator.Options {
	return aggregator.Options{
		MinFailures: opts.MinFailures,
		OnlyMixed:   opts.OnlyMixed,
	}
}

// ReportFormat returns the parsed Format.
func (opts *Options) ReportFormat() (report.Format, error) {
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return "", &ConfigurationError{Setting: "format", Reason: err.Error()}
	}

	return format, nil
}

// ValidateReporting checks the settings shared by every command that renders a report.
func (opts *Options) ValidateReporting() error {
	if _, err := opts.ReportFormat(); err != nil {
		return err
	}

	if opts.MinFailures < 0 {
		return &ConfigurationError{Setting: "min-failures", Reason: "must not be negative"}
	}

	return nil
}

// ValidateRemote checks the settings needed to talk to GitHub.
func (opts *Options) ValidateRemote() error {
	if _, _, err := opts.OwnerAndRepo(); err != nil {
		return err
	}

	if strings.TrimSpace(opts.Workflow) == "" {
		return &ConfigurationError{Setting: "workflow", Reason: "a workflow file name or ID is required"}
	}

	if strings.TrimSpace(opts.Token) == "" {
		return &ConfigurationError{Setting: "token", Reason: "a GitHub token is required to download artifacts"}
	}

	if opts.Limit < 1 || opts.Limit > MaxLimit {
		return &ConfigurationError{Setting: "limit", Reason: "must be between 1 and 1000"}
	}

	if strings.TrimSpace(opts.ArtifactFilter) == "" {
		return &ConfigurationError{Setting: "artifact-filter", Reason: "must not be empty"}
	}

	if opts.Concurrency < 1 {
		return &ConfigurationError{Setting: "concurrency", Reason: "must be at least 1"}
	}

	if opts.MaxRetries < 0 {
		return &ConfigurationError{Setting: "max-retries", Reason: "must not be negative"}
	}

	return nil
}

// ValidatePublishing checks the settings needed to upsert the tracking issue.
func (opts *Options) ValidatePublishing() error {
	if opts.DryRun {
		return nil
	}

	if strings.TrimSpace(opts.IssueTitle) == "" {
		return &ConfigurationError{Setting: "issue-title", Reason: "must not be empty"}
	}

	return nil
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "an empty value"
	}

	return `"` + s + `"`
}
