// Package flags provides flaky-report command flags.
package flags

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/flaky-report/internal/report"
	"github.com/gruntwork-io/flaky-report/options"
)

// EnvVarPrefix prefixes the environment variables of flags that have no well-known variable of their own.
const EnvVarPrefix = "FLAKY_REPORT_"

const (
	// Logs related flags.

	LogLevelFlagName  = "log-level"
	LogFormatFlagName = "log-format"
	NoColorFlagName   = "no-color"

	// Telemetry flags.

	TelemetryTraceExporterFlagName                 = "telemetry-trace-exporter"
	TelemetryTraceExporterHTTPEndpointFlagName     = "telemetry-trace-exporter-http-endpoint"
	TelemetryTraceExporterInsecureEndpointFlagName = "telemetry-trace-exporter-insecure-endpoint"
	TelemetryMetricExporterFlagName                = "telemetry-metric-exporter"
	TelemetryMetricInsecureEndpointFlagName        = "telemetry-metric-exporter-insecure-endpoint"

	// GitHub flags.

	RepoFlagName           = "repo"
	WorkflowFlagName       = "workflow"
	BranchFlagName         = "branch"
	LimitFlagName          = "limit"
	ArtifactFilterFlagName = "artifact-filter"
	TokenFlagName          = "token"
	GitHubAPIURLFlagName   = "github-api-url"
	ConcurrencyFlagName    = "concurrency"
	TimeoutFlagName        = "timeout"
	SkipFailedRunsFlagName = "skip-failed-runs"
	MaxRetriesFlagName     = "max-retries"
	RetrySleepFlagName     = "retry-sleep"

	// Reporting flags.

	FormatFlagName      = "format"
	PrettyFlagName      = "pretty"
	MinFailuresFlagName = "min-failures"
	OnlyMixedFlagName   = "only-mixed"
	ReportFileFlagName  = "report-file"

	// Command specific flags.

	IssueTitleFlagName = "issue-title"
	DryRunFlagName     = "dry-run"
	OutputDirFlagName  = "output-dir"
	InputDirFlagName   = "input-dir"
)

// EnvVars returns the prefixed environment variable names for the given flag names.
func EnvVars(names ...string) []string {
	envVars := make([]string, 0, len(names))

	for _, name := range names {
		envVars = append(envVars, EnvVarPrefix+strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	}

	return envVars
}

// NewGlobalFlags returns the flags shared by every command. The log level and format are plain strings here and
// applied to opts.Logger by the app's Before hook.
func NewGlobalFlags(opts *options.Options, logLevel, logFormat *string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        LogLevelFlagName,
			EnvVars:     EnvVars(LogLevelFlagName),
			Usage:       "Sets the logging level: error, warn, info, debug, trace.",
			Value:       opts.LogLevel.String(),
			Destination: logLevel,
		},
		&cli.StringFlag{
			Name:        LogFormatFlagName,
			EnvVars:     EnvVars(LogFormatFlagName),
			Usage:       "Sets the logging format: text, json.",
			Value:       opts.LogFormat,
			Destination: logFormat,
		},
		&cli.BoolFlag{
			Name:        NoColorFlagName,
			EnvVars:     append(EnvVars(NoColorFlagName), "NO_COLOR"),
			Usage:       "Disables color output.",
			Destination: &opts.DisableColor,
		},
		&cli.StringFlag{
			Name:        TelemetryTraceExporterFlagName,
			EnvVars:     EnvVars(TelemetryTraceExporterFlagName),
			Usage:       "Enables telemetry traces collection: none, console, otlpHttp, otlpGrpc, http.",
			Destination: &opts.Telemetry.TraceExporter,
		},
		&cli.StringFlag{
			Name:        TelemetryTraceExporterHTTPEndpointFlagName,
			EnvVars:     EnvVars(TelemetryTraceExporterHTTPEndpointFlagName),
			Usage:       "Endpoint of the http trace exporter.",
			Destination: &opts.Telemetry.TraceExporterHTTPEndpoint,
		},
		&cli.BoolFlag{
			Name:        TelemetryTraceExporterInsecureEndpointFlagName,
			EnvVars:     EnvVars(TelemetryTraceExporterInsecureEndpointFlagName),
			Usage:       "Connects to the trace exporter without TLS.",
			Destination: &opts.Telemetry.TraceExporterInsecureEndpoint,
		},
		&cli.StringFlag{
			Name:        TelemetryMetricExporterFlagName,
			EnvVars:     EnvVars(TelemetryMetricExporterFlagName),
			Usage:       "Enables telemetry metrics collection: none, console, otlpHttp, otlpGrpc.",
			Destination: &opts.Telemetry.MetricExporter,
		},
		&cli.BoolFlag{
			Name:        TelemetryMetricInsecureEndpointFlagName,
			EnvVars:     EnvVars(TelemetryMetricInsecureEndpointFlagName),
			Usage:       "Connects to the metric exporter without TLS.",
			Destination: &opts.Telemetry.MetricExporterInsecureEndpoint,
		},
	}
}

// NewGitHubFlags returns the flags that select the workflow runs and artifacts to fetch.
func NewGitHubFlags(opts *options.Options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        RepoFlagName,
			Aliases:     []string{"r"},
			EnvVars:     []string{"GITHUB_REPO_NAME", "GITHUB_REPOSITORY"},
			Usage:       "Repository in owner/repo format.",
			Destination: &opts.Repository,
		},
		&cli.StringFlag{
			Name:        WorkflowFlagName,
			Aliases:     []string{"w"},
			EnvVars:     []string{"GITHUB_WORKFLOW_FILE"},
			Usage:       "Workflow file name (e.g. ci.yml) or ID whose runs are inspected.",
			Destination: &opts.Workflow,
		},
		&cli.StringFlag{
			Name:        BranchFlagName,
			Aliases:     []string{"b"},
			EnvVars:     []string{"GITHUB_BRANCH"},
			Usage:       "Branch the runs belong to.",
			Value:       opts.Branch,
			Destination: &opts.Branch,
		},
		&cli.IntFlag{
			Name:        LimitFlagName,
			Aliases:     []string{"n"},
			EnvVars:     append(EnvVars("runs"), EnvVars(LimitFlagName)...),
			Usage:       "Number of most recent completed runs to inspect.",
			Value:       opts.Limit,
			Destination: &opts.Limit,
		},
		&cli.StringFlag{
			Name:        ArtifactFilterFlagName,
			EnvVars:     EnvVars(ArtifactFilterFlagName),
			Usage:       "Glob selecting the artifacts that carry run reports. A plain name is matched as a prefix.",
			Value:       opts.ArtifactFilter,
			Destination: &opts.ArtifactFilter,
		},
		&cli.StringFlag{
			Name:        TokenFlagName,
			Aliases:     []string{"t"},
			EnvVars:     []string{"GITHUB_TOKEN"},
			Usage:       "GitHub token for API access.",
			Destination: &opts.Token,
		},
		&cli.StringFlag{
			Name:        GitHubAPIURLFlagName,
			EnvVars:     []string{"GITHUB_API_URL"},
			Usage:       "GitHub API endpoint, e.g. for GitHub Enterprise.",
			Destination: &opts.GitHubAPIURL,
		},
		&cli.IntFlag{
			Name:        ConcurrencyFlagName,
			EnvVars:     EnvVars(ConcurrencyFlagName),
			Usage:       "Number of runs whose artifacts are fetched at the same time.",
			Value:       opts.Concurrency,
			Destination: &opts.Concurrency,
		},
		&cli.DurationFlag{
			Name:        TimeoutFlagName,
			EnvVars:     EnvVars(TimeoutFlagName),
			Usage:       "Overall deadline for fetching and publishing.",
			Value:       opts.Timeout,
			Destination: &opts.Timeout,
		},
		&cli.BoolFlag{
			Name:        SkipFailedRunsFlagName,
			EnvVars:     EnvVars(SkipFailedRunsFlagName),
			Usage:       "Skip runs whose artifacts cannot be fetched instead of aborting.",
			Destination: &opts.SkipFailedRuns,
		},
		&cli.IntFlag{
			Name:        MaxRetriesFlagName,
			EnvVars:     EnvVars(MaxRetriesFlagName),
			Usage:       "Number of retries of a failed GitHub request.",
			Value:       opts.MaxRetries,
			Destination: &opts.MaxRetries,
		},
		&cli.DurationFlag{
			Name:        RetrySleepFlagName,
			EnvVars:     EnvVars(RetrySleepFlagName),
			Usage:       "Pause between two attempts of a failed GitHub request.",
			Value:       opts.RetrySleep,
			Destination: &opts.RetrySleep,
		},
	}
}

// NewReportingFlags returns the flags that shape the rendered report.
func NewReportingFlags(opts *options.Options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        FormatFlagName,
			Aliases:     []string{"f"},
			EnvVars:     EnvVars(FormatFlagName),
			Usage:       "Output format: " + formatNames() + ".",
			Value:       opts.Format,
			Destination: &opts.Format,
		},
		&cli.BoolFlag{
			Name:        PrettyFlagName,
			EnvVars:     EnvVars(PrettyFlagName),
			Usage:       "Render the markdown report for the terminal when stdout is a TTY.",
			Destination: &opts.Pretty,
		},
		&cli.IntFlag{
			Name:        MinFailuresFlagName,
			EnvVars:     EnvVars(MinFailuresFlagName),
			Usage:       "Minimum number of failures a spec needs to be reported.",
			Value:       opts.MinFailures,
			Destination: &opts.MinFailures,
		},
		&cli.BoolFlag{
			Name:        OnlyMixedFlagName,
			EnvVars:     EnvVars(OnlyMixedFlagName),
			Usage:       "Only report specs that both passed and failed.",
			Destination: &opts.OnlyMixed,
		},
		&cli.StringFlag{
			Name:        ReportFileFlagName,
			EnvVars:     EnvVars(ReportFileFlagName),
			Usage:       "Also write the report to this file.",
			Destination: &opts.ReportFile,
		},
	}
}

func formatNames() string {
	names := make([]string, 0, len(report.Formats))
	for _, format := range report.Formats {
		names = append(names, string(format))
	}

	return strings.Join(names, ", ")
}
