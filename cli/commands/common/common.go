// Package common holds the helpers shared by the flaky-report commands.
package common

import (
	"context"
	"io"

	"github.com/gruntwork-io/flaky-report/internal/collector"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/github"
	"github.com/gruntwork-io/flaky-report/internal/report"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/types"
)

// NewClient creates a GitHub client for the configured repository.
func NewClient(opts *options.Options) (*github.Client, error) {
	owner, repo, err := opts.OwnerAndRepo()
	if err != nil {
		return nil, err
	}

	clientOpts := []github.ClientOption{
		github.WithLogger(opts.Logger),
		github.WithRetry(opts.RetryPolicy()),
	}

	if opts.GitHubAPIURL != "" {
		clientOpts = append(clientOpts, github.WithBaseURL(opts.GitHubAPIURL))
	}

	client, err := github.NewClient(opts.Token, owner, repo, clientOpts...)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debugf("Reading workflow runs of %s", client)

	return client, nil
}

// NewCollector creates a collector reading the configured workflow runs from source.
func NewCollector(opts *options.Options, source collector.Source) (*collector.Collector, error) {
	filter, err := github.NewArtifactFilter(opts.ArtifactFilter)
	if err != nil {
		return nil, &options.ConfigurationError{Setting: "artifact-filter", Reason: err.Error()}
	}

	return collector.New(source, opts.Logger, collector.Config{
		Filter:         filter,
		Workflow:       opts.Workflow,
		Branch:         opts.Branch,
		Limit:          opts.Limit,
		Concurrency:    opts.Concurrency,
		SkipFailedRuns: opts.SkipFailedRuns,
	}), nil
}

// WithTimeout applies the overall deadline, if any.
func WithTimeout(ctx context.Context, opts *options.Options) (context.Context, context.CancelFunc) {
	if opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, opts.Timeout)
}

// WarnSkipped logs the runs skipped by the collector.
func WarnSkipped(opts *options.Options, result *collector.Result) {
	var skipped *errors.MultiError
	if !errors.As(result.Skipped, &skipped) {
		return
	}

	opts.Logger.Warnf("%d of %d runs were skipped, the report is based on the remaining runs", skipped.Len(), len(result.Runs))
}

// WriteReport prints the analysis to opts.Writer in the selected format and, if requested, to opts.ReportFile.
func WriteReport(opts *options.Options, analysis *types.Analysis) error {
	format, err := opts.ReportFormat()
	if err != nil {
		return err
	}

	if opts.ReportFile != "" {
		if err := report.WriteToFile(opts.ReportFile, analysis, format); err != nil {
			return err
		}

		opts.Logger.Infof("Report written to %s", opts.ReportFile)
	}

	isTerminal := report.IsTerminal(opts.Writer)

	if format == report.FormatMarkdown && opts.Pretty && isTerminal {
		out, err := report.RenderTerminal(report.RenderMarkdown(analysis), report.DefaultTerminalWidth)
		if err != nil {
			return err
		}

		_, err = io.WriteString(opts.Writer, out)

		return errors.New(err)
	}

	return report.Write(opts.Writer, analysis, format, isTerminal && !opts.DisableColor)
}
