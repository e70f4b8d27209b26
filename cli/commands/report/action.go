package report

import (
	"context"
	"time"

	"github.com/gruntwork-io/flaky-report/cli/commands/common"
	"github.com/gruntwork-io/flaky-report/internal/aggregator"
	"github.com/gruntwork-io/flaky-report/internal/collector"
	"github.com/gruntwork-io/flaky-report/internal/github"
	reporter "github.com/gruntwork-io/flaky-report/internal/report"
	"github.com/gruntwork-io/flaky-report/internal/telemetry"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/types"
)

const (
	telemetryAggregate = "aggregate"
	telemetryPublish   = "publish"
)

// Client fetches run reports and publishes the result.
type Client interface {
	collector.Source
	UpsertIssue(ctx context.Context, title, body string) (github.IssueResult, error)
}

// Run validates the options, connects to GitHub and runs the report pipeline.
func Run(ctx context.Context, opts *options.Options) error {
	if err := validate(opts); err != nil {
		return err
	}

	client, err := common.NewClient(opts)
	if err != nil {
		return err
	}

	return RunWithClient(ctx, opts, client, time.Now().UTC())
}

// RunWithClient runs the report pipeline against client: collect, aggregate, print and publish.
func RunWithClient(ctx context.Context, opts *options.Options, client Client, now time.Time) error {
	if err := validate(opts); err != nil {
		return err
	}

	ctx, cancel := common.WithTimeout(ctx, opts)
	defer cancel()

	coll, err := common.NewCollector(opts, client)
	if err != nil {
		return err
	}

	result, err := coll.Collect(ctx)
	if err != nil {
		return err
	}

	common.WarnSkipped(opts, result)

	tlm := telemetry.TelemeterFromContext(ctx)

	var analysis *types.Analysis

	if err := tlm.Collect(ctx, telemetryAggregate, map[string]any{"documents": len(result.Documents)}, func(ctx context.Context) error {
		analysis = aggregator.Analyze(opts.Logger, result.Documents, opts.AggregatorOptions(), now)
		return nil
	}); err != nil {
		return err
	}

	if err := common.WriteReport(opts, analysis); err != nil {
		return err
	}

	if opts.DryRun {
		opts.Logger.Infof("Dry run, the report is not published")
		return nil
	}

	body := reporter.RenderMarkdown(analysis)

	return tlm.Collect(ctx, telemetryPublish, map[string]any{"title": opts.IssueTitle}, func(ctx context.Context) error {
		issue, err := client.UpsertIssue(ctx, opts.IssueTitle, body)
		if err != nil {
			return err
		}

		opts.Logger.Infof("Report published to %s", issue.URL)

		return nil
	})
}

func validate(opts *options.Options) error {
	if err := opts.ValidateRemote(); err != nil {
		return err
	}

	if err := opts.ValidateReporting(); err != nil {
		return err
	}

	return opts.ValidatePublishing()
}
