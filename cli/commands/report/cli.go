// Package report provides the command that builds the flaky spec report from the latest CI runs and publishes it
// to the tracking issue.
package report

import (
	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/flaky-report/cli/flags"
	"github.com/gruntwork-io/flaky-report/options"
)

const (
	CommandName = "report"
)

// NewFlags builds the flags for the report command.
func NewFlags(opts *options.Options) []cli.Flag {
	cmdFlags := append(flags.NewGitHubFlags(opts), flags.NewReportingFlags(opts)...)

	return append(cmdFlags,
		&cli.StringFlag{
			Name:        flags.IssueTitleFlagName,
			EnvVars:     flags.EnvVars(flags.IssueTitleFlagName),
			Usage:       "Title of the tracking issue the report is written to.",
			Value:       opts.IssueTitle,
			Destination: &opts.IssueTitle,
		},
		&cli.BoolFlag{
			Name:        flags.DryRunFlagName,
			EnvVars:     flags.EnvVars(flags.DryRunFlagName),
			Usage:       "Print the report without publishing it.",
			Destination: &opts.DryRun,
		},
	)
}

// NewCommand builds the report command.
func NewCommand(opts *options.Options) *cli.Command {
	return &cli.Command{
		Name:  CommandName,
		Usage: "Aggregate the run reports of the latest CI runs and publish the flaky spec report.",
		Description: `Fetches the run report artifacts of the most recent completed runs of a workflow,
ranks the specs that did not pass consistently, prints the report and writes it to
the tracking issue.

Example:
  flaky-report report --repo acme/widgets --workflow ci.yml --limit 10`,
		Flags: NewFlags(opts),
		Action: func(ctx *cli.Context) error {
			return Run(ctx.Context, opts)
		},
	}
}
