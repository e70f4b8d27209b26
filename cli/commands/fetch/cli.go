// Package fetch provides the command that downloads the run reports of the latest CI runs to a local directory.
package fetch

import (
	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/flaky-report/cli/flags"
	"github.com/gruntwork-io/flaky-report/options"
)

const (
	CommandName = "fetch"
)

// NewFlags builds the flags for the fetch command.
func NewFlags(opts *options.Options) []cli.Flag {
	return append(flags.NewGitHubFlags(opts),
		&cli.StringFlag{
			Name:        flags.OutputDirFlagName,
			EnvVars:     flags.EnvVars(flags.OutputDirFlagName),
			Aliases:     []string{"o"},
			Usage:       "Directory the run reports and the manifest are written to.",
			Value:       opts.OutputDir,
			Destination: &opts.OutputDir,
		},
	)
}

// NewCommand builds the fetch command.
func NewCommand(opts *options.Options) *cli.Command {
	return &cli.Command{
		Name:  CommandName,
		Usage: "Download the run reports of the latest CI runs.",
		Description: `Fetches the run report artifacts of the most recent completed runs of a workflow
and stores every JSON document they contain in the output directory, together
with a manifest.json describing the runs and artifacts they came from.

The files can be aggregated later, without network access, with the analyze command.

Example:
  flaky-report fetch --repo acme/widgets --workflow ci.yml --output-dir flaky-artifacts`,
		Flags: NewFlags(opts),
		Action: func(ctx *cli.Context) error {
			return Run(ctx.Context, opts)
		},
	}
}
