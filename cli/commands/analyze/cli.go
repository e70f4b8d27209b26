// Package analyze provides the command that builds the flaky spec report from run reports stored on disk.
package analyze

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/flaky-report/cli/flags"
	"github.com/gruntwork-io/flaky-report/options"
)

const (
	CommandName = "analyze"
)

// NewFlags builds the flags for the analyze command.
func NewFlags(opts *options.Options) []cli.Flag {
	return append(flags.NewReportingFlags(opts),
		&cli.StringFlag{
			Name:        flags.InputDirFlagName,
			EnvVars:     flags.EnvVars(flags.InputDirFlagName),
			Aliases:     []string{"i"},
			Usage:       "Directory searched recursively for run report JSON files.",
			Value:       opts.InputDir,
			Destination: &opts.InputDir,
		},
	)
}

// NewCommand builds the analyze command.
func NewCommand(opts *options.Options) *cli.Command {
	return &cli.Command{
		Name:  CommandName,
		Usage: "Aggregate run reports stored in a local directory.",
		Description: `Reads every *.json run report under the input directory, for example the output
of the fetch command, and prints the flaky spec report. No network access or
GitHub token is required.

Example:
  flaky-report analyze --input-dir flaky-artifacts --format summary`,
		Flags: NewFlags(opts),
		Action: func(ctx *cli.Context) error {
			return Run(ctx.Context, opts, time.Now().UTC())
		},
	}
}
