// Package commands assembles the flaky-report commands.
package commands

import (
	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/flaky-report/cli/commands/analyze"
	"github.com/gruntwork-io/flaky-report/cli/commands/fetch"
	"github.com/gruntwork-io/flaky-report/cli/commands/report"
	"github.com/gruntwork-io/flaky-report/cli/commands/schema"
	"github.com/gruntwork-io/flaky-report/options"
)

// NewCommands returns every flaky-report command.
func NewCommands(opts *options.Options) []*cli.Command {
	return []*cli.Command{
		report.NewCommand(opts),
		fetch.NewCommand(opts),
		analyze.NewCommand(opts),
		schema.NewCommand(opts),
	}
}
