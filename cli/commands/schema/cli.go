// Package schema provides the command that prints the JSON schema of the run reports written by the RSpec recorder.
package schema

import (
	"encoding/json"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/types"
)

const (
	CommandName = "schema"
)

// NewCommand builds the schema command.
func NewCommand(opts *options.Options) *cli.Command {
	return &cli.Command{
		Name:  CommandName,
		Usage: "Print the JSON schema every run report is validated against.",
		Action: func(_ *cli.Context) error {
			return Run(opts.Writer)
		},
	}
}

// Run writes the indented run-report schema to w.
func Run(w io.Writer) error {
	schemaBytes, err := json.MarshalIndent(types.RunReportSchema(), "", "  ")
	if err != nil {
		return errors.Errorf("failed to marshal schema: %w", err)
	}

	schemaBytes = append(schemaBytes, '\n')

	_, err = w.Write(schemaBytes)

	return errors.New(err)
}
