// Package cli wires the flaky-report commands into a CLI application.
package cli

import (
	"context"
	"os"

	"github.com/gruntwork-io/go-commons/version"
	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/flaky-report/cli/commands"
	"github.com/gruntwork-io/flaky-report/cli/flags"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/telemetry"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/pkg/log"
)

const (
	AppName = "flaky-report"

	traceParentEnvVar = "TRACEPARENT"
)

// NewApp creates the flaky-report CLI app.
func NewApp(opts *options.Options) *cli.App {
	var (
		logLevel  = opts.LogLevel.String()
		logFormat = opts.LogFormat
		telemeter = new(telemetry.Telemeter)
	)

	app := cli.NewApp()
	app.Name = AppName
	app.Usage = "Finds the RSpec examples that fail intermittently across the latest CI runs of a GitHub Actions workflow."
	app.UsageText = "flaky-report <command> [options]"
	app.Version = version.GetVersion()
	app.Writer = opts.Writer
	app.ErrWriter = opts.ErrWriter
	app.Flags = flags.NewGlobalFlags(opts, &logLevel, &logFormat)
	app.Commands = commands.NewCommands(opts)
	app.EnableBashCompletion = true

	for _, cmd := range app.Commands {
		if cmd.Action != nil {
			cmd.Action = errors.WithPanicHandling(cmd.Action)
		}
	}

	app.Before = func(cCtx *cli.Context) error {
		if err := setupLogger(opts, logLevel, logFormat); err != nil {
			return err
		}

		if opts.Telemetry.TraceParent == "" {
			opts.Telemetry.TraceParent = os.Getenv(traceParentEnvVar)
		}

		tlm, err := telemetry.NewTelemeter(cCtx.Context, AppName, cCtx.App.Version, opts.ErrWriter, opts.Telemetry)
		if err != nil {
			return err
		}

		*telemeter = *tlm

		cCtx.Context = telemetry.ContextWithTelemeter(cCtx.Context, telemeter)

		return nil
	}

	app.After = func(cCtx *cli.Context) error {
		ctx := cCtx.Context
		if ctx == nil {
			ctx = context.Background()
		}

		return telemeter.Shutdown(ctx)
	}

	return app
}

func setupLogger(opts *options.Options, logLevel, logFormat string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return &options.ConfigurationError{Setting: flags.LogLevelFlagName, Reason: err.Error()}
	}

	formatter, err := log.NewFormatter(logFormat, opts.DisableColor)
	if err != nil {
		return &options.ConfigurationError{Setting: flags.LogFormatFlagName, Reason: err.Error()}
	}

	opts.LogLevel = level
	opts.LogFormat = logFormat
	opts.Logger.SetOptions(log.WithLevel(level), log.WithFormatter(formatter), log.WithOutput(opts.ErrWriter))

	return nil
}
