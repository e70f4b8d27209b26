package analyze

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/mattn/go-zglob"

	"github.com/gruntwork-io/flaky-report/cli/commands/common"
	"github.com/gruntwork-io/flaky-report/cli/commands/fetch"
	"github.com/gruntwork-io/flaky-report/internal/aggregator"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/telemetry"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/types"
)

const telemetryAggregate = "aggregate"

// Run aggregates the run reports found under opts.InputDir and prints the report.
func Run(ctx context.Context, opts *options.Options, now time.Time) error {
	if err := opts.ValidateReporting(); err != nil {
		return err
	}

	docs, err := ReadDocuments(opts.InputDir)
	if err != nil {
		return err
	}

	opts.Logger.Debugf("Found %d run reports in %s", len(docs), opts.InputDir)

	var analysis *types.Analysis

	if err := telemetry.TelemeterFromContext(ctx).Collect(ctx, telemetryAggregate, map[string]any{"documents": len(docs)}, func(ctx context.Context) error {
		analysis = aggregator.Analyze(opts.Logger, docs, opts.AggregatorOptions(), now)
		return nil
	}); err != nil {
		return err
	}

	return common.WriteReport(opts, analysis)
}

// ReadDocuments loads every `*.json` file under dir, except fetch manifests, in lexical path order. The Source of
// each document is its path relative to dir.
func ReadDocuments(dir string) ([]types.Document, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &options.ConfigurationError{Setting: "input-dir", Reason: dir + " is not a directory"}
	}

	matches, err := zglob.Glob(filepath.Join(dir, "**", "*.json"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.New(err)
	}

	slices.Sort(matches)

	docs := make([]types.Document, 0, len(matches))

	for _, match := range matches {
		if filepath.Base(match) == fetch.ManifestFile {
			continue
		}

		if info, err := os.Stat(match); err != nil || info.IsDir() {
			continue
		}

		body, err := os.ReadFile(match)
		if err != nil {
			return nil, errors.Errorf("failed to read %s: %w", match, err)
		}

		source, err := filepath.Rel(dir, match)
		if err != nil {
			source = match
		}

		docs = append(docs, types.Document{Source: filepath.ToSlash(source), Entry: filepath.Base(match), Body: body})
	}

	return docs, nil
}
