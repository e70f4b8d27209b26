// Package collector drives the artifact client to gather the run-report documents of the most recent workflow
// runs.
package collector

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/telemetry"
	"github.com/gruntwork-io/flaky-report/pkg/log"
	"github.com/gruntwork-io/flaky-report/types"
)

const (
	telemetryCollect    = "collect"
	telemetryCollectRun = "collect_run"

	metricDocuments = "documents_collected"
)

// Source is the subset of the GitHub client the collector needs.
type Source interface {
	ListRecentRuns(ctx context.Context, workflow, branch string, limit int) ([]types.WorkflowRun, error)
	ListArtifacts(ctx context.Context, runID int64) ([]types.Artifact, error)
	FetchArtifactPayloads(ctx context.Context, artifact types.Artifact) ([]types.Document, error)
}

// Matcher selects artifacts by name.
type Matcher interface {
	Match(name string) bool
}

// Config describes which runs and artifacts to collect.
type Config struct {
	Filter   Matcher
	Workflow string
	Branch   string
	Limit    int
	// Concurrency bounds how many runs are processed at the same time.
	Concurrency int
	// SkipFailedRuns logs and skips a run whose artifacts cannot be fetched instead of aborting.
	SkipFailedRuns bool
}

// Result holds everything collected, ordered by run (most recent first), then artifact, then archive entry.
type Result struct {
	// Skipped holds the errors of runs skipped because of SkipFailedRuns.
	Skipped   error
	Runs      []types.WorkflowRun
	Artifacts []types.Artifact
	Documents []types.Document
}

// RunError is returned when the artifacts of a single run could not be collected.
type RunError struct {
	Err   error
	RunID int64
}

func (err *RunError) Error() string {
	return "run " + strconv.FormatInt(err.RunID, 10) + ": " + err.Err.Error()
}

func (err *RunError) Unwrap() error {
	return err.Err
}

// Collector gathers run-report documents.
type Collector struct {
	source Source
	logger log.Logger
	cfg    Config
}

// New returns a Collector reading from source.
func New(source Source, logger log.Logger, cfg Config) *Collector {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &Collector{
		source: source,
		logger: logger,
		cfg:    cfg,
	}
}

type runResult struct {
	err       error
	artifacts []types.Artifact
	documents []types.Document
}

// Collect lists the most recent runs and fetches the documents of every matching artifact. Without
// SkipFailedRuns the first failure cancels the remaining work and is returned.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	tlm := telemetry.TelemeterFromContext(ctx)

	var result *Result

	err := tlm.Collect(ctx, telemetryCollect, map[string]any{
		"workflow": c.cfg.Workflow,
		"branch":   c.cfg.Branch,
		"limit":    c.cfg.Limit,
	}, func(ctx context.Context) error {
		var err error

		result, err = c.collect(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	tlm.Count(ctx, metricDocuments, int64(len(result.Documents)), nil)

	return result, nil
}

func (c *Collector) collect(ctx context.Context) (*Result, error) {
	runs, err := c.source.ListRecentRuns(ctx, c.cfg.Workflow, c.cfg.Branch, c.cfg.Limit)
	if err != nil {
		return nil, err
	}

	result := &Result{Runs: runs}

	if len(runs) == 0 {
		c.logger.Warnf("No completed runs of %s found on branch %s", c.cfg.Workflow, c.cfg.Branch)
		return result, nil
	}

	c.logger.Infof("Collecting artifacts from %d runs", len(runs))

	results := make([]runResult, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i, run := range runs {
		g.Go(func() error {
			res, err := c.collectRun(gctx, run)
			if err == nil {
				results[i] = res
				return nil
			}

			err = &RunError{RunID: run.ID, Err: err}

			if !c.cfg.SkipFailedRuns || ctx.Err() != nil {
				return err
			}

			c.logger.WithField(log.FieldKeyRun, run.ID).WithError(err).Warnf("Skipping run")
			results[i] = runResult{err: err}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var skipped *errors.MultiError

	for _, res := range results {
		if res.err != nil {
			skipped = skipped.Append(res.err)
			continue
		}

		result.Artifacts = append(result.Artifacts, res.artifacts...)
		result.Documents = append(result.Documents, res.documents...)
	}

	if skipped.Len() == len(runs) {
		return nil, errors.Errorf("artifacts of all %d runs could not be collected: %w", len(runs), skipped)
	}

	result.Skipped = skipped.ErrorOrNil()

	c.logger.Infof("Collected %d documents from %d artifacts", len(result.Documents), len(result.Artifacts))

	return result, nil
}

func (c *Collector) collectRun(ctx context.Context, run types.WorkflowRun) (runResult, error) {
	var res runResult

	err := telemetry.TelemeterFromContext(ctx).Collect(ctx, telemetryCollectRun, map[string]any{
		"run_id": run.ID,
	}, func(ctx context.Context) error {
		logger := c.logger.WithField(log.FieldKeyRun, run.ID)

		artifacts, err := c.source.ListArtifacts(ctx, run.ID)
		if err != nil {
			return err
		}

		for _, artifact := range artifacts {
			if c.cfg.Filter != nil && !c.cfg.Filter.Match(artifact.Name) {
				logger.Tracef("Ignoring artifact %s", artifact.Name)
				continue
			}

			docs, err := c.source.FetchArtifactPayloads(ctx, artifact)
			if err != nil {
				return err
			}

			res.artifacts = append(res.artifacts, artifact)
			res.documents = append(res.documents, docs...)
		}

		if len(res.artifacts) == 0 {
			logger.Warnf("No artifacts matching the filter")
		}

		return nil
	})

	return res, err
}
