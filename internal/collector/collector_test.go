package collector_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gruntwork-io/flaky-report/internal/collector"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/github"
	"github.com/gruntwork-io/flaky-report/pkg/log"
	"github.com/gruntwork-io/flaky-report/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	runsErr      error
	artifactErrs map[int64]error
	fetchDelay   map[int64]time.Duration
	artifacts    map[int64][]types.Artifact
	runs         []types.WorkflowRun
	fetched      []string
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32
	mu           sync.Mutex
}

func newFakeSource(runIDs ...int64) *fakeSource {
	src := &fakeSource{
		artifacts:    map[int64][]types.Artifact{},
		artifactErrs: map[int64]error{},
		fetchDelay:   map[int64]time.Duration{},
	}

	for _, id := range runIDs {
		src.runs = append(src.runs, types.WorkflowRun{ID: id})
		src.artifacts[id] = []types.Artifact{
			{ID: id*10 + 1, RunID: id, Name: "coverage"},
			{ID: id*10 + 2, RunID: id, Name: "rspec-results-1"},
			{ID: id*10 + 3, RunID: id, Name: "rspec-results-2"},
		}
	}

	return src
}

func (src *fakeSource) ListRecentRuns(_ context.Context, workflow, branch string, limit int) ([]types.WorkflowRun, error) {
	if src.runsErr != nil {
		return nil, src.runsErr
	}

	return src.runs[:min(limit, len(src.runs))], nil
}

func (src *fakeSource) ListArtifacts(_ context.Context, runID int64) ([]types.Artifact, error) {
	return src.artifacts[runID], nil
}

func (src *fakeSource) FetchArtifactPayloads(ctx context.Context, artifact types.Artifact) ([]types.Document, error) {
	current := src.inFlight.Add(1)
	defer src.inFlight.Add(-1)

	for {
		seen := src.maxInFlight.Load()
		if current <= seen || src.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	select {
	case <-time.After(src.fetchDelay[artifact.RunID]):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	src.mu.Lock()
	src.fetched = append(src.fetched, artifact.Name)
	src.mu.Unlock()

	if err := src.artifactErrs[artifact.RunID]; err != nil {
		return nil, err
	}

	source := fmt.Sprintf("%d/%s", artifact.RunID, artifact.Name)

	return []types.Document{
		{Source: source + "/a.json", Body: []byte(`{}`)},
		{Source: source + "/b.json", Body: []byte(`{}`)},
	}, nil
}

func newFilter(t *testing.T) *github.ArtifactFilter {
	t.Helper()

	filter, err := github.NewArtifactFilter("rspec-results*")
	require.NoError(t, err)

	return filter
}

func config(t *testing.T) collector.Config {
	t.Helper()

	return collector.Config{
		Filter:      newFilter(t),
		Workflow:    "ci.yml",
		Branch:      "main",
		Limit:       5,
		Concurrency: 2,
	}
}

func quietLogger() log.Logger {
	return log.New(log.WithOutput(&bytes.Buffer{}))
}

func sources(docs []types.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Source)
	}

	return out
}

func TestCollectKeepsRunOrder(t *testing.T) {
	t.Parallel()

	src := newFakeSource(3, 2, 1)
	// the most recent run finishes last
	src.fetchDelay[3] = 30 * time.Millisecond

	result, err := collector.New(src, quietLogger(), config(t)).Collect(t.Context())
	require.NoError(t, err)

	assert.Len(t, result.Runs, 3)
	assert.Len(t, result.Artifacts, 6)
	assert.Equal(t, []string{
		"3/rspec-results-1/a.json", "3/rspec-results-1/b.json", "3/rspec-results-2/a.json", "3/rspec-results-2/b.json",
		"2/rspec-results-1/a.json", "2/rspec-results-1/b.json", "2/rspec-results-2/a.json", "2/rspec-results-2/b.json",
		"1/rspec-results-1/a.json", "1/rspec-results-1/b.json", "1/rspec-results-2/a.json", "1/rspec-results-2/b.json",
	}, sources(result.Documents))
	assert.NotContains(t, src.fetched, "coverage")
	require.NoError(t, result.Skipped)
}

func TestCollectBoundsConcurrency(t *testing.T) {
	t.Parallel()

	src := newFakeSource(1, 2, 3, 4, 5)
	for id := range int64(6) {
		src.fetchDelay[id] = 5 * time.Millisecond
	}

	cfg := config(t)
	cfg.Concurrency = 2

	_, err := collector.New(src, quietLogger(), cfg).Collect(t.Context())
	require.NoError(t, err)

	assert.LessOrEqual(t, src.maxInFlight.Load(), int32(2))
}

func TestCollectAbortsOnFailure(t *testing.T) {
	t.Parallel()

	upstream := &github.UpstreamUnavailableError{Op: "download artifact", Err: errors.New("502 Bad Gateway")}

	src := newFakeSource(3, 2, 1)
	src.artifactErrs[2] = upstream

	_, err := collector.New(src, quietLogger(), config(t)).Collect(t.Context())
	require.Error(t, err)

	var runErr *collector.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, int64(2), runErr.RunID)

	var upstreamErr *github.UpstreamUnavailableError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Contains(t, err.Error(), "502 Bad Gateway")
}

func TestCollectSkipsFailedRuns(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	src := newFakeSource(3, 2, 1)
	src.artifactErrs[2] = errors.New("artifact expired")

	cfg := config(t)
	cfg.SkipFailedRuns = true

	result, err := collector.New(src, log.New(log.WithOutput(&logs)), cfg).Collect(t.Context())
	require.NoError(t, err)

	assert.Len(t, result.Documents, 8)
	require.Error(t, result.Skipped)

	var multiErr *errors.MultiError
	require.ErrorAs(t, result.Skipped, &multiErr)
	assert.Equal(t, 1, multiErr.Len())
	assert.Contains(t, logs.String(), "Skipping run")
	assert.Contains(t, logs.String(), `error="run 2: artifact expired"`)
}

func TestCollectFailsWhenEveryRunFails(t *testing.T) {
	t.Parallel()

	src := newFakeSource(2, 1)
	src.artifactErrs[1] = errors.New("gone")
	src.artifactErrs[2] = errors.New("gone")

	cfg := config(t)
	cfg.SkipFailedRuns = true

	_, err := collector.New(src, quietLogger(), cfg).Collect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 runs")
}

func TestCollectNoRuns(t *testing.T) {
	t.Parallel()

	result, err := collector.New(newFakeSource(), quietLogger(), config(t)).Collect(t.Context())
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Empty(t, result.Runs)
}

func TestCollectListRunsFailure(t *testing.T) {
	t.Parallel()

	src := newFakeSource(1)
	src.runsErr = errors.New("unauthorized")

	_, err := collector.New(src, quietLogger(), config(t)).Collect(t.Context())
	require.ErrorIs(t, err, src.runsErr)
}

func TestCollectHonorsLimit(t *testing.T) {
	t.Parallel()

	cfg := config(t)
	cfg.Limit = 1

	result, err := collector.New(newFakeSource(9, 8, 7), quietLogger(), cfg).Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, int64(9), result.Runs[0].ID)
}
