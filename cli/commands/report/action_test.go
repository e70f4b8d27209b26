package report_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gruntwork-io/flaky-report/cli/commands/report"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/github"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/pkg/log"
	"github.com/gruntwork-io/flaky-report/types"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) ListRecentRuns(ctx context.Context, workflow, branch string, limit int) ([]types.WorkflowRun, error) {
	args := m.Called(ctx, workflow, branch, limit)
	return args.Get(0).([]types.WorkflowRun), args.Error(1)
}

func (m *mockClient) ListArtifacts(ctx context.Context, runID int64) ([]types.Artifact, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]types.Artifact), args.Error(1)
}

func (m *mockClient) FetchArtifactPayloads(ctx context.Context, artifact types.Artifact) ([]types.Document, error) {
	args := m.Called(ctx, artifact)
	return args.Get(0).([]types.Document), args.Error(1)
}

func (m *mockClient) UpsertIssue(ctx context.Context, title, body string) (github.IssueResult, error) {
	args := m.Called(ctx, title, body)
	return args.Get(0).(github.IssueResult), args.Error(1)
}

func runReport(runID int64, status string) types.Document {
	exception := "null"
	if status == "failed" {
		exception = `{"class": "RuntimeError", "message": "boom"}`
	}

	start := now.Add(-time.Duration(runID) * time.Hour).Format(time.RFC3339)

	body := fmt.Sprintf(`{
		"total_examples": 1,
		"run_start_time": %q,
		"run_end_time": %q,
		"duration": 1.5,
		"examples": [{
			"description": "does Y",
			"full_description": "X does Y",
			"file_path": "./spec/x_spec.rb",
			"line_number": 10,
			"status": %q,
			"run_time": 0.1,
			"timestamp": %q,
			"exception": %s
		}]
	}`, start, start, status, start, exception)

	return types.Document{Source: fmt.Sprintf("run-%d/flaky-rspec.json", runID), Body: []byte(body), RunID: runID}
}

func testOptions(stdout *bytes.Buffer) *options.Options {
	opts := options.NewOptionsWithWriters(stdout, &bytes.Buffer{})
	opts.Logger = log.New(log.WithOutput(&bytes.Buffer{}))
	opts.Repository = "acme/widgets"
	opts.Workflow = "ci.yml"
	opts.Token = "secret"
	opts.Limit = 3

	return opts
}

func newMockClient(statuses map[int64]string) *mockClient {
	client := new(mockClient)

	runs := []types.WorkflowRun{{ID: 3}, {ID: 2}, {ID: 1}}
	client.On("ListRecentRuns", mock.Anything, "ci.yml", "main", 3).Return(runs, nil)

	for _, run := range runs {
		artifact := types.Artifact{ID: run.ID * 100, RunID: run.ID, Name: "rspec-results-" + fmt.Sprint(run.ID)}
		client.On("ListArtifacts", mock.Anything, run.ID).Return([]types.Artifact{
			{ID: run.ID*100 + 1, RunID: run.ID, Name: "coverage"},
			artifact,
		}, nil)

		if status, ok := statuses[run.ID]; ok {
			client.On("FetchArtifactPayloads", mock.Anything, artifact).Return([]types.Document{runReport(run.ID, status)}, nil)
		}
	}

	return client
}

func TestRunWithClientPublishes(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := testOptions(&stdout)
	client := newMockClient(map[int64]string{3: "failed", 2: "passed", 1: "failed"})
	client.On("UpsertIssue", mock.Anything, "Flaky Specs Report", mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "| `./spec/x_spec.rb:10` | X does Y | 2/3 | 66.67 |")
	})).Return(github.IssueResult{Number: 12, URL: "https://github.com/acme/widgets/issues/12"}, nil)

	require.NoError(t, report.RunWithClient(t.Context(), opts, client, now))

	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "FetchArtifactPayloads", 3)
	assert.Contains(t, stdout.String(), "Number of runs processed: 3")
	assert.Contains(t, stdout.String(), "| `./spec/x_spec.rb:10` | X does Y | 2/3 | 66.67 |")
}

func TestRunWithClientDryRun(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := testOptions(&stdout)
	opts.DryRun = true
	opts.Format = "json"

	client := newMockClient(map[int64]string{3: "passed", 2: "passed", 1: "passed"})

	require.NoError(t, report.RunWithClient(t.Context(), opts, client, now))

	client.AssertNotCalled(t, "UpsertIssue", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, stdout.String(), `"flaky_specs": []`)
	assert.Contains(t, stdout.String(), `"runs_processed": 3`)
}

func TestRunWithClientAbortsOnFetchFailure(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := testOptions(&stdout)
	client := newMockClient(map[int64]string{3: "failed", 1: "failed"})

	upstream := &github.UpstreamUnavailableError{Op: "download artifact", Err: errors.New("503 Service Unavailable")}
	client.On("FetchArtifactPayloads", mock.Anything, mock.MatchedBy(func(a types.Artifact) bool { return a.RunID == 2 })).
		Return([]types.Document(nil), upstream)

	err := report.RunWithClient(t.Context(), opts, client, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 Service Unavailable")

	client.AssertNotCalled(t, "UpsertIssue", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, stdout.String())
}

func TestRunWithClientSkipsFailedRuns(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := testOptions(&stdout)
	opts.SkipFailedRuns = true
	opts.DryRun = true

	client := newMockClient(map[int64]string{3: "failed", 1: "passed"})
	client.On("FetchArtifactPayloads", mock.Anything, mock.MatchedBy(func(a types.Artifact) bool { return a.RunID == 2 })).
		Return([]types.Document(nil), errors.New("expired"))

	require.NoError(t, report.RunWithClient(t.Context(), opts, client, now))
	assert.Contains(t, stdout.String(), "| 1/2 | 50.0 |")
}

func TestRunWithClientRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	opts := testOptions(&bytes.Buffer{})
	opts.Repository = "not-a-repo"

	client := new(mockClient)

	err := report.RunWithClient(t.Context(), opts, client, now)

	var configErr *options.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "repo", configErr.Setting)
	client.AssertExpectations(t)
}
