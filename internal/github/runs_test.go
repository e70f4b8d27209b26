package github_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := github.NewClient(testToken, "owner", "repo")
	require.NoError(t, err)

	assert.Equal(t, "owner", client.Owner())
	assert.Equal(t, "repo", client.Repo())
	assert.Equal(t, "owner/repo", client.String())
}

func TestListRecentRunsPaginates(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/actions/workflows/ci.yml/runs", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("branch"))
		assert.Equal(t, "completed", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"total_count": 3, "workflow_runs": [
				{"id": 101, "run_number": 1, "created_at": "2024-05-01T10:00:00Z", "status": "completed"}
			]}`)

			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=2>; rel="next"`, server.URL, r.URL.Path))
		fmt.Fprint(w, `{"total_count": 3, "workflow_runs": [
			{"id": 103, "run_number": 3, "created_at": "2024-05-03T10:00:00Z", "status": "completed", "head_branch": "main"},
			{"id": 102, "run_number": 2, "created_at": "2024-05-02T10:00:00Z", "status": "completed", "head_branch": "main"}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	runs, err := client.ListRecentRuns(t.Context(), "ci.yml", "main", 10)
	require.NoError(t, err)

	require.Len(t, runs, 3)
	assert.Equal(t, int64(103), runs[0].ID)
	assert.Equal(t, "main", runs[0].HeadBranch)
	assert.Equal(t, int64(102), runs[1].ID)
	assert.Equal(t, int64(101), runs[2].ID)
}

func TestListRecentRunsTruncatesToLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/actions/workflows/4242/runs", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		fmt.Fprint(w, `{"total_count": 3, "workflow_runs": [
			{"id": 3, "created_at": "2024-05-03T10:00:00Z"},
			{"id": 2, "created_at": "2024-05-02T10:00:00Z"},
			{"id": 1, "created_at": "2024-05-01T10:00:00Z"}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	runs, err := client.ListRecentRuns(t.Context(), "4242", "main", 2)
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[0].ID)
	assert.Equal(t, int64(2), runs[1].ID)
}

func TestListRecentRunsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.ListRecentRuns(t.Context(), "ci.yml", "main", 5)
	require.Error(t, err)

	var upstreamErr *github.UpstreamUnavailableError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, "list workflow runs", upstreamErr.Op)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestListRecentRunsDoesNotRetryUnauthorized(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.ListRecentRuns(t.Context(), "ci.yml", "main", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad credentials")
	assert.Equal(t, int32(1), calls.Load())
}

func TestListRecentRunsZeroLimit(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://127.0.0.1:1")

	runs, err := client.ListRecentRuns(t.Context(), "ci.yml", "main", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
