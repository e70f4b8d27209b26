package github_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/gruntwork-io/flaky-report/internal/github"
	"github.com/gruntwork-io/flaky-report/internal/util"
	"github.com/gruntwork-io/flaky-report/pkg/log"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestClient(t *testing.T, serverURL string) *github.Client {
	t.Helper()

	client, err := github.NewClient(testToken, "owner", "repo",
		github.WithBaseURL(serverURL),
		github.WithRetry(util.RetryPolicy{MaxRetries: util.DefaultMaxRetries, Backoff: util.FixedBackoff(time.Millisecond)}),
		github.WithLogger(log.New(log.WithOutput(io.Discard))),
	)
	require.NoError(t, err)

	return client
}

// zipArchive builds an in-memory zip with the given entries, in order.
func zipArchive(t *testing.T, entries [][2]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := zip.NewWriter(&buf)

	for _, entry := range entries {
		f, err := w.Create(entry[0])
		require.NoError(t, err)

		_, err = f.Write([]byte(entry[1]))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	return buf.Bytes()
}
