package github

import (
	"fmt"
	"net/http"

	"github.com/google/go-github/v53/github"
	"github.com/gruntwork-io/flaky-report/internal/errors"
)

// UpstreamUnavailableError is returned when a remote call still fails after all retries.
// The error of the last attempt is kept unchanged as the cause.
type UpstreamUnavailableError struct {
	Err error
	Op  string
}

func (err *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err *UpstreamUnavailableError) Unwrap() error {
	return err.Err
}

// HTTPStatusError reports an unexpected status code from a raw HTTP call.
type HTTPStatusError struct {
	URL        string
	Status     string
	StatusCode int
}

func (err *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned from %s", err.Status, err.URL)
}

// ExpiredArtifactError is returned when asked to download an artifact past its retention period.
type ExpiredArtifactError struct {
	Name string
	ID   int64
}

func (err ExpiredArtifactError) Error() string {
	return fmt.Sprintf("artifact %s #%d has expired", err.Name, err.ID)
}

func isUnauthorized(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusUnauthorized
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode == http.StatusUnauthorized
	}

	return false
}
