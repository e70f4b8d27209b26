// Package github provides the GitHub API integration used to fetch workflow run artifacts and to publish the
// flaky spec report to a tracking issue.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v53/github"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/util"
	"github.com/gruntwork-io/flaky-report/pkg/log"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com/"

	acceptHeader = "application/vnd.github+json"
)

// Client wraps the GitHub API client for workflow, artifact and issue operations.
type Client struct {
	api *github.Client
	// authHTTP carries the bearer token and never follows redirects: artifact downloads answer with a
	// redirect to a signed URL that must be fetched without credentials.
	authHTTP     *http.Client
	downloadHTTP *http.Client
	logger       log.Logger
	owner        string
	repo         string
	baseURL      string
	retry        util.RetryPolicy
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API endpoint, e.g. GitHub Enterprise or a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}

		c.baseURL = baseURL
	}
}

// WithRetry overrides the retry policy applied to every remote call.
func WithRetry(policy util.RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new GitHub API client authenticated with the given token.
func NewClient(token, owner, repo string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		owner:        owner,
		repo:         repo,
		baseURL:      DefaultBaseURL,
		downloadHTTP: cleanhttp.DefaultPooledClient(),
		logger:       log.Default(),
		retry:        util.DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(client)
	}

	var transport http.RoundTripper = cleanhttp.DefaultPooledTransport()

	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   transport,
		}
	}

	client.authHTTP = &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	baseURL, err := url.Parse(client.baseURL)
	if err != nil {
		return nil, errors.Errorf("invalid GitHub API URL %q: %w", client.baseURL, err)
	}

	client.api = github.NewClient(&http.Client{Transport: transport})
	client.api.BaseURL = baseURL

	return client, nil
}

// Owner returns the repository owner.
func (c *Client) Owner() string {
	return c.owner
}

// Repo returns the repository name.
func (c *Client) Repo() string {
	return c.repo
}

// withRetry runs one remote call under the client's retry policy. Authorization failures are not retried since
// they cannot succeed without new credentials. The error of the last attempt is kept as the cause.
func withRetry[T any](ctx context.Context, c *Client, op string, action func(ctx context.Context) (T, error)) (T, error) {
	val, err := util.DoWithRetry(ctx, op, c.retry, c.logger, func(ctx context.Context) (T, error) {
		val, err := action(ctx)
		if err != nil && isUnauthorized(err) {
			return val, util.FatalError{Underlying: err}
		}

		return val, err
	})
	if err != nil {
		return val, &UpstreamUnavailableError{Op: op, Err: err}
	}

	return val, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("%s/%s", c.owner, c.repo)
}
