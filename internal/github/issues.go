package github

import (
	"context"

	"github.com/google/go-github/v53/github"
	"github.com/gruntwork-io/flaky-report/internal/errors"
)

// DefaultIssueTitle is the title of the tracking issue the report is written to.
const DefaultIssueTitle = "Flaky Specs Report"

const issueStateOpen = "open"

// IssueResult describes the tracking issue after an upsert.
type IssueResult struct {
	URL     string
	Number  int
	Created bool
}

// UpsertIssue writes body to the open issue titled title, creating the issue if none exists yet. Repeated calls
// update the same issue instead of opening duplicates. A retry looks the issue up again first, so a create whose
// response was lost is turned into an update.
func (c *Client) UpsertIssue(ctx context.Context, title, body string) (IssueResult, error) {
	return withRetry(ctx, c, "upsert issue", func(ctx context.Context) (IssueResult, error) {
		return c.upsertIssue(ctx, title, body)
	})
}

func (c *Client) upsertIssue(ctx context.Context, title, body string) (IssueResult, error) {
	existing, err := c.findOpenIssue(ctx, title)
	if err != nil {
		return IssueResult{}, err
	}

	request := &github.IssueRequest{Body: github.String(body)}

	if existing != nil {
		issue, _, err := c.api.Issues.Edit(ctx, c.owner, c.repo, existing.GetNumber(), request)
		if err != nil {
			return IssueResult{}, errors.New(err)
		}

		c.logger.Infof("Updated issue #%d %q", issue.GetNumber(), title)

		return IssueResult{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}, nil
	}

	request.Title = github.String(title)

	issue, _, err := c.api.Issues.Create(ctx, c.owner, c.repo, request)
	if err != nil {
		return IssueResult{}, errors.New(err)
	}

	c.logger.Infof("Created issue #%d %q", issue.GetNumber(), title)

	return IssueResult{Number: issue.GetNumber(), URL: issue.GetHTMLURL(), Created: true}, nil
}

// findOpenIssue returns the first open issue, not pull request, whose title equals title exactly.
func (c *Client) findOpenIssue(ctx context.Context, title string) (*github.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       issueStateOpen,
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}

	for {
		issues, resp, err := c.api.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, errors.New(err)
		}

		for _, issue := range issues {
			if !issue.IsPullRequest() && issue.GetTitle() == title {
				return issue, nil
			}
		}

		if resp.NextPage == 0 {
			return nil, nil
		}

		opts.Page = resp.NextPage
	}
}
