package github

import (
	"cmp"
	"context"
	"slices"
	"strconv"

	"github.com/google/go-github/v53/github"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/types"
)

const (
	maxPerPage = 100

	runStatusCompleted = "completed"
)

type runsPage struct {
	runs     []*github.WorkflowRun
	nextPage int
}

// ListRecentRuns returns up to limit completed runs of the given workflow on the given branch, most recent first.
// The workflow is either a numeric workflow ID or a workflow file name such as `ci.yml`.
func (c *Client) ListRecentRuns(ctx context.Context, workflow, branch string, limit int) ([]types.WorkflowRun, error) {
	if limit <= 0 {
		return nil, nil
	}

	opts := &github.ListWorkflowRunsOptions{
		Branch: branch,
		Status: runStatusCompleted,
		ListOptions: github.ListOptions{
			PerPage: min(limit, maxPerPage),
		},
	}

	runs := make([]types.WorkflowRun, 0, limit)

	for {
		page, err := withRetry(ctx, c, "list workflow runs", func(ctx context.Context) (runsPage, error) {
			return c.listRunsPage(ctx, workflow, opts)
		})
		if err != nil {
			return nil, err
		}

		for _, run := range page.runs {
			runs = append(runs, convertRun(run))
		}

		if len(runs) >= limit || page.nextPage == 0 {
			break
		}

		opts.Page = page.nextPage
	}

	slices.SortStableFunc(runs, func(a, b types.WorkflowRun) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}

	c.logger.Debugf("Found %d completed runs of %s on %s", len(runs), workflow, branch)

	return runs, nil
}

func (c *Client) listRunsPage(ctx context.Context, workflow string, opts *github.ListWorkflowRunsOptions) (runsPage, error) {
	var (
		result *github.WorkflowRuns
		resp   *github.Response
		err    error
	)

	if workflowID, parseErr := strconv.ParseInt(workflow, 10, 64); parseErr == nil {
		result, resp, err = c.api.Actions.ListWorkflowRunsByID(ctx, c.owner, c.repo, workflowID, opts)
	} else {
		result, resp, err = c.api.Actions.ListWorkflowRunsByFileName(ctx, c.owner, c.repo, workflow, opts)
	}

	if err != nil {
		return runsPage{}, errors.New(err)
	}

	return runsPage{runs: result.WorkflowRuns, nextPage: resp.NextPage}, nil
}

func convertRun(run *github.WorkflowRun) types.WorkflowRun {
	return types.WorkflowRun{
		ID:         run.GetID(),
		RunNumber:  run.GetRunNumber(),
		HeadSHA:    run.GetHeadSHA(),
		HeadBranch: run.GetHeadBranch(),
		Status:     run.GetStatus(),
		Conclusion: run.GetConclusion(),
		CreatedAt:  run.GetCreatedAt().Time,
		HTMLURL:    run.GetHTMLURL(),
	}
}
