package githubclt

import (
	"context"
	"errors"
	"fmt"

	"github.com/shurcooL/githubv4"
)

type queryPullRequestBranch struct {
	Repository struct {
		PullRequest struct {
			HeadRefName githubv4.String
		} `graphql:"pullRequest(number: $prNumber)"`
	} `graphql:"repository(owner: $owner, name: $repo)"`
}

// PullRequestBranch returns the name of the head branch of a pull request.
func (clt *Client) PullRequestBranch(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	var q queryPullRequestBranch

	vars := map[string]any{
		"owner":    githubv4.String(owner),
		"repo":     githubv4.String(repo),
		"prNumber": githubv4.Int(prNumber),
	}

	if err := clt.graphQLClt.Query(ctx, &q, vars); err != nil {
		return "", fmt.Errorf("querying branch of pull request #%d in repository %s/%s failed: %w", prNumber, owner, repo, err)
	}

	branch := string(q.Repository.PullRequest.HeadRefName)
	if branch == "" {
		return "", errors.New("got pull request object with empty head ref name")
	}

	return branch, nil
}
