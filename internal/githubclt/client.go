// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v43/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/simplesurance/github-comment/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

const perPage = 100

// ErrNoOpenPullRequest is returned when no open pull request exists for a
// commit.
var ErrNoOpenPullRequest = errors.New("no open pull request found")

// PullRequest is a GitHub pull request.
type PullRequest struct {
	Number  int
	Branch  string
	HeadSHA string
}

// Comment is a comment of a GitHub issue or pull request.
type Comment struct {
	ID   int64
	Body string
}

type options struct {
	restURL    string
	graphQLURL string
}

// Option configures a Client.
type Option func(*options)

// WithEnterpriseURLs configures the client to use other API endpoints than
// the ones of github.com.
// restURL is the base URL of the REST API (e.g.
// https://github.example.com/api/v3/), graphQLURL the URL of the GraphQL
// endpoint (e.g. https://github.example.com/api/graphql).
func WithEnterpriseURLs(restURL, graphQLURL string) Option {
	return func(o *options) {
		o.restURL = restURL
		o.graphQLURL = graphQLURL
	}
}

// New returns a new github api client.
func New(oauthAPItoken string, opts ...Option) (*Client, error) {
	var o options

	for _, opt := range opts {
		opt(&o)
	}

	httpClient := newHTTPClient(oauthAPItoken)

	restClt := github.NewClient(httpClient)
	graphQLClt := githubv4.NewClient(httpClient)

	if o.restURL != "" {
		baseURL, err := url.Parse(o.restURL)
		if err != nil {
			return nil, fmt.Errorf("parsing github REST api url failed: %w", err)
		}

		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}

		restClt.BaseURL = baseURL
	}

	if o.graphQLURL != "" {
		graphQLClt = githubv4.NewEnterpriseClient(o.graphQLURL, httpClient)
	}

	return &Client{
		restClt:    restClt,
		graphQLClt: graphQLClt,
		logger:     zap.L().Named(loggerName),
	}, nil
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is an github API client.
type Client struct {
	restClt    *github.Client
	graphQLClt *githubv4.Client
	logger     *zap.Logger
}

// FindOpenPullRequest returns the open pull request that contains commit.
// If no open pull request exists, an error wrapping ErrNoOpenPullRequest is
// returned. If multiple exist, an error is returned.
func (clt *Client) FindOpenPullRequest(ctx context.Context, owner, repo, commit string) (*PullRequest, error) {
	prs, _, err := clt.restClt.PullRequests.ListPullRequestsWithCommit(
		ctx, owner, repo, commit,
		&github.PullRequestListOptions{
			State:       "open",
			ListOptions: github.ListOptions{PerPage: perPage},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("fetching pull requests for commit %s in repository %s/%s failed: %w", commit, owner, repo, err)
	}

	var open []*github.PullRequest
	for _, pr := range prs {
		if pr.GetState() == "open" {
			open = append(open, pr)
		}
	}

	clt.logger.Debug(
		"retrieved pull requests for commit",
		logfields.Event("github_pull_requests_for_commit_retrieved"),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.Commit(commit),
		zap.Int("pull_requests", len(prs)),
		zap.Int("open_pull_requests", len(open)),
	)

	switch len(open) {
	case 0:
		return nil, fmt.Errorf("%w for commit %s in repository %s/%s", ErrNoOpenPullRequest, commit, owner, repo)
	case 1:
		pr := open[0]
		return &PullRequest{
			Number:  pr.GetNumber(),
			Branch:  pr.GetHead().GetRef(),
			HeadSHA: pr.GetHead().GetSHA(),
		}, nil
	default:
		return nil, fmt.Errorf("multiple open pull requests found for commit %s in repository %s/%s", commit, owner, repo)
	}
}

// FindTaggedComment returns the comment of the issue or pull request whose
// body starts with tag.
// If no comment matches, nil is returned. If multiple comments match an
// error is returned.
func (clt *Client) FindTaggedComment(ctx context.Context, owner, repo string, issueOrPRNr int, tag string) (*Comment, error) {
	var result *Comment

	opts := github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		comments, resp, err := clt.restClt.Issues.ListComments(ctx, owner, repo, issueOrPRNr, &opts)
		if err != nil {
			return nil, fmt.Errorf("fetching comments of pull request #%d in repository %s/%s failed: %w", issueOrPRNr, owner, repo, err)
		}

		for _, c := range comments {
			if !strings.HasPrefix(c.GetBody(), tag) {
				continue
			}

			if result != nil {
				return nil, fmt.Errorf(
					"multiple matching comments found for pull request #%d in repository %s/%s: %d, %d",
					issueOrPRNr, owner, repo, result.ID, c.GetID(),
				)
			}

			result = &Comment{ID: c.GetID(), Body: c.GetBody()}
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

// CreateIssueComment creates a comment in a issue or pull request
func (clt *Client) CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, body string) (*Comment, error) {
	c, _, err := clt.restClt.Issues.CreateComment(ctx, owner, repo, issueOrPRNr, &github.IssueComment{Body: &body})
	if err != nil {
		return nil, fmt.Errorf("adding comment to pull request #%d in repository %s/%s failed: %w", issueOrPRNr, owner, repo, err)
	}

	return &Comment{ID: c.GetID(), Body: c.GetBody()}, nil
}

// UpdateIssueComment replaces the body of an existing comment.
func (clt *Client) UpdateIssueComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	_, _, err := clt.restClt.Issues.EditComment(ctx, owner, repo, commentID, &github.IssueComment{Body: &body})
	if err != nil {
		return fmt.Errorf("updating comment #%d in repository %s/%s failed: %w", commentID, owner, repo, err)
	}

	return nil
}
