package prcomment

import (
	"context"

	"github.com/simplesurance/github-comment/internal/githubclt"
)

//go:generate mockgen -package mocks -destination mocks/githubclient.go . GithubClient

// GithubClient defines the methods of a GitHub API client that are used by
// the Writer.
type GithubClient interface {
	FindOpenPullRequest(ctx context.Context, owner, repo, commit string) (*githubclt.PullRequest, error)
	FindTaggedComment(ctx context.Context, owner, repo string, issueOrPRNr int, tag string) (*githubclt.Comment, error)
	CreateIssueComment(ctx context.Context, owner, repo string, issueOrPRNr int, body string) (*githubclt.Comment, error)
	UpdateIssueComment(ctx context.Context, owner, repo string, commentID int64, body string) error
}
