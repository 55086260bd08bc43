// Package prcomment creates and updates tagged comments in GitHub pull
// requests.
package prcomment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/simplesurance/github-comment/internal/logfields"
)

const loggerName = "prcomment"

// Operation is the change that Write applied to a pull request.
type Operation string

const (
	OperationCreated   Operation = "created"
	OperationUpdated   Operation = "updated"
	OperationUnchanged Operation = "unchanged"
)

// Result describes the outcome of Write.
type Result struct {
	Operation   Operation
	PullRequest int
	CommentID   int64
}

// Tag returns the HTML comment that identifies a comment with the given id.
// It is prepended to the comment body and invisible in the rendered comment.
func Tag(id string) string {
	return fmt.Sprintf("<!-- github-comment: %s -->", id)
}

// Body returns the full comment body for id and text.
func Body(id, text string) string {
	return Tag(id) + "\n" + text
}

// Writer posts comments to the pull request of a commit.
type Writer struct {
	clt    GithubClient
	logger *zap.Logger
}

func NewWriter(clt GithubClient) *Writer {
	return &Writer{
		clt:    clt,
		logger: zap.L().Named(loggerName),
	}
}

// Write posts text as comment to the open pull request that contains commit.
// If the pull request already has a comment tagged with id, it is
// updated, if it's body differs. Otherwise a new comment is created.
func (w *Writer) Write(ctx context.Context, owner, repo, commit, id, text string) (*Result, error) {
	if id == "" {
		return nil, errors.New("comment id is empty")
	}

	logger := w.logger.With(
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.Commit(commit),
		zap.String("comment_tag_id", id),
	)

	pr, err := w.clt.FindOpenPullRequest(ctx, owner, repo, commit)
	if err != nil {
		return nil, err
	}

	logger = logger.With(logfields.PullRequest(pr.Number))
	logger.Info("found pull request", logfields.Event("pull_request_found"))

	tag := Tag(id)
	body := Body(id, text)

	comment, err := w.clt.FindTaggedComment(ctx, owner, repo, pr.Number, tag)
	if err != nil {
		return nil, err
	}

	if comment == nil {
		logger.Debug("creating comment", logfields.Event("comment_creating"))

		comment, err = w.clt.CreateIssueComment(ctx, owner, repo, pr.Number, body)
		if err != nil {
			return nil, err
		}

		logger.Info(
			"comment created",
			logfields.Event("comment_created"),
			logfields.CommentID(strconv.FormatInt(comment.ID, 10)),
		)

		return &Result{Operation: OperationCreated, PullRequest: pr.Number, CommentID: comment.ID}, nil
	}

	logger = logger.With(logfields.CommentID(strconv.FormatInt(comment.ID, 10)))
	logger.Info("found existing comment", logfields.Event("comment_found"))

	if comment.Body == body {
		logger.Info("comment is up to date, skipping update", logfields.Event("comment_uptodate"))
		return &Result{Operation: OperationUnchanged, PullRequest: pr.Number, CommentID: comment.ID}, nil
	}

	if err := w.clt.UpdateIssueComment(ctx, owner, repo, comment.ID, body); err != nil {
		return nil, err
	}

	logger.Info("comment updated", logfields.Event("comment_updated"))

	return &Result{Operation: OperationUpdated, PullRequest: pr.Number, CommentID: comment.ID}, nil
}
