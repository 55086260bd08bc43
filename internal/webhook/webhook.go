// Package webhook converts GitHub issue_comment webhook documents into
// Events.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/simplesurance/github-comment/internal/logfields"
)

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Event is a parsed issue_comment webhook.
// All fields are populated by Parse, an Event is never modified afterwards.
type Event struct {
	Action            string
	CommentBody       string
	CommentID         string
	AuthorLogin       string
	AuthorAssociation string
	IssueNumber       uint64
	// IsPullRequest is true when the comment was made on a pull request
	// instead of a plain issue.
	IsPullRequest bool
	Repository    Repository

	// JSON is the document the event was parsed from.
	JSON []byte
}

func (e *Event) String() string {
	return fmt.Sprintf("issue_comment/%s on %s#%d (comment: %s)", e.Action, e.Repository, e.IssueNumber, e.CommentID)
}

// LogFields returns fields that should be used when logging messages related
// to the event.
func (e *Event) LogFields() []zap.Field {
	return []zap.Field{
		logfields.RepositoryOwner(e.Repository.Owner),
		logfields.Repository(e.Repository.Name),
		logfields.PullRequest(int(e.IssueNumber)),
		logfields.CommentID(e.CommentID),
		zap.String("github.comment_author", e.AuthorLogin),
		logfields.AuthorAssociation(e.AuthorAssociation),
		zap.String("github.comment_action", e.Action),
	}
}

// ParseFile reads the file at path and parses it via Parse.
func ParseFile(path string) (Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Event{}, fmt.Errorf("reading issue_comment webhook from file %q failed: %w", path, err)
	}

	ev, err := Parse(data)
	if err != nil {
		return Event{}, fmt.Errorf("file %q: %w", path, err)
	}

	return ev, nil
}

// issueCommentDocument contains the subset of the issue_comment webhook
// payload that is converted to an Event.
// Only the read fields are declared, other fields of the payload are not
// decoded and can have any type.
type issueCommentDocument struct {
	Action  *string `json:"action"`
	Comment *struct {
		ID                *int64  `json:"id"`
		Body              *string `json:"body"`
		AuthorAssociation *string `json:"author_association"`
		User              *struct {
			Login *string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Issue *struct {
		Number      *int64           `json:"number"`
		PullRequest *json.RawMessage `json:"pull_request"`
	} `json:"issue"`
	Repository *repositoryDocument `json:"repository"`
}

type repositoryDocument struct {
	FullName *string `json:"full_name"`
	Name     *string `json:"name"`
	Owner    *struct {
		Login *string `json:"login"`
	} `json:"owner"`
}

// Parse converts an issue_comment webhook JSON document to an Event.
// Fields that are not part of Event are ignored.
// If the document is invalid or a required field is missing a *ParseError is
// returned.
func Parse(document []byte) (Event, error) {
	var raw issueCommentDocument

	if err := json.Unmarshal(document, &raw); err != nil {
		return Event{}, decodeError(err)
	}

	if raw.Action == nil {
		return Event{}, missingFieldError("action")
	}

	comment := raw.Comment
	if comment == nil || comment.Body == nil {
		return Event{}, missingFieldError("comment.body")
	}

	if comment.ID == nil {
		return Event{}, missingFieldError("comment.id")
	}

	if comment.User == nil || comment.User.Login == nil {
		return Event{}, missingFieldError("comment.user.login")
	}

	if comment.AuthorAssociation == nil {
		return Event{}, missingFieldError("comment.author_association")
	}

	if raw.Issue == nil || raw.Issue.Number == nil {
		return Event{}, missingFieldError("issue.number")
	}

	if *raw.Issue.Number < 0 {
		return Event{}, &ParseError{
			Kind:  KindInvalidIssueNumber,
			Field: "issue.number",
			Err:   fmt.Errorf("issue number is negative: %d", *raw.Issue.Number),
		}
	}

	repo, err := repository(raw.Repository)
	if err != nil {
		return Event{}, err
	}

	return Event{
		Action:            *raw.Action,
		CommentBody:       *comment.Body,
		CommentID:         strconv.FormatInt(*comment.ID, 10),
		AuthorLogin:       *comment.User.Login,
		AuthorAssociation: *comment.AuthorAssociation,
		IssueNumber:       uint64(*raw.Issue.Number),
		IsPullRequest:     raw.Issue.PullRequest != nil,
		Repository:        repo,
		JSON:              append([]byte(nil), document...),
	}, nil
}

func repository(repo *repositoryDocument) (Repository, error) {
	if repo == nil {
		return Repository{}, missingFieldError("repository")
	}

	if repo.FullName != nil {
		return splitFullName(*repo.FullName)
	}

	if repo.Owner == nil || repo.Owner.Login == nil || *repo.Owner.Login == "" ||
		repo.Name == nil || *repo.Name == "" {
		return Repository{}, missingFieldError("repository.full_name")
	}

	return Repository{
		Owner: *repo.Owner.Login,
		Name:  *repo.Name,
	}, nil
}

func splitFullName(fullName string) (Repository, error) {
	owner, name, found := strings.Cut(fullName, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, &ParseError{
			Kind:  KindInvalidRepositoryName,
			Field: "repository.full_name",
			Err:   fmt.Errorf("expected <owner>/<name>, got %q", fullName),
		}
	}

	return Repository{Owner: owner, Name: name}, nil
}

func decodeError(err error) *ParseError {
	var typeErr *json.UnmarshalTypeError

	if errors.As(err, &typeErr) {
		if typeErr.Field == "issue.number" || typeErr.Field == "number" {
			return &ParseError{
				Kind:  KindInvalidIssueNumber,
				Field: "issue.number",
				Err:   err,
			}
		}

		return &ParseError{
			Kind:  KindMalformedJSON,
			Field: typeErr.Field,
			Err:   err,
		}
	}

	return &ParseError{Kind: KindMalformedJSON, Err: err}
}
