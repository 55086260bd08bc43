// Package relay forwards bot commands to GitLab CI pipeline triggers.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/github-comment/internal/cfg"
	"github.com/simplesurance/github-comment/internal/command"
	"github.com/simplesurance/github-comment/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "relay"

// Names of the CI variables that are passed to the triggered pipeline.
const (
	VarBot         = "BOT"
	VarCommand     = "COMMAND"
	VarArgs        = "ARGS"
	VarCommentID   = "COMMENT_ID"
	VarPullRequest = "PULL_REQUEST"
)

// Request is a single pipeline trigger.
type Request struct {
	// Branch is the git ref the pipeline runs for.
	Branch      string
	Command     command.BotCommand
	CommentID   string
	PullRequest uint64
}

// Trigger sends pipeline trigger requests to the GitLab API.
type Trigger struct {
	endpoint   string
	token      string
	convention string
	client     *http.Client
	logger     *zap.Logger
}

// NewTrigger returns a Trigger for the pipeline triggers of project on the
// GitLab instance. convention is one of cfg.RelayConventionSplit and
// cfg.RelayConventionJoined.
// The HTTPClient of the trigger uses a timeout of DefaultHTTPClientTimeout.
func NewTrigger(instance, project, token, convention string) (*Trigger, error) {
	if instance == "" {
		return nil, errors.New("gitlab instance url is empty")
	}

	if project == "" {
		return nil, errors.New("gitlab project is empty")
	}

	if token == "" {
		return nil, errors.New("pipeline trigger token is empty")
	}

	switch convention {
	case cfg.RelayConventionSplit, cfg.RelayConventionJoined:
	default:
		return nil, fmt.Errorf("unsupported relay convention: %q", convention)
	}

	u, err := url.Parse(instance)
	if err != nil {
		return nil, fmt.Errorf("parsing gitlab instance url failed: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gitlab instance url %q must contain a scheme and host", instance)
	}

	return &Trigger{
		endpoint: fmt.Sprintf(
			"%s/api/v4/projects/%s/trigger/pipeline",
			strings.TrimSuffix(instance, "/"), url.PathEscape(project),
		),
		token:      token,
		convention: convention,
		client: &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		},
		logger: zap.L().Named(loggerName),
	}, nil
}

func (t *Trigger) formValues(req *Request) url.Values {
	vals := url.Values{}
	vals.Set("token", t.token)
	vals.Set("ref", req.Branch)
	vals.Set(variable(VarBot), req.Command.Bot)
	vals.Set(variable(VarCommentID), req.CommentID)
	vals.Set(variable(VarPullRequest), strconv.FormatUint(req.PullRequest, 10))

	if t.convention == cfg.RelayConventionJoined {
		cmd := req.Command.Command
		if req.Command.Args != "" {
			cmd += " " + req.Command.Args
		}

		vals.Set(variable(VarCommand), cmd)
		vals.Set(variable(VarArgs), "")

		return vals
	}

	vals.Set(variable(VarCommand), req.Command.Command)
	vals.Set(variable(VarArgs), req.Command.Args)

	return vals
}

func variable(name string) string {
	return "variables[" + name + "]"
}

// Run sends the trigger request and returns the response body.
// It returns an ErrorHTTPRequest if the response has a non-2xx status code.
func (t *Trigger) Run(ctx context.Context, req *Request) (string, error) {
	logger := t.logger.With(t.LogFields(req)...)

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, t.endpoint,
		strings.NewReader(t.formValues(req).Encode()),
	)
	if err != nil {
		return "", err
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn(
			"reading http response body failed",
			logfields.Event("http_post_reading_response_body_failed"),
			zap.Int("http_response_code", resp.StatusCode),
			zap.Error(err),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ErrorHTTPRequest{
			Body:   body,
			Status: resp.StatusCode,
		}
	}

	logger.Debug(
		fmt.Sprintf("http response: %s", string(body)),
		logfields.Event("http_post_request_sent"),
		zap.Int("http_response_code", resp.StatusCode),
	)

	return string(body), nil
}

// LogFields returns fields that should be used when logging messages related
// to the trigger request.
func (t *Trigger) LogFields(req *Request) []zap.Field {
	return []zap.Field{
		zap.String("action", "pipeline_trigger"),
		zap.String("http_url", t.endpoint),
		logfields.Branch(req.Branch),
		logfields.Bot(req.Command.Bot),
		logfields.Command(req.Command.Command),
		logfields.CommandArgs(req.Command.Args),
		zap.String("relay_convention", t.convention),
	}
}
