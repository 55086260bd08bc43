package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/github-comment/internal/cfg"
	"github.com/simplesurance/github-comment/internal/command"
)

const triggerToken = "glptt-123"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(
		m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type recordedRequest struct {
	method      string
	path        string
	contentType string
	form        url.Values
}

func startGitLabServer(t *testing.T, status int, respBody string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var reqs []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		reqs = append(reqs, recordedRequest{
			method:      r.Method,
			path:        r.URL.EscapedPath(),
			contentType: r.Header.Get("Content-Type"),
			form:        r.PostForm,
		})

		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	return srv, &reqs
}

func newRequest() *Request {
	return &Request{
		Branch:      "feature",
		Command:     command.BotCommand{Bot: "bot", Command: "deploy", Args: "prod eu"},
		CommentID:   "4242424242",
		PullRequest: 3,
	}
}

func TestRunSplitConvention(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	srv, reqs := startGitLabServer(t, http.StatusCreated, `{"id":1001,"status":"created"}`)

	trigger, err := NewTrigger(srv.URL, "namespace/reponame", triggerToken, cfg.RelayConventionSplit)
	require.NoError(t, err)

	resp, err := trigger.Run(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"id":1001,"status":"created"}`, resp)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/v4/projects/namespace%2Freponame/trigger/pipeline", req.path)
	assert.Equal(t, "application/x-www-form-urlencoded", req.contentType)
	assert.Equal(t, triggerToken, req.form.Get("token"))
	assert.Equal(t, "feature", req.form.Get("ref"))
	assert.Equal(t, "bot", req.form.Get("variables[BOT]"))
	assert.Equal(t, "deploy", req.form.Get("variables[COMMAND]"))
	assert.Equal(t, "prod eu", req.form.Get("variables[ARGS]"))
	assert.Equal(t, "4242424242", req.form.Get("variables[COMMENT_ID]"))
	assert.Equal(t, "3", req.form.Get("variables[PULL_REQUEST]"))
}

func TestRunJoinedConvention(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	srv, reqs := startGitLabServer(t, http.StatusCreated, `{}`)

	trigger, err := NewTrigger(srv.URL+"/", "namespace/reponame", triggerToken, cfg.RelayConventionJoined)
	require.NoError(t, err)

	_, err = trigger.Run(context.Background(), newRequest())
	require.NoError(t, err)

	noArgs := newRequest()
	noArgs.Command.Args = ""
	_, err = trigger.Run(context.Background(), noArgs)
	require.NoError(t, err)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "/api/v4/projects/namespace%2Freponame/trigger/pipeline", (*reqs)[0].path)
	assert.Equal(t, "deploy prod eu", (*reqs)[0].form.Get("variables[COMMAND]"))
	assert.Equal(t, "", (*reqs)[0].form.Get("variables[ARGS]"))
	assert.Equal(t, "deploy", (*reqs)[1].form.Get("variables[COMMAND]"))
}

func TestRunErrorStatus(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	srv, _ := startGitLabServer(t, http.StatusNotFound, `{"message":"404 Not Found"}`)

	trigger, err := NewTrigger(srv.URL, "namespace/reponame", triggerToken, cfg.RelayConventionSplit)
	require.NoError(t, err)

	_, err = trigger.Run(context.Background(), newRequest())
	require.Error(t, err)

	var httpErr *ErrorHTTPRequest
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, `{"message":"404 Not Found"}`, string(httpErr.Body))
}

func TestNewTriggerInvalidParameters(t *testing.T) {
	testcases := map[string][]string{
		"emptyInstance":       {"", "p", triggerToken, cfg.RelayConventionSplit},
		"instanceNoScheme":    {"gitlab.com", "p", triggerToken, cfg.RelayConventionSplit},
		"emptyProject":        {"https://gitlab.com", "", triggerToken, cfg.RelayConventionSplit},
		"emptyToken":          {"https://gitlab.com", "p", "", cfg.RelayConventionSplit},
		"unknownConvention":   {"https://gitlab.com", "p", triggerToken, "concat"},
		"emptyConventionName": {"https://gitlab.com", "p", triggerToken, ""},
	}

	for name, params := range testcases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTrigger(params[0], params[1], params[2], params[3])
			assert.Error(t, err)
		})
	}
}
