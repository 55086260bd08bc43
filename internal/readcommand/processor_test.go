package readcommand

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/github-comment/internal/bot"
	"github.com/simplesurance/github-comment/internal/cfg"
	"github.com/simplesurance/github-comment/internal/command"
	"github.com/simplesurance/github-comment/internal/metrics"
	"github.com/simplesurance/github-comment/internal/relay"
	"github.com/simplesurance/github-comment/internal/webhook"
)

type branchResolverStub struct {
	branch string
	err    error
	calls  int
}

func (b *branchResolverStub) PullRequestBranch(_ context.Context, owner, repo string, prNumber int) (string, error) {
	b.calls++
	if owner != "namespace" || repo != "reponame" || prNumber != 3 {
		return "", errors.New("unexpected pull request")
	}

	return b.branch, b.err
}

type runnerStub struct {
	requests []*relay.Request
	failAt   int
}

func (r *runnerStub) Run(_ context.Context, req *relay.Request) (string, error) {
	r.requests = append(r.requests, req)
	if r.failAt > 0 && len(r.requests) == r.failAt {
		return "", &relay.ErrorHTTPRequest{Status: 500, Body: []byte("internal error")}
	}

	return `{"status":"created"}`, nil
}

func mustParseEvent(t *testing.T) *webhook.Event {
	t.Helper()

	ev, err := webhook.ParseFile("../webhook/testdata/issue_comment.json")
	require.NoError(t, err)

	ev.CommentBody = "@bot test_command test2\r\n@bot2 command2 3\r\nthis is a reponame"

	return &ev
}

func mustBots(t *testing.T, botsCfg []*cfg.Bot, names ...string) bot.Bots {
	t.Helper()

	bots, err := bot.FromCfg(botsCfg, names)
	require.NoError(t, err)

	return bots
}

func setupLogger(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
}

func TestProcessRelaysCommandsInOrder(t *testing.T) {
	setupLogger(t)

	var out bytes.Buffer
	branches := branchResolverStub{branch: "feature"}
	runner := runnerStub{}
	collector := metrics.NewCollector()

	p := New(mustBots(t, nil, "bot", "bot2"), &branches, &runner, &out, WithMetrics(collector))

	summary, err := p.Process(context.Background(), mustParseEvent(t))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Relayed)
	assert.Equal(t, 0, summary.Filtered)
	assert.Equal(t, 1, branches.calls)

	require.Len(t, runner.requests, 2)
	assert.Equal(t, &relay.Request{
		Branch:      "feature",
		Command:     command.BotCommand{Bot: "bot", Command: "test_command", Args: "test2"},
		CommentID:   "4242424242",
		PullRequest: 3,
	}, runner.requests[0])
	assert.Equal(t, command.BotCommand{Bot: "bot2", Command: "command2", Args: "3"}, runner.requests[1].Command)

	assert.Equal(t,
		"Pipeline response for command @bot test_command test2:\n{\"status\":\"created\"}\n"+
			"Pipeline response for command @bot2 command2 3:\n{\"status\":\"created\"}\n",
		out.String(),
	)

	count, err := testutil.GatherAndCount(collector.Registry(), "github_comment_relayed_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProcessAbortsOnFirstFailure(t *testing.T) {
	setupLogger(t)

	var out bytes.Buffer
	runner := runnerStub{failAt: 1}

	p := New(mustBots(t, nil, "bot", "bot2"), &branchResolverStub{branch: "feature"}, &runner, &out)

	_, err := p.Process(context.Background(), mustParseEvent(t))
	require.Error(t, err)

	var httpErr *relay.ErrorHTTPRequest
	assert.ErrorAs(t, err, &httpErr)
	assert.Len(t, runner.requests, 1)
	assert.Empty(t, out.String())
}

func TestProcessPermissionDenied(t *testing.T) {
	setupLogger(t)

	runner := runnerStub{}
	branches := branchResolverStub{}
	ev := mustParseEvent(t)
	ev.AuthorAssociation = "CONTRIBUTOR"

	p := New(mustBots(t, nil, "bot"), &branches, &runner, &bytes.Buffer{})

	_, err := p.Process(context.Background(), ev)

	var permErr *command.PermissionDeniedError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, "CONTRIBUTOR", permErr.Association)
	assert.Empty(t, runner.requests)
	assert.Zero(t, branches.calls)
}

func TestProcessNoActionOutcomes(t *testing.T) {
	type testcase struct {
		name   string
		modify func(*webhook.Event)
	}

	testcases := []testcase{
		{
			name:   "deleted",
			modify: func(ev *webhook.Event) { ev.Action = "deleted" },
		},
		{
			name:   "selfTriggered",
			modify: func(ev *webhook.Event) { ev.AuthorLogin = "bot2" },
		},
		{
			name:   "noCommands",
			modify: func(ev *webhook.Event) { ev.CommentBody = "LGTM" },
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			setupLogger(t)

			runner := runnerStub{}
			branches := branchResolverStub{}
			ev := mustParseEvent(t)
			tc.modify(ev)

			p := New(mustBots(t, nil, "bot", "bot2"), &branches, &runner, &bytes.Buffer{})

			summary, err := p.Process(context.Background(), ev)
			require.NoError(t, err)
			assert.Empty(t, summary.Commands)
			assert.Zero(t, summary.Relayed)
			assert.Empty(t, runner.requests)
			assert.Zero(t, branches.calls)
		})
	}
}

func TestProcessFilterQuery(t *testing.T) {
	setupLogger(t)

	runner := runnerStub{}
	bots := mustBots(t, []*cfg.Bot{
		{Name: "bot", FilterQuery: `.repository.full_name == "namespace/reponame"`},
		{Name: "bot2", FilterQuery: ".issue.pull_request == null"},
	})

	p := New(bots, &branchResolverStub{branch: "feature"}, &runner, &bytes.Buffer{})

	summary, err := p.Process(context.Background(), mustParseEvent(t))
	require.NoError(t, err)

	assert.Len(t, summary.Commands, 2)
	assert.Equal(t, 1, summary.Filtered)
	assert.Equal(t, 1, summary.Relayed)
	require.Len(t, runner.requests, 1)
	assert.Equal(t, "bot", runner.requests[0].Command.Bot)
}

func TestProcessInvalidFilterResult(t *testing.T) {
	setupLogger(t)

	runner := runnerStub{}
	bots := mustBots(t, []*cfg.Bot{{Name: "bot", FilterQuery: ".repository.full_name"}})

	p := New(bots, &branchResolverStub{branch: "feature"}, &runner, &bytes.Buffer{})

	_, err := p.Process(context.Background(), mustParseEvent(t))
	assert.Error(t, err)
	assert.Empty(t, runner.requests)
}

func TestProcessDryRun(t *testing.T) {
	setupLogger(t)

	branches := branchResolverStub{}

	p := New(mustBots(t, nil, "bot", "bot2"), &branches, nil, &bytes.Buffer{}, WithDryRun())

	summary, err := p.Process(context.Background(), mustParseEvent(t))
	require.NoError(t, err)
	assert.Len(t, summary.Commands, 2)
	assert.Zero(t, summary.Relayed)
	assert.Zero(t, branches.calls)
}

func TestProcessBranchLookupFails(t *testing.T) {
	setupLogger(t)

	runner := runnerStub{}
	branches := branchResolverStub{err: errors.New("not a pull request")}

	p := New(mustBots(t, nil, "bot"), &branches, &runner, &bytes.Buffer{})

	_, err := p.Process(context.Background(), mustParseEvent(t))
	assert.Error(t, err)
	assert.Empty(t, runner.requests)
}
