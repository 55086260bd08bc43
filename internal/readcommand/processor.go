// Package readcommand relays the bot commands of an issue_comment webhook to
// pipeline triggers.
package readcommand

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/simplesurance/github-comment/internal/bot"
	"github.com/simplesurance/github-comment/internal/command"
	"github.com/simplesurance/github-comment/internal/logfields"
	"github.com/simplesurance/github-comment/internal/metrics"
	"github.com/simplesurance/github-comment/internal/relay"
	"github.com/simplesurance/github-comment/internal/webhook"
)

const loggerName = "read-command"

// BranchResolver returns the head branch of a pull request.
type BranchResolver interface {
	PullRequestBranch(ctx context.Context, owner, repo string, prNumber int) (string, error)
}

// Runner sends a pipeline trigger request and returns the raw response.
type Runner interface {
	Run(ctx context.Context, req *relay.Request) (string, error)
}

// Summary describes what Process did.
type Summary struct {
	// Commands are the commands extracted from the comment, including
	// the ones that were filtered.
	Commands []command.BotCommand
	Filtered int
	Relayed  int
}

// Processor extracts commands from webhook events and relays them one after
// another.
type Processor struct {
	bots     bot.Bots
	branches BranchResolver
	runner   Runner
	out      io.Writer
	metrics  *metrics.Collector
	logger   *zap.Logger
	dryRun   bool
}

type Option func(*Processor)

// WithDryRun makes Process stop after extracting and filtering the commands.
// No GitHub API or relay calls are made.
func WithDryRun() Option {
	return func(p *Processor) {
		p.dryRun = true
	}
}

// WithMetrics sets the collector that is updated by Process.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Processor) {
		p.metrics = c
	}
}

// New returns a Processor. The response of every relayed command is written
// to out.
func New(bots bot.Bots, branches BranchResolver, runner Runner, out io.Writer, opts ...Option) *Processor {
	p := Processor{
		bots:     bots,
		branches: branches,
		runner:   runner,
		out:      out,
		logger:   zap.L().Named(loggerName),
	}

	for _, o := range opts {
		o(&p)
	}

	if p.metrics == nil {
		p.metrics = metrics.NewCollector()
	}

	return &p
}

// Process relays all commands in the comment of ev that are addressed to
// one of the bots.
//
// Comments written by a bot and deleted comments are ignored, nil is
// returned for them. If the author is not allowed to trigger commands a
// *command.PermissionDeniedError is returned.
// Commands are relayed in the order they were extracted, relaying stops at
// the first failure.
func (p *Processor) Process(ctx context.Context, ev *webhook.Event) (*Summary, error) {
	var summary Summary

	repo := ev.Repository.String()
	names := p.bots.Names()
	logger := p.logger.With(ev.LogFields()...)

	err := command.Check(ev, names)
	switch {
	case err == nil:
		p.metrics.GateOutcome(repo, metrics.OutcomeAccepted)

	case errors.Is(err, command.ErrSelfTriggered):
		p.metrics.GateOutcome(repo, metrics.OutcomeSelfTriggered)
		logger.Info(
			fmt.Sprintf("%s cannot trigger commands, ignoring comment", ev.AuthorLogin),
			logfields.Event("comment_ignored_self_triggered"),
		)
		return &summary, nil

	case errors.Is(err, command.ErrCommentDeleted):
		p.metrics.GateOutcome(repo, metrics.OutcomeDeleted)
		logger.Info("comment deleted, ignoring it", logfields.Event("comment_ignored_deleted"))
		return &summary, nil

	default:
		p.metrics.GateOutcome(repo, metrics.OutcomePermissionDenied)
		logger.Info(
			"permission denied, commenter is not allowed to trigger commands",
			logfields.Event("comment_permission_denied"),
		)
		return nil, err
	}

	summary.Commands = command.Extract(ev, names)
	if len(summary.Commands) == 0 {
		logger.Info("no commands found in comment", logfields.Event("no_commands_found"))
		return &summary, nil
	}

	var toRelay []command.BotCommand

	for _, cmd := range summary.Commands {
		logger := logger.With(logfields.Bot(cmd.Bot), logfields.Command(cmd.Command), logfields.CommandArgs(cmd.Args))

		p.metrics.CommandExtracted(repo, cmd.Bot)

		b := p.bots.Get(cmd.Bot)
		if b == nil {
			return nil, fmt.Errorf("extracted command for unknown bot %q", cmd.Bot)
		}

		match, err := b.Match(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("evaluating filter query of bot %s failed: %w", b, err)
		}

		if match != bot.Match {
			summary.Filtered++
			p.metrics.CommandRelayed(repo, cmd.Bot, metrics.ResultFiltered)
			logger.Info(
				"command skipped, event does not match filter of bot",
				logfields.Event("command_filtered"),
				zap.String("match_result", match.String()),
			)
			continue
		}

		logger.Info("found command", logfields.Event("command_found"))
		toRelay = append(toRelay, cmd)
	}

	if len(toRelay) == 0 || p.dryRun {
		if p.dryRun {
			logger.Info("dry-run, not relaying commands", logfields.Event("dry_run"))
		}

		return &summary, nil
	}

	branch, err := p.branches.PullRequestBranch(ctx, ev.Repository.Owner, ev.Repository.Name, int(ev.IssueNumber))
	if err != nil {
		return nil, err
	}

	logger = logger.With(logfields.Branch(branch))
	logger.Info("found pull request branch", logfields.Event("pull_request_branch_found"))

	for _, cmd := range toRelay {
		logger := logger.With(logfields.Bot(cmd.Bot), logfields.Command(cmd.Command), logfields.CommandArgs(cmd.Args))

		logger.Info("triggering pipeline", logfields.Event("pipeline_triggering"))

		resp, err := p.runner.Run(ctx, &relay.Request{
			Branch:      branch,
			Command:     cmd,
			CommentID:   ev.CommentID,
			PullRequest: ev.IssueNumber,
		})
		if err != nil {
			p.metrics.CommandRelayed(repo, cmd.Bot, metrics.ResultFailure)
			return nil, fmt.Errorf("relaying command %q failed: %w", cmd, err)
		}

		p.metrics.CommandRelayed(repo, cmd.Bot, metrics.ResultSuccess)
		summary.Relayed++

		if _, err := fmt.Fprintf(p.out, "Pipeline response for command %s:\n%s\n", cmd, resp); err != nil {
			return nil, fmt.Errorf("writing pipeline response failed: %w", err)
		}
	}

	return &summary, nil
}
