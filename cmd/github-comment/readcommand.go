package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/simplesurance/github-comment/internal/bot"
	"github.com/simplesurance/github-comment/internal/cfg"
	"github.com/simplesurance/github-comment/internal/command"
	"github.com/simplesurance/github-comment/internal/logfields"
	"github.com/simplesurance/github-comment/internal/metrics"
	"github.com/simplesurance/github-comment/internal/readcommand"
	"github.com/simplesurance/github-comment/internal/relay"
	"github.com/simplesurance/github-comment/internal/webhook"
)

type readCommandArguments struct {
	Webhook         *string
	Bots            *[]string
	GitLabInstance  *string
	GitLabProject   *string
	JobToken        *string
	RelayConvention *string
	DryRun          *bool
}

func parseReadCommandArgs(cmdArgs []string) *readCommandArguments {
	flags := pflag.NewFlagSet("read-command", pflag.ContinueOnError)

	rargs := readCommandArguments{
		Webhook: flags.String(
			"webhook", "",
			"file containing the issue_comment webhook JSON document",
		),
		Bots: flags.StringArray(
			"bot", nil,
			"name of a bot that commands can be addressed to, can be specified multiple times",
		),
		GitLabInstance: flags.String(
			"gl-instance", "",
			"URL of the GitLab instance, overwrites relay.gitlab_instance of the config file",
		),
		GitLabProject: flags.String(
			"project", "",
			"GitLab project path, overwrites relay.project of the config file (default: <owner>/<repo> of the webhook)",
		),
		JobToken: flags.String(
			"job-token", "",
			fmt.Sprintf("GitLab pipeline trigger token (default: $%s)", triggerTokenEnv),
		),
		RelayConvention: flags.String(
			"relay-convention", "",
			"how commands are passed to pipelines: split or joined, overwrites relay.convention of the config file",
		),
		DryRun: flags.Bool(
			"dry-run", false,
			"only log the extracted commands, do not relay them",
		),
	}

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s read-command --webhook FILE --bot NAME [OPTION]...\n", appName)
		fmt.Fprintf(os.Stderr, "Relay commands addressed to bots in an issue comment to GitLab pipeline triggers.\n")
		fmt.Fprintf(os.Stderr, "Lines starting with '@<bot> <command> [<args>]' are commands.\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(cmdArgs); err != nil {
		exit(exitCodeUsage)
	}

	if *rargs.Webhook == "" && flags.NArg() == 1 {
		*rargs.Webhook = flags.Arg(0)
	} else if flags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "ERROR: unexpected arguments: %q\n\n", flags.Args())
		flags.Usage()
		exit(exitCodeUsage)
	}

	if *rargs.Webhook == "" {
		fmt.Fprintf(os.Stderr, "ERROR: --webhook must be set\n\n")
		flags.Usage()
		exit(exitCodeUsage)
	}

	return &rargs
}

// applyRelayArgs overwrites relay settings of config with the values passed
// as command-line arguments.
func applyRelayArgs(config *cfg.Config, rargs *readCommandArguments) {
	if *rargs.GitLabInstance != "" {
		config.Relay.GitLabInstance = *rargs.GitLabInstance
	}

	if *rargs.GitLabProject != "" {
		config.Relay.Project = *rargs.GitLabProject
	}

	if *rargs.RelayConvention != "" {
		config.Relay.Convention = *rargs.RelayConvention
	}
}

// lazyTrigger creates the relay trigger when the first command is relayed.
// Invocations that do not relay anything do not need a trigger token.
type lazyTrigger struct {
	newFn   func() (*relay.Trigger, error)
	trigger *relay.Trigger
}

func (l *lazyTrigger) Run(ctx context.Context, req *relay.Request) (string, error) {
	if l.trigger == nil {
		t, err := l.newFn()
		if err != nil {
			return "", err
		}

		l.trigger = t
	}

	return l.trigger.Run(ctx, req)
}

func runReadCommand(ctx context.Context, config *cfg.Config, collector *metrics.Collector, githubToken string, cmdArgs []string) {
	rargs := parseReadCommandArgs(cmdArgs)
	applyRelayArgs(config, rargs)

	bots, err := bot.FromCfg(config.Bots, *rargs.Bots)
	exitOnErr("invalid bot definition", err)

	if len(bots) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: no bots defined, specify them via --bot or the configuration file\n")
		exit(exitCodeUsage)
	}

	if githubToken == "" && !*rargs.DryRun {
		exitOnErr("missing github api token", fmt.Errorf("%s environment variable must contain a GitHub API token", githubTokenEnv))
	}

	ev, err := webhook.ParseFile(*rargs.Webhook)
	exitOnErr("failed to read issue_comment webhook", err)

	logger.Debug(
		"parsed webhook",
		logfields.Event("webhook_parsed"),
		zap.String("webhook_file", *rargs.Webhook),
		zap.Stringer("webhook_event", &ev),
		zap.String("bots", bots.String()),
	)

	project := config.Relay.Project
	if project == "" {
		project = ev.Repository.String()
	}

	runner := lazyTrigger{newFn: func() (*relay.Trigger, error) {
		token := *rargs.JobToken
		if token == "" {
			token = os.Getenv(triggerTokenEnv)
		}

		return relay.NewTrigger(config.Relay.GitLabInstance, project, token, config.Relay.Convention)
	}}

	opts := []readcommand.Option{readcommand.WithMetrics(collector)}
	if *rargs.DryRun {
		opts = append(opts, readcommand.WithDryRun())
	}

	processor := readcommand.New(
		bots,
		newGithubClient(config, githubToken),
		&runner,
		os.Stdout,
		opts...,
	)

	summary, err := processor.Process(ctx, &ev)
	if err != nil {
		var permErr *command.PermissionDeniedError
		if errors.As(err, &permErr) {
			fmt.Fprintln(os.Stderr, "ERROR:", err.Error())
			exit(exitCodeFailure)
		}

		exitOnErr("processing issue comment failed", err)
	}

	logger.Info(
		"finished processing issue comment",
		logfields.Event("read_command_finished"),
		zap.Int("commands", len(summary.Commands)),
		zap.Int("commands_filtered", summary.Filtered),
		zap.Int("commands_relayed", summary.Relayed),
	)
}
