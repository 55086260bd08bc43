package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/simplesurance/github-comment/internal/cfg"
	"github.com/simplesurance/github-comment/internal/logfields"
	"github.com/simplesurance/github-comment/internal/metrics"
	"github.com/simplesurance/github-comment/internal/prcomment"
)

type writeArguments struct {
	Owner  *string
	Repo   *string
	Commit *string
	ID     *string
}

func parseWriteArgs(cmdArgs []string) (*writeArguments, string) {
	flags := pflag.NewFlagSet("write", pflag.ContinueOnError)

	wargs := writeArguments{
		Owner:  flags.String("owner", "", "owner of the repository to post the comment to"),
		Repo:   flags.String("repo", "", "repository to post the comment to"),
		Commit: flags.String("commit", "", "commit that identifies the pull request"),
		ID:     flags.String("id", "", "ID of the comment that is embedded into the comment body"),
	}

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s write --owner OWNER --repo REPO --commit SHA --id ID TEXT_FILE\n", appName)
		fmt.Fprintf(os.Stderr, "Post or update a comment in the open pull request that contains the commit.\n")
		fmt.Fprintf(os.Stderr, "If a comment tagged with ID exists it is updated, otherwise a new comment is created.\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(cmdArgs); err != nil {
		exit(exitCodeUsage)
	}

	for name, val := range map[string]*string{
		"owner":  wargs.Owner,
		"repo":   wargs.Repo,
		"commit": wargs.Commit,
		"id":     wargs.ID,
	} {
		if *val == "" {
			fmt.Fprintf(os.Stderr, "ERROR: --%s must be set\n\n", name)
			flags.Usage()
			exit(exitCodeUsage)
		}
	}

	if flags.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "ERROR: expecting exactly 1 TEXT_FILE argument, got %d\n\n", flags.NArg())
		flags.Usage()
		exit(exitCodeUsage)
	}

	return &wargs, flags.Arg(0)
}

func runWrite(ctx context.Context, config *cfg.Config, collector *metrics.Collector, githubToken string, cmdArgs []string) {
	wargs, textFile := parseWriteArgs(cmdArgs)

	if githubToken == "" {
		exitOnErr("missing github api token", fmt.Errorf("%s environment variable must contain a GitHub API token", githubTokenEnv))
	}

	text, err := os.ReadFile(textFile)
	exitOnErr(fmt.Sprintf("failed to read comment text from file '%s'", textFile), err)

	writer := prcomment.NewWriter(newGithubClient(config, githubToken))

	res, err := writer.Write(ctx, *wargs.Owner, *wargs.Repo, *wargs.Commit, *wargs.ID, string(text))
	exitOnErr("writing pull request comment failed", err)

	collector.CommentWritten(*wargs.Owner+"/"+*wargs.Repo, string(res.Operation))

	logger.Info(
		fmt.Sprintf("comment #%d %s", res.CommentID, res.Operation),
		logfields.Event("write_finished"),
		logfields.PullRequest(res.PullRequest),
		zap.Int64("github.comment_id", res.CommentID),
	)
}
