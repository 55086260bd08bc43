package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/github-comment/internal/cfg"
	"github.com/simplesurance/github-comment/internal/githubclt"
	"github.com/simplesurance/github-comment/internal/logfields"
	"github.com/simplesurance/github-comment/internal/metrics"
)

const appName = "github-comment"

const (
	githubTokenEnv  = "GITHUB_COMMENT_TOKEN"
	triggerTokenEnv = "GITLAB_TRIGGER_TOKEN"
)

const (
	exitCodeFailure = 1
	exitCodeUsage   = 2
)

const metricsPushExitPriority = -1

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	exit(exitCodeFailure)
}

// exit runs the registered goodbye handlers and terminates the process.
func exit(code int) {
	goodbye.Exit(context.Background(), code)
}

func panicHandler() {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Info(
				"panic caught , terminating gracefully",
				zap.String("panic", fmt.Sprintf("%v", r)),
				zap.StackSkip("stacktrace", 1),
			)
		} else {
			fmt.Fprintf(os.Stderr, "panic caught, terminating: %v\n", r)
		}

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, exitCodeFailure)
	}
}

type arguments struct {
	Verbose     *bool
	ConfigFile  *string
	ShowVersion *bool
}

var args arguments

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... COMMAND [COMMAND-OPTION]...\n", appName)
	fmt.Fprintf(os.Stderr, "Post comments to GitHub pull requests and relay bot commands from issue comments to GitLab pipelines.\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  write          create or update a tagged comment in the pull request of a commit\n")
	fmt.Fprintf(os.Stderr, "  read-command   relay bot commands of an issue_comment webhook to pipeline triggers\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	pflag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
	fmt.Fprintf(os.Stderr, "  %s   GitHub API token\n", githubTokenEnv)
	fmt.Fprintf(os.Stderr, "  %s   GitLab pipeline trigger token, used by read-command\n", triggerTokenEnv)
}

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			"",
			"path to an optional configuration file",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
	}

	pflag.Usage = usage
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	if *args.ConfigFile == "" {
		return cfg.Default()
	}

	file, err := os.Open(*args.ConfigFile)
	exitOnErr("could not open configuration file", err)
	defer file.Close()

	config, err := cfg.Load(file)
	exitOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stderr,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stderr"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(exitCodeUsage)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(exitCodeUsage)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		// syncing stderr fails with EINVAL or ENOTTY on some systems
		if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	})
}

func registerMetricsPush(config *cfg.Config, collector *metrics.Collector) {
	if config.Metrics.PushgatewayURL == "" {
		return
	}

	// must run before the log flushing handler (priority 0), handlers
	// with a lower priority are executed first
	goodbye.RegisterWithPriority(func(ctx context.Context, _ os.Signal) {
		ctx, cancelFn := context.WithTimeout(ctx, 30*time.Second)
		defer cancelFn()

		collector.Push(ctx, config.Metrics.PushgatewayURL, config.Metrics.Job)
	}, metricsPushExitPriority)
}

func newGithubClient(config *cfg.Config, token string) *githubclt.Client {
	var opts []githubclt.Option

	if config.GithubAPIURL != "" {
		opts = append(opts, githubclt.WithEnterpriseURLs(config.GithubAPIURL, config.GithubGraphQLURL))
	}

	clt, err := githubclt.New(token, opts...)
	exitOnErr("could not create github client", err)

	return clt
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func main() {
	defer panicHandler()

	defer exit(exitCodeFailure)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	if pflag.NArg() == 0 {
		usage()
		os.Exit(exitCodeUsage)
	}

	config := mustParseCfg()

	mustInitLogger(config)

	githubToken := os.Getenv(githubTokenEnv)

	logger.Debug(
		"loaded cfg",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("github_api_url", config.GithubAPIURL),
		zap.String("github_api_token", hide(githubToken)),
		zap.String("gitlab_instance", config.Relay.GitLabInstance),
		zap.String("relay_convention", config.Relay.Convention),
		zap.String("pushgateway_url", config.Metrics.PushgatewayURL),
		zap.String("log_format", config.LogFormat),
		zap.String("log_level", config.LogLevel),
	)

	collector := metrics.NewCollector()
	registerMetricsPush(config, collector)

	ctx := context.Background()

	cmdArgs := pflag.Args()
	switch cmdArgs[0] {
	case "write":
		runWrite(ctx, config, collector, githubToken, cmdArgs[1:])
	case "read-command":
		runReadCommand(ctx, config, collector, githubToken, cmdArgs[1:])
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown command: %q\n\n", cmdArgs[0])
		usage()
		exit(exitCodeUsage)
	}

	exit(0)
}
