package cfg

import (
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml"
)

const (
	RelayConventionSplit  = "split"
	RelayConventionJoined = "joined"
)

const (
	DefLogFormat      = "logfmt"
	DefLogTimeKey     = "time"
	DefLogLevel       = "info"
	DefGitLabInstance = "https://gitlab.com"
	DefMetricsJob     = "github-comment"
)

type Config struct {
	LogFormat    string `toml:"log_format"`
	LogTimeKey   string `toml:"log_time_key"`
	LogLevel     string `toml:"log_level"`
	GithubAPIURL string `toml:"github_api_url"`
	// GithubGraphQLURL is derived from GithubAPIURL when it is unset.
	GithubGraphQLURL string  `toml:"github_graphql_url"`
	Relay            Relay   `toml:"relay"`
	Metrics          Metrics `toml:"metrics"`
	Bots             []*Bot  `toml:"bot"`
}

// Relay configures how commands are forwarded to GitLab pipeline triggers.
type Relay struct {
	GitLabInstance string `toml:"gitlab_instance"`
	// Project is the GitLab project path, if empty the owner and
	// name of the GitHub repository are used.
	Project    string `toml:"project"`
	Convention string `toml:"convention"`
}

type Metrics struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

type Bot struct {
	Name        string `toml:"name"`
	FilterQuery string `toml:"filter_query"`
}

// Default returns a configuration with default values, it is used when no
// configuration file is specified.
func Default() *Config {
	var result Config
	result.setDefaults()

	return &result
}

func (c *Config) setDefaults() {
	if c.LogFormat == "" {
		c.LogFormat = DefLogFormat
	}

	if c.LogTimeKey == "" {
		c.LogTimeKey = DefLogTimeKey
	}

	if c.LogLevel == "" {
		c.LogLevel = DefLogLevel
	}

	if c.GithubAPIURL != "" && c.GithubGraphQLURL == "" {
		c.GithubGraphQLURL = strings.TrimSuffix(strings.TrimSuffix(c.GithubAPIURL, "/"), "/v3") + "/graphql"
	}

	if c.Relay.GitLabInstance == "" {
		c.Relay.GitLabInstance = DefGitLabInstance
	}

	if c.Relay.Convention == "" {
		c.Relay.Convention = RelayConventionSplit
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = DefMetricsJob
	}
}

// Validate returns an error if a configuration value is invalid.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "logfmt", "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value: %q", c.LogFormat)
	}

	switch c.Relay.Convention {
	case RelayConventionSplit, RelayConventionJoined:
	default:
		return fmt.Errorf("relay.convention: unsupported value: %q", c.Relay.Convention)
	}

	for i, b := range c.Bots {
		if b.Name == "" {
			return fmt.Errorf("bot[%d]: missing field: 'name'", i)
		}
	}

	return nil
}

// Load reads a TOML configuration, applies defaults for unset values and
// validates it.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	result.setDefaults()

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return &result, nil
}
