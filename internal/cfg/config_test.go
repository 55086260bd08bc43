package cfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleCfg = `
log_format = "json"
log_level = "debug"

[relay]
gitlab_instance = "https://gitlab.example.com"
project = "mirror/reponame"
convention = "joined"

[metrics]
pushgateway_url = "http://pushgateway:9091"

[[bot]]
name = "ci-bot"
filter_query = ".issue.pull_request != null"

[[bot]]
name = "deploy-bot"
`

func TestLoad(t *testing.T) {
	config, err := Load(strings.NewReader(exampleCfg))
	require.NoError(t, err)

	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, DefLogTimeKey, config.LogTimeKey)
	assert.Equal(t, "https://gitlab.example.com", config.Relay.GitLabInstance)
	assert.Equal(t, "mirror/reponame", config.Relay.Project)
	assert.Equal(t, RelayConventionJoined, config.Relay.Convention)
	assert.Equal(t, "http://pushgateway:9091", config.Metrics.PushgatewayURL)
	assert.Equal(t, DefMetricsJob, config.Metrics.Job)

	require.Len(t, config.Bots, 2)
	assert.Equal(t, &Bot{Name: "ci-bot", FilterQuery: ".issue.pull_request != null"}, config.Bots[0])
	assert.Equal(t, &Bot{Name: "deploy-bot"}, config.Bots[1])
}

func TestLoadEmptyAppliesDefaults(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, Default(), config)
}

func TestLoadInvalid(t *testing.T) {
	testcases := map[string]string{
		"invalidToml":       `log_format = `,
		"invalidLogFormat":  `log_format = "xml"`,
		"invalidConvention": "[relay]\nconvention = \"concat\"",
		"botWithoutName":    "[[bot]]\nfilter_query = \"true\"",
	}

	for name, data := range testcases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadDerivesGraphQLURL(t *testing.T) {
	config, err := Load(strings.NewReader(`github_api_url = "https://github.example.com/api/v3/"`))
	require.NoError(t, err)

	assert.Equal(t, "https://github.example.com/api/graphql", config.GithubGraphQLURL)
}
