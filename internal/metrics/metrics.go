// Package metrics collects prometheus metrics of a single invocation and
// pushes them to a prometheus pushgateway.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"github.com/simplesurance/github-comment/internal/logfields"
)

const loggerName = "metrics"

const metricNamespace = "github_comment"

const (
	extractedCommandsMetricName = "extracted_commands_total"
	relayedCommandsMetricName   = "relayed_commands_total"
	gateOutcomesMetricName      = "gate_outcomes_total"
	writtenCommentsMetricName   = "written_comments_total"
)

const (
	botLabel        = "bot"
	resultLabel     = "result"
	outcomeLabel    = "outcome"
	operationLabel  = "operation"
	repositoryLabel = "repository"
)

const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultFiltered = "filtered"
)

const (
	OutcomeAccepted         = "accepted"
	OutcomeSelfTriggered    = "self_triggered"
	OutcomeDeleted          = "deleted"
	OutcomePermissionDenied = "permission_denied"
)

// Collector holds the metrics of the process in a dedicated registry.
type Collector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	extractedCommands *prometheus.CounterVec
	relayedCommands   *prometheus.CounterVec
	gateOutcomes      *prometheus.CounterVec
	writtenComments   *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		logger:   zap.L().Named(loggerName),
		registry: reg,
		extractedCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      extractedCommandsMetricName,
				Help:      "count of commands extracted from issue comments",
			},
			[]string{repositoryLabel, botLabel},
		),
		relayedCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      relayedCommandsMetricName,
				Help:      "count of commands forwarded to pipeline triggers",
			},
			[]string{repositoryLabel, botLabel, resultLabel},
		),
		gateOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      gateOutcomesMetricName,
				Help:      "count of issue comment webhooks by their authorization outcome",
			},
			[]string{repositoryLabel, outcomeLabel},
		),
		writtenComments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      writtenCommentsMetricName,
				Help:      "count of pull request comment write operations",
			},
			[]string{repositoryLabel, operationLabel},
		),
	}
}

func (c *Collector) CommandExtracted(repository, bot string) {
	c.extractedCommands.WithLabelValues(repository, bot).Inc()
}

func (c *Collector) CommandRelayed(repository, bot, result string) {
	c.relayedCommands.WithLabelValues(repository, bot, result).Inc()
}

func (c *Collector) GateOutcome(repository, outcome string) {
	c.gateOutcomes.WithLabelValues(repository, outcome).Inc()
}

func (c *Collector) CommentWritten(repository, operation string) {
	c.writtenComments.WithLabelValues(repository, operation).Inc()
}

// Registry returns the registry that contains all metrics of the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Push sends all metrics to the pushgateway at url, grouped by job.
// Errors are logged and not returned, metrics are best effort.
func (c *Collector) Push(ctx context.Context, url, job string) {
	logger := c.logger.With(
		zap.String("pushgateway_url", url),
		zap.String("job", job),
	)

	err := push.New(url, job).Gatherer(c.registry).PushContext(ctx)
	if err != nil {
		logger.Warn(
			"pushing metrics failed",
			logfields.Event("metrics_push_failed"),
			zap.Error(err),
		)
		return
	}

	logger.Debug("metrics pushed", logfields.Event("metrics_pushed"))
}
