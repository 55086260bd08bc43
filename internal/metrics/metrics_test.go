package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestCounters(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	c := NewCollector()

	c.CommandExtracted("namespace/reponame", "bot")
	c.CommandExtracted("namespace/reponame", "bot")
	c.CommandRelayed("namespace/reponame", "bot", ResultSuccess)
	c.GateOutcome("namespace/reponame", OutcomePermissionDenied)
	c.CommentWritten("namespace/reponame", "created")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.extractedCommands.WithLabelValues("namespace/reponame", "bot")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.relayedCommands.WithLabelValues("namespace/reponame", "bot", ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.gateOutcomes.WithLabelValues("namespace/reponame", OutcomePermissionDenied)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.writtenComments.WithLabelValues("namespace/reponame", "created")))

	count, err := testutil.GatherAndCount(c.Registry())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestPush(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	var (
		method string
		path   string
		body   []byte
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path

		var err error
		body, err = io.ReadAll(r.Body)
		assert.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewCollector()
	c.CommandExtracted("namespace/reponame", "bot")

	c.Push(context.Background(), srv.URL, "github-comment")

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/github-comment", path)
	assert.NotEmpty(t, body)
}

func TestPushFailureIsNotFatal(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewCollector()
	assert.NotPanics(t, func() {
		c.Push(context.Background(), srv.URL, "github-comment")
	})
}
