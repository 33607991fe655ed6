package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/observability"
)

func survey() *domain.Survey {
	return &domain.Survey{ID: "fb", Steps: []domain.Step{
		{ID: "one", Questions: []domain.Question{{ID: "q1", Type: domain.QuestionText, Rules: domain.Rules{Required: true}}}},
	}}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	m := runtime.NewMachine(runtime.WithLifecycleHooks(metrics.Hooks()))
	ctx := context.Background()

	_, err := m.Init(ctx, survey(), nil)
	require.NoError(t, err)
	_, _ = m.GoNext(ctx, domain.ResponseMap{})
	_, _ = m.GoNext(ctx, domain.ResponseMap{"q1": "Ann"})
	_, _ = m.Reset(ctx)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StepVisits.WithLabelValues("fb", "one")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationFailures.WithLabelValues("fb", "one")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Violations.WithLabelValues("fb", domain.RuleRequired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Completions.WithLabelValues("fb")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Resets.WithLabelValues("fb")))

	count, err := testutil.GatherAndCount(reg, "stepwise_completions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := runtime.NewMachine(runtime.WithLifecycleHooks(observability.LoggingHooks(logger)))
	ctx := context.Background()

	_, err := m.Init(ctx, survey(), nil)
	require.NoError(t, err)
	_, _ = m.GoNext(ctx, domain.ResponseMap{})

	out := buf.String()
	assert.Contains(t, out, "msg=step_enter")
	assert.Contains(t, out, "msg=validation_failed")
	assert.True(t, strings.Contains(out, "q1:required"))
}
