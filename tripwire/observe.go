package tripwire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nevware21/tripwire-sub002/tripwire/log"
	"github.com/nevware21/tripwire-sub002/tripwire/metrics"
)

// SpanEventAssertionFailed is the event name recorded on spans when an
// assertion fails.
const SpanEventAssertionFailed = "assertion.failed"

// MetricAssertionFailedTotal counts failed assertions.
const MetricAssertionFailedTotal = "tripwire_assertion_failed_total"

var assertionFailedMetric = metrics.Metric{
	Name:        MetricAssertionFailedTotal,
	Unit:        "1",
	Description: "Total number of failed assertions",
}

var (
	metricsFactory   *metrics.Factory
	metricsFactoryMu sync.RWMutex
)

// InitMetrics installs the metrics factory used to count failed assertions.
// It should be called once during application startup after telemetry is
// initialized; subsequent calls are no-ops.
func InitMetrics(factory *metrics.Factory) {
	metricsFactoryMu.Lock()
	defer metricsFactoryMu.Unlock()

	if factory == nil || metricsFactory != nil {
		return
	}

	metricsFactory = factory
}

// ResetMetrics clears the metrics factory singleton (useful for tests).
func ResetMetrics() {
	metricsFactoryMu.Lock()
	defer metricsFactoryMu.Unlock()

	metricsFactory = nil
}

func getMetricsFactory() *metrics.Factory {
	metricsFactoryMu.RLock()
	defer metricsFactoryMu.RUnlock()

	return metricsFactory
}

// observeFailure logs, traces, and counts an assertion failure. Only
// *Failure (and *Fatal) errors are observed; anything else passes through
// untouched.
func (s *Scope) observeFailure(err error) {
	var failure *Failure
	if !errors.As(err, &failure) {
		return
	}

	settings := s.ctx.Settings()
	fatal := IsFatal(err)

	logFailure(s, settings, failure, fatal)
	recordFailureMetric(s.goctx, failure, fatal)
	recordFailureToSpan(s.goctx, failure, fatal, settings.FullStacks)
}

func logFailure(s *Scope, settings *Settings, failure *Failure, fatal bool) {
	logger := settings.Logger
	if logger == nil {
		fmt.Fprintln(os.Stderr, "ASSERTION FAILED: "+failure.Error())
		return
	}

	if !logger.Enabled(settings.Verbosity) {
		return
	}

	fields := []log.Field{
		log.String("scope_id", s.id),
		log.Bool("fatal", fatal),
	}

	if op := failure.Operator(); op != "" {
		fields = append(fields, log.String("operator", op))
	}

	if stack := failure.Stack(settings.FullStacks); stack != "" {
		fields = append(fields, log.String("stack", stack))
	}

	logger.Log(s.goctx, settings.Verbosity, "assertion failed: "+failure.Message, fields...)
}

func recordFailureMetric(ctx context.Context, failure *Failure, fatal bool) {
	factory := getMetricsFactory()
	if factory == nil {
		return
	}

	counter, err := factory.Counter(assertionFailedMetric)
	if err != nil {
		return
	}

	operator := failure.Operator()
	if operator == "" {
		operator = "eval"
	}

	//nolint:errcheck // metric recording is best-effort
	counter.
		WithLabels(map[string]string{
			"operator": sanitizeLabel(operator),
			"fatal":    fmt.Sprintf("%t", fatal),
		}).
		AddOne(ctx)
}

func recordFailureToSpan(ctx context.Context, failure *Failure, fatal bool, fullStacks bool) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("assertion.message", failure.Message),
		attribute.Bool("assertion.fatal", fatal),
	}

	if op := failure.Operator(); op != "" {
		attrs = append(attrs, attribute.String("assertion.operator", op))
	}

	if stack := failure.Stack(fullStacks); stack != "" {
		attrs = append(attrs, attribute.String("assertion.stack", stack))
	}

	span.AddEvent(SpanEventAssertionFailed, trace.WithAttributes(attrs...))
	span.RecordError(fmt.Errorf("%w: %s", ErrAssertion, failure.Message))
	span.SetStatus(codes.Error, "assertion failed")
}

// sanitizeLabel normalizes a metric label value to lowercase alphanumerics
// and underscores to keep cardinality and encodings predictable.
func sanitizeLabel(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	return sb.String()
}
