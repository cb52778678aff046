//go:build unit

package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestFactory(t *testing.T) (*Factory, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	factory, err := NewFactory(provider.Meter("test"))
	require.NoError(t, err)

	return factory, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)

				return sum
			}
		}
	}

	t.Fatalf("metric %q not collected", name)

	return metricdata.Sum[int64]{}
}

// TestNewFactory verifies the nil-meter guard.
func TestNewFactory(t *testing.T) {
	t.Parallel()

	_, err := NewFactory(nil)
	assert.ErrorIs(t, err, ErrNilMeter)
}

// TestFactory_Counter verifies increments reach the reader with labels.
func TestFactory_Counter(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(Metric{
		Name:        "requests_total",
		Unit:        "1",
		Description: "total requests",
	})
	require.NoError(t, err)

	require.NoError(t, counter.WithLabels(map[string]string{"outcome": "ok"}).AddOne(context.Background()))
	require.NoError(t, counter.WithLabels(map[string]string{"outcome": "ok"}).Add(context.Background(), 2))

	sum := collectSum(t, reader, "requests_total")
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	outcome, ok := sum.DataPoints[0].Attributes.Value("outcome")
	require.True(t, ok)
	assert.Equal(t, "ok", outcome.AsString())
}

// TestFactory_CounterCaching verifies repeated lookups reuse the instrument.
func TestFactory_CounterCaching(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)

	first, err := factory.Counter(Metric{Name: "hits_total", Unit: "1"})
	require.NoError(t, err)

	second, err := factory.Counter(Metric{Name: "hits_total", Unit: "1"})
	require.NoError(t, err)

	require.NoError(t, first.AddOne(context.Background()))
	require.NoError(t, second.AddOne(context.Background()))

	sum := collectSum(t, reader, "hits_total")
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

// TestCounterBuilder_WithAttributes verifies builders do not mutate their
// parent.
func TestCounterBuilder_WithAttributes(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)

	base, err := factory.Counter(Metric{Name: "events_total", Unit: "1"})
	require.NoError(t, err)

	tagged := base.WithAttributes(attribute.String("kind", "write"))
	require.NoError(t, tagged.AddOne(context.Background()))
	require.NoError(t, base.AddOne(context.Background()))

	sum := collectSum(t, reader, "events_total")
	assert.Len(t, sum.DataPoints, 2)
}

// TestCounterBuilder_NilCounter verifies the zero builder refuses to record.
func TestCounterBuilder_NilCounter(t *testing.T) {
	t.Parallel()

	var builder CounterBuilder

	assert.ErrorIs(t, builder.Add(context.Background(), 1), ErrNilCounter)
	assert.ErrorIs(t, builder.AddOne(context.Background()), ErrNilCounter)
}
