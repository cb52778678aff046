// Package metrics provides the OpenTelemetry counter plumbing used to track
// assertion outcomes.
package metrics

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNilCounter is returned when a counter builder has no instrument.
var ErrNilCounter = errors.New("counter instrument is nil")

// ErrNilMeter is returned when a Factory is created without a meter.
var ErrNilMeter = errors.New("meter is nil")

// Metric describes a counter instrument.
type Metric struct {
	Name        string
	Unit        string
	Description string
}

// Factory creates and caches counter instruments for a single meter.
type Factory struct {
	meter    metric.Meter
	mu       sync.Mutex
	counters map[string]metric.Int64Counter
}

// NewFactory creates a Factory bound to the given meter.
func NewFactory(meter metric.Meter) (*Factory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	return &Factory{
		meter:    meter,
		counters: make(map[string]metric.Int64Counter),
	}, nil
}

// Counter returns a builder for the given metric, creating the underlying
// instrument on first use.
func (f *Factory) Counter(m Metric) (*CounterBuilder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counter, ok := f.counters[m.Name]
	if !ok {
		created, err := f.meter.Int64Counter(
			m.Name,
			metric.WithUnit(m.Unit),
			metric.WithDescription(m.Description),
		)
		if err != nil {
			return nil, err
		}

		f.counters[m.Name] = created
		counter = created
	}

	return &CounterBuilder{counter: counter, name: m.Name}, nil
}

// CounterBuilder provides a fluent API for recording counter metrics with
// optional labels.
type CounterBuilder struct {
	counter metric.Int64Counter
	name    string
	attrs   []attribute.KeyValue
}

// WithLabels adds labels/attributes to the counter metric.
func (c *CounterBuilder) WithLabels(labels map[string]string) *CounterBuilder {
	builder := &CounterBuilder{
		counter: c.counter,
		name:    c.name,
		attrs:   make([]attribute.KeyValue, 0, len(c.attrs)+len(labels)),
	}

	builder.attrs = append(builder.attrs, c.attrs...)

	for key, value := range labels {
		builder.attrs = append(builder.attrs, attribute.String(key, value))
	}

	return builder
}

// WithAttributes adds OpenTelemetry attributes to the counter metric.
func (c *CounterBuilder) WithAttributes(attrs ...attribute.KeyValue) *CounterBuilder {
	builder := &CounterBuilder{
		counter: c.counter,
		name:    c.name,
		attrs:   make([]attribute.KeyValue, 0, len(c.attrs)+len(attrs)),
	}

	builder.attrs = append(builder.attrs, c.attrs...)
	builder.attrs = append(builder.attrs, attrs...)

	return builder
}

// Add records a counter increment.
func (c *CounterBuilder) Add(ctx context.Context, value int64) error {
	if c.counter == nil {
		return ErrNilCounter
	}

	c.counter.Add(ctx, value, metric.WithAttributes(c.attrs...))

	return nil
}

// AddOne records a single counter increment.
func (c *CounterBuilder) AddOne(ctx context.Context) error {
	return c.Add(ctx, 1)
}
