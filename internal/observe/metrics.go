// Package observe carries the observability surface of the Mnemosyne server:
// OpenTelemetry metric instruments, tracing helpers, a trace-enriched logger,
// and the HTTP middleware that joins them per request.
//
// Instruments live on a [Metrics] value created by [NewMetrics]. The
// process-wide instance from [DefaultMetrics] records through the global
// meter provider installed by [InitProvider], which bridges to Prometheus so
// everything surfaces on the /metrics endpoint. Tests build their own
// [Metrics] over a manual reader instead of sharing the global one.
package observe

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the OTel instrumentation scope shared by the Mnemosyne tracer
// and every metric instrument.
const scopeName = "github.com/MrWong99/mnemosyne"

// Metrics is the set of instruments the server records into. The OTel types
// are concurrency-safe, so one value serves all goroutines.
type Metrics struct {
	// RPCRequests counts JSON-RPC requests, labelled by method.
	RPCRequests metric.Int64Counter

	// RPCErrors counts JSON-RPC error responses, labelled by error code.
	RPCErrors metric.Int64Counter

	// ToolCalls counts tool invocations, labelled by tool and outcome.
	ToolCalls metric.Int64Counter

	// FulltextFallbacks counts searches that fell back to substring
	// matching because the full-text index was unusable.
	FulltextFallbacks metric.Int64Counter

	// ToolCallDuration tracks end-to-end tool call latency, labelled by
	// tool and outcome.
	ToolCallDuration metric.Float64Histogram

	// StoreQueryDuration tracks graph store operation latency, labelled by
	// operation name.
	StoreQueryDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request handling time, labelled by
	// method and path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets spans indexed graph lookups (single-digit milliseconds)
// through substring scans over large spaces (whole seconds).
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics registers every instrument on a meter from mp and returns the
// populated set. Any instrument registration failure fails the whole set.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(scopeName)

	var (
		met  Metrics
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			errs = append(errs, err)
		}
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		if err != nil {
			errs = append(errs, err)
		}
		return h
	}

	met.RPCRequests = counter("mnemosyne.rpc.requests",
		"Total JSON-RPC requests by method.")
	met.RPCErrors = counter("mnemosyne.rpc.errors",
		"Total JSON-RPC error responses by error code.")
	met.ToolCalls = counter("mnemosyne.tool.calls",
		"Total tool invocations by tool name and outcome.")
	met.FulltextFallbacks = counter("mnemosyne.search.fulltext_fallbacks",
		"Total searches that fell back to substring matching.")
	met.ToolCallDuration = histogram("mnemosyne.tool.duration",
		"Latency of tool call handling.")
	met.StoreQueryDuration = histogram("mnemosyne.store.query.duration",
		"Latency of graph store operations by operation name.")
	met.HTTPRequestDuration = histogram("mnemosyne.http.request.duration",
		"HTTP request latency by method and path.")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &met, nil
}

// defaultMetrics backs [DefaultMetrics].
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics], built on first use from
// the global meter provider. It panics when instrument registration fails,
// which the global provider never does.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordRPCRequest counts one JSON-RPC request for method.
func (m *Metrics) RecordRPCRequest(ctx context.Context, method string) {
	m.RPCRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)),
	)
}

// RecordRPCError counts one JSON-RPC error response under its error code.
func (m *Metrics) RecordRPCError(ctx context.Context, code int) {
	m.RPCErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", strconv.Itoa(code))),
	)
}

// RecordToolCall counts one tool invocation by name and outcome ("ok" or
// "error").
func (m *Metrics) RecordToolCall(ctx context.Context, tool, outcome string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordFulltextFallback counts one search degraded to substring matching.
func (m *Metrics) RecordFulltextFallback(ctx context.Context) {
	m.FulltextFallbacks.Add(ctx, 1)
}

// RecordToolCallDuration observes one end-to-end tool call latency.
func (m *Metrics) RecordToolCallDuration(ctx context.Context, tool, outcome string, seconds float64) {
	m.ToolCallDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordStoreQuery observes one graph store operation latency under op.
func (m *Metrics) RecordStoreQuery(ctx context.Context, op string, seconds float64) {
	m.StoreQueryDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("op", op)),
	)
}
