// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package gateway

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/birenderpal/mcp-auth-gateway"

// metricsRecorder records per-method request counts, error counts and
// latency through the global OpenTelemetry meter provider. The binary is
// responsible for installing a concrete provider; without one these are
// no-ops.
type metricsRecorder struct {
	requestCounter metric.Int64Counter
	errorCounter   metric.Int64Counter
	latencyHist    metric.Float64Histogram
}

func newMetricsRecorder() *metricsRecorder {
	meter := otel.Meter(meterName)

	requestCounter, _ := meter.Int64Counter("mcp_requests_total",
		metric.WithDescription("Total number of MCP requests"))
	errorCounter, _ := meter.Int64Counter("mcp_errors_total",
		metric.WithDescription("Total number of MCP error responses"))
	latencyHist, _ := meter.Float64Histogram("mcp_request_duration_ms",
		metric.WithDescription("MCP request latency in ms"),
		metric.WithUnit("ms"))

	return &metricsRecorder{
		requestCounter: requestCounter,
		errorCounter:   errorCounter,
		latencyHist:    latencyHist,
	}
}

// recordRequest counts one request for the given method.
func (r *metricsRecorder) recordRequest(ctx context.Context, method string) {
	r.requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// recordError counts one error response for the given method and code.
func (r *metricsRecorder) recordError(ctx context.Context, method string, code int) {
	r.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("code", code),
	))
}

// recordLatency records request latency in milliseconds.
func (r *metricsRecorder) recordLatency(ctx context.Context, method string, latencyMs float64) {
	r.latencyHist.Record(ctx, latencyMs, metric.WithAttributes(attribute.String("method", method)))
}
