package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow/internal/domain"
)

// Metric names emitted by the client
const (
	metricCalls    = "backend.calls"
	metricDuration = "backend.call.duration"
)

const outcomeOK = "ok"

// clientMetrics holds the instruments recorded for every Backend API call
type clientMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// newClientMetrics creates the call instruments.
// An instrument that cannot be created is replaced by a no-op so calls never fail on telemetry.
func newClientMetrics(meter metric.Meter, logger *zap.Logger) clientMetrics {
	calls, err := meter.Int64Counter(metricCalls,
		metric.WithDescription("Backend API calls by method and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		logger.Warn("failed to create backend call counter", zap.Error(err))
		calls = noop.Int64Counter{}
	}

	duration, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("Backend API call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create backend latency histogram", zap.Error(err))
		duration = noop.Float64Histogram{}
	}

	return clientMetrics{calls: calls, duration: duration}
}

func (m clientMetrics) record(ctx context.Context, method string, err error, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("rpc.method", method),
		attribute.String("outcome", callOutcome(err)),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// callOutcome labels a call result: "ok", the lower-cased APIError kind, or "error"
func callOutcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return strings.ToLower(string(apiErr.Kind))
	}
	return "error"
}
