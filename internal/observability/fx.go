package observability

import (
	"github.com/smallbiznis/microgrid/internal/observability/logger"
	"github.com/smallbiznis/microgrid/internal/observability/metrics"
	"github.com/smallbiznis/microgrid/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module provides the zap logger, the tracer and meter providers, the
// domain counters and the Prometheus HTTP collectors.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		func() (*metrics.HTTPMetrics, error) { return metrics.NewHTTPMetrics(nil) },
	),
	// nothing else asks for the tracer provider; force its construction
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
