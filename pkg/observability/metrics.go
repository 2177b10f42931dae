package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds application-level instruments. Instruments are no-ops when
// recording fails, so callers never check errors on Record/Add.
type Metrics struct {
	WebhooksReceived metric.Int64Counter
	WebhooksSkipped  metric.Int64Counter
	CatalogSyncs     metric.Int64Counter
	ToolCalls        metric.Int64Counter
	UpstreamLatency  metric.Float64Histogram
}

// NewMetrics registers the service's instruments on the global meter.
func NewMetrics(serviceName string) (*Metrics, error) {
	meter := otel.GetMeterProvider().Meter(serviceName)

	webhooksReceived, err := meter.Int64Counter("webhooks_received_total",
		metric.WithDescription("OAuth webhook deliveries received"))
	if err != nil {
		return nil, err
	}

	webhooksSkipped, err := meter.Int64Counter("webhooks_skipped_total",
		metric.WithDescription("Webhook deliveries accepted but skipped"))
	if err != nil {
		return nil, err
	}

	catalogSyncs, err := meter.Int64Counter("catalog_syncs_total",
		metric.WithDescription("Business data sync attempts"))
	if err != nil {
		return nil, err
	}

	toolCalls, err := meter.Int64Counter("agent_tool_calls_total",
		metric.WithDescription("Voice agent tool invocations"))
	if err != nil {
		return nil, err
	}

	upstreamLatency, err := meter.Float64Histogram("upstream_request_seconds",
		metric.WithDescription("Latency of upstream platform API calls"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		WebhooksReceived: webhooksReceived,
		WebhooksSkipped:  webhooksSkipped,
		CatalogSyncs:     catalogSyncs,
		ToolCalls:        toolCalls,
		UpstreamLatency:  upstreamLatency,
	}, nil
}

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}
