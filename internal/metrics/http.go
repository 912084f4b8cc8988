package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FlowContextKey is the gin context key handlers set to the request's flow so
// the HTTP metrics can be broken down per deep-link flow.
const FlowContextKey = "deeplink_flow"

type httpMetrics struct {
	requestCounter metric.Int64Counter
	durationHisto  metric.Float64Histogram
	inFlight       metric.Int64UpDownCounter
}

// HTTPMetricsMiddleware returns a Gin middleware recording request count,
// duration and in-flight requests. Labels are method, the route pattern,
// status code and the flow handlers stored under FlowContextKey.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	m, err := newHTTPMetrics(meterProvider, namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := attribute.String("path", routePattern(c.FullPath()))
		m.inFlight.Add(c.Request.Context(), 1, metric.WithAttributes(route))

		c.Next()

		m.inFlight.Add(c.Request.Context(), -1, metric.WithAttributes(route))

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			route,
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
			attribute.String("flow", requestFlow(c)),
		)
		m.requestCounter.Add(c.Request.Context(), 1, attrs)
		m.durationHisto.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
	}
}

func newHTTPMetrics(meterProvider metric.MeterProvider, namespace string) (*httpMetrics, error) {
	meter := meterProvider.Meter(namespace)

	requestCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_http_requests_in_flight", namespace),
		metric.WithDescription("Number of HTTP requests being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestCounter: requestCounter,
		durationHisto:  durationHisto,
		inFlight:       inFlight,
	}, nil
}

// routePattern keeps label cardinality bounded: unmatched paths collapse to "unknown".
func routePattern(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func requestFlow(c *gin.Context) string {
	if flow := c.GetString(FlowContextKey); flow != "" {
		return flow
	}
	return "none"
}
