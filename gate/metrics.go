package gate

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/authgate/rules"
)

// Request outcomes as recorded on the counter.
const (
	outcomeOpen         = "open"
	outcomeAllowed      = "allowed"
	outcomeUnauthorized = "unauthorized"
	outcomeForbidden    = "forbidden"
	outcomeRateLimited  = "rate_limited"
	outcomeRedirect     = "redirect"
)

// gateMetrics records per-outcome request counts through the otel metric
// API. The host wires the exporter; without one the global meter is a
// no-op and recording costs next to nothing.
type gateMetrics struct {
	requests metric.Int64Counter
}

func newGateMetrics() *gateMetrics {
	meter := otel.Meter("github.com/kbukum/authgate/gate")
	requests, err := meter.Int64Counter(
		"authgate.requests",
		metric.WithDescription("Requests decided by the auth gate, by outcome and mode."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return &gateMetrics{}
	}
	return &gateMetrics{requests: requests}
}

func (m *gateMetrics) record(ctx context.Context, outcome string, mode rules.Mode) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("mode", string(mode)),
		),
	)
}
