package routekit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/routekit/internal/hooks"
)

var tracer = otel.Tracer("routekit")

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routekit_transitions_total",
		Help: "Total transitions by terminal state",
	}, []string{"outcome"})

	hookInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routekit_hook_invocations_total",
		Help: "Total hook invocations by phase and result",
	}, []string{"phase", "result"})

	transitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "routekit_transition_duration_seconds",
		Help:    "Transition duration in seconds, resolution to settlement",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})
)

// recorder gates metric collection on Config.Metrics
type recorder struct {
	enabled bool
}

func (m recorder) transition(state TransitionState, elapsed time.Duration) {
	if !m.enabled {
		return
	}
	transitionsTotal.WithLabelValues(state.String()).Inc()
	transitionDuration.Observe(elapsed.Seconds())
}

func (m recorder) invocation(inv hooks.Invocation) {
	if !m.enabled {
		return
	}
	result := inv.Decision.Kind.String()
	if inv.Err != nil {
		result = "error"
	}
	hookInvocationsTotal.WithLabelValues(inv.Entry.Phase.String(), result).Inc()
}

func startTransitionSpan(ctx context.Context, t *Transition) (context.Context, trace.Span) {
	return tracer.Start(ctx, "routekit.Transition",
		trace.WithAttributes(
			attribute.Int64("routekit.transition_id", int64(t.ID)),
			attribute.String("routekit.instruction", string(t.Instruction)),
			attribute.Int("routekit.redirects", t.Redirects),
		),
	)
}

func startPhaseSpan(ctx context.Context, phase Phase, depth, nodes int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "routekit.Phase."+phase.String(),
		trace.WithAttributes(
			attribute.Int("routekit.depth", depth),
			attribute.Int("routekit.nodes", nodes),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
