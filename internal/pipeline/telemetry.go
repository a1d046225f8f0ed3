package pipeline

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gradefix/internal/pipeline"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// instruments are the run counters exported on /metrics. They resolve
// against the global meter provider, which is a no-op until one is set.
type instruments struct {
	updated metric.Int64Counter
	failed  metric.Int64Counter
	runs    metric.Int64Counter
}

func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return &instruments{
		updated: counter("gradefix_submissions_updated", "Submissions successfully updated"),
		failed:  counter("gradefix_submissions_failed", "Submission updates that failed"),
		runs:    counter("gradefix_runs", "Correction runs by outcome"),
	}
}
