package application

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/bnema/exposure-detect/internal/application"

type telemetry struct {
	tracer      trace.Tracer
	keys        metric.Int64Counter
	derivations metric.Int64Counter
	incidents   metric.Int64Counter
	sessions    metric.Int64Counter
}

// newTelemetry binds to the global otel providers, which are no-ops until an SDK is installed.
func newTelemetry() telemetry {
	meter := otel.Meter(instrumentationName)

	return telemetry{
		tracer:      otel.Tracer(instrumentationName),
		keys:        counter(meter, "expo.match.keys", "Diagnosis keys checked against the proximity log."),
		derivations: counter(meter, "expo.match.derivations", "Rolling proximity identifiers derived."),
		incidents:   counter(meter, "expo.match.incidents", "Coalesced exposure incidents found."),
		sessions:    counter(meter, "expo.session.transitions", "Session state transitions."),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("{count}"))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
