package source

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var emitCounter metric.Int64Counter

func init() {
	emitCounter, _ = otel.Meter("mofa-studio/source").Int64Counter("source.units.emitted",
		metric.WithDescription("Units released by a source node"))
}

func countEmitted(mode string) {
	if emitCounter != nil {
		emitCounter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("mode", mode)))
	}
}
