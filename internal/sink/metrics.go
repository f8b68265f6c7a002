package sink

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var decodeFailures metric.Int64Counter

func init() {
	decodeFailures, _ = otel.Meter("mofa-studio/sink").Int64Counter("sink.units.decode_failures",
		metric.WithDescription("Units the sink could not decode and skipped"))
}

func countDecodeFailure(mode string) {
	if decodeFailures != nil {
		decodeFailures.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("mode", mode)))
	}
}
