package node

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter         = otel.Meter("mofa-studio/node")
	eventCounter  metric.Int64Counter
	dropCounter   metric.Int64Counter
	kindAttribute = map[EventKind]attribute.KeyValue{
		KindTick:  attribute.String("kind", "tick"),
		KindInput: attribute.String("kind", "input"),
		KindStop:  attribute.String("kind", "stop"),
	}
)

func init() {
	eventCounter, _ = meter.Int64Counter("node.events.delivered",
		metric.WithDescription("Events delivered to a node event stream"))
	dropCounter, _ = meter.Int64Counter("node.events.dropped",
		metric.WithDescription("Events dropped because a node event stream was full"))
}

func countDelivered(kind EventKind) {
	if eventCounter != nil {
		eventCounter.Add(context.Background(), 1, metric.WithAttributes(kindAttribute[kind]))
	}
}

func countDropped(kind EventKind) {
	if dropCounter != nil {
		dropCounter.Add(context.Background(), 1, metric.WithAttributes(kindAttribute[kind]))
	}
}
