// Package node presents the bus to a harness node as one ordered event
// stream of tick, input and stop events, the way the dataflow runtime
// delivers them. All subscribed subjects funnel into a single channel so a
// node performs its work synchronously in one loop body.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/guofoo/mofa-studio/internal/bus"
	"github.com/guofoo/mofa-studio/internal/protocol"
)

// EventKind discriminates the events a node can receive.
type EventKind int

const (
	KindTick EventKind = iota
	KindInput
	KindStop
)

// Event is one element of the node's event stream.
type Event struct {
	Kind       EventKind
	Tick       protocol.Tick
	Input      protocol.Envelope
	StopReason string
	ReceivedAt time.Time
}

// Node consumes a set of bus subjects as one ordered event stream.
type Node struct {
	bus    *bus.Client
	log    *slog.Logger
	events chan Event
	subs   []*nats.Subscription
}

// New creates a node reading from the given subjects. Tick and stop subjects
// are always subscribed; extra input subjects are optional.
func New(busClient *bus.Client, log *slog.Logger, inputSubjects ...string) (*Node, error) {
	n := &Node{
		bus:    busClient,
		log:    log,
		events: make(chan Event, 256),
	}

	sub, err := busClient.Conn().Subscribe(protocol.SubjectTick, n.handleTick)
	if err != nil {
		return nil, fmt.Errorf("subscribe ticks: %w", err)
	}
	n.subs = append(n.subs, sub)

	sub, err = busClient.Conn().Subscribe(protocol.SubjectStop, n.handleStop)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("subscribe stop: %w", err)
	}
	n.subs = append(n.subs, sub)

	for _, subject := range inputSubjects {
		sub, err := busClient.Conn().Subscribe(subject, n.handleInput)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		n.subs = append(n.subs, sub)
	}
	return n, nil
}

// Events returns the node's event stream. The channel is never closed by the
// node; consumers exit on KindStop or context cancellation.
func (n *Node) Events() <-chan Event { return n.events }

// Next blocks for the next event or until ctx is done.
func (n *Node) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-n.events:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Publish sends an envelope on a subject.
func (n *Node) Publish(subject string, env protocol.Envelope) error {
	if env.SentAt.IsZero() {
		env.SentAt = time.Now().UTC()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := n.bus.Conn().Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// PublishStop broadcasts the terminal stop signal.
func (n *Node) PublishStop(reason string) error {
	data, err := json.Marshal(protocol.Stop{Reason: reason, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal stop: %w", err)
	}
	if err := n.bus.Conn().Publish(protocol.SubjectStop, data); err != nil {
		return fmt.Errorf("publish stop: %w", err)
	}
	return nil
}

// Close drains all subscriptions.
func (n *Node) Close() {
	for _, sub := range n.subs {
		_ = sub.Drain()
	}
}

func (n *Node) handleTick(msg *nats.Msg) {
	var tick protocol.Tick
	if err := json.Unmarshal(msg.Data, &tick); err != nil {
		n.log.Warn("failed to decode tick", slog.String("error", err.Error()))
		return
	}
	n.deliver(Event{Kind: KindTick, Tick: tick, ReceivedAt: time.Now().UTC()})
}

func (n *Node) handleInput(msg *nats.Msg) {
	var env protocol.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		n.log.Warn("failed to decode input envelope",
			slog.String("subject", msg.Subject), slog.String("error", err.Error()))
		return
	}
	n.deliver(Event{Kind: KindInput, Input: env, ReceivedAt: time.Now().UTC()})
}

func (n *Node) handleStop(msg *nats.Msg) {
	var stop protocol.Stop
	if err := json.Unmarshal(msg.Data, &stop); err != nil {
		n.log.Warn("failed to decode stop", slog.String("error", err.Error()))
	}
	n.deliver(Event{Kind: KindStop, StopReason: stop.Reason, ReceivedAt: time.Now().UTC()})
}

func (n *Node) deliver(ev Event) {
	select {
	case n.events <- ev:
		countDelivered(ev.Kind)
	default:
		countDropped(ev.Kind)
		n.log.Warn("event stream full, dropping event", slog.Int("kind", int(ev.Kind)))
	}
}
