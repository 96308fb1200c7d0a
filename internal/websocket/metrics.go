package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records hub activity. A nil *Metrics records nothing.
type Metrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	droppedMessages    metric.Int64Counter
}

// NewMetrics creates the WebSocket instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	connectionsTotal, err := meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionsActive, err := meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	connectionDuration, err := meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	messagesSent, err := meter.Int64Counter(
		"websocket_messages_sent_total",
		metric.WithDescription("Messages queued to WebSocket clients"),
	)
	if err != nil {
		return nil, err
	}

	droppedMessages, err := meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Messages dropped because a client could not keep up"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		connectionsTotal:   connectionsTotal,
		connectionsActive:  connectionsActive,
		connectionDuration: connectionDuration,
		messagesSent:       messagesSent,
		droppedMessages:    droppedMessages,
	}, nil
}

func (m *Metrics) recordConnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

func (m *Metrics) recordDisconnect(ctx context.Context, d time.Duration, reason string) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) recordSent(ctx context.Context, msgType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.messagesSent.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", msgType)))
}

func (m *Metrics) recordDropped(ctx context.Context, msgType string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msgType)))
}
