package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "quizhub"

// Metrics holds all QuizHub metric instruments.
type Metrics struct {
	ConnectionsOpened metric.Int64Counter
	ConnectionsClosed metric.Int64Counter
	SlowConsumers     metric.Int64Counter
	EventsPublished   metric.Int64Counter
	EventsDelivered   metric.Int64Counter
	EventsDropped     metric.Int64Counter
	FanoutSize        metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ConnectionsOpened, err = meter.Int64Counter("quizhub.connections.opened",
		metric.WithDescription("Number of websocket connections accepted"))
	if err != nil {
		return nil, err
	}

	m.ConnectionsClosed, err = meter.Int64Counter("quizhub.connections.closed",
		metric.WithDescription("Number of websocket connections closed"))
	if err != nil {
		return nil, err
	}

	m.SlowConsumers, err = meter.Int64Counter("quizhub.connections.slow_consumer_disconnects",
		metric.WithDescription("Connections closed for outbound buffer overflow"))
	if err != nil {
		return nil, err
	}

	m.EventsPublished, err = meter.Int64Counter("quizhub.events.published",
		metric.WithDescription("Events accepted from producers"))
	if err != nil {
		return nil, err
	}

	m.EventsDelivered, err = meter.Int64Counter("quizhub.events.delivered",
		metric.WithDescription("Event deliveries to local connections"))
	if err != nil {
		return nil, err
	}

	m.EventsDropped, err = meter.Int64Counter("quizhub.events.dropped",
		metric.WithDescription("Malformed events dropped at the backplane boundary"))
	if err != nil {
		return nil, err
	}

	m.FanoutSize, err = meter.Int64Histogram("quizhub.broadcast.fanout_size",
		metric.WithDescription("Local connections reached per broadcast"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
