package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "quizhub"

// StartPublishSpan starts a span for a producer publish into a room.
func StartPublishSpan(ctx context.Context, roomID, eventType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "publish",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("event.type", eventType),
		),
	)
}

// StartHandshakeSpan starts a span for a websocket connection handshake.
func StartHandshakeSpan(ctx context.Context, roomID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "handshake",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
		),
	)
}
