package simplecms

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// InstanceCreated does nothing and returns nil
func (n *NoopEventSink) InstanceCreated(ctx context.Context, inst *Instance) error {
	return nil
}

// StatusChanged does nothing and returns nil
func (n *NoopEventSink) StatusChanged(ctx context.Context, inst *Instance, from Status) error {
	return nil
}

// ContentChanged does nothing and returns nil
func (n *NoopEventSink) ContentChanged(ctx context.Context, contentID uuid.UUID, op string) error {
	return nil
}

// LoggingEventSink writes every event to a structured logger
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink backed by logger (slog.Default when nil)
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) InstanceCreated(ctx context.Context, inst *Instance) error {
	l.logger.InfoContext(ctx, "instance created",
		"kind", inst.Kind, "instance_id", inst.ID, "logical_id", inst.LogicalID, "version", inst.Version)
	return nil
}

func (l *LoggingEventSink) StatusChanged(ctx context.Context, inst *Instance, from Status) error {
	l.logger.InfoContext(ctx, "status changed",
		"instance_id", inst.ID, "logical_id", inst.LogicalID, "from", from, "to", inst.Status)
	return nil
}

func (l *LoggingEventSink) ContentChanged(ctx context.Context, contentID uuid.UUID, op string) error {
	l.logger.InfoContext(ctx, "content changed", "content_id", contentID, "op", op)
	return nil
}
