// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"context"
	"log/slog"
)

// LogChannel writes messages to the log instead of delivering them. It
// stands in for email in development when no SMTP server is configured, so
// the flows that depend on delivery still work end to end.
type LogChannel struct {
	name string
}

// NewLogChannel creates a log-only channel. The name tags the log lines
// with the channel it replaces.
func NewLogChannel(name string) *LogChannel {
	return &LogChannel{name: name}
}

func (l *LogChannel) Send(_ context.Context, destination string, msg Message) Result {
	slog.Info("delivery_logged",
		"channel", l.name,
		"destination", destination,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return Result{Success: true, Reference: "logged"}
}
