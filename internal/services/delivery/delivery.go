// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package delivery defines the out-of-band message channel the auth flows
// hand OTP codes and reset links to. Delivery is best-effort: the triggering
// operation is complete once its state change is persisted, and a failed
// send is logged, never silently dropped and never fatal.
package delivery

import "context"

// Message is one outbound notification. SMS transports ignore the subject.
type Message struct {
	Subject string
	Body    string
}

// Result reports the outcome of a send attempt. Reference carries the
// transport's message ID when available.
type Result struct {
	Success   bool
	Reference string
	Error     string
}

// Channel transmits a message to an email address or phone number. Delivery
// itself is outside the caller's control; only the attempt's outcome is
// observable.
type Channel interface {
	Send(ctx context.Context, destination string, msg Message) Result
}
