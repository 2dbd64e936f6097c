// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// EmailChannel sends messages over SMTP using go-mail.
type EmailChannel struct {
	cfg SMTPConfig
}

// NewEmailChannel creates an email channel. Host and From are required.
func NewEmailChannel(cfg SMTPConfig) (*EmailChannel, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &EmailChannel{cfg: cfg}, nil
}

// Send delivers the message to an email address.
func (c *EmailChannel) Send(ctx context.Context, destination string, message Message) Result {
	msg := mail.NewMsg()

	if c.cfg.FromName != "" {
		if err := msg.FromFormat(c.cfg.FromName, c.cfg.From); err != nil {
			return Result{Error: fmt.Sprintf("setting from address: %v", err)}
		}
	} else {
		if err := msg.From(c.cfg.From); err != nil {
			return Result{Error: fmt.Sprintf("setting from address: %v", err)}
		}
	}

	if err := msg.To(destination); err != nil {
		return Result{Error: fmt.Sprintf("setting to address: %v", err)}
	}

	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextPlain, message.Body)

	opts := []mail.Option{
		mail.WithPort(c.cfg.Port),
	}

	// Implicit TLS (SSL) for port 465, STARTTLS for others
	if c.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if c.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if c.cfg.Username != "" && c.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.cfg.Username),
			mail.WithPassword(c.cfg.Password),
		)
	}

	client, err := mail.NewClient(c.cfg.Host, opts...)
	if err != nil {
		return Result{Error: fmt.Sprintf("creating mail client: %v", err)}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return Result{Error: fmt.Sprintf("sending email: %v", err)}
	}

	slog.Debug("email_sent", "subject", message.Subject)
	return Result{Success: true, Reference: msg.GetMessageID()}
}
