// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig holds the Twilio transport settings. When Enabled is false or
// credentials are missing, sends are logged instead of transmitted so
// development environments work without an account.
type SMSConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Enabled    bool
	AccountSID string
	AuthToken  string
	FromNumber string
}

// SMSChannel sends messages through the Twilio REST API.
type SMSChannel struct {
	cfg    SMSConfig
	client *http.Client
	apiURL string
}

// NewSMSChannel creates an SMS channel.
func NewSMSChannel(cfg SMSConfig) *SMSChannel {
	return &SMSChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		apiURL: "https://api.twilio.com/2010-04-01",
	}
}

func (c *SMSChannel) configured() bool {
	return c.cfg.Enabled && c.cfg.AccountSID != "" && c.cfg.AuthToken != "" && c.cfg.FromNumber != ""
}

// Send delivers the message to a phone number. The message body itself is
// not logged in fallback mode because it can carry an OTP code.
func (c *SMSChannel) Send(ctx context.Context, destination string, message Message) Result {
	if !c.configured() {
		slog.Info("sms_skipped", "reason", "sms service not configured")
		return Result{Error: "SMS service not configured"}
	}

	form := url.Values{}
	form.Set("To", destination)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Body", message.Body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.apiURL, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{Error: fmt.Sprintf("building sms request: %v", err)}
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Error: fmt.Sprintf("sending sms: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	var payload struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{Error: fmt.Sprintf("decoding sms response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Error: fmt.Sprintf("sms provider returned %d: %s", resp.StatusCode, payload.Message)}
	}

	slog.Debug("sms_sent", "sid", payload.SID)
	return Result{Success: true, Reference: payload.SID}
}
