// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package reset_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/counselling-backend/internal/services/delivery"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/reset"
	"codeberg.org/oliverandrich/counselling-backend/internal/testutil"
)

// captureChannel records sent messages so tests can pull the token out of
// the mailed reset link.
type captureChannel struct {
	mu       sync.Mutex
	messages []delivery.Message
	fail     bool
}

func (c *captureChannel) Send(_ context.Context, _ string, msg delivery.Message) delivery.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	if c.fail {
		return delivery.Result{Error: "smtp down"}
	}
	return delivery.Result{Success: true}
}

// lastToken extracts the token from the most recently mailed reset link.
func (c *captureChannel) lastToken(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.messages)
	body := c.messages[len(c.messages)-1].Body
	_, after, found := strings.Cut(body, "?token=")
	require.True(t, found)
	token, _, _ := strings.Cut(after, "\n")
	return strings.TrimSpace(token)
}

func TestRequest_MailsRedeemableToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	email := &captureChannel{}
	flow := reset.NewFlow(repo, email, 30*time.Minute, "https://example.com/reset", bcrypt.MinCost)
	ctx := context.Background()

	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	require.NoError(t, flow.Request(ctx, admin))

	token := email.lastToken(t)
	assert.Len(t, token, 64)

	require.NoError(t, flow.Redeem(ctx, token, "brand new password"))

	updated, err := repo.GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("brand new password")))
}

func TestRequest_NilAdminIsNoOp(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	email := &captureChannel{}
	flow := reset.NewFlow(repo, email, 30*time.Minute, "https://example.com/reset", bcrypt.MinCost)

	require.NoError(t, flow.Request(context.Background(), nil))
	assert.Empty(t, email.messages)
}

func TestRequest_DeliveryFailureKeepsToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	email := &captureChannel{fail: true}
	flow := reset.NewFlow(repo, email, 30*time.Minute, "https://example.com/reset", bcrypt.MinCost)
	ctx := context.Background()

	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	require.NoError(t, flow.Request(ctx, admin))

	// The token was stored even though the mail bounced.
	token := email.lastToken(t)
	require.NoError(t, flow.Redeem(ctx, token, "brand new password"))
}

func TestRedeem_SingleUse(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	email := &captureChannel{}
	flow := reset.NewFlow(repo, email, 30*time.Minute, "https://example.com/reset", bcrypt.MinCost)
	ctx := context.Background()

	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")
	require.NoError(t, flow.Request(ctx, admin))
	token := email.lastToken(t)

	require.NoError(t, flow.Redeem(ctx, token, "first password"))

	err := flow.Redeem(ctx, token, "second password")
	assert.ErrorIs(t, err, reset.ErrInvalidToken)
}

func TestRedeem_UnknownToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	flow := reset.NewFlow(repo, &captureChannel{}, 30*time.Minute, "https://example.com/reset", bcrypt.MinCost)

	err := flow.Redeem(context.Background(), "not-a-real-token", "password")
	assert.ErrorIs(t, err, reset.ErrInvalidToken)
}

func TestRedeem_Expired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	email := &captureChannel{}
	flow := reset.NewFlow(repo, email, -time.Minute, "https://example.com/reset", bcrypt.MinCost)
	ctx := context.Background()

	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")
	require.NoError(t, flow.Request(ctx, admin))
	token := email.lastToken(t)

	err := flow.Redeem(ctx, token, "password")
	assert.ErrorIs(t, err, reset.ErrExpiredToken)
}
