// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSChannel_Unconfigured(t *testing.T) {
	channel := NewSMSChannel(SMSConfig{})

	result := channel.Send(context.Background(), "+919876543210", Message{Body: "code 123456"})

	assert.False(t, result.Success)
	assert.Equal(t, "SMS service not configured", result.Error)
}

func TestSMSChannel_EnabledWithoutCredentials(t *testing.T) {
	channel := NewSMSChannel(SMSConfig{Enabled: true, FromNumber: "+15550001111"})

	result := channel.Send(context.Background(), "+919876543210", Message{Body: "code 123456"})

	assert.False(t, result.Success)
}

func TestSMSChannel_Send(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotBody = r.PostFormValue("Body")

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM42"})
	}))
	defer srv.Close()

	channel := NewSMSChannel(SMSConfig{
		Enabled:    true,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550001111",
	})
	channel.apiURL = srv.URL

	result := channel.Send(context.Background(), "+919876543210", Message{Body: "code 123456"})

	require.True(t, result.Success)
	assert.Equal(t, "SM42", result.Reference)
	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "+919876543210", gotTo)
	assert.Equal(t, "+15550001111", gotFrom)
	assert.Equal(t, "code 123456", gotBody)
}

func TestSMSChannel_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid number"})
	}))
	defer srv.Close()

	channel := NewSMSChannel(SMSConfig{
		Enabled:    true,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550001111",
	})
	channel.apiURL = srv.URL

	result := channel.Send(context.Background(), "+919876543210", Message{Body: "code"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid number")
}
