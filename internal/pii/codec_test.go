// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package pii

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadKeys(t *testing.T) {
	_, err := New("not-base64!!!")
	assert.ErrorIs(t, err, ErrInvalidKey)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = New(short)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNew_AcceptsGeneratedKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	codec, err := New(key)
	require.NoError(t, err)
	assert.NotNil(t, codec)
}

func TestEncrypt_RoundTrip(t *testing.T) {
	codec, err := NewEphemeral()
	require.NoError(t, err)

	encrypted, err := codec.Encrypt("+919876543210")
	require.NoError(t, err)

	decrypted, err := codec.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", decrypted)
}

func TestEncrypt_Layout(t *testing.T) {
	codec, err := NewEphemeral()
	require.NoError(t, err)

	encrypted, err := codec.Encrypt("+919876543210")
	require.NoError(t, err)

	parts := strings.Split(encrypted, ":")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 24) // 12-byte GCM nonce, hex
	assert.Len(t, parts[1], 32) // 16-byte auth tag, hex
	assert.NotEmpty(t, parts[2])
}

func TestEncrypt_Nondeterministic(t *testing.T) {
	codec, err := NewEphemeral()
	require.NoError(t, err)

	first, err := codec.Encrypt("+919876543210")
	require.NoError(t, err)
	second, err := codec.Encrypt("+919876543210")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncrypt_EmptyInput(t *testing.T) {
	codec, err := NewEphemeral()
	require.NoError(t, err)

	encrypted, err := codec.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, encrypted)

	decrypted, err := codec.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}

func TestDecrypt_FailsClosed(t *testing.T) {
	codec, err := NewEphemeral()
	require.NoError(t, err)

	encrypted, err := codec.Encrypt("+919876543210")
	require.NoError(t, err)
	parts := strings.Split(encrypted, ":")

	cases := map[string]string{
		"missing parts":    "deadbeef:cafebabe",
		"extra parts":      encrypted + ":ff",
		"bad hex nonce":    "zz" + parts[0][2:] + ":" + parts[1] + ":" + parts[2],
		"short nonce":      "ff:" + parts[1] + ":" + parts[2],
		"short tag":        parts[0] + ":ff:" + parts[2],
		"bad hex payload":  parts[0] + ":" + parts[1] + ":zz",
		"flipped tag bit":  parts[0] + ":" + flipHexBit(parts[1]) + ":" + parts[2],
		"flipped ct bit":   parts[0] + ":" + parts[1] + ":" + flipHexBit(parts[2]),
		"not a ciphertext": "garbage",
	}

	for name, input := range cases {
		plaintext, decErr := codec.Decrypt(input)
		assert.ErrorIs(t, decErr, ErrDecrypt, name)
		assert.Empty(t, plaintext, name)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	first, err := NewEphemeral()
	require.NoError(t, err)
	second, err := NewEphemeral()
	require.NoError(t, err)

	encrypted, err := first.Encrypt("+919876543210")
	require.NoError(t, err)

	_, err = second.Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestLookupHash_Deterministic(t *testing.T) {
	first := LookupHash("+919876543210")
	second := LookupHash("+919876543210")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.NotEqual(t, first, LookupHash("+919876543211"))
	assert.Empty(t, LookupHash(""))
}

func TestDisplaySuffix(t *testing.T) {
	assert.Equal(t, "3210", DisplaySuffix("+919876543210"))
	assert.Equal(t, "123", DisplaySuffix("123"))
	assert.Empty(t, DisplaySuffix(""))
}

func TestEncryptPhone_ArtifactsAgree(t *testing.T) {
	codec, err := NewEphemeral()
	require.NoError(t, err)

	data, err := codec.EncryptPhone("+919876543210")
	require.NoError(t, err)

	decrypted, err := codec.Decrypt(data.Encrypted)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", decrypted)
	assert.Equal(t, LookupHash("+919876543210"), data.Hash)
	assert.Equal(t, "3210", data.Last4)
}

func TestEncryptPhone_EmptyInput(t *testing.T) {
	codec, err := NewEphemeral()
	require.NoError(t, err)

	data, err := codec.EncryptPhone("")
	require.NoError(t, err)
	assert.Equal(t, PhoneData{}, data)
}

// flipHexBit changes the last hex digit, keeping the string valid hex.
func flipHexBit(s string) string {
	replacement := byte('0')
	if s[len(s)-1] == '0' {
		replacement = '1'
	}
	return s[:len(s)-1] + string(replacement)
}
