package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

func keyInfoResponse() ports.UpstreamResponse {
	return ports.UpstreamResponse{
		StatusCode: 200,
		Body:       []byte(`{"data":{"label":"sk-or-v1-...cdef","usage":0,"limit":null,"is_free_tier":true}}`),
	}
}

func TestAddKeyHappyPath(t *testing.T) {
	t.Parallel()

	repo := newMemCredentialRepo()
	client := &scriptedClient{}
	client.queue(keyInfoResponse())
	svc := NewKeyService(repo, plainCipher{}, client, newFakeClock(testBase), nil)

	cred, err := svc.AddKey(context.Background(), AddKeyCommand{
		GuildID: 1,
		Name:    "primary",
		APIKey:  "sk-or-v1-secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "enc:sk-or-v1-secret", cred.EncryptedKey)
	assert.Equal(t, domain.FingerprintKey("sk-or-v1-secret"), cred.Fingerprint)
	assert.Equal(t, domain.DefaultRPMLimit, cred.RPMLimit)
	assert.Equal(t, domain.DefaultRPDLimit, cred.RPDLimit)
	assert.True(t, cred.Enabled)
	assert.Contains(t, cred.ProviderInfo, "is_free_tier")

	require.Len(t, client.sent, 1)
	assert.Equal(t, "GET", client.sent[0].Method)
	assert.Equal(t, "/key", client.sent[0].Path)
	assert.Equal(t, "sk-or-v1-secret", client.sent[0].APIKey)

	stored, err := repo.GetByName(context.Background(), 1, "primary")
	require.NoError(t, err)
	assert.Equal(t, cred.Fingerprint, stored.Fingerprint)
}

func TestAddKeyValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		svc := NewKeyService(newMemCredentialRepo(), plainCipher{}, &scriptedClient{}, newFakeClock(testBase), nil)
		_, err := svc.AddKey(context.Background(), AddKeyCommand{GuildID: 1, Name: "  ", APIKey: "sk"})
		assert.Error(t, err)
	})

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()
		repo := newMemCredentialRepo(testCredential(1, "primary", 0, 0))
		svc := NewKeyService(repo, plainCipher{}, &scriptedClient{}, newFakeClock(testBase), nil)
		_, err := svc.AddKey(context.Background(), AddKeyCommand{GuildID: 1, Name: "primary", APIKey: "sk"})
		assert.ErrorIs(t, err, domain.ErrCredentialExists)
	})

	t.Run("upstream rejects key", func(t *testing.T) {
		t.Parallel()
		client := &scriptedClient{}
		client.queue(ports.UpstreamResponse{StatusCode: 401, Body: []byte(`{"error":"unauthorized"}`)})
		svc := NewKeyService(newMemCredentialRepo(), plainCipher{}, client, newFakeClock(testBase), nil)
		_, err := svc.AddKey(context.Background(), AddKeyCommand{GuildID: 1, Name: "bad", APIKey: "sk"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()
		client := &scriptedClient{}
		client.queueErr(errors.New("connection refused"))
		svc := NewKeyService(newMemCredentialRepo(), plainCipher{}, client, newFakeClock(testBase), nil)
		_, err := svc.AddKey(context.Background(), AddKeyCommand{GuildID: 1, Name: "flaky", APIKey: "sk"})
		assert.Error(t, err)
	})
}

func TestAddKeyCustomLimits(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{}
	client.queue(keyInfoResponse())
	svc := NewKeyService(newMemCredentialRepo(), plainCipher{}, client, newFakeClock(testBase), nil)

	cred, err := svc.AddKey(context.Background(), AddKeyCommand{
		GuildID: 1,
		Name:    "tuned",
		APIKey:  "sk",
		RPM:     5,
		RPD:     50,
		Notes:   "backup account",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, cred.RPMLimit)
	assert.Equal(t, 50, cred.RPDLimit)
	assert.Equal(t, "backup account", cred.Notes)
}

func TestSetEnabledAndRemove(t *testing.T) {
	t.Parallel()

	repo := newMemCredentialRepo(testCredential(1, "primary", 0, 0))
	svc := NewKeyService(repo, plainCipher{}, &scriptedClient{}, newFakeClock(testBase), nil)

	require.NoError(t, svc.SetEnabled(context.Background(), 1, "primary", false))
	stored, err := repo.GetByName(context.Background(), 1, "primary")
	require.NoError(t, err)
	assert.False(t, stored.Enabled)

	require.NoError(t, svc.RemoveKey(context.Background(), 1, "primary"))
	_, err = repo.GetByName(context.Background(), 1, "primary")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

	err = svc.RemoveKey(context.Background(), 1, "primary")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestProbeKeyRefreshesProviderInfo(t *testing.T) {
	t.Parallel()

	repo := newMemCredentialRepo(testCredential(1, "primary", 0, 0))
	client := &scriptedClient{}
	client.queue(keyInfoResponse())
	svc := NewKeyService(repo, plainCipher{}, client, newFakeClock(testBase), nil)

	info, err := svc.ProbeKey(context.Background(), 1, "primary")
	require.NoError(t, err)
	assert.Contains(t, info, "is_free_tier")

	// The probe uses the decrypted key.
	require.Len(t, client.sent, 1)
	assert.Equal(t, "sk-primary", client.sent[0].APIKey)

	stored, err := repo.GetByName(context.Background(), 1, "primary")
	require.NoError(t, err)
	assert.Equal(t, info, stored.ProviderInfo)
}

func TestProbeKeyDecryptFailure(t *testing.T) {
	t.Parallel()

	cred := testCredential(1, "primary", 0, 0)
	cred.EncryptedKey = "garbage"
	repo := newMemCredentialRepo(cred)
	svc := NewKeyService(repo, plainCipher{}, &scriptedClient{}, newFakeClock(testBase), nil)

	_, err := svc.ProbeKey(context.Background(), 1, "primary")
	assert.ErrorIs(t, err, ports.ErrCiphertextInvalid)
}

func TestListKeys(t *testing.T) {
	t.Parallel()

	repo := newMemCredentialRepo(
		testCredential(1, "alpha", 0, 0),
		testCredential(1, "bravo", 0, 0),
		testCredential(2, "other", 0, 0),
	)
	svc := NewKeyService(repo, plainCipher{}, &scriptedClient{}, newFakeClock(testBase), nil)

	keys, err := svc.ListKeys(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "alpha", keys[0].Name)
	assert.Equal(t, "bravo", keys[1].Name)
}
