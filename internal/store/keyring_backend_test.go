package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringBackend_RoundTrip(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	s := New(NewKeyringBackend("gatekeep-test"))

	rec := Record{AccessToken: "AAA", IDToken: "BBB", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoRecord)

	// Clearing twice is fine.
	require.NoError(t, s.Clear(ctx))
}

func TestKeyringBackend_DefaultService(t *testing.T) {
	b := NewKeyringBackend("")
	assert.Equal(t, DefaultKeyringService, b.service)
}

func TestKeyringBackend_Unavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("secret service not running"))
	t.Cleanup(keyring.MockInit)

	_, err := New(NewKeyringBackend("gatekeep-test")).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestWithContext_StopsWaiting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	block := make(chan struct{})
	defer close(block)

	err := withContext(ctx, func() error {
		<-block
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
