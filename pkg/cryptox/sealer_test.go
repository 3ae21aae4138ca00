package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/nearbynurse/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var secret = []byte("sealer-test-master-secret-0123456789")

func TestSealOpen(t *testing.T) {
	t.Parallel()

	s, err := cryptox.NewSealer(secret, "credentials")
	require.NoError(t, err)

	plaintext := []byte(`{"access_token":"a","refresh_token":"r"}`)
	sealed, err := s.Seal(plaintext, []byte("key-1"))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "refresh_token")

	opened, err := s.Open(sealed, []byte("key-1"))
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)

	again, err := s.Seal(plaintext, []byte("key-1"))
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonces must differ")
}

func TestOpenRejects(t *testing.T) {
	t.Parallel()

	s, err := cryptox.NewSealer(secret, "credentials")
	require.NoError(t, err)
	sealed, err := s.Seal([]byte("payload"), nil)
	require.NoError(t, err)

	t.Run("wrong aad", func(t *testing.T) {
		_, err := s.Open(sealed, []byte("other"))
		require.ErrorIs(t, err, cryptox.ErrOpen)
	})

	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte(nil), sealed...)
		bad[len(bad)-1] ^= 0xff
		_, err := s.Open(bad, nil)
		require.ErrorIs(t, err, cryptox.ErrOpen)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := s.Open(sealed[:10], nil)
		require.ErrorIs(t, err, cryptox.ErrOpen)
	})

	t.Run("other purpose", func(t *testing.T) {
		other, err := cryptox.NewSealer(secret, "something-else")
		require.NoError(t, err)
		_, err = other.Open(sealed, nil)
		require.ErrorIs(t, err, cryptox.ErrOpen)
	})
}

func TestNewSealerShortSecret(t *testing.T) {
	t.Parallel()

	_, err := cryptox.NewSealer([]byte("short"), "x")
	require.Error(t, err)
}
