package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMaster = strings.Repeat("ab", 32)

func TestTenantKeyring_Deterministic(t *testing.T) {
	a, err := NewTenantKeyring(testMaster)
	require.NoError(t, err)
	b, err := NewTenantKeyring(testMaster)
	require.NoError(t, err)

	sa, err := a.ForTenant("tenant-a")
	require.NoError(t, err)
	sb, err := b.ForTenant("tenant-a")
	require.NoError(t, err)
	assert.Equal(t, sa.PublicKey(), sb.PublicKey())
	assert.True(t, strings.HasPrefix(sa.KeyID, "key-"))

	other, err := a.ForTenant("tenant-b")
	require.NoError(t, err)
	assert.NotEqual(t, sa.PublicKey(), other.PublicKey())

	again, err := a.ForTenant("tenant-a")
	require.NoError(t, err)
	assert.Same(t, sa, again)
}

func TestNewTenantKeyring_Rejects(t *testing.T) {
	_, err := NewTenantKeyring("zz")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = NewTenantKeyring(strings.Repeat("ab", 16))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSignVerify(t *testing.T) {
	k, err := NewEphemeralKeyring()
	require.NoError(t, err)
	s, err := k.ForTenant("")
	require.NoError(t, err)

	msg := []byte(`{"run_id":"run-1"}`)
	sig := s.Sign(msg)

	ok, err := Verify(s.PublicKey(), sig, msg)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(s.PublicKey(), sig, []byte(`{"run_id":"run-2"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify("00", sig, msg)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = Verify(s.PublicKey(), "not-hex", msg)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
