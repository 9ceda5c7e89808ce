package vault

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizpulse/backend/internal/domain/erp"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func testCredentials() erp.Credentials {
	return erp.Credentials{
		ProviderType: erp.ProviderTypeOdoo,
		BaseURL:      "https://erp.example.com",
		Database:     "prod",
		Username:     "api@example.com",
		Password:     "s3cret!",
	}
}

func TestNew(t *testing.T) {
	t.Run("accepts 32 byte key", func(t *testing.T) {
		v, err := New(testKey())
		require.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("accepts longer key material", func(t *testing.T) {
		_, err := New(bytes.Repeat([]byte{0x01}, 48))
		assert.NoError(t, err)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := New([]byte("too-short"))
		assert.ErrorIs(t, err, ErrKeyTooShort)
	})
}

func TestRoundTrip(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	creds := testCredentials()
	blob, err := v.Encrypt(creds)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	got, err := v.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	creds := testCredentials()
	blob1, err := v.Encrypt(creds)
	require.NoError(t, err)
	blob2, err := v.Encrypt(creds)
	require.NoError(t, err)

	// identical plaintexts must not produce identical ciphertexts
	assert.NotEqual(t, blob1, blob2)

	got1, err := v.Decrypt(blob1)
	require.NoError(t, err)
	got2, err := v.Decrypt(blob2)
	require.NoError(t, err)
	assert.Equal(t, got1, got2)
}

func TestDecryptFailures(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	t.Run("invalid encoding", func(t *testing.T) {
		_, err := v.Decrypt("not-base64!!!")
		assert.ErrorIs(t, err, erp.ErrDecryptionFailed)
	})

	t.Run("blob too short", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02})
		_, err := v.Decrypt(short)
		assert.ErrorIs(t, err, erp.ErrDecryptionFailed)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		blob, err := v.Encrypt(testCredentials())
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(blob)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xFF
		tampered := base64.StdEncoding.EncodeToString(raw)

		_, err = v.Decrypt(tampered)
		assert.ErrorIs(t, err, erp.ErrDecryptionFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		blob, err := v.Encrypt(testCredentials())
		require.NoError(t, err)

		other, err := New(bytes.Repeat([]byte{0x99}, 32))
		require.NoError(t, err)

		_, err = other.Decrypt(blob)
		assert.ErrorIs(t, err, erp.ErrDecryptionFailed)
	})
}
