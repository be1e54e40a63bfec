package vault

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
)

func testKey(t *testing.T) string {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(key)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	plaintext := []byte("postgres://user:hunter2@db:5432/app")

	sealed, err := v.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := v.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	first, err := v.Encrypt([]byte("value"))
	require.NoError(t, err)

	second, err := v.Encrypt([]byte("value"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "fresh nonce per encryption")
}

func TestDecryptAcrossInstances(t *testing.T) {
	key := testKey(t)

	writer, err := New(key)
	require.NoError(t, err)

	reader, err := New(key)
	require.NoError(t, err)

	sealed, err := writer.Encrypt([]byte("shared"))
	require.NoError(t, err)

	opened, err := reader.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), opened)
}

func TestDecryptRejectsTampering(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	sealed, err := v.Encrypt([]byte("value"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01

	_, err = v.Decrypt(sealed)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDecryption, apperrors.KindOf(err))
}

func TestDecryptRejectsTruncatedInput(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	_, err = v.Decrypt([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDecryption, apperrors.KindOf(err))
}

func TestNewRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not base64", "%%%not-base64%%%"},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, 16))},
		{"too long", base64.StdEncoding.EncodeToString(make([]byte, 48))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.key)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindEncryption, apperrors.KindOf(err))
		})
	}
}
