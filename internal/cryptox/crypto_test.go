package cryptox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilevault/internal/common"
)

func TestDeriveDataKeyDeterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveDataKey(password, salt)
	key2 := DeriveDataKey(password, salt)

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, KeySize)
}

func TestDeriveDataKeyDifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveDataKey(password, []byte("salt-1"))
	key2 := DeriveDataKey(password, []byte("salt-2"))

	assert.NotEqual(t, key1, key2)
}

// The login hash and the data key must not coincide for identical inputs.
func TestKeySeparation(t *testing.T) {
	password := []byte("correct horse battery staple")
	salt := GenerateSalt()

	hash := HashPassword(password, salt)
	key := DeriveDataKey(password, salt)

	assert.NotEqual(t, hash, key)
}

func TestVerifyPassword(t *testing.T) {
	password := []byte("password1234")
	salt := GenerateSalt()
	stored := HashPassword(password, salt)

	assert.True(t, VerifyPassword(password, salt, stored))
	assert.False(t, VerifyPassword([]byte("wrongpass"), salt, stored))
	assert.False(t, VerifyPassword(password, GenerateSalt(), stored))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)
	plaintext := []byte("hello, профиль ✓")

	ciphertext, nonce, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := Decrypt(ciphertext, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptWrongKeyIsIntegrityError(t *testing.T) {
	keyA := common.GenerateRandByteArray(KeySize)
	keyB := common.GenerateRandByteArray(KeySize)

	ciphertext, nonce, err := Encrypt([]byte("data"), keyA)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, nonce, keyB)
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestDecryptTamperedIsIntegrityError(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)

	ciphertext, nonce, err := Encrypt([]byte("data"), key)
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	_, err = Decrypt(ciphertext, nonce, key)
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestEncryptBadKeyLength(t *testing.T) {
	_, _, err := Encrypt([]byte("data"), []byte("short"))
	assert.ErrorIs(t, err, common.ErrCrypto)
	assert.False(t, errors.Is(err, common.ErrIntegrity))
}

func TestEncryptDecryptEntry(t *testing.T) {
	type note struct {
		Text string `json:"text"`
		N    int    `json:"n"`
	}

	key := common.GenerateRandByteArray(KeySize)
	in := note{Text: "héllo", N: 42}

	ciphertext, nonce, err := EncryptEntry(in, key)
	require.NoError(t, err)

	var out note
	require.NoError(t, DecryptEntry(ciphertext, nonce, key, &out))
	assert.Equal(t, in, out)
}

func TestGenerateToken(t *testing.T) {
	t1, err := GenerateToken(16)
	require.NoError(t, err)
	t2, err := GenerateToken(16)
	require.NoError(t, err)

	assert.Len(t, t1, 32)
	assert.NotEqual(t, t1, t2)
}

func TestGenerateSalt(t *testing.T) {
	s1 := GenerateSalt()
	s2 := GenerateSalt()
	assert.Len(t, s1, SaltSize)
	assert.NotEqual(t, s1, s2)
}
