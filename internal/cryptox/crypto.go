// Package cryptox implements the cryptographic primitives of the profile
// vault: salt and token generation, the password verification hash, the
// data-key derivation, and authenticated encryption of stored records.
//
// The login hash and the data key are deliberately produced by different
// KDFs over domain-separated salt material, so that compromise of the
// stored hash does not yield the encryption key (and vice versa).
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"profilevault/internal/common"
)

const (
	// SaltSize is the number of random bytes in a freshly generated salt.
	SaltSize = 32

	// KeySize is the AES-256 key length produced by DeriveDataKey.
	KeySize = 32

	nonceSize = 12

	pbkdf2Iterations = 210_000
)

// Domain-separation labels mixed into the salt for the two derivation paths.
var (
	authDomain = []byte("profilevault/auth/v1")
	dataDomain = []byte("profilevault/data/v1")
)

// GenerateSalt returns a fresh random salt. Each profile gets its own.
func GenerateSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// GenerateToken returns a random hex token of 2*sizeBytes characters,
// suitable for session tokens and opaque ids.
func GenerateToken(sizeBytes int) (string, error) {
	return common.MakeRandHexString(sizeBytes)
}

func domainSalt(salt, domain []byte) []byte {
	out := make([]byte, 0, len(salt)+len(domain))
	out = append(out, salt...)
	return append(out, domain...)
}

// HashPassword produces the stored login-verification hash for a password.
// It is used only to verify credentials, never as an encryption key.
func HashPassword(password, salt []byte) []byte {
	return pbkdf2.Key(password, domainSalt(salt, authDomain), pbkdf2Iterations, KeySize, sha256.New)
}

// VerifyPassword reports whether password matches the stored hash.
// Comparison is constant-time.
func VerifyPassword(password, salt, storedHash []byte) bool {
	candidate := HashPassword(password, salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, storedHash) == 1
}

// DeriveDataKey derives the profile's symmetric data-encryption key from the
// password. The derivation path is distinct from HashPassword: argon2id over
// the data-domain salt.
func DeriveDataKey(password, salt []byte) []byte {
	return argon2.IDKey(password, domainSalt(salt, dataDomain), 1, 64*1024, 4, KeySize)
}

// Encrypt seals plaintext with AES-GCM under key. A fresh random 12-byte
// nonce is generated per call and returned alongside the ciphertext.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens an AES-GCM ciphertext. If the authentication tag does not
// verify (tampered data or wrong key) it returns common.ErrIntegrity rather
// than corrupted plaintext.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrity, err)
	}
	return plaintext, nil
}

// EncryptEntry serializes v to JSON and encrypts it with Encrypt.
func EncryptEntry(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(plaintext)
	return Encrypt(plaintext, key)
}

// DecryptEntry decrypts a ciphertext produced by EncryptEntry and
// unmarshals the resulting JSON into v.
func DecryptEntry(ciphertext, nonce, key []byte, v any) error {
	plaintext, err := Decrypt(ciphertext, nonce, key)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)
	return json.Unmarshal(plaintext, v)
}

// MakeVerifier returns a SHA-256 digest of key, used by backup blobs to
// prove knowledge of the export password without decrypting the payload.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	return aesgcm, nil
}
