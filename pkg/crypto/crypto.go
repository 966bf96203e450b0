// Package crypto is the credential vault: authenticated symmetric encryption
// for secrets at rest (mailbox passwords, LLM API keys). The master key comes
// from the process environment and is never persisted.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// ErrDecryption is returned for any failure to recover plaintext: wrong or
// missing master key, corrupt blob, unknown blob version. It never reveals
// which condition failed beyond the wrapped detail.
var ErrDecryption = errors.New("decryption failed")

const (
	// keyVersion tags the key generation used for a blob so bulk rotation
	// can tell old-key blobs from new-key ones. Decrypt rejects versions it
	// does not know instead of guessing parameters.
	keyVersion byte = 0x01

	saltSize   = 16
	nonceSize  = 12
	keyLen     = 32
	iterations = 100_000
)

// Encrypt seals plaintext under a key derived from masterKey with a fresh
// random salt and nonce. Output layout: version || salt || nonce || ciphertext+tag,
// base64 encoded, self-describing.
func Encrypt(plaintext, masterKey string) (string, error) {
	if masterKey == "" {
		return "", fmt.Errorf("master key is empty")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(masterKey, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, 1+saltSize+nonceSize+len(sealed))
	blob = append(blob, keyVersion)
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. Any failure, including an authentication tag
// mismatch under a wrong key, yields ErrDecryption.
func Decrypt(blob, masterKey string) (string, error) {
	if masterKey == "" {
		return "", fmt.Errorf("%w: master key is empty", ErrDecryption)
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrDecryption)
	}
	if len(raw) < 1+saltSize+nonceSize+16 {
		return "", fmt.Errorf("%w: blob too short", ErrDecryption)
	}
	if raw[0] != keyVersion {
		return "", fmt.Errorf("%w: unknown key version %d", ErrDecryption, raw[0])
	}

	salt := raw[1 : 1+saltSize]
	nonce := raw[1+saltSize : 1+saltSize+nonceSize]
	sealed := raw[1+saltSize+nonceSize:]

	gcm, err := newGCM(masterKey, salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}

	return string(plaintext), nil
}

// Rotate re-encrypts a blob under a new master key. Rotation is bulk
// decrypt-then-encrypt over all stored secrets; there is no multi-key lookup.
func Rotate(blob, oldKey, newKey string) (string, error) {
	plaintext, err := Decrypt(blob, oldKey)
	if err != nil {
		return "", err
	}
	return Encrypt(plaintext, newKey)
}

func newGCM(masterKey string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(masterKey), salt, iterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
