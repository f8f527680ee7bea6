package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	// ivSize is the GCM nonce length. 16 bytes matches rows written by the
	// original deployment, so it cannot change without a data migration.
	ivSize = 16
	tagSize = 16
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ErrMissingSecret is returned when the vault is constructed without an
// encryption secret. Callers treat this as fatal at startup.
var ErrMissingSecret = errors.New("token encryption secret is required")

// DecryptionError reports a failed decrypt: tag mismatch, malformed IV, or a
// stored ciphertext missing its tag delimiter. The credential behind it must
// be treated as unusable, never as an empty secret.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decryption failed (%s)", e.Reason)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// Vault encrypts and decrypts third-party OAuth tokens before and after
// persistence.
type Vault struct {
	gcm cipher.AEAD
}

// NewVault derives the AES-256 key from the configured secret. A secret that
// matches a 64-character hex pattern is used directly as raw key bytes;
// anything else is hashed with SHA-256. Derivation is deterministic, so the
// same secret always yields the same key across process restarts.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	var key []byte
	if hexKeyPattern.MatchString(secret) {
		key, _ = hex.DecodeString(secret)
	} else {
		digest := sha256.Sum256([]byte(secret))
		key = digest[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{gcm: gcm}, nil
}

// Encrypt seals plaintext with a fresh random 16-byte IV. The stored form is
// "<hex-ciphertext>:<hex-tag>" plus the hex IV; the IV is never reused.
func (v *Vault) Encrypt(plaintext string) (ciphertext, iv string, err error) {
	nonce := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal returns ciphertext || tag; split so the tag is stored explicitly.
	sealed := v.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	data, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(data) + ":" + hex.EncodeToString(tag), hex.EncodeToString(nonce), nil
}

// Decrypt reverses Encrypt. Any malformed input or authentication failure
// yields a *DecryptionError; partially decrypted bytes are never returned.
func (v *Vault) Decrypt(ciphertext, iv string) (string, error) {
	data, tag, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", &DecryptionError{Reason: "missing tag delimiter"}
	}

	dataBytes, err := hex.DecodeString(data)
	if err != nil {
		return "", &DecryptionError{Reason: "malformed ciphertext", Err: err}
	}
	tagBytes, err := hex.DecodeString(tag)
	if err != nil {
		return "", &DecryptionError{Reason: "malformed tag", Err: err}
	}
	nonce, err := hex.DecodeString(iv)
	if err != nil {
		return "", &DecryptionError{Reason: "malformed iv", Err: err}
	}
	if len(nonce) != ivSize {
		return "", &DecryptionError{Reason: fmt.Sprintf("iv must be %d bytes, got %d", ivSize, len(nonce))}
	}

	plaintext, err := v.gcm.Open(nil, nonce, append(dataBytes, tagBytes...), nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed", Err: err}
	}

	return string(plaintext), nil
}
