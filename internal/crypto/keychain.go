// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/passring/passring/models"
)

const (
	// MinIterations is the lowest PBKDF2 iteration count accepted by
	// DeriveKeys. Anything below fails with ErrWeakParameters.
	MinIterations = 100_000

	saltLength = 16
	keyLength  = 32 // 256 bits
	ivLength   = 12 // 96 bits, GCM standard nonce
	tagLength  = 16 // 128 bits
)

// keyChainService is the private implementation of [KeyChainService].
type keyChainService struct{}

// NewKeyChainService constructs a [KeyChainService]. It probes the OS CSPRNG
// once; if the platform cannot supply secure random bytes the constructor
// fails with [ErrRandomUnavailable] and the whole engine is unusable.
func NewKeyChainService() (KeyChainService, error) {
	var probe [1]byte
	if _, err := io.ReadFull(rand.Reader, probe[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomUnavailable, err)
	}
	return &keyChainService{}, nil
}

// DeriveKeys implements [KeyChainService]. It runs PBKDF2-SHA256 twice over
// the master secret: once with the given salt for the encryption key, once
// with a variant salt (high bits of the first byte flipped) for the auth
// key. The flip guarantees the two derivations never share a salt, so the
// keys are computationally independent.
func (k *keyChainService) DeriveKeys(secret string, salt []byte, iterations int) (*KeySet, error) {
	if iterations < MinIterations {
		return nil, fmt.Errorf("%w: %d iterations (minimum %d)", ErrWeakParameters, iterations, MinIterations)
	}

	if salt == nil {
		// Registration path: fresh random salt, persisted by the caller.
		salt = make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	}

	authSalt := make([]byte, len(salt))
	copy(authSalt, salt)
	authSalt[0] ^= 0xF0 // domain-separates the auth key from the encryption key

	return &KeySet{
		EncryptionKey: pbkdf2.Key([]byte(secret), salt, iterations, keyLength, sha256.New),
		AuthKey:       pbkdf2.Key([]byte(secret), authSalt, iterations, keyLength, sha256.New),
		Salt:          salt,
	}, nil
}

// Encrypt implements [KeyChainService]. It seals plaintext with AES-256-GCM
// under a fresh random 12-byte IV and splits the 16-byte authentication tag
// off the sealed output so ciphertext and tag travel as separate fields.
func (k *keyChainService) Encrypt(plaintext, key []byte) (models.EncryptedPayload, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return models.EncryptedPayload{}, err
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return models.EncryptedPayload{}, fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)

	// GCM appends the tag to the ciphertext; carry it separately.
	split := len(sealed) - tagLength
	return models.EncryptedPayload{
		Ciphertext: sealed[:split],
		IV:         iv,
		AuthTag:    sealed[split:],
	}, nil
}

// Decrypt implements [KeyChainService]. Every failure mode (short IV, bad
// tag length, wrong key, corrupted ciphertext) collapses into
// [ErrDecryptionFailed] so the caller cannot build a decryption oracle.
func (k *keyChainService) Decrypt(payload models.EncryptedPayload, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(payload.IV) != ivLength || len(payload.AuthTag) != tagLength {
		return nil, ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(payload.Ciphertext)+tagLength)
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.AuthTag...)

	plaintext, err := gcm.Open(nil, payload.IV, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// GenerateRandomSecret implements [KeyChainService]. Indexes into charset
// are drawn with rejection sampling: random bytes >= the largest multiple
// of len(charset) are discarded, so every character has equal probability.
func (k *keyChainService) GenerateRandomSecret(length int, charset string) (string, error) {
	if length <= 0 {
		return "", errors.New("secret length must be positive")
	}
	if len(charset) < 2 || len(charset) > 256 {
		return "", errors.New("charset must contain between 2 and 256 characters")
	}

	// Largest multiple of len(charset) that fits in a byte.
	limit := 256 - (256 % len(charset))

	out := make([]byte, 0, length)
	buf := make([]byte, 1)
	for len(out) < length {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return "", fmt.Errorf("read random byte: %w", err)
		}
		if int(buf[0]) >= limit {
			continue // reject to avoid modulo bias
		}
		out = append(out, charset[int(buf[0])%len(charset)])
	}
	return string(out), nil
}

// Hash implements [KeyChainService].
func (k *keyChainService) Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
