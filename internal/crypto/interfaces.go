package crypto

import "github.com/passring/passring/models"

//go:generate mockgen -source=interfaces.go -destination=../mock/keychain_service_mock.go -package=mock

// KeyChainService owns all client-side cryptography of the zero-knowledge
// scheme. It knows nothing about the network, the database, or users; its
// only job is deriving and applying keys.
//
// Scheme:
//
//	KeySet  = DeriveKeys(secret, salt, iterations)   (unlock)
//	payload = Encrypt(plaintext, KeySet.EncryptionKey)
//	plain   = Decrypt(payload, KeySet.EncryptionKey)
type KeyChainService interface {
	// DeriveKeys derives the session key pair from the master secret.
	//
	// A nil salt means the registration path: a fresh 16-byte random salt is
	// generated and returned inside the KeySet. A non-nil salt (the login
	// path) reproduces the exact same keys deterministically.
	//
	// The encryption key and the authentication key are computed by running
	// the derivation twice: once against salt, once against a variant salt
	// whose first byte has its high bits flipped. The two keys are therefore
	// computationally independent even though both come from the same secret.
	//
	// Returns ErrWeakParameters if iterations < MinIterations.
	DeriveKeys(secret string, salt []byte, iterations int) (*KeySet, error)

	// Encrypt seals plaintext with AES-256-GCM under key using a fresh
	// random 96-bit IV. The 128-bit authentication tag is carried separately
	// from the ciphertext in the returned payload.
	Encrypt(plaintext, key []byte) (models.EncryptedPayload, error)

	// Decrypt opens payload with key. Any tag mismatch, wrong key, or
	// corrupted ciphertext yields the same ErrDecryptionFailed; the cause
	// is never distinguishable to the caller.
	Decrypt(payload models.EncryptedPayload, key []byte) ([]byte, error)

	// GenerateRandomSecret returns a string of length characters drawn
	// uniformly from charset using the OS CSPRNG with rejection sampling
	// (no modulo bias).
	GenerateRandomSecret(length int, charset string) (string, error)

	// Hash returns the SHA-256 digest of data.
	Hash(data []byte) []byte
}
