package crypto

import "errors"

// Sentinel errors returned by the keychain. Callers should use [errors.Is]
// to match against these values.
var (
	// ErrWeakParameters is returned when key derivation is requested with an
	// iteration count below the configured minimum.
	ErrWeakParameters = errors.New("key derivation parameters below minimum strength")

	// ErrDecryptionFailed is returned on any authentication-tag mismatch,
	// wrong key, or corrupted ciphertext. The cause is deliberately not
	// distinguished: the caller must not be able to tell "wrong password"
	// from "tampered data".
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrRandomUnavailable is returned by NewKeyChainService when the
	// platform CSPRNG cannot be read. Nothing in this package works without
	// it, so construction fails outright.
	ErrRandomUnavailable = errors.New("platform secure random source unavailable")
)
