package models

// EncryptedPayload is the transportable form of a single encrypted vault
// field. All three parts are opaque to any non-key-holder; the database and
// the sync transport treat the whole value as a blob.
//
// Invariant: a fresh IV is generated for every encryption call. Reuse of the
// same (key, IV) pair is forbidden.
type EncryptedPayload struct {
	// Ciphertext is the AES-256-GCM output without the authentication tag.
	Ciphertext []byte `json:"ciphertext"`

	// IV is the 96-bit nonce used for this encryption.
	IV []byte `json:"iv"`

	// AuthTag is the 128-bit GCM authentication tag.
	AuthTag []byte `json:"auth_tag"`
}

// Empty reports whether the payload carries no ciphertext at all.
func (p EncryptedPayload) Empty() bool {
	return len(p.Ciphertext) == 0 && len(p.IV) == 0 && len(p.AuthTag) == 0
}
