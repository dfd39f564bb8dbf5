package crypto

// KeySet holds the pair of session keys derived from the user's master
// secret plus the persisted salt. It lives only in memory for the duration
// of an unlocked session: it is never serialized, never persisted alongside
// the data it protects, and must be wiped with Zero on lock or logout.
type KeySet struct {
	// EncryptionKey is the 256-bit AES key protecting vault payloads.
	EncryptionKey []byte

	// AuthKey is the 256-bit key used for integrity hashes toward the
	// remote authority. Derived independently of EncryptionKey.
	AuthKey []byte

	// Salt is the persisted, non-secret derivation salt.
	Salt []byte
}

// Zero overwrites both keys in memory with zeros and drops the slices.
// The salt is not secret and is left intact.
func (k *KeySet) Zero() {
	if k == nil {
		return
	}
	wipe(k.EncryptionKey)
	wipe(k.AuthKey)
	k.EncryptionKey = nil
	k.AuthKey = nil
}

// wipe overwrites a byte slice in memory with zeros.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
