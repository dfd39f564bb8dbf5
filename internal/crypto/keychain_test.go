package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func newTestService(t *testing.T) KeyChainService {
	t.Helper()
	svc, err := NewKeyChainService()
	if err != nil {
		t.Fatalf("NewKeyChainService error: %v", err)
	}
	return svc
}

func TestDeriveKeys_GeneratesSaltWhenNil(t *testing.T) {
	svc := newTestService(t)

	ks1, err := svc.DeriveKeys("master-secret", nil, MinIterations)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}
	ks2, err := svc.DeriveKeys("master-secret", nil, MinIterations)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}

	if len(ks1.Salt) != 16 {
		t.Fatalf("salt length = %d, want 16", len(ks1.Salt))
	}
	if bytes.Equal(ks1.Salt, ks2.Salt) {
		t.Fatalf("expected fresh salts to differ, but they are equal")
	}
	if bytes.Equal(ks1.EncryptionKey, ks2.EncryptionKey) {
		t.Fatalf("different salts must yield different encryption keys")
	}
}

func TestDeriveKeys_DeterministicForSameSalt(t *testing.T) {
	svc := newTestService(t)
	salt := bytes.Repeat([]byte{0xAB}, 16)

	ks1, err := svc.DeriveKeys("correct horse battery staple", salt, MinIterations)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}
	ks2, err := svc.DeriveKeys("correct horse battery staple", salt, MinIterations)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}

	if !bytes.Equal(ks1.EncryptionKey, ks2.EncryptionKey) {
		t.Fatalf("expected encryption keys to match for same secret+salt")
	}
	if !bytes.Equal(ks1.AuthKey, ks2.AuthKey) {
		t.Fatalf("expected auth keys to match for same secret+salt")
	}
}

func TestDeriveKeys_EncryptionAndAuthKeysAreIndependent(t *testing.T) {
	svc := newTestService(t)
	salt := bytes.Repeat([]byte{0x01}, 16)

	ks, err := svc.DeriveKeys("some secret", salt, MinIterations)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}

	if bytes.Equal(ks.EncryptionKey, ks.AuthKey) {
		t.Fatalf("encryption key and auth key must differ")
	}
}

func TestDeriveKeys_WeakIterationsRejected(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.DeriveKeys("secret", nil, MinIterations-1)
	if !errors.Is(err, ErrWeakParameters) {
		t.Fatalf("expected ErrWeakParameters, got %v", err)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	ks, err := svc.DeriveKeys("round-trip", nil, MinIterations)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}

	plaintext := []byte("the quick brown fox")
	payload, err := svc.Encrypt(plaintext, ks.EncryptionKey)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	if len(payload.IV) != 12 {
		t.Fatalf("iv length = %d, want 12", len(payload.IV))
	}
	if len(payload.AuthTag) != 16 {
		t.Fatalf("auth tag length = %d, want 16", len(payload.AuthTag))
	}

	got, err := svc.Decrypt(payload, ks.EncryptionKey)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	svc := newTestService(t)
	ks, _ := svc.DeriveKeys("iv-check", nil, MinIterations)

	p1, err := svc.Encrypt([]byte("same plaintext"), ks.EncryptionKey)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	p2, err := svc.Encrypt([]byte("same plaintext"), ks.EncryptionKey)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	if bytes.Equal(p1.IV, p2.IV) {
		t.Fatalf("expected fresh IV per encryption call")
	}
	if bytes.Equal(p1.Ciphertext, p2.Ciphertext) {
		t.Fatalf("same plaintext must not produce identical ciphertext twice")
	}
}

// TestDecrypt_ExampleScenario encodes the reference scenario: keys derived
// from "correct-horse-battery" with a fixed salt decrypt their own output,
// and keys derived from "wrong-secret" with the same salt fail.
func TestDecrypt_ExampleScenario(t *testing.T) {
	svc := newTestService(t)
	salt := bytes.Repeat([]byte{0x42}, 16)

	right, err := svc.DeriveKeys("correct-horse-battery", salt, 100_000)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}

	payload, err := svc.Encrypt([]byte("hunter2"), right.EncryptionKey)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	got, err := svc.Decrypt(payload, right.EncryptionKey)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if string(got) != "hunter2" {
		t.Fatalf("decrypted %q, want %q", got, "hunter2")
	}

	wrong, err := svc.DeriveKeys("wrong-secret", salt, 100_000)
	if err != nil {
		t.Fatalf("DeriveKeys error: %v", err)
	}
	if _, err := svc.Decrypt(payload, wrong.EncryptionKey); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed with wrong key, got %v", err)
	}
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	svc := newTestService(t)
	ks, _ := svc.DeriveKeys("tamper", nil, MinIterations)

	payload, err := svc.Encrypt([]byte("payload under test"), ks.EncryptionKey)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	payload.Ciphertext[0] ^= 0xFF
	if _, err := svc.Decrypt(payload, ks.EncryptionKey); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed on tampered ciphertext, got %v", err)
	}
}

func TestDecrypt_TamperedTagFails(t *testing.T) {
	svc := newTestService(t)
	ks, _ := svc.DeriveKeys("tag-tamper", nil, MinIterations)

	payload, err := svc.Encrypt([]byte("payload"), ks.EncryptionKey)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	payload.AuthTag[0] ^= 0x01
	if _, err := svc.Decrypt(payload, ks.EncryptionKey); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed on tampered tag, got %v", err)
	}
}

func TestGenerateRandomSecret_LengthAndCharset(t *testing.T) {
	svc := newTestService(t)
	charset := "abc123"

	secret, err := svc.GenerateRandomSecret(64, charset)
	if err != nil {
		t.Fatalf("GenerateRandomSecret error: %v", err)
	}
	if len(secret) != 64 {
		t.Fatalf("secret length = %d, want 64", len(secret))
	}
	for _, c := range secret {
		if !strings.ContainsRune(charset, c) {
			t.Fatalf("secret contains %q which is outside the charset", c)
		}
	}
}

func TestGenerateRandomSecret_RejectsBadInput(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GenerateRandomSecret(0, "abc"); err == nil {
		t.Fatalf("expected error for zero length")
	}
	if _, err := svc.GenerateRandomSecret(8, "x"); err == nil {
		t.Fatalf("expected error for single-character charset")
	}
}

func TestHash_DeterministicDigest(t *testing.T) {
	svc := newTestService(t)

	h1 := svc.Hash([]byte("data"))
	h2 := svc.Hash([]byte("data"))
	h3 := svc.Hash([]byte("other"))

	if len(h1) != 32 {
		t.Fatalf("digest length = %d, want 32", len(h1))
	}
	if !bytes.Equal(h1, h2) {
		t.Fatalf("expected identical digests for identical input")
	}
	if bytes.Equal(h1, h3) {
		t.Fatalf("expected different digests for different input")
	}
}

func TestKeySet_ZeroWipesKeys(t *testing.T) {
	svc := newTestService(t)
	ks, _ := svc.DeriveKeys("wipe-me", nil, MinIterations)

	enc := ks.EncryptionKey
	ks.Zero()

	for _, b := range enc {
		if b != 0 {
			t.Fatalf("expected encryption key bytes to be zeroed")
		}
	}
	if ks.EncryptionKey != nil || ks.AuthKey != nil {
		t.Fatalf("expected key slices to be dropped after Zero")
	}
}
