package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passring/passring/internal/crypto"
	"github.com/passring/passring/models"
)

func newUnlockedCodec(t *testing.T) CodecService {
	t.Helper()

	keychain, err := crypto.NewKeyChainService()
	require.NoError(t, err)

	ks, err := keychain.DeriveKeys("correct-horse-battery", nil, crypto.MinIterations)
	require.NoError(t, err)

	codec := NewCodecService(keychain)
	codec.SetKeySet(ks)
	return codec
}

func TestCodec_FieldRoundTrip(t *testing.T) {
	codec := newUnlockedCodec(t)

	payload, err := codec.EncryptField("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(payload.Ciphertext), "hunter2")

	plain, err := codec.DecryptField(payload)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestCodec_RecordRoundTrip(t *testing.T) {
	codec := newUnlockedCodec(t)

	totp := "JBSWY3DPEHPK3PXP"
	secret := models.CredentialSecret{Password: "hunter2", TOTP: &totp}

	payload, err := codec.EncryptRecord(secret)
	require.NoError(t, err)

	var got models.CredentialSecret
	require.NoError(t, codec.DecryptRecord(payload, &got))
	assert.Equal(t, secret, got)
}

func TestCodec_LockedOperationsFail(t *testing.T) {
	keychain, err := crypto.NewKeyChainService()
	require.NoError(t, err)
	codec := NewCodecService(keychain)

	assert.False(t, codec.Unlocked())

	_, err = codec.EncryptField("x")
	assert.ErrorIs(t, err, ErrKeyUnavailable)

	_, err = codec.EncryptRecord(models.NoteBody{Text: "x"})
	assert.ErrorIs(t, err, ErrKeyUnavailable)

	err = codec.DecryptRecord(models.EncryptedPayload{}, &models.NoteBody{})
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestCodec_ClearKeySetLocks(t *testing.T) {
	codec := newUnlockedCodec(t)
	require.True(t, codec.Unlocked())

	codec.ClearKeySet()
	assert.False(t, codec.Unlocked())

	_, err := codec.EncryptField("x")
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestCodec_WrongKeyIsDecryptionFailure(t *testing.T) {
	codec := newUnlockedCodec(t)

	payload, err := codec.EncryptRecord(models.NoteBody{Text: "secret note"})
	require.NoError(t, err)

	keychain, err := crypto.NewKeyChainService()
	require.NoError(t, err)
	other := NewCodecService(keychain)
	otherKS, err := keychain.DeriveKeys("different-secret", nil, crypto.MinIterations)
	require.NoError(t, err)
	other.SetKeySet(otherKS)

	var got models.NoteBody
	err = other.DecryptRecord(payload, &got)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
	assert.NotErrorIs(t, err, ErrCorruptRecord)
}

func TestCodec_CorruptRecordDistinctFromCipherFailure(t *testing.T) {
	codec := newUnlockedCodec(t)

	// Valid ciphertext whose plaintext is not a serialized record.
	payload, err := codec.EncryptField("this is not json")
	require.NoError(t, err)

	var got models.NoteBody
	err = codec.DecryptRecord(payload, &got)
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.NotErrorIs(t, err, crypto.ErrDecryptionFailed)
}
