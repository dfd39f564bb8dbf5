// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package service

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/passring/passring/internal/crypto"
	"github.com/passring/passring/models"
)

type codecService struct {
	keychain crypto.KeyChainService

	mu     sync.RWMutex
	keySet *crypto.KeySet
}

// NewCodecService builds the record codec on top of the keychain. The codec
// starts locked; install a KeySet via SetKeySet after unlock.
func NewCodecService(keychain crypto.KeyChainService) CodecService {
	return &codecService{keychain: keychain}
}

func (c *codecService) SetKeySet(ks *crypto.KeySet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keySet = ks
}

func (c *codecService) ClearKeySet() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keySet != nil {
		c.keySet.Zero()
		c.keySet = nil
	}
}

func (c *codecService) Unlocked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keySet != nil
}

func (c *codecService) EncryptField(plain string) (models.EncryptedPayload, error) {
	key, err := c.encryptionKey()
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	return c.keychain.Encrypt([]byte(plain), key)
}

func (c *codecService) DecryptField(payload models.EncryptedPayload) (string, error) {
	key, err := c.encryptionKey()
	if err != nil {
		return "", err
	}

	plain, err := c.keychain.Decrypt(payload, key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (c *codecService) EncryptRecord(v any) (models.EncryptedPayload, error) {
	key, err := c.encryptionKey()
	if err != nil {
		return models.EncryptedPayload{}, err
	}

	plain, err := json.Marshal(v)
	if err != nil {
		return models.EncryptedPayload{}, fmt.Errorf("serialize record: %w", err)
	}
	return c.keychain.Encrypt(plain, key)
}

func (c *codecService) DecryptRecord(payload models.EncryptedPayload, target any) error {
	key, err := c.encryptionKey()
	if err != nil {
		return err
	}

	plain, err := c.keychain.Decrypt(payload, key)
	if err != nil {
		return err
	}

	// The payload authenticated, so the bytes are what was sealed. A parse
	// failure here means the record was malformed before encryption.
	if err := json.Unmarshal(plain, target); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return nil
}

// encryptionKey snapshots the current encryption key under the read lock.
func (c *codecService) encryptionKey() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.keySet == nil || len(c.keySet.EncryptionKey) == 0 {
		return nil, ErrKeyUnavailable
	}
	return c.keySet.EncryptionKey, nil
}
