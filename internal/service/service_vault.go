// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passring Authors

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/passring/passring/internal/logger"
	"github.com/passring/passring/internal/store"
	"github.com/passring/passring/internal/utils"
	"github.com/passring/passring/models"
)

// maxAncestorHops bounds every parent-chain walk so a corrupted cycle in the
// local database cannot hang a request.
const maxAncestorHops = 64

type vaultService struct {
	storages *store.Storages
	codec    CodecService
	uuid     *utils.UUIDGenerator
	logger   *logger.Logger
}

// NewVaultService wires the vault write path: codec for record encryption,
// repositories for persistence.
func NewVaultService(storages *store.Storages, codec CodecService, log *logger.Logger) VaultService {
	return &vaultService{
		storages: storages,
		codec:    codec,
		uuid:     utils.NewUUIDGenerator(),
		logger:   log,
	}
}

func (s *vaultService) Create(ctx context.Context, input models.NewItemInput) (models.VaultItem, error) {
	log := logger.FromContext(ctx)

	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return models.VaultItem{}, fmt.Errorf("%w: owner id missing from context", ErrInvalidInput)
	}
	if err := validateNewItem(input); err != nil {
		return models.VaultItem{}, err
	}
	if !s.codec.Unlocked() && needsCipher(input.Kind) {
		return models.VaultItem{}, ErrKeyUnavailable
	}

	now := time.Now().UTC()
	item := models.VaultItem{
		ID:        s.uuid.Generate(),
		OwnerID:   ownerID,
		Kind:      input.Kind,
		Title:     input.Title,
		Username:  input.Username,
		URL:       input.URL,
		FolderID:  input.FolderID,
		ParentID:  input.ParentID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch input.Kind {
	case models.Folder:
		if err := s.checkFolderDepth(ctx, ownerID, input.ParentID, 1); err != nil {
			return models.VaultItem{}, err
		}
	case models.Tag:
		if err := s.checkTagName(ctx, ownerID, input.Title, ""); err != nil {
			return models.VaultItem{}, err
		}
	}
	if input.FolderID != nil {
		if err := s.requireLiveFolder(ctx, ownerID, *input.FolderID); err != nil {
			return models.VaultItem{}, err
		}
	}

	if err := s.encryptRecords(&item, input.Secret, input.Body); err != nil {
		return models.VaultItem{}, err
	}

	entry, err := s.newOutboxEntry(&item, models.OpCreate, 0)
	if err != nil {
		return models.VaultItem{}, err
	}
	if err := s.storages.Vault.SaveWithOutbox(ctx, &item, entry); err != nil {
		log.Err(err).
			Str("func", "vaultService.Create").
			Str("item_id", item.ID).
			Msg("failed to persist new vault item")
		return models.VaultItem{}, fmt.Errorf("create vault item: %w", err)
	}

	return item, nil
}

func (s *vaultService) Update(ctx context.Context, id string, patch models.ItemPatch) (models.VaultItem, error) {
	log := logger.FromContext(ctx)

	ownerID, item, err := s.load(ctx, id)
	if err != nil {
		return models.VaultItem{}, err
	}
	if item.Deleted() {
		return models.VaultItem{}, fmt.Errorf("%w: item %s is deleted", ErrNotFound, id)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.VaultItem{}, fmt.Errorf("%w: empty title", ErrInvalidInput)
		}
		if item.Kind == models.Tag && !strings.EqualFold(title, item.Title) {
			if err := s.checkTagName(ctx, ownerID, title, item.ID); err != nil {
				return models.VaultItem{}, err
			}
		}
		item.Title = title
	}
	if patch.Username != nil {
		item.Username = *patch.Username
	}
	if patch.URL != nil {
		item.URL = *patch.URL
	}
	if patch.FolderID != nil {
		if *patch.FolderID != "" {
			if err := s.requireLiveFolder(ctx, ownerID, *patch.FolderID); err != nil {
				return models.VaultItem{}, err
			}
			item.FolderID = patch.FolderID
		} else {
			item.FolderID = nil
		}
	}

	if patch.Secret != nil || patch.Body != nil {
		if err := s.encryptRecords(&item, patch.Secret, patch.Body); err != nil {
			return models.VaultItem{}, err
		}
	}

	baseVersion := item.Version
	item.Version++
	item.UpdatedAt = time.Now().UTC()

	entry, err := s.newOutboxEntry(&item, models.OpUpdate, baseVersion)
	if err != nil {
		return models.VaultItem{}, err
	}
	if err := s.storages.Vault.UpdateWithOutbox(ctx, &item, entry); err != nil {
		log.Err(err).
			Str("func", "vaultService.Update").
			Str("item_id", item.ID).
			Msg("failed to persist vault item update")
		return models.VaultItem{}, mapStoreError(err, id)
	}

	return item, nil
}

func (s *vaultService) SoftDelete(ctx context.Context, id string) error {
	ownerID, item, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if item.Deleted() {
		return nil
	}

	if item.Kind == models.Folder {
		return s.softDeleteTree(ctx, ownerID, item)
	}
	return s.softDeleteOne(ctx, item)
}

// softDeleteTree walks the folder subtree breadth-first and soft-deletes
// every live row it finds, deepest rows last. Each row keeps the invariant
// of one outbox entry per mutation.
func (s *vaultService) softDeleteTree(ctx context.Context, ownerID int64, root models.VaultItem) error {
	queue := []models.VaultItem{root}
	visited := map[string]bool{root.ID: true}

	for hops := 0; len(queue) > 0; hops++ {
		if hops >= maxAncestorHops {
			return fmt.Errorf("%w: folder tree walk exceeded %d levels", ErrMaxNestingExceeded, maxAncestorHops)
		}

		next := make([]models.VaultItem, 0)
		for _, node := range queue {
			if node.Kind == models.Folder {
				children, err := s.storages.Vault.ListChildren(ctx, ownerID, node.ID)
				if err != nil {
					return fmt.Errorf("list folder children %s: %w", node.ID, err)
				}
				for _, child := range children {
					if !visited[child.ID] {
						visited[child.ID] = true
						next = append(next, child)
					}
				}
			}
			if err := s.softDeleteOne(ctx, node); err != nil {
				return err
			}
		}
		queue = next
	}
	return nil
}

func (s *vaultService) softDeleteOne(ctx context.Context, item models.VaultItem) error {
	log := logger.FromContext(ctx)

	now := time.Now().UTC()
	baseVersion := item.Version
	item.Version++
	item.UpdatedAt = now
	item.DeletedAt = &now

	entry, err := s.newOutboxEntry(&item, models.OpDelete, baseVersion)
	if err != nil {
		return err
	}
	if err := s.storages.Vault.UpdateWithOutbox(ctx, &item, entry); err != nil {
		log.Err(err).
			Str("func", "vaultService.softDeleteOne").
			Str("item_id", item.ID).
			Msg("failed to soft-delete vault item")
		return mapStoreError(err, item.ID)
	}
	return nil
}

func (s *vaultService) Restore(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	_, item, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !item.Deleted() {
		return nil
	}
	if time.Since(*item.DeletedAt) > models.SoftDeleteRetention {
		return fmt.Errorf("%w: retention window elapsed for item %s", ErrNotFound, id)
	}

	baseVersion := item.Version
	item.Version++
	item.UpdatedAt = time.Now().UTC()
	item.DeletedAt = nil

	entry, err := s.newOutboxEntry(&item, models.OpUpdate, baseVersion)
	if err != nil {
		return err
	}
	if err := s.storages.Vault.UpdateWithOutbox(ctx, &item, entry); err != nil {
		log.Err(err).
			Str("func", "vaultService.Restore").
			Str("item_id", item.ID).
			Msg("failed to restore vault item")
		return mapStoreError(err, id)
	}
	return nil
}

func (s *vaultService) Get(ctx context.Context, id string) (models.PlainItem, error) {
	_, item, err := s.load(ctx, id)
	if err != nil {
		return models.PlainItem{}, err
	}
	return s.decryptItem(item)
}

func (s *vaultService) List(ctx context.Context, includeDeleted bool) ([]models.PlainItem, error) {
	log := logger.FromContext(ctx)

	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: owner id missing from context", ErrInvalidInput)
	}

	items, err := s.storages.Vault.List(ctx, ownerID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("list vault items: %w", err)
	}

	out := make([]models.PlainItem, 0, len(items))
	for _, item := range items {
		plain, decErr := s.decryptItem(item)
		if decErr != nil {
			// One undecryptable item must not take the whole listing down.
			log.Warn().
				Str("func", "vaultService.List").
				Str("item_id", item.ID).
				Err(decErr).
				Msg("skipping item that failed to decrypt")
			continue
		}
		out = append(out, plain)
	}
	return out, nil
}

func (s *vaultService) MoveFolder(ctx context.Context, folderID string, newParentID *string) error {
	log := logger.FromContext(ctx)

	ownerID, folder, err := s.load(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.Kind != models.Folder {
		return fmt.Errorf("%w: item %s is not a folder", ErrInvalidInput, folderID)
	}

	if newParentID != nil {
		if *newParentID == folderID {
			return fmt.Errorf("%w: folder cannot be its own parent", ErrInvalidInput)
		}
		inside, err := s.isDescendant(ctx, ownerID, *newParentID, folderID)
		if err != nil {
			return err
		}
		if inside {
			return fmt.Errorf("%w: destination folder lies inside the moved subtree", ErrInvalidInput)
		}
	}

	subtreeHeight, err := s.subtreeHeight(ctx, ownerID, folder)
	if err != nil {
		return err
	}
	if err := s.checkFolderDepth(ctx, ownerID, newParentID, subtreeHeight); err != nil {
		return err
	}

	baseVersion := folder.Version
	folder.Version++
	folder.UpdatedAt = time.Now().UTC()
	folder.ParentID = newParentID

	entry, err := s.newOutboxEntry(&folder, models.OpUpdate, baseVersion)
	if err != nil {
		return err
	}
	if err := s.storages.Vault.UpdateWithOutbox(ctx, &folder, entry); err != nil {
		log.Err(err).
			Str("func", "vaultService.MoveFolder").
			Str("item_id", folder.ID).
			Msg("failed to move folder")
		return mapStoreError(err, folderID)
	}
	return nil
}

func (s *vaultService) TagItem(ctx context.Context, itemID, tagID string) error {
	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: owner id missing from context", ErrInvalidInput)
	}

	tag, err := s.storages.Vault.Get(ctx, ownerID, tagID)
	if err != nil {
		return mapStoreError(err, tagID)
	}
	if tag.Kind != models.Tag {
		return fmt.Errorf("%w: item %s is not a tag", ErrInvalidInput, tagID)
	}
	if _, err = s.storages.Vault.Get(ctx, ownerID, itemID); err != nil {
		return mapStoreError(err, itemID)
	}

	return s.storages.Vault.TagItem(ctx, itemID, tagID)
}

func (s *vaultService) UntagItem(ctx context.Context, itemID, tagID string) error {
	return s.storages.Vault.UntagItem(ctx, itemID, tagID)
}

func (s *vaultService) ItemTags(ctx context.Context, itemID string) ([]string, error) {
	return s.storages.Vault.ListItemTags(ctx, itemID)
}

func (s *vaultService) PurgeExpired(ctx context.Context) (int64, error) {
	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return 0, fmt.Errorf("%w: owner id missing from context", ErrInvalidInput)
	}

	cutoff := time.Now().UTC().Add(-models.SoftDeleteRetention)
	return s.storages.Vault.PurgeDeletedBefore(ctx, ownerID, cutoff)
}

func (s *vaultService) AcknowledgePush(ctx context.Context, itemID string, newVersion int64) error {
	_, item, err := s.load(ctx, itemID)
	if err != nil {
		return err
	}

	item.Version = newVersion
	if err := s.storages.Vault.ApplyRemote(ctx, &item); err != nil {
		return fmt.Errorf("acknowledge push for %s: %w", itemID, err)
	}
	return nil
}

func (s *vaultService) ApplyRemotePayload(ctx context.Context, itemID string, version int64, payload []byte) error {
	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: owner id missing from context", ErrInvalidInput)
	}

	item, err := decodeRemoteItem(payload)
	if err != nil {
		return err
	}
	item.ID = itemID
	item.OwnerID = ownerID
	item.Version = version

	if err := s.storages.Vault.ApplyRemote(ctx, &item); err != nil {
		return fmt.Errorf("apply remote payload for %s: %w", itemID, err)
	}
	return nil
}

func (s *vaultService) ReplaceFromSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: owner id missing from context", ErrInvalidInput)
	}

	items := make([]models.VaultItem, 0, len(snapshot.Items))
	for _, remote := range snapshot.Items {
		item, err := decodeRemoteItem(remote.Payload)
		if err != nil {
			return fmt.Errorf("snapshot item %s: %w", remote.ItemID, err)
		}
		item.ID = remote.ItemID
		item.OwnerID = ownerID
		item.Kind = remote.Kind
		item.Version = remote.Version
		item.DeletedAt = remote.DeletedAt
		items = append(items, item)
	}

	if err := s.storages.Vault.ReplaceAll(ctx, ownerID, items); err != nil {
		return fmt.Errorf("replace local state from snapshot: %w", err)
	}
	return nil
}

// ── internals ────────────────────────────────────────────────────────────────

// load fetches an item owned by the caller in ctx.
func (s *vaultService) load(ctx context.Context, id string) (int64, models.VaultItem, error) {
	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return 0, models.VaultItem{}, fmt.Errorf("%w: owner id missing from context", ErrInvalidInput)
	}

	item, err := s.storages.Vault.Get(ctx, ownerID, id)
	if err != nil {
		return 0, models.VaultItem{}, mapStoreError(err, id)
	}
	return ownerID, item, nil
}

func (s *vaultService) encryptRecords(item *models.VaultItem, secret *models.CredentialSecret, body *models.NoteBody) error {
	if secret != nil {
		payload, err := s.codec.EncryptRecord(secret)
		if err != nil {
			return fmt.Errorf("encrypt credential secret: %w", err)
		}
		item.Secret = &payload
	}
	if body != nil {
		payload, err := s.codec.EncryptRecord(body)
		if err != nil {
			return fmt.Errorf("encrypt note body: %w", err)
		}
		item.Body = &payload
	}
	return nil
}

func (s *vaultService) decryptItem(item models.VaultItem) (models.PlainItem, error) {
	plain := models.PlainItem{Item: item}

	if item.Secret != nil && !item.Secret.Empty() {
		var secret models.CredentialSecret
		if err := s.codec.DecryptRecord(*item.Secret, &secret); err != nil {
			return models.PlainItem{}, fmt.Errorf("decrypt credential secret: %w", err)
		}
		plain.Secret = &secret
	}
	if item.Body != nil && !item.Body.Empty() {
		var body models.NoteBody
		if err := s.codec.DecryptRecord(*item.Body, &body); err != nil {
			return models.PlainItem{}, fmt.Errorf("decrypt note body: %w", err)
		}
		plain.Body = &body
	}
	return plain, nil
}

// checkFolderDepth verifies that attaching a subtree of the given height
// under parentID keeps every node within MaxFolderDepth.
func (s *vaultService) checkFolderDepth(ctx context.Context, ownerID int64, parentID *string, subtreeHeight int) error {
	depth, err := s.ancestorDepth(ctx, ownerID, parentID)
	if err != nil {
		return err
	}
	if depth+subtreeHeight > models.MaxFolderDepth {
		return fmt.Errorf("%w: depth %d exceeds limit %d", ErrMaxNestingExceeded, depth+subtreeHeight, models.MaxFolderDepth)
	}
	return nil
}

// ancestorDepth counts folders from parentID up to the root.
func (s *vaultService) ancestorDepth(ctx context.Context, ownerID int64, parentID *string) (int, error) {
	depth := 0
	current := parentID
	for hops := 0; current != nil; hops++ {
		if hops >= maxAncestorHops {
			return 0, fmt.Errorf("%w: ancestor walk exceeded %d hops", ErrMaxNestingExceeded, maxAncestorHops)
		}

		parent, err := s.storages.Vault.Get(ctx, ownerID, *current)
		if err != nil {
			return 0, mapStoreError(err, *current)
		}
		if parent.Kind != models.Folder || parent.Deleted() {
			return 0, fmt.Errorf("%w: parent %s is not a live folder", ErrInvalidInput, *current)
		}

		depth++
		current = parent.ParentID
	}
	return depth, nil
}

// subtreeHeight returns the height of the folder subtree rooted at folder,
// counting folder itself as 1.
func (s *vaultService) subtreeHeight(ctx context.Context, ownerID int64, folder models.VaultItem) (int, error) {
	height := 0
	queue := []string{folder.ID}

	for level := 0; len(queue) > 0; level++ {
		if level >= maxAncestorHops {
			return 0, fmt.Errorf("%w: folder tree walk exceeded %d levels", ErrMaxNestingExceeded, maxAncestorHops)
		}
		height = level + 1

		next := make([]string, 0)
		for _, id := range queue {
			children, err := s.storages.Vault.ListChildren(ctx, ownerID, id)
			if err != nil {
				return 0, fmt.Errorf("list folder children %s: %w", id, err)
			}
			for _, child := range children {
				if child.Kind == models.Folder {
					next = append(next, child.ID)
				}
			}
		}
		queue = next
	}
	return height, nil
}

// isDescendant reports whether candidate lies in the subtree rooted at rootID.
func (s *vaultService) isDescendant(ctx context.Context, ownerID int64, candidate, rootID string) (bool, error) {
	current := &candidate
	for hops := 0; current != nil; hops++ {
		if hops >= maxAncestorHops {
			return false, fmt.Errorf("%w: ancestor walk exceeded %d hops", ErrMaxNestingExceeded, maxAncestorHops)
		}
		if *current == rootID {
			return true, nil
		}

		node, err := s.storages.Vault.Get(ctx, ownerID, *current)
		if err != nil {
			return false, mapStoreError(err, *current)
		}
		current = node.ParentID
	}
	return false, nil
}

func (s *vaultService) checkTagName(ctx context.Context, ownerID int64, name, selfID string) error {
	existing, err := s.storages.Vault.FindTagByName(ctx, ownerID, name)
	if errors.Is(err, store.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check tag name: %w", err)
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: tag %q", ErrDuplicateName, strings.TrimSpace(name))
	}
	return nil
}

func (s *vaultService) requireLiveFolder(ctx context.Context, ownerID int64, folderID string) error {
	folder, err := s.storages.Vault.Get(ctx, ownerID, folderID)
	if err != nil {
		return mapStoreError(err, folderID)
	}
	if folder.Kind != models.Folder || folder.Deleted() {
		return fmt.Errorf("%w: %s is not a live folder", ErrInvalidInput, folderID)
	}
	return nil
}

// newOutboxEntry snapshots the item's ciphered wire form into an outbox row.
func (s *vaultService) newOutboxEntry(item *models.VaultItem, op models.Operation, baseVersion int64) (*models.OutboxEntry, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("serialize outbox payload: %w", err)
	}

	return &models.OutboxEntry{
		Op:          op,
		Kind:        item.Kind,
		ItemID:      item.ID,
		Payload:     payload,
		BaseVersion: baseVersion,
		Timestamp:   time.Now().UTC(),
	}, nil
}

func decodeRemoteItem(payload []byte) (models.VaultItem, error) {
	var item models.VaultItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return models.VaultItem{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return item, nil
}

func validateNewItem(input models.NewItemInput) error {
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unknown item kind %d", ErrInvalidInput, input.Kind)
	}
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidInput)
	}

	switch input.Kind {
	case models.Folder, models.Tag:
		if input.Secret != nil || input.Body != nil {
			return fmt.Errorf("%w: %s cannot carry encrypted records", ErrInvalidInput, input.Kind)
		}
	case models.SecureNote:
		if input.Secret != nil {
			return fmt.Errorf("%w: secure note cannot carry a credential secret", ErrInvalidInput)
		}
	}
	return nil
}

// needsCipher reports whether items of the kind carry encrypted records.
func needsCipher(kind models.ItemKind) bool {
	return kind == models.Credential || kind == models.SecureNote
}

func mapStoreError(err error, id string) error {
	if errors.Is(err, store.ErrItemNotFound) {
		return fmt.Errorf("%w (id=%s)", ErrNotFound, id)
	}
	return err
}
