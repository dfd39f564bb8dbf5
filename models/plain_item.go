package models

// NewItemInput carries the caller-supplied fields of a Create call. Secret
// and Body are plaintext here; the vault service encrypts them before
// anything touches disk.
type NewItemInput struct {
	Kind     ItemKind
	Title    string
	Username string
	URL      string

	// FolderID places a credential or note inside a folder.
	FolderID *string

	// ParentID sets the parent folder of a new Folder item.
	ParentID *string

	Secret *CredentialSecret
	Body   *NoteBody
}

// PlainItem is the decrypted view of a vault item handed back to callers.
// Item's EncryptedPayload fields stay ciphered; the decoded records ride
// alongside.
type PlainItem struct {
	Item VaultItem

	Secret *CredentialSecret
	Body   *NoteBody
}
