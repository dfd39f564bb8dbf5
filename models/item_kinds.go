package models

// ItemKind defines the semantic type of a vault item.
// The value determines which clear and encrypted columns are populated and
// how the decrypted payload must be interpreted.
type ItemKind int

const (
	// Credential represents a stored login: clear title/username/URL plus an
	// encrypted secret payload (password, optional TOTP seed).
	Credential ItemKind = 1

	// SecureNote represents free-form secret text. The title is stored in
	// clear for list efficiency; the body is always encrypted.
	SecureNote ItemKind = 2

	// Folder represents a grouping node. Folders carry no encrypted payload
	// but participate in the parent/child nesting hierarchy.
	Folder ItemKind = 3

	// Tag represents a user-defined label. Tag names are unique per owner
	// (case-insensitive, trimmed) and attach to items via the item_tags
	// association table.
	Tag ItemKind = 4
)

// Valid reports whether k is one of the defined item kinds.
func (k ItemKind) Valid() bool {
	return k >= Credential && k <= Tag
}

// String returns the lowercase wire name of the kind.
func (k ItemKind) String() string {
	switch k {
	case Credential:
		return "credential"
	case SecureNote:
		return "secure_note"
	case Folder:
		return "folder"
	case Tag:
		return "tag"
	default:
		return "unknown"
	}
}

// CredentialSecret is the decrypted payload of a Credential item.
// It is serialized to JSON and stored encrypted inside VaultItem.Secret.
type CredentialSecret struct {
	// Password is the stored secret credential.
	Password string `json:"password"`

	// TOTP contains an optional time-based one-time password seed.
	TOTP *string `json:"totp,omitempty"`
}

// NoteBody is the decrypted payload of a SecureNote item.
type NoteBody struct {
	// Text contains the note text.
	Text string `json:"text"`

	// Attachment optionally carries raw attachment bytes.
	Attachment []byte `json:"attachment,omitempty"`
}
