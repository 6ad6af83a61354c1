package models

// Entry is one normalized row of the asset catalog.
type Entry struct {
	Index         int64   `json:"index" yaml:"index"`
	Name          string  `json:"name" yaml:"name"`
	Description   *string `json:"description" yaml:"description"`
	Group         int64   `json:"group" yaml:"group"`
	Length        int64   `json:"length" yaml:"length"`
	Hash          string  `json:"hash" yaml:"hash"`
	Kind          Kind    `json:"-" yaml:"-"`
	RawKind       string  `json:"kind" yaml:"kind"`
	FlagsK        int64   `json:"k" yaml:"k"`
	IsOnDemand    bool    `json:"ondemand" yaml:"ondemand"`
	Priority      int64   `json:"priority" yaml:"priority"`
	EncryptionKey uint64  `json:"encryptionKey,string" yaml:"encryptionKey"`
}

// Encrypted reports whether the stored blob needs the bundle XOR transform.
func (e Entry) Encrypted() bool {
	return e.EncryptionKey != 0
}

// ResolvedEntry is an Entry with its presence in the local content store.
type ResolvedEntry struct {
	Entry
	IsFileExists bool `json:"isFileExists" yaml:"isFileExists"`
}
