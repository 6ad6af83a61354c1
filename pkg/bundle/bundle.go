// Package bundle reverses the per-entry XOR obfuscation applied to Unity
// asset bundles served by the CDN.
package bundle

import (
	"slices"

	"umatools/pkg/keys"
)

// HeaderSize is the length of the bundle prefix that is never obfuscated.
const HeaderSize = 256

// Decryptor holds the installation-wide bundle base key.
type Decryptor struct {
	baseKey []byte
}

// NewDecryptor validates baseKey and returns a decryptor for it.
func NewDecryptor(baseKey []byte) (*Decryptor, error) {
	if _, err := keys.DeriveBundleKeystream(baseKey, 0); err != nil {
		return nil, err
	}
	return &Decryptor{baseKey: slices.Clone(baseKey)}, nil
}

// Decrypt returns buf with every byte past the header XORed against the
// keystream derived from entryKey. An entryKey of 0 returns buf as is.
// The input is never modified, and applying Decrypt twice restores it.
func (d *Decryptor) Decrypt(buf []byte, entryKey uint64) []byte {
	if entryKey == 0 || len(buf) <= HeaderSize {
		return buf
	}

	// the base key length was checked in NewDecryptor
	keystream, _ := keys.DeriveBundleKeystream(d.baseKey, entryKey)

	out := slices.Clone(buf)
	for i := HeaderSize; i < len(out); i++ {
		out[i] ^= keystream[i%len(keystream)]
	}
	return out
}
