// Package keys derives the catalog page-cipher key and the per-entry asset
// bundle keystream from installation-wide key material.
package keys

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// SQLiteBaseKeyLen is the number of base-key bytes cycled over the plain key.
	SQLiteBaseKeyLen = 13
	// BundleBaseKeyLen is the length of the installation-wide bundle base key.
	BundleBaseKeyLen = 11
	// BundleKeystreamLen is BundleBaseKeyLen expanded by the 8 bytes of an entry key.
	BundleKeystreamLen = BundleBaseKeyLen * 8
)

var (
	// ErrInvalidKeyLength is returned when key material is shorter or longer than required.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrInvalidHexString is returned for odd-length or non-hex input.
	ErrInvalidHexString = errors.New("invalid hex string")
)

// DeriveSQLiteCipherKey XORs every plain key byte with the base key, cycling
// over its first 13 bytes.
func DeriveSQLiteCipherKey(plainKey, baseKey []byte) ([]byte, error) {
	if len(baseKey) < SQLiteBaseKeyLen {
		return nil, fmt.Errorf("%w: base key has %d bytes, need at least %d",
			ErrInvalidKeyLength, len(baseKey), SQLiteBaseKeyLen)
	}

	out := make([]byte, len(plainKey))
	for i := range plainKey {
		out[i] = plainKey[i] ^ baseKey[i%SQLiteBaseKeyLen]
	}
	return out, nil
}

// DeriveBundleKeystream expands the 11-byte base into an 88-byte keystream
// seeded by the little-endian bytes of entryKey.
//
// entryKey 0 is accepted here, but it means "not encrypted" to callers and
// must not be used to transform data.
func DeriveBundleKeystream(baseKeys []byte, entryKey uint64) ([]byte, error) {
	if len(baseKeys) != BundleBaseKeyLen {
		return nil, fmt.Errorf("%w: bundle base key has %d bytes, need %d",
			ErrInvalidKeyLength, len(baseKeys), BundleBaseKeyLen)
	}

	var keyBytes [8]byte
	binary.LittleEndian.PutUint64(keyBytes[:], entryKey)

	out := make([]byte, BundleKeystreamLen)
	for i := 0; i < BundleBaseKeyLen; i++ {
		for j := 0; j < len(keyBytes); j++ {
			out[i*8+j] = baseKeys[i] ^ keyBytes[j]
		}
	}
	return out, nil
}

// DecodeHex decodes a hex string. Surrounding whitespace and a 0x prefix are ignored.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidHexString, len(s))
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHexString, err)
	}
	return out, nil
}

// SQLiteCipherKeyHex decodes hex key material and returns the derived
// page-cipher key as lowercase hex, ready for a key pragma.
func SQLiteCipherKeyHex(plainHex, baseHex string) (string, error) {
	plain, err := DecodeHex(plainHex)
	if err != nil {
		return "", fmt.Errorf("plain key: %w", err)
	}
	base, err := DecodeHex(baseHex)
	if err != nil {
		return "", fmt.Errorf("base key: %w", err)
	}

	derived, err := DeriveSQLiteCipherKey(plain, base)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(derived), nil
}
