// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// compliant serialization for deterministic hashing of execution artifacts.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// GenesisHash is the sentinel previous_hash of the first chain entry,
// and the Merkle root of an empty log.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// HexDigestLen is the length of a lowercase SHA-256 hex digest.
const HexDigestLen = 64

// JCS returns the RFC 8785 canonical JSON representation of v.
//
// v is first marshaled with encoding/json so struct tags are honored,
// then transformed to canonical form (sorted keys, no HTML escaping,
// deterministic number formatting).
func JCS(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jcs: pre-marshal failed: %w", err)
	}

	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("jcs: transform failed: %w", err)
	}
	return canonical, nil
}

// JCSString returns the JCS canonical form as a string.
func JCSString(v interface{}) (string, error) {
	data, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CanonicalHash returns the SHA-256 hex digest of the canonical JSON
// representation of v.
func CanonicalHash(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 hash of raw bytes and returns a
// lowercase hex string.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ChainHash computes the hash of a chain entry: SHA-256 over the previous
// entry's hash concatenated with the canonical serialization of the
// entry's payload.
func ChainHash(previousHash string, payload interface{}) (string, error) {
	canonical, err := JCS(payload)
	if err != nil {
		return "", err
	}
	return HashBytes(append([]byte(previousHash), canonical...)), nil
}

// IsHexDigest reports whether s is a well-formed lowercase SHA-256 hex
// digest. Uppercase digits are rejected: the wire contract requires
// lowercase.
func IsHexDigest(s string) bool {
	if len(s) != HexDigestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
