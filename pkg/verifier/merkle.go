package verifier

import (
	"github.com/trustfabric/replayseal/pkg/canonicalize"
)

// MerkleRoot reduces an ordered list of entry hashes to a single root:
// adjacent pairs are combined as hash(left + right); a level with an odd
// count duplicates its last hash before combining. An empty list yields
// the genesis hash; a single hash is its own root.
func MerkleRoot(hashes []string) string {
	if len(hashes) == 0 {
		return canonicalize.GenesisHash
	}

	level := append([]string(nil), hashes...)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, canonicalize.HashBytes([]byte(level[i]+level[i+1])))
		}
		level = next
	}
	return level[0]
}
