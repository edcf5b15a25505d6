package connection

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// GroupToken derives the handshake token of a communication group.
// Collective connections between ranks of different groups are refused.
func GroupToken(groupID string) uint32 {
	sum := blake2b.Sum256([]byte(groupID))
	return binary.LittleEndian.Uint32(sum[:4])
}
