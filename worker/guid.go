package worker

import (
	"crypto/sha1"
	"fmt"

	"github.com/google/uuid"
)

// newDeterministicGUID derives a stable UUID from an orchestration's
// identity plus a per-turn sequence number, so ctx.NewGUID() returns the
// same value on replay as it did live: hash namespace || instanceId ||
// executionId || sequence with SHA-1, then stamp RFC 4122 version 5 and
// variant bits onto the first 16 digest bytes.
//
// The first three fields are additionally byte-swapped to match the
// mixed-endian Guid layout .NET orchestration hosts in this ecosystem
// serialize, so a value computed here agrees bit-for-bit with one computed
// by a .NET worker sharing the same history.
func newDeterministicGUID(instanceID, executionID string, sequence int) uuid.UUID {
	h := sha1.New()
	fmt.Fprintf(h, "durabletask-guid-namespace:%s:%s:%d", instanceID, executionID, sequence)
	sum := h.Sum(nil)

	var id [16]byte
	copy(id[:], sum[:16])

	id[6] = (id[6] & 0x0f) | 0x50 // version 5
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	swapToLegacyByteOrder(&id)

	out, err := uuid.FromBytes(id[:])
	if err != nil {
		// id is always exactly 16 bytes; FromBytes can't fail here.
		panic(err)
	}
	return out
}

// swapToLegacyByteOrder reverses the byte order of a Guid's first three
// fields (time_low, time_mid, time_hi_and_version), matching how .NET's
// System.Guid serializes relative to the RFC 4122 big-endian layout
// uuid.UUID otherwise assumes.
func swapToLegacyByteOrder(id *[16]byte) {
	reverse(id[0:4])
	reverse(id[4:6])
	reverse(id[6:8])
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
