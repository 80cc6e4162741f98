package session

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// newCryptoRand seeds a fast PRNG from the OS entropy pool. The coin
// flip and vote tie-break draw from it; tests inject a fixed source
// through Deps.Rand instead.
func newCryptoRand() *rand.Rand {
	var seed [16]byte
	crand.Read(seed[:])
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}
