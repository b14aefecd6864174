package handshake

import (
	"crypto/subtle"

	"github.com/layer-3/pulselink/core"
)

// wipe overwrites b with zeros in a constant-time friendly way.
func wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}

// WipeKeyPair zeroes the secret half of kp once it is no longer needed.
func WipeKeyPair(kp *core.KeyPair) {
	wipe(kp.SecretKey[:])
}
