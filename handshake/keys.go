package handshake

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/box"

	"github.com/layer-3/pulselink/core"
)

// GenerateKeyPair returns a fresh X25519 box key pair for one handshake.
func GenerateKeyPair() (core.KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return core.KeyPair{}, fmt.Errorf("failed to generate key pair: %w", err)
	}
	kp := core.KeyPair{PublicKey: *pub, SecretKey: *priv}
	wipe(priv[:])
	return kp, nil
}

// PublicKeyBase58 is the encoding the wallet expects in dapp_encryption_public_key.
func PublicKeyBase58(kp core.KeyPair) string {
	return base58.Encode(kp.PublicKey[:])
}
