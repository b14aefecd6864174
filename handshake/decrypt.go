package handshake

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/box"

	"github.com/layer-3/pulselink/core"
)

// NonceSize is the XSalsa20-Poly1305 nonce length used by box.
const NonceSize = 24

var errOpen = errors.New("authentication failed")

// connectPayload is the JSON document the wallet seals for us.
type connectPayload struct {
	PublicKey string `json:"public_key"`
	Session   string `json:"session"`
}

// Seal encrypts plaintext for peerPublic using secret.
func Seal(plaintext []byte, nonce *[NonceSize]byte, peerPublic, secret *[core.KeySize]byte) []byte {
	var shared [core.KeySize]byte
	box.Precompute(&shared, peerPublic, secret)
	defer wipe(shared[:])
	return box.SealAfterPrecomputation(nil, plaintext, nonce, &shared)
}

// Open is the inverse of Seal. It fails closed on any tag mismatch.
func Open(sealed []byte, nonce *[NonceSize]byte, peerPublic, secret *[core.KeySize]byte) ([]byte, error) {
	var shared [core.KeySize]byte
	box.Precompute(&shared, peerPublic, secret)
	defer wipe(shared[:])
	plain, ok := box.OpenAfterPrecomputation(nil, sealed, nonce, &shared)
	if !ok {
		return nil, errOpen
	}
	return plain, nil
}

// DecryptConnectResponse recovers the wallet address from a redirect payload
// using the local secret key. p must be complete (see RedirectPayload.Complete).
func DecryptConnectResponse(p core.RedirectPayload, secretKey *[core.KeySize]byte) (core.DecryptedResult, error) {
	data, err := decodeField(ParamData, p.Data)
	if err != nil {
		return core.DecryptedResult{}, err
	}
	if len(data) < box.Overhead {
		return core.DecryptedResult{}, core.NewHandshakeError(core.KindMalformedRedirect, "data shorter than authenticator")
	}
	var nonce [NonceSize]byte
	if err := decodeFixed(ParamNonce, p.Nonce, nonce[:]); err != nil {
		return core.DecryptedResult{}, err
	}
	var peer [core.KeySize]byte
	if err := decodeFixed(ParamPeerKey, p.PeerPublicKey, peer[:]); err != nil {
		return core.DecryptedResult{}, err
	}

	plain, err := Open(data, &nonce, &peer, secretKey)
	if err != nil {
		return core.DecryptedResult{}, core.WrapHandshakeError(core.KindDecryptionFailed, "unable to decrypt wallet response", err)
	}
	defer wipe(plain)

	return decodeConnectPayload(plain)
}

func decodeConnectPayload(plain []byte) (core.DecryptedResult, error) {
	var payload connectPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return core.DecryptedResult{}, core.WrapHandshakeError(core.KindMalformedPayload, "response is not a connect payload", err)
	}
	address := strings.TrimSpace(payload.PublicKey)
	if address == "" || payload.Session == "" {
		return core.DecryptedResult{}, core.NewHandshakeError(core.KindMalformedPayload, "public_key and session are required")
	}
	if raw, err := base58.Decode(address); err != nil || len(raw) != core.KeySize {
		return core.DecryptedResult{}, core.NewHandshakeError(core.KindMalformedPayload, "public_key is not a wallet address")
	}
	return core.DecryptedResult{WalletAddress: address, Session: payload.Session}, nil
}

func decodeField(name, value string) ([]byte, error) {
	raw, err := base58.Decode(value)
	if err != nil {
		return nil, core.WrapHandshakeError(core.KindMalformedRedirect, name+" is not base58", err)
	}
	return raw, nil
}

func decodeFixed(name, value string, dst []byte) error {
	raw, err := decodeField(name, value)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return core.NewHandshakeError(core.KindMalformedRedirect,
			fmt.Sprintf("%s must be %d bytes, got %d", name, len(dst), len(raw)))
	}
	copy(dst, raw)
	return nil
}
