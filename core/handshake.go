package core

import (
	"encoding/json"
	"fmt"
)

// KeySize is the length of NaCl box public and secret keys.
const KeySize = 32

// KeyPair is the ephemeral box key pair generated for a single handshake attempt.
type KeyPair struct {
	PublicKey [KeySize]byte
	SecretKey [KeySize]byte
}

// ConnectRequest is the peer-facing content of a connect URL.
type ConnectRequest struct {
	DappPublicKey string // base58
	AppURL        string
	RedirectLink  string
	Cluster       string
}

// RedirectPayload holds the raw query fields of a wallet redirect.
type RedirectPayload struct {
	Data          string
	Nonce         string
	PeerPublicKey string
	ErrorCode     string
	ErrorMessage  string
	Attempt       string // fingerprint echoed back through the redirect link, may be empty
}

// Rejected reports whether the wallet answered with an error instead of data.
func (p RedirectPayload) Rejected() bool {
	return p.ErrorCode != "" || p.ErrorMessage != ""
}

// Complete reports whether all fields needed for decryption are present.
func (p RedirectPayload) Complete() bool {
	return p.Data != "" && p.Nonce != "" && p.PeerPublicKey != ""
}

// DecryptedResult is what the wallet sealed for us.
type DecryptedResult struct {
	WalletAddress string
	Session       string
}

// HandshakeState describes where the current attempt is.
type HandshakeState string

const (
	StateIdle             HandshakeState = "idle"
	StateAwaitingRedirect HandshakeState = "awaiting_redirect"
	StateResolving        HandshakeState = "resolving"
)

type keyPairRecord struct {
	PublicKey []byte `json:"publicKey"`
	SecretKey []byte `json:"secretKey"`
}

// EncodeKeyPair serializes kp for the durable slot.
func EncodeKeyPair(kp KeyPair) ([]byte, error) {
	return json.Marshal(keyPairRecord{
		PublicKey: kp.PublicKey[:],
		SecretKey: kp.SecretKey[:],
	})
}

// DecodeKeyPair parses a slot record. Keys of the wrong length are rejected.
func DecodeKeyPair(raw []byte) (KeyPair, error) {
	var rec keyPairRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrInvalidKeyPair, err)
	}
	if len(rec.PublicKey) != KeySize || len(rec.SecretKey) != KeySize {
		return KeyPair{}, fmt.Errorf("%w: unexpected key length", ErrInvalidKeyPair)
	}
	var kp KeyPair
	copy(kp.PublicKey[:], rec.PublicKey)
	copy(kp.SecretKey[:], rec.SecretKey)
	return kp, nil
}
