package handshake

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/mr-tron/base58"

	"github.com/layer-3/pulselink/core"
)

var ErrInvalidConnectURL = errors.New("invalid connect URL")

// Wallet plays the peer side of the protocol: it answers a connect URL with a
// redirect the way the wallet app would.
type Wallet struct {
	Address string
	Session string
}

func NewWallet(address, session string) *Wallet {
	return &Wallet{Address: address, Session: session}
}

// ParseConnectURL extracts the request fields from an outbound connect URL.
func ParseConnectURL(raw string) (core.ConnectRequest, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return core.ConnectRequest{}, fmt.Errorf("%w: %v", ErrInvalidConnectURL, err)
	}
	q := u.Query()
	req := core.ConnectRequest{
		DappPublicKey: q.Get(ParamDappPublicKey),
		AppURL:        q.Get(ParamAppURL),
		RedirectLink:  q.Get(ParamRedirectLink),
		Cluster:       q.Get(ParamCluster),
	}
	if req.DappPublicKey == "" || req.RedirectLink == "" {
		return core.ConnectRequest{}, fmt.Errorf("%w: missing %s or %s", ErrInvalidConnectURL, ParamDappPublicKey, ParamRedirectLink)
	}
	return req, nil
}

// Approve seals the wallet's address for the requesting app and returns the
// redirect URL carrying data, nonce and the wallet's public key.
func (w *Wallet) Approve(connectURL string) (string, error) {
	req, err := ParseConnectURL(connectURL)
	if err != nil {
		return "", err
	}
	rawKey, err := base58.Decode(req.DappPublicKey)
	if err != nil || len(rawKey) != core.KeySize {
		return "", fmt.Errorf("%w: bad %s", ErrInvalidConnectURL, ParamDappPublicKey)
	}
	var dappKey [core.KeySize]byte
	copy(dappKey[:], rawKey)

	kp, err := GenerateKeyPair()
	if err != nil {
		return "", err
	}
	defer wipe(kp.SecretKey[:])

	plain, err := json.Marshal(connectPayload{PublicKey: w.Address, Session: w.Session})
	if err != nil {
		return "", err
	}
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := Seal(plain, &nonce, &dappKey, &kp.SecretKey)

	q := url.Values{}
	q.Set(ParamData, base58.Encode(sealed))
	q.Set(ParamNonce, base58.Encode(nonce[:]))
	q.Set(ParamPeerKey, PublicKeyBase58(kp))
	return appendQuery(req.RedirectLink, q)
}

// Reject answers a connect URL with an errorCode/errorMessage redirect.
func (w *Wallet) Reject(connectURL, code, message string) (string, error) {
	req, err := ParseConnectURL(connectURL)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set(ParamErrorCode, code)
	q.Set(ParamErrorMessage, message)
	return appendQuery(req.RedirectLink, q)
}

// appendQuery adds q to link, keeping any query the link already carries.
func appendQuery(link string, q url.Values) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: bad %s: %v", ErrInvalidConnectURL, ParamRedirectLink, err)
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}
