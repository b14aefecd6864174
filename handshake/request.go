package handshake

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"

	"github.com/layer-3/pulselink/core"
)

const (
	DefaultWalletConnectURL = "https://phantom.app/ul/v1/connect"
	DefaultAppURL           = "https://pulseapp.io"
	DefaultRedirectScheme   = "pulse"
	DefaultRedirectPath     = "wallet-connected"
	DefaultCluster          = "mainnet-beta"
)

// Query parameter names on the outbound connect URL.
const (
	ParamDappPublicKey = "dapp_encryption_public_key"
	ParamAppURL        = "app_url"
	ParamRedirectLink  = "redirect_link"
	ParamCluster       = "cluster"
	// ParamAttempt rides on the redirect link so a redirect can be matched to
	// the key pair it was encrypted for.
	ParamAttempt = "attempt"
)

// RequestConfig fixes everything in a connect URL except the public key.
// The redirect link carries an attempt parameter; wallets must return to
// redirect_link with its query intact, appending their own parameters.
type RequestConfig struct {
	WalletConnectURL string
	AppURL           string
	RedirectScheme   string
	RedirectPath     string
	Cluster          string
}

func DefaultRequestConfig() RequestConfig {
	return RequestConfig{
		WalletConnectURL: DefaultWalletConnectURL,
		AppURL:           DefaultAppURL,
		RedirectScheme:   DefaultRedirectScheme,
		RedirectPath:     DefaultRedirectPath,
		Cluster:          DefaultCluster,
	}
}

// RequestBuilder turns an ephemeral public key into the wallet's connect URL.
type RequestBuilder struct {
	cfg RequestConfig
}

// NewRequestBuilder fills empty fields of cfg with the defaults.
func NewRequestBuilder(cfg RequestConfig) *RequestBuilder {
	def := DefaultRequestConfig()
	if cfg.WalletConnectURL == "" {
		cfg.WalletConnectURL = def.WalletConnectURL
	}
	if cfg.AppURL == "" {
		cfg.AppURL = def.AppURL
	}
	if cfg.RedirectScheme == "" {
		cfg.RedirectScheme = def.RedirectScheme
	}
	if cfg.RedirectPath == "" {
		cfg.RedirectPath = def.RedirectPath
	}
	if cfg.Cluster == "" {
		cfg.Cluster = def.Cluster
	}
	return &RequestBuilder{cfg: cfg}
}

// RedirectLink is where the wallet sends the user back, e.g. pulse://wallet-connected.
func (b *RequestBuilder) RedirectLink() string {
	return b.cfg.RedirectScheme + "://" + b.cfg.RedirectPath
}

func (b *RequestBuilder) Request(publicKeyBase58 string) core.ConnectRequest {
	q := url.Values{}
	q.Set(ParamAttempt, AttemptID(publicKeyBase58))
	return core.ConnectRequest{
		DappPublicKey: publicKeyBase58,
		AppURL:        b.cfg.AppURL,
		RedirectLink:  b.RedirectLink() + "?" + q.Encode(),
		Cluster:       b.cfg.Cluster,
	}
}

// AttemptID is a short fingerprint of the dapp public key: SHA-256 truncated
// to 10 bytes, hex encoded.
func AttemptID(publicKeyBase58 string) string {
	sum := sha256.Sum256([]byte(publicKeyBase58))
	return hex.EncodeToString(sum[:10])
}

// BuildConnectURL is deterministic: the query is encoded with sorted keys.
func (b *RequestBuilder) BuildConnectURL(publicKeyBase58 string) string {
	req := b.Request(publicKeyBase58)
	q := url.Values{}
	q.Set(ParamDappPublicKey, req.DappPublicKey)
	q.Set(ParamAppURL, req.AppURL)
	q.Set(ParamRedirectLink, req.RedirectLink)
	q.Set(ParamCluster, req.Cluster)
	return b.cfg.WalletConnectURL + "?" + q.Encode()
}

// Matcher recognizes redirects produced for requests built by b.
func (b *RequestBuilder) Matcher() RedirectMatcher {
	return RedirectMatcher{Scheme: b.cfg.RedirectScheme, Path: b.cfg.RedirectPath}
}
