package handshake

import (
	"errors"
	"net/url"
	"strings"

	"github.com/layer-3/pulselink/core"
)

// Query parameter names on the inbound redirect.
const (
	ParamData         = "data"
	ParamNonce        = "nonce"
	ParamPeerKey      = "phantom_encryption_public_key"
	ParamPeerKeyAlias = "peer_encryption_public_key"
	ParamErrorCode    = "errorCode"
	ParamErrorMessage = "errorMessage"
)

// RedirectMatcher decides whether a deep link belongs to this protocol.
type RedirectMatcher struct {
	Scheme string
	Path   string
}

// IsRelevant reports whether raw uses the private scheme and carries the
// redirect path segment. Other deep links are not errors, they are just not ours.
func (m RedirectMatcher) IsRelevant(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, m.Scheme) {
		return false
	}
	segments := strings.FieldsFunc(u.Opaque+"/"+u.Host+"/"+u.Path, func(r rune) bool { return r == '/' })
	for _, seg := range segments {
		if seg == m.Path {
			return true
		}
	}
	return false
}

// ErrNoQuery is returned by ParseRedirect for a redirect without parameters.
var ErrNoQuery = errors.New("redirect has no query")

// ParseRedirect returns the query of raw. It fails with ErrNoQuery when there
// is no query component, and with the parser's error when it cannot be decoded.
func ParseRedirect(raw string) (url.Values, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.RawQuery == "" {
		return nil, ErrNoQuery
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrNoQuery
	}
	return values, nil
}

func PayloadFromQuery(q url.Values) core.RedirectPayload {
	peer := q.Get(ParamPeerKey)
	if peer == "" {
		peer = q.Get(ParamPeerKeyAlias)
	}
	return core.RedirectPayload{
		Data:          q.Get(ParamData),
		Nonce:         q.Get(ParamNonce),
		PeerPublicKey: peer,
		ErrorCode:     q.Get(ParamErrorCode),
		ErrorMessage:  q.Get(ParamErrorMessage),
		Attempt:       q.Get(ParamAttempt),
	}
}
