package core

import "errors"

// HandshakeErrorKind categorizes why a handshake attempt ended without an address.
// Every kind is terminal for the attempt; retrying means starting a new handshake.
type HandshakeErrorKind string

const (
	KindNoCompatibleApp         HandshakeErrorKind = "no_compatible_app"
	KindPeerRejected            HandshakeErrorKind = "peer_rejected"
	KindMalformedRedirect       HandshakeErrorKind = "malformed_redirect"
	KindExpiredOrUnknownSession HandshakeErrorKind = "expired_or_unknown_session"
	KindMalformedPayload        HandshakeErrorKind = "malformed_payload"
	KindDecryptionFailed        HandshakeErrorKind = "decryption_failed"
	KindStorageUnavailable      HandshakeErrorKind = "storage_unavailable"
)

type HandshakeError struct {
	Kind  HandshakeErrorKind
	Code  string // wallet-supplied error code, PeerRejected only
	Msg   string
	Inner error
}

func (e *HandshakeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Inner != nil {
		msg += ": " + e.Inner.Error()
	}
	return msg
}

func (e *HandshakeError) Unwrap() error { return e.Inner }

func NewHandshakeError(kind HandshakeErrorKind, msg string) *HandshakeError {
	return &HandshakeError{Kind: kind, Msg: msg}
}

func WrapHandshakeError(kind HandshakeErrorKind, msg string, inner error) *HandshakeError {
	return &HandshakeError{Kind: kind, Msg: msg, Inner: inner}
}

// PeerRejected builds the error for an errorCode/errorMessage redirect.
func PeerRejected(code, message string) *HandshakeError {
	if message == "" {
		message = "connection rejected by wallet"
	}
	return &HandshakeError{Kind: KindPeerRejected, Code: code, Msg: message}
}

func IsHandshakeKind(err error, kind HandshakeErrorKind) bool {
	var he *HandshakeError
	if errors.As(err, &he) {
		return he.Kind == kind
	}
	return false
}

// AsHandshakeError returns err as a *HandshakeError, wrapping foreign errors as
// StorageUnavailable since only the slot store produces them.
func AsHandshakeError(err error) *HandshakeError {
	var he *HandshakeError
	if errors.As(err, &he) {
		return he
	}
	return WrapHandshakeError(KindStorageUnavailable, "key pair store", err)
}
