package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidAddress   = errors.New("wallet address is required")

	// ErrWalletConnectDisabled is returned by constructors when no URL opener is
	// configured, so callers get an explicit absent capability instead of a stub.
	ErrWalletConnectDisabled = errors.New("wallet connect is disabled")

	ErrInvalidKeyPair = errors.New("invalid key pair record")
)
