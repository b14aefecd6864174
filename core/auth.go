package core

import "time"

// Session represents an authenticated user session
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Wallet address of the user
	Provider      string    // How the address was proven, e.g. "wallet"
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// ProviderWallet marks sessions created from a completed wallet-connect handshake.
const ProviderWallet = "wallet"
