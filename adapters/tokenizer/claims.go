package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
	Provider  string `json:"prv,omitempty"`
}

// RefreshClaims carry the provider so rotated sessions keep it
type RefreshClaims struct {
	jwt.RegisteredClaims
	Provider string `json:"prv,omitempty"`
}
