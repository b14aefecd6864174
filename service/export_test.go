package service

import "github.com/layer-3/pulselink/core"

// SetKeyGenerator replaces the key pair source of s.
func SetKeyGenerator(s *ConnectService, gen func() (core.KeyPair, error)) {
	s.newKeyPair = gen
}
