// Package handshake implements the wallet side-channel used to learn a user's
// wallet address over OS deep links.
//
// Contents
//
//   - Ephemeral NaCl box key pairs (GenerateKeyPair, PublicKeyBase58)
//   - Connect URL construction (RequestBuilder)
//   - Redirect recognition and query parsing (RedirectMatcher, ParseRedirect,
//     PayloadFromQuery)
//   - Shared-secret derivation and authenticated decryption of the wallet's
//     reply (DecryptConnectResponse, Open, Seal)
//   - A peer-side Wallet used by tests and the simulate-wallet command
//
// # Notes
//
// Binary values travel as base58 text. Keys are 32 bytes and nonces 24 bytes;
// any other decoded length is a malformed redirect, never a truncation.
// Persistence of the key pair between dispatch and redirect lives behind
// ports.KeyPairStore, not here.
package handshake
