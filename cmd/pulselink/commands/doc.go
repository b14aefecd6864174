// Package commands implements the pulselink CLI.
//
// serve runs the HTTP API and the deep-link listener. The other commands talk
// to a running server when one answers on LISTEN_ADDR and otherwise work
// directly against the configured store, which is how an OS-launched
// "pulselink redirect <url>" completes a handshake after a cold start.
package commands
