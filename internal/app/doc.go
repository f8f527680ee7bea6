// Package app provides the application service layer.
//
// Orchestrates use cases: guild-gated streamer management, onboarding state
// evaluation, and expired handshake cleanup. Sits between HTTP handlers and
// domain repositories. Depends on domain interfaces, not concrete
// implementations.
package app
