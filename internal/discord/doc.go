// Package discord talks to the Discord REST API and decides guild
// authorization.
//
// Two read paths exist: the caller's own guild list (authenticated with the
// caller's bearer token, never cached) and the bot account's guild list
// (authenticated with the bot token, cached for five minutes). Every
// privileged mutation in the application is gated on the administrator bit
// from the live caller lookup.
package discord
