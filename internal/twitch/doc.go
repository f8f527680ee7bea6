// Package twitch drives the authorization-code grant against Twitch and
// manages the resulting credentials.
//
// The flow: BeginAuthorization issues a single-use anti-forgery state and the
// provider authorize URL; CompleteAuthorization consumes the state, exchanges
// the code at the token endpoint, and stores the encrypted access/refresh
// pair keyed by guild. Tokens only ever exist in plaintext inside a request;
// at rest they live in the credential vault's sealed form.
package twitch
