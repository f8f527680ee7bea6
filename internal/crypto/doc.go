// Package crypto provides encryption services for data at rest.
//
// Implements AES-256-GCM encryption for OAuth tokens stored in PostgreSQL.
// The stored form keeps ciphertext and authentication tag as one
// colon-delimited hex string with the IV held in a separate column, so rows
// written by earlier deployments remain decryptable across restarts.
package crypto
