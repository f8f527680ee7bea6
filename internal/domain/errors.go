package domain

import "errors"

var (
	ErrStreamerNotFound   = errors.New("streamer not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidState       = errors.New("oauth state invalid or expired")
	ErrNotAuthorized      = errors.New("not authorized for guild")
)
