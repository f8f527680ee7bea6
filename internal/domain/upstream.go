package domain

import "fmt"

// UpstreamError is a non-success response from Discord or the Twitch OAuth
// provider. Authorization checks convert it to a plain deny; the OAuth
// exchange surfaces it unchanged so callers can offer a retry.
type UpstreamError struct {
	Upstream   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Upstream, e.StatusCode, e.Body)
}
