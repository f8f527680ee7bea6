// Package server exposes the dashboard HTTP surface: Discord login, guild
// and onboarding APIs, streamer management, and the Twitch account link flow.
package server
