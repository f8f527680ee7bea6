package domain

import "strconv"

// PermissionAdministrator is bit 0x8 of Discord's permission bitfield,
// required to manage bot configuration for a guild.
const PermissionAdministrator = 0x8

// Guild is one entry of a Discord guild list. Permissions is the
// string-encoded bitfield Discord returns for the requesting user.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// HasAdministrator reports whether the permission bitfield carries the
// administrator bit. Malformed bitfields count as no permission.
func (g Guild) HasAdministrator() bool {
	bits, err := strconv.ParseUint(g.Permissions, 10, 64)
	if err != nil {
		return false
	}
	return bits&PermissionAdministrator != 0
}
