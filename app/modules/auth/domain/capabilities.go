package authdomain

import (
	"errors"
	"fmt"
	"slices"
)

// ErrForbidden is returned when a caller lacks a required permission.
var ErrForbidden = errors.New("forbidden")

// Permission is a single administrative action on the ranking engine.
type Permission string

const (
	PermReadRankings       Permission = "rankings:read"
	PermRefreshLeaderboard Permission = "rankings:refresh:leaderboard"
	PermRefreshAll         Permission = "rankings:refresh:all"
	PermRefreshPlayers     Permission = "rankings:refresh:players"
	PermRefreshClans       Permission = "rankings:refresh:clans"
	PermEnqueueJobs        Permission = "rankings:jobs:enqueue"
)

// Capabilities is the permission set of a caller, resolved once at the
// authorization boundary.
type Capabilities struct {
	Subject     string
	Permissions []Permission
}

// Can reports whether the caller holds p.
func (c Capabilities) Can(p Permission) bool {
	return slices.Contains(c.Permissions, p)
}

// Require returns ErrForbidden unless the caller holds every permission.
func (c Capabilities) Require(perms ...Permission) error {
	for _, p := range perms {
		if !c.Can(p) {
			return fmt.Errorf("%w: %s lacks %s", ErrForbidden, c.subject(), p)
		}
	}
	return nil
}

func (c Capabilities) subject() string {
	if c.Subject == "" {
		return "anonymous"
	}
	return c.Subject
}

// SystemCapabilities is held by background jobs and operator tooling.
func SystemCapabilities() Capabilities {
	return Capabilities{
		Subject: "system",
		Permissions: []Permission{
			PermReadRankings,
			PermRefreshLeaderboard,
			PermRefreshAll,
			PermRefreshPlayers,
			PermRefreshClans,
			PermEnqueueJobs,
		},
	}
}
