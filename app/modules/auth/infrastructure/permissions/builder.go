package permissions

import (
	"slices"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
)

var rolePermissions = map[authdomain.Role][]authdomain.Permission{
	authdomain.RoleViewer: {
		authdomain.PermReadRankings,
	},
	authdomain.RolePlayer: {
		authdomain.PermReadRankings,
	},
	authdomain.RoleRankingTeam: {
		authdomain.PermReadRankings,
		authdomain.PermRefreshLeaderboard,
		authdomain.PermRefreshClans,
	},
	authdomain.RoleAdmin: {
		authdomain.PermReadRankings,
		authdomain.PermRefreshLeaderboard,
		authdomain.PermRefreshAll,
		authdomain.PermRefreshPlayers,
		authdomain.PermRefreshClans,
		authdomain.PermEnqueueJobs,
	},
}

// Builder resolves claims into the capability set passed to the engine.
type Builder struct{}

// NewBuilder creates a new capability builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// ForClaims builds the union of the permissions of every valid role in claims.
// Unknown roles grant nothing.
func (b *Builder) ForClaims(claims *authdomain.Claims) authdomain.Capabilities {
	if claims == nil {
		return authdomain.Capabilities{}
	}

	caps := authdomain.Capabilities{Subject: claims.UserID}
	for _, role := range claims.Roles {
		if !role.IsValid() {
			continue
		}
		for _, p := range rolePermissions[role] {
			if !slices.Contains(caps.Permissions, p) {
				caps.Permissions = append(caps.Permissions, p)
			}
		}
	}
	slices.Sort(caps.Permissions)
	return caps
}
