package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	authdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/domain"
	authhandlers "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/infrastructure/jwt"
	"github.com/Black-And-White-Club/rhythm-ranker/app/modules/auth/infrastructure/permissions"
	"github.com/Black-And-White-Club/rhythm-ranker/config"
)

// Module resolves bearer tokens into ranking capabilities.
type Module struct {
	provider authjwt.Provider
	builder  *permissions.Builder
	logger   *slog.Logger
}

// NewModule creates a new auth module.
func NewModule(cfg *config.Config, logger *slog.Logger) (*Module, error) {
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("auth: jwt secret is required")
	}
	logger.Info("Initializing auth module",
		slog.String("issuer", cfg.JWT.Issuer),
		slog.String("audience", cfg.JWT.Audience),
	)
	return &Module{
		provider: authjwt.NewProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience),
		builder:  permissions.NewBuilder(),
		logger:   logger,
	}, nil
}

// Middleware authenticates requests and stores the caller's capabilities.
func (m *Module) Middleware() func(http.Handler) http.Handler {
	return authhandlers.BearerAuthMiddleware(m.provider, m.builder)
}

// IssueToken signs an operator token for subject holding roles.
func (m *Module) IssueToken(subject string, roles []authdomain.Role, ttl time.Duration) (string, error) {
	for _, r := range roles {
		if !r.IsValid() {
			return "", fmt.Errorf("auth: invalid role %q", r)
		}
	}
	return m.provider.GenerateToken(&authdomain.Claims{UserID: subject, Roles: roles}, ttl)
}
