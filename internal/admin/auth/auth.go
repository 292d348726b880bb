// Package auth guards the admin route group: an origin check that, unlike
// the public endpoints, tolerates a missing Origin header (curl and server
// side callers send none), plus bearer token authentication.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"waitlist-server/internal/apierrors"
	"waitlist-server/internal/config"
	"waitlist-server/internal/guard"
	"waitlist-server/internal/observability"
)

const bearerPrefix = "Bearer "

// Middleware returns the gin middleware protecting /api/admin. Responses
// never hint whether the token or the origin was the problem beyond the
// status code.
func Middleware(cfg config.WaitlistConfig, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// A present Origin must pass the same allow-list as the public
		// endpoints; absence is fine for non-browser clients.
		if origin := c.GetHeader("Origin"); origin != "" {
			if !guard.OriginAllowed(origin, c.Request.Host, cfg.AllowedOrigins, cfg.OriginSuffixes) {
				logger.Warn(ctx, "admin request from forbidden origin")
				apierrors.Respond(c, http.StatusForbidden, apierrors.CodeForbiddenOrigin)
				return
			}
		}

		// No configured token means admin is disabled, not open.
		if cfg.AdminToken == "" {
			logger.Error(ctx, "admin token not configured", nil)
			apierrors.Respond(c, http.StatusInternalServerError, apierrors.CodeServerError)
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			apierrors.Respond(c, http.StatusUnauthorized, apierrors.CodeUnauthorized)
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		if len(token) != len(cfg.AdminToken) ||
			subtle.ConstantTimeCompare([]byte(token), []byte(cfg.AdminToken)) != 1 {
			logger.Warn(ctx, "admin request with bad token")
			apierrors.Respond(c, http.StatusForbidden, apierrors.CodeForbidden)
			return
		}

		c.Next()
	}
}
