package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"supchat/internal/authz"
)

// RequireWorkspaceCapability resolves the acting user's effective access for
// the :workspaceId path parameter and rejects the request unless it grants the
// capability. The resolved access is stored under "access" for the handler.
func RequireWorkspaceCapability(service *authz.Service, capability authz.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			workspaceID := c.Param("workspaceId")
			if workspaceID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing workspaceId parameter")
			}

			access, err := service.Resolve(c.Request().Context(), user, workspaceID, "")
			if err != nil {
				return err
			}
			if !access.Can(capability) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}

			c.Set("access", access)
			return next(c)
		}
	}
}

// RequireChannelCapability is the channel-scoped variant, keyed on the
// :channelId path parameter. A channel-scoped role override applies here.
func RequireChannelCapability(service *authz.Service, capability authz.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			channelID := c.Param("channelId")
			if channelID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing channelId parameter")
			}

			access, err := service.ResolveChannel(c.Request().Context(), user, channelID)
			if err != nil {
				return err
			}
			if !access.Can(capability) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}

			c.Set("access", access)
			return next(c)
		}
	}
}

// GetAccess returns the access resolved by a capability middleware.
func GetAccess(c echo.Context) *authz.Access {
	if access, ok := c.Get("access").(*authz.Access); ok {
		return access
	}
	return nil
}
