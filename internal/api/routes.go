package api

import (
	"net/http"

	"supchat/internal/api/middleware"
	"supchat/internal/routes"

	"github.com/labstack/echo/v4"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "supchat API")
	})
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// API v1 group
	api := s.echo.Group("/api/v1")
	auth := middleware.NewAuthMiddleware(s.config.JWT.Secret)
	api.Use(auth.Middleware())

	routes.SetupWorkspaceRoutes(api, s.db, s.authz)
}
