package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// handleHealth probes the vector store and the provider. The endpoint
// answers 200 with status "healthy", "degraded" (provider down) or
// "unhealthy" (store down) so load balancers can read one field.
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{
		"vector_store": "ok",
		"provider":     "ok",
	}
	status := "healthy"

	if err := s.store.Ping(ctx); err != nil {
		components["vector_store"] = err.Error()
		status = "unhealthy"
	}
	if _, err := s.provider.ListModels(ctx); err != nil {
		components["provider"] = err.Error()
		if status == "healthy" {
			status = "degraded"
		}
	}

	return c.JSON(http.StatusOK, healthResponse{Status: status, Components: components})
}
