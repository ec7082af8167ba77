package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teilomillet/ragd"
	"github.com/teilomillet/ragd/rag"
)

func (s *Server) handleListCollections(c echo.Context) error {
	names, err := s.store.ListCollections(c.Request().Context())
	if err != nil {
		return rag.DatabaseError("failed to list collections", err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, collectionsResponse{Collections: names})
}

func (s *Server) handleCollectionStats(c echo.Context) error {
	name := c.Param("name")
	stats, err := s.store.CollectionStats(c.Request().Context(), name)
	if err != nil {
		if ragd.IsCollectionNotFound(err) {
			return rag.NotFoundError("collection", name)
		}
		return rag.DatabaseError("failed to read collection stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleDeleteCollection(c echo.Context) error {
	name := c.Param("name")
	ctx := c.Request().Context()

	has, err := s.store.HasCollection(ctx, name)
	if err != nil {
		return rag.DatabaseError("failed to check collection", err)
	}
	if !has {
		return rag.NotFoundError("collection", name)
	}
	if err := s.store.DropCollection(ctx, name); err != nil {
		return rag.DatabaseError("failed to drop collection", err)
	}
	ragd.Info("dropped collection", "name", name)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "collection": name})
}
