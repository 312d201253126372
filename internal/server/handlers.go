package server

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/claimlens/similarityd/internal/similarity"
)

// handleFindSimilar runs a similarity search over the indexed documents.
func (s *Server) handleFindSimilar(c echo.Context) error {
	var req SimilarRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid similar request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	raw, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "content must be base64-encoded")
	}
	if err := validateFeatures(req.Features); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.service.FindSimilar(c.Request().Context(), raw, req.Features, req.Text, similarity.Options{
		UseApproximateSearch: req.UseApproximateSearch,
		MaxResults:           req.MaxResults,
	})
	if err != nil {
		s.logger.Error("similarity search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "similarity search failed")
	}
	return c.JSON(http.StatusOK, result)
}

// handleAddToIndex registers a document fingerprint. The fingerprint can be
// supplied directly (as returned by a previous search) or recomputed from raw
// inputs.
func (s *Server) handleAddToIndex(c echo.Context) error {
	id := c.Param("id")

	var req IndexRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid index request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateFeatures(req.Features); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fp := req.Fingerprint
	if fp == nil {
		if req.Content == "" && req.Text == "" && req.Features == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "fingerprint or document inputs required")
		}
		raw, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "content must be base64-encoded")
		}
		generated := s.service.GenerateFingerprint(raw, req.Features, req.Text)
		fp = &generated
	}

	if err := s.service.AddToIndex(id, *fp, req.Metadata); err != nil {
		if errors.Is(err, similarity.ErrEmptyDocumentID) {
			return echo.NewHTTPError(http.StatusBadRequest, "document id is required")
		}
		s.logger.Error("indexing failed", zap.String("document_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "indexing failed")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "indexed"})
}

// handleRemoveFromIndex deletes a document from the index. Idempotent.
func (s *Server) handleRemoveFromIndex(c echo.Context) error {
	s.service.RemoveFromIndex(c.Param("id"))
	return c.JSON(http.StatusOK, StatusResponse{Status: "removed"})
}

// handleOptimizeIndex rebuilds the LSH band tables with the current
// configuration.
func (s *Server) handleOptimizeIndex(c echo.Context) error {
	if err := s.service.OptimizeIndex(c.Request().Context()); err != nil {
		s.logger.Error("index optimization failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "index optimization failed")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "optimized"})
}

// handleClearCache drops all cached pairwise scores.
func (s *Server) handleClearCache(c echo.Context) error {
	s.service.ClearCache()
	return c.JSON(http.StatusOK, StatusResponse{Status: "cleared"})
}

// handleStats reports index and cache occupancy.
func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Statistics())
}

// handleGetConfig returns the current similarity configuration.
func (s *Server) handleGetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Config())
}

// handlePatchConfig applies a partial threshold/weight update.
func (s *Server) handlePatchConfig(c echo.Context) error {
	var patch similarity.ConfigPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.service.UpdateConfig(patch); err != nil {
		if errors.Is(err, similarity.ErrInvalidConfig) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "config update failed")
	}
	return c.JSON(http.StatusOK, s.service.Config())
}
