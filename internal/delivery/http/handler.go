package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/moodboxd/backend/internal/domain"
	"github.com/moodboxd/backend/internal/infrastructure/export"
)

const serviceVersion = "1.0.0"

// CatalogUsecase is the pipeline the handlers expose
type CatalogUsecase interface {
	Scrape(ctx context.Context, username string) (*domain.CatalogWalk, error)
	ScrapeAndEnrich(ctx context.Context, username string) (*domain.CatalogReport, error)
	Enrich(ctx context.Context, entries []domain.RawEntry) (*domain.BatchResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog CatalogUsecase
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler. A nil catalog makes the catalog
// endpoints answer 503.
func NewHandler(catalog CatalogUsecase, logger zerolog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		logger:  logger,
	}
}

// FilmsResponse is the body of the scrape endpoint
type FilmsResponse struct {
	Username       string            `json:"username"`
	Movies         []domain.RawEntry `json:"movies"`
	PagesVisited   int               `json:"pages_visited"`
	StopReason     string            `json:"stop_reason"`
	Partial        bool              `json:"partial"`
	Warning        string            `json:"warning,omitempty"`
	DiagnosticPath string            `json:"diagnostic_path,omitempty"`
}

// EnrichedResponse is the body of the scrape-and-enrich endpoint
type EnrichedResponse struct {
	Username   string                  `json:"username"`
	Records    []domain.EnrichedRecord `json:"records"`
	Summary    domain.Summary          `json:"summary"`
	StopReason string                  `json:"stop_reason"`
	Partial    bool                    `json:"partial"`
	Warning    string                  `json:"warning,omitempty"`
}

// EnrichRequest is the body of the batch enrichment endpoint
type EnrichRequest struct {
	Entries []domain.RawEntry `json:"entries" binding:"required"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "moodboxd-backend",
		"version": serviceVersion,
	})
}

// GetFilms walks a user's catalog and returns the raw entries
func (h *Handler) GetFilms(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	username := c.Param("username")

	walk, err := h.catalog.Scrape(c.Request.Context(), username)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := FilmsResponse{
		Username:       username,
		Movies:         walk.Entries,
		PagesVisited:   walk.PagesVisited,
		StopReason:     walk.StopReason,
		Partial:        walk.Partial(),
		DiagnosticPath: walk.DiagnosticPath,
	}
	if walk.Err != nil {
		resp.Warning = walk.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// GetEnrichedFilms walks a user's catalog and enriches every entry
func (h *Handler) GetEnrichedFilms(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	username := c.Param("username")

	report, err := h.catalog.ScrapeAndEnrich(c.Request.Context(), username)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrichedResponse(report))
}

// EnrichFilms enriches a caller-supplied list of entries
func (h *Handler) EnrichFilms(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	result, err := h.catalog.Enrich(c.Request.Context(), req.Entries)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportFilms walks and enriches a catalog, streaming it as csv, ndjson or json
func (h *Handler) ExportFilms(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	username := c.Param("username")

	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.catalog.ScrapeAndEnrich(c.Request.Context(), username)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-films%s"`, username, format.Extension()))
	c.Status(http.StatusOK)
	if err := export.WriteRecords(c.Writer, format, report.Records); err != nil {
		h.logger.Error().Err(err).Str("username", username).Msg("export write failed")
	}
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog service not configured"})
		return false
	}
	return true
}

// respondError maps pipeline errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrCatalogEmpty):
		status, message = http.StatusNotFound, "User not found or unable to scrape data."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status, message = http.StatusGatewayTimeout, "request cancelled before completion"
	case errors.Is(err, domain.ErrLookupFailure):
		status, message = http.StatusBadGateway, err.Error()
	}

	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Int("status", status).
		Str("path", c.FullPath()).
		Str("request_id", c.GetString(requestIDKey)).
		Msg("request failed")

	c.JSON(status, gin.H{"error": message})
}

func enrichedResponse(report *domain.CatalogReport) EnrichedResponse {
	resp := EnrichedResponse{
		Username: report.Username,
		Records:  report.Records,
		Summary:  report.Summary,
	}
	if resp.Records == nil {
		resp.Records = []domain.EnrichedRecord{}
	}
	if report.Walk != nil {
		resp.StopReason = report.Walk.StopReason
		resp.Partial = report.Walk.Partial()
		if report.Walk.Err != nil {
			resp.Warning = report.Walk.Err.Error()
		}
	}
	return resp
}
