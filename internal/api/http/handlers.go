// Package http exposes the preview engine over a JSON API so external
// tooling (sidebars, visual editors, CI preview jobs) can drive it.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/absmartly/preview-engine/internal/engine"
	"github.com/absmartly/preview-engine/internal/infrastructure/config"
	"github.com/absmartly/preview-engine/internal/logging"
	"github.com/absmartly/preview-engine/internal/preview"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	sessions *engine.Registry
	fetcher  *resty.Client
	maxBody  int64
	logger   *logging.Logger
}

// NewHandlers creates a handler set. Remote pages are fetched with resty
// under the configured timeout.
func NewHandlers(sessions *engine.Registry, fetchCfg config.FetchConfig, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	fetcher := resty.New().
		SetTimeout(fetchCfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", "absmartly-preview-engine/0.1")

	return &Handlers{
		sessions: sessions,
		fetcher:  fetcher,
		maxBody:  fetchCfg.MaxBodyBytes,
		logger:   logger,
	}
}

// Routes registers all API routes.
func (h *Handlers) Routes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	sessions := r.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.GET("/:id/html", h.RenderSession)
	sessions.GET("/:id/preview/count", h.PreviewCount)
	sessions.POST("/:id/preview/:experiment", h.ApplyChanges)
	sessions.DELETE("/:id/preview/:experiment", h.RemoveExperiment)
	sessions.DELETE("/:id/preview", h.ClearPreviews)
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "absmartly-preview-engine",
		"version": "0.1.0",
	})
}

// Health reports service health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.sessions.Count(),
	})
}

type createSessionRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

// CreateSession opens a session from inline HTML or a fetched URL.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	src := []byte(req.HTML)
	if len(src) == 0 {
		if req.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "html or url required"})
			return
		}
		fetched, ok := h.fetchPage(c, req.URL)
		if !ok {
			return
		}
		src = fetched
	}

	session, err := h.sessions.Create(src, req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

func (h *Handlers) fetchPage(c *gin.Context, url string) ([]byte, bool) {
	resp, err := h.fetcher.R().Get(url)
	if err != nil {
		h.logger.Warn("page fetch failed", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch page"})
		return nil, false
	}
	if resp.IsError() {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "page fetch returned error status",
			"status": resp.StatusCode(),
		})
		return nil, false
	}
	body := resp.Body()
	if int64(len(body)) > h.maxBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "fetched page too large"})
		return nil, false
	}
	return body, true
}

// DeleteSession closes a session.
func (h *Handlers) DeleteSession(c *gin.Context) {
	if !h.sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RenderSession returns the session's current HTML.
func (h *Handlers) RenderSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	rendered, err := session.Render()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rendered))
}

// PreviewCount returns the number of tracked elements.
func (h *Handlers) PreviewCount(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": session.Count()})
}

type applyChangesRequest struct {
	Changes []preview.Change `json:"changes"`
}

// ApplyChanges applies a batch of changes for an experiment.
func (h *Handlers) ApplyChanges(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req applyChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	experiment := c.Param("experiment")
	applied := session.Apply(req.Changes, experiment)

	c.JSON(http.StatusOK, gin.H{
		"experiment": experiment,
		"requested":  len(req.Changes),
		"applied":    applied,
		"tracked":    session.Count(),
	})
}

// RemoveExperiment reverses all changes for an experiment.
func (h *Handlers) RemoveExperiment(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	removed := session.Remove(c.Param("experiment"))
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// ClearPreviews reverses every experiment's changes in the session.
func (h *Handlers) ClearPreviews(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": true, "tracked": session.Count()})
}

func (h *Handlers) session(c *gin.Context) (*engine.Session, bool) {
	session, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return session, true
}
