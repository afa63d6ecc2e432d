package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tabwell/backend/internal/domain/registry"
	"github.com/tabwell/backend/internal/domain/workspace"
	"github.com/tabwell/backend/internal/scheduler"
	"github.com/tabwell/backend/internal/shared/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	workspace *workspace.Manager
}

// NewHandlers creates a new handler set
func NewHandlers(ws *workspace.Manager) *Handlers {
	return &Handlers{workspace: ws}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Tabwell Session Core",
		"version": "0.3.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"tabs":   h.workspace.Stats(),
	})
}

// ListTabs returns the current registry snapshot
func (h *Handlers) ListTabs(c *gin.Context) {
	snap := h.workspace.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"sessions":     snap.Sessions,
		"selected_key": snap.SelectedKey,
	})
}

// AddTab opens a new tab with a caller-minted key
func (h *Handlers) AddTab(c *gin.Context) {
	var req types.AddTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := <-h.workspace.RequestAdd(c.Request.Context(), *req.Key, req.BackingResource); err != nil {
		h.mutationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": *req.Key})
}

// RemoveTab closes a tab
func (h *Handlers) RemoveTab(c *gin.Context) {
	key, ok := h.keyParam(c)
	if !ok {
		return
	}

	if err := <-h.workspace.RequestRemove(c.Request.Context(), key); err != nil {
		h.mutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key})
}

// SelectTab changes the selected tab
func (h *Handlers) SelectTab(c *gin.Context) {
	key, ok := h.keyParam(c)
	if !ok {
		return
	}

	if err := <-h.workspace.RequestSelect(c.Request.Context(), key); err != nil {
		h.mutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"selected_key": key})
}

// Stats returns registry statistics
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.workspace.Stats())
}

func (h *Handlers) keyParam(c *gin.Context) (int, bool) {
	key, err := strconv.Atoi(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be an integer"})
		return 0, false
	}
	return key, true
}

// mutationError maps the core's error taxonomy onto HTTP statuses.
func (h *Handlers) mutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrDuplicateKey):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
