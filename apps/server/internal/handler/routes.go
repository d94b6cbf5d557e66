// Package handler exposes the plugin registry over HTTP. The host chat
// application POSTs a chat body to a filter's inlet or outlet hook (or an
// action's endpoint) and gets back the transformed body plus the status
// events the plugin emitted while it ran.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwestphal/quill/apps/server/internal/plugin"
	"github.com/mwestphal/quill/pkg/api"
)

// Handler translates HTTP requests into plugin hook calls.
type Handler struct {
	reg *plugin.Registry
	log *slog.Logger
}

// RegisterRoutes mounts the quill plugin API onto the given Gin engine.
func RegisterRoutes(r *gin.Engine, reg *plugin.Registry, log *slog.Logger) {
	h := &Handler{reg: reg, log: log}

	r.GET("/health", h.Health)

	r.GET("/filters", h.ListFilters)
	r.POST("/filters/:id/inlet", h.Inlet)
	r.POST("/filters/:id/outlet", h.Outlet)

	r.GET("/actions", h.ListActions)
	r.POST("/actions/:id", h.RunAction)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListFilters handles GET /filters: the registered filter IDs.
func (h *Handler) ListFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"filters": h.reg.FilterIDs()})
}

// ListActions handles GET /actions: the registered action IDs.
func (h *Handler) ListActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": h.reg.ActionIDs()})
}

// Inlet handles POST /filters/:id/inlet, running the filter's inlet hook on
// the chat body before the model sees it.
func (h *Handler) Inlet(c *gin.Context) {
	h.runFilter(c, plugin.Filter.Inlet)
}

// Outlet handles POST /filters/:id/outlet, running the filter's outlet hook on
// the response body after the model answered.
func (h *Handler) Outlet(c *gin.Context) {
	h.runFilter(c, plugin.Filter.Outlet)
}

func (h *Handler) runFilter(c *gin.Context, hook func(plugin.Filter, context.Context, *api.ChatBody, plugin.Emit) error) {
	id := c.Param("id")
	f := h.reg.Filter(id)
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown filter: " + id})
		return
	}

	var body api.ChatBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var events []api.Event
	emit := func(e api.Event) { events = append(events, e) }

	if err := hook(f, c.Request.Context(), &body, emit); err != nil {
		h.log.Error("filter hook failed", "filter", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, api.FilterResult{Body: body, Events: events})
}

// RunAction handles POST /actions/:id.
func (h *Handler) RunAction(c *gin.Context) {
	id := c.Param("id")
	a := h.reg.Action(id)
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action: " + id})
		return
	}

	var body api.ActionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var events []api.Event
	emit := func(e api.Event) { events = append(events, e) }

	result, err := a.Run(c.Request.Context(), body, emit)
	if err != nil {
		h.log.Error("action failed", "action", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		result = &api.ActionResult{}
	}
	result.Events = append(result.Events, events...)

	c.JSON(http.StatusOK, result)
}
