package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// eventHandler handles HTTP requests for external events and their bindings.
type eventHandler struct {
	eventService portssvc.EventSvcFacade
}

// registerEventRoutes registers routes related to events.
func registerEventRoutes(rg *gin.RouterGroup, eventService portssvc.EventSvcFacade) {
	h := &eventHandler{eventService: eventService}

	events := rg.Group("/events")
	{
		events.POST("", h.ingestEvent)
		events.GET("/cursors", h.listCursors)
		events.GET("/:hash", h.getEvent)
		events.POST("/bind", h.bindEvent)
		events.POST("/unbind", h.unbindEvent)
	}
}

// ingestEvent godoc
// @Summary Ingest an external event
// @Description Stores the event under the event bucket and advances the per-source cursor. Trusted accounts only.
// @Tags events
// @Accept json
// @Produce json
// @Param event body dto.IngestEventRequest true "Event payload"
// @Success 201 {object} dto.EventResponse
// @Failure 403 {object} map[string]string "Caller is not a trusted account"
// @Security BearerAuth
// @Router /events [post]
func (h *eventHandler) ingestEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for IngestEvent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	issuer, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	event, err := h.eventService.IngestEvent(c.Request.Context(), issuer, req)
	if err != nil {
		respondError(c, logger, err, "Failed to ingest event")
		return
	}
	c.JSON(http.StatusCreated, dto.EventResponse{Hash: event.Hash, Source: event.Source, Cursor: event.Cursor})
}

// getEvent godoc
// @Summary Get an event by hash
// @Tags events
// @Produce json
// @Param hash path string true "Event hash"
// @Success 200 {object} dto.EventResponse
// @Failure 404 {object} map[string]string "Event not found"
// @Security BearerAuth
// @Router /events/{hash} [get]
func (h *eventHandler) getEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve event")
		return
	}
	c.JSON(http.StatusOK, dto.EventResponse{Hash: event.Hash, Source: event.Source, Cursor: event.Cursor})
}

// bindEvent godoc
// @Summary Bind an event to a transaction component
// @Description 1:1 in both directions; only components of unapproved transactions can be bound
// @Tags events
// @Accept json
// @Param binding body dto.BindEventRequest true "Binding"
// @Success 204 "Bound"
// @Failure 409 {object} map[string]string "Either side is already bound"
// @Security BearerAuth
// @Router /events/bind [post]
func (h *eventHandler) bindEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.BindEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for BindEvent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.eventService.BindEvent(c.Request.Context(), updater, req.EventHash, req.ComponentHash); err != nil {
		respondError(c, logger, err, "Failed to bind event")
		return
	}
	c.Status(http.StatusNoContent)
}

// unbindEvent godoc
// @Summary Remove an event binding
// @Tags events
// @Accept json
// @Param binding body dto.BindEventRequest true "Binding"
// @Success 204 "Unbound"
// @Failure 404 {object} map[string]string "Binding not found"
// @Security BearerAuth
// @Router /events/unbind [post]
func (h *eventHandler) unbindEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.BindEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UnbindEvent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.eventService.UnbindEvent(c.Request.Context(), updater, req.EventHash, req.ComponentHash); err != nil {
		respondError(c, logger, err, "Failed to unbind event")
		return
	}
	c.Status(http.StatusNoContent)
}

// listCursors godoc
// @Summary List the last ingested cursor of every event source
// @Tags events
// @Produce json
// @Success 200 {array} dto.CursorResponse
// @Security BearerAuth
// @Router /events/cursors [get]
func (h *eventHandler) listCursors(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	cursors, err := h.eventService.ListCursors(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to list cursors")
		return
	}
	out := make([]dto.CursorResponse, 0, len(cursors))
	for _, cur := range cursors {
		out = append(out, dto.CursorResponse{Source: cur.Source, LastCursor: cur.LastCursor})
	}
	c.JSON(http.StatusOK, out)
}
