package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docledger/docledger/internal/core/domain"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// settingsHandler administers the settings document, the trusted-account list
// and the cleanup endpoint.
type settingsHandler struct {
	settingsService portssvc.SettingsSvcFacade
	cleanupService  portssvc.CleanupSvcFacade
}

// registerSettingsRoutes registers routes related to settings and admin ops.
func registerSettingsRoutes(rg *gin.RouterGroup, settingsService portssvc.SettingsSvcFacade, cleanupService portssvc.CleanupSvcFacade) {
	h := &settingsHandler{settingsService: settingsService, cleanupService: cleanupService}

	settings := rg.Group("/settings")
	{
		settings.GET("", h.getSettings)
		settings.PUT("", h.setSetting)
		settings.DELETE("/:key", h.removeSetting)
		settings.POST("/trusted", h.addTrustedAccount)
		settings.DELETE("/trusted/:account", h.removeTrustedAccount)
	}
	rg.POST("/admin/cleanup", h.cleanup)
}

// getSettings godoc
// @Summary Get the full settings payload
// @Tags settings
// @Produce json
// @Success 200 {object} domain.ContentGroups
// @Security BearerAuth
// @Router /settings [get]
func (h *settingsHandler) getSettings(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groups, err := h.settingsService.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve settings")
		return
	}
	c.JSON(http.StatusOK, groups)
}

// setSetting godoc
// @Summary Store one typed setting value
// @Tags settings
// @Accept json
// @Param setting body dto.SetSettingRequest true "Setting key and typed value"
// @Success 204 "Stored"
// @Failure 400 {object} map[string]string "Invalid input"
// @Security BearerAuth
// @Router /settings [put]
func (h *settingsHandler) setSetting(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetSetting", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var value domain.Content
	switch domain.ContentType(req.Type) {
	case domain.ContentInt:
		value = domain.IntContent(req.Key, req.IntValue)
	case domain.ContentHash:
		value = domain.HashContent(req.Key, req.HashValue)
	default:
		value = domain.StringContent(req.Key, req.StringValue)
	}

	if err := h.settingsService.SetSetting(c.Request.Context(), updater, req.Key, value); err != nil {
		respondError(c, logger, err, "Failed to store setting")
		return
	}
	c.Status(http.StatusNoContent)
}

// removeSetting godoc
// @Summary Remove a setting
// @Tags settings
// @Param key path string true "Setting key"
// @Success 204 "Removed"
// @Failure 404 {object} map[string]string "Setting not found"
// @Security BearerAuth
// @Router /settings/{key} [delete]
func (h *settingsHandler) removeSetting(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.settingsService.RemoveSetting(c.Request.Context(), updater, c.Param("key")); err != nil {
		respondError(c, logger, err, "Failed to remove setting")
		return
	}
	c.Status(http.StatusNoContent)
}

// addTrustedAccount godoc
// @Summary Add an account to the trusted list
// @Tags settings
// @Accept json
// @Param account body dto.TrustedAccountRequest true "Account"
// @Success 204 "Added"
// @Failure 409 {object} map[string]string "Account already trusted"
// @Security BearerAuth
// @Router /settings/trusted [post]
func (h *settingsHandler) addTrustedAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TrustedAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddTrustedAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.settingsService.AddTrustedAccount(c.Request.Context(), updater, req.Account); err != nil {
		respondError(c, logger, err, "Failed to add trusted account")
		return
	}
	c.Status(http.StatusNoContent)
}

// removeTrustedAccount godoc
// @Summary Remove an account from the trusted list
// @Tags settings
// @Param account path string true "Account"
// @Success 204 "Removed"
// @Failure 404 {object} map[string]string "Account not trusted"
// @Security BearerAuth
// @Router /settings/trusted/{account} [delete]
func (h *settingsHandler) removeTrustedAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.settingsService.RemoveTrustedAccount(c.Request.Context(), updater, c.Param("account")); err != nil {
		respondError(c, logger, err, "Failed to remove trusted account")
		return
	}
	c.Status(http.StatusNoContent)
}

// cleanup godoc
// @Summary Erase documents of the given node types in one bounded batch
// @Description Removes at most 100 documents per call and reports whether more remain. Trusted accounts only.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.CleanupRequest true "Node types to remove"
// @Success 200 {object} dto.CleanupResponse
// @Failure 403 {object} map[string]string "Caller is not a trusted account"
// @Security BearerAuth
// @Router /admin/cleanup [post]
func (h *settingsHandler) cleanup(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Cleanup", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	requester, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	removed, more, err := h.cleanupService.Clean(c.Request.Context(), requester, req.NodeTypes)
	if err != nil {
		respondError(c, logger, err, "Failed to run cleanup")
		return
	}
	c.JSON(http.StatusOK, dto.CleanupResponse{Removed: removed, More: more})
}
