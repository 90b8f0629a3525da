package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// currencyHandler administers the currency allow-list.
type currencyHandler struct {
	currencyService portssvc.CurrencySvcFacade
}

// registerCurrencyRoutes registers routes related to currencies.
func registerCurrencyRoutes(rg *gin.RouterGroup, currencyService portssvc.CurrencySvcFacade) {
	h := &currencyHandler{currencyService: currencyService}

	currencies := rg.Group("/currencies")
	{
		currencies.POST("", h.addCurrency)
		currencies.GET("", h.listCurrencies)
		currencies.DELETE("/:symbol", h.removeCurrency)
	}
}

// addCurrency godoc
// @Summary Add a currency to the allow-list
// @Tags currencies
// @Accept json
// @Produce json
// @Param currency body dto.AddCurrencyRequest true "Currency symbol and precision"
// @Success 201 {object} dto.CurrencyResponse
// @Failure 409 {object} map[string]string "Currency already allowed"
// @Security BearerAuth
// @Router /currencies [post]
func (h *currencyHandler) addCurrency(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AddCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddCurrency", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.currencyService.AddCurrency(c.Request.Context(), updater, req.Symbol, req.Precision); err != nil {
		respondError(c, logger, err, "Failed to add currency")
		return
	}
	c.JSON(http.StatusCreated, dto.CurrencyResponse{Symbol: req.Symbol, Precision: req.Precision})
}

// removeCurrency godoc
// @Summary Remove a currency from the allow-list
// @Tags currencies
// @Param symbol path string true "Currency symbol"
// @Success 204 "Removed"
// @Failure 404 {object} map[string]string "Currency not on the list"
// @Security BearerAuth
// @Router /currencies/{symbol} [delete]
func (h *currencyHandler) removeCurrency(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.currencyService.RemoveCurrency(c.Request.Context(), updater, c.Param("symbol")); err != nil {
		respondError(c, logger, err, "Failed to remove currency")
		return
	}
	c.Status(http.StatusNoContent)
}

// listCurrencies godoc
// @Summary List the currency allow-list
// @Tags currencies
// @Produce json
// @Success 200 {array} dto.CurrencyResponse
// @Security BearerAuth
// @Router /currencies [get]
func (h *currencyHandler) listCurrencies(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	currencies, err := h.currencyService.ListCurrencies(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to list currencies")
		return
	}
	c.JSON(http.StatusOK, currencies)
}
