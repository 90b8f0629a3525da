package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// ledgerHandler handles HTTP requests related to ledgers.
type ledgerHandler struct {
	ledgerService      portssvc.LedgerSvcFacade
	transactionService portssvc.TransactionSvcFacade
}

// registerLedgerRoutes registers routes related to ledgers.
func registerLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, transactionService portssvc.TransactionSvcFacade) {
	h := &ledgerHandler{ledgerService: ledgerService, transactionService: transactionService}

	ledgers := rg.Group("/ledgers")
	{
		ledgers.POST("", h.createLedger)
		ledgers.GET("", h.listLedgers)
		ledgers.GET("/:hash", h.getLedger)
		ledgers.GET("/:hash/transactions", h.listTransactions)
	}
}

// createLedger godoc
// @Summary Create a new ledger
// @Description Creates a ledger with its transaction bucket and default equity accounts
// @Tags ledgers
// @Accept json
// @Produce json
// @Param ledger body dto.CreateLedgerRequest true "Ledger details"
// @Success 201 {object} dto.LedgerResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 409 {object} map[string]string "Ledger name already in use"
// @Security BearerAuth
// @Router /ledgers [post]
func (h *ledgerHandler) createLedger(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateLedger", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	creator, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ledger, err := h.ledgerService.CreateLedger(c.Request.Context(), creator, req)
	if err != nil {
		respondError(c, logger, err, "Failed to create ledger")
		return
	}
	c.JSON(http.StatusCreated, ledger)
}

// getLedger godoc
// @Summary Get a ledger by hash
// @Tags ledgers
// @Produce json
// @Param hash path string true "Ledger hash"
// @Success 200 {object} dto.LedgerResponse
// @Failure 404 {object} map[string]string "Ledger not found"
// @Security BearerAuth
// @Router /ledgers/{hash} [get]
func (h *ledgerHandler) getLedger(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ledger, err := h.ledgerService.GetLedger(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve ledger")
		return
	}
	c.JSON(http.StatusOK, ledger)
}

// listLedgers godoc
// @Summary List all ledgers
// @Tags ledgers
// @Produce json
// @Success 200 {array} dto.LedgerResponse
// @Security BearerAuth
// @Router /ledgers [get]
func (h *ledgerHandler) listLedgers(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	ledgers, err := h.ledgerService.ListLedgers(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to list ledgers")
		return
	}
	c.JSON(http.StatusOK, ledgers)
}

// listTransactions godoc
// @Summary List one partition of a ledger's transactions
// @Description Returns the approved or unapproved partition of the ledger's bucket
// @Tags ledgers
// @Produce json
// @Param hash path string true "Ledger hash"
// @Param approved query bool false "Partition selector, defaults to false"
// @Success 200 {array} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Ledger not found"
// @Security BearerAuth
// @Router /ledgers/{hash}/transactions [get]
func (h *ledgerHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	approved := c.Query("approved") == "true"

	transactions, err := h.transactionService.ListTransactions(c.Request.Context(), c.Param("hash"), approved)
	if err != nil {
		respondError(c, logger, err, "Failed to list transactions")
		return
	}
	out := make([]dto.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		out = append(out, dto.ToTransactionResponse(&transactions[i]))
	}
	c.JSON(http.StatusOK, out)
}
