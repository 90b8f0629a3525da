package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// transactionHandler handles HTTP requests for the transaction lifecycle.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
}

// registerTransactionRoutes registers routes related to transactions.
func registerTransactionRoutes(rg *gin.RouterGroup, transactionService portssvc.TransactionSvcFacade) {
	h := &transactionHandler{transactionService: transactionService}

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.upsertTransaction)
		transactions.GET("/:hash", h.getTransaction)
		transactions.DELETE("/:hash", h.deleteTransaction)
		transactions.POST("/:hash/approve", h.approveTransaction)
	}
}

// upsertTransaction godoc
// @Summary Create or update a transaction
// @Description With trxHash empty a new transaction is created; otherwise the unapproved transaction at trxHash is replaced, keeping its logical id. Setting approve applies it immediately.
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body dto.UpsertTransactionRequest true "Transaction payload"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid payload or unbalanced transaction"
// @Failure 409 {object} map[string]string "Transaction already approved"
// @Security BearerAuth
// @Router /transactions [post]
func (h *transactionHandler) upsertTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpsertTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpsertTransaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	issuer, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger.Info("Received request to upsert transaction",
		slog.String("trx_hash", req.TrxHash), slog.Bool("approve", req.Approve))

	trx, err := h.transactionService.Upsert(c.Request.Context(), issuer, req.TrxHash, req.Payload, req.Approve)
	if err != nil {
		respondError(c, logger, err, "Failed to upsert transaction")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(trx))
}

// getTransaction godoc
// @Summary Get a transaction by hash
// @Tags transactions
// @Produce json
// @Param hash path string true "Transaction hash"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Security BearerAuth
// @Router /transactions/{hash} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	trx, err := h.transactionService.GetTransaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(trx))
}

// deleteTransaction godoc
// @Summary Delete an unapproved transaction
// @Description Removes the transaction document, its components and all their relations. Approved transactions are immutable.
// @Tags transactions
// @Param hash path string true "Transaction hash"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction already approved"
// @Security BearerAuth
// @Router /transactions/{hash} [delete]
func (h *transactionHandler) deleteTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	deleter, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.transactionService.Delete(c.Request.Context(), deleter, c.Param("hash")); err != nil {
		respondError(c, logger, err, "Failed to delete transaction")
		return
	}
	c.Status(http.StatusNoContent)
}

// approveTransaction godoc
// @Summary Approve a transaction
// @Description Validates balance closure, stamps the approver and applies every component to the balance tree. Approval is terminal.
// @Tags transactions
// @Produce json
// @Param hash path string true "Transaction hash"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Transaction does not balance"
// @Failure 409 {object} map[string]string "Transaction already approved"
// @Security BearerAuth
// @Router /transactions/{hash}/approve [post]
func (h *transactionHandler) approveTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	approver, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	trx, err := h.transactionService.Approve(c.Request.Context(), approver, c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to approve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(trx))
}
