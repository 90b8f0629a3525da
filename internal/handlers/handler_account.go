package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/middleware"
)

// accountHandler handles HTTP requests related to accounts and their balances.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	balanceService portssvc.BalanceSvcFacade
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, balanceService portssvc.BalanceSvcFacade) {
	h := &accountHandler{accountService: accountService, balanceService: balanceService}

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("/:hash", h.getAccount)
		accounts.PUT("/:hash", h.updateAccount)
		accounts.DELETE("/:hash", h.deleteAccount)
		accounts.GET("/:hash/children", h.listChildren)
		accounts.GET("/:hash/path", h.getAccountPath)
		accounts.GET("/:hash/balances", h.getBalances)
		accounts.POST("/:hash/balances/recalculate", h.recalculateBalances)
	}
}

// createAccount godoc
// @Summary Create a new account
// @Description Creates an account under an existing parent, optionally seeding opening balances
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 409 {object} map[string]string "Sibling name already in use"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	creator, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger.Info("Received request to create account",
		slog.String("name", req.Name), slog.String("parent_hash", req.ParentHash))

	account, err := h.accountService.CreateAccount(c.Request.Context(), creator, req)
	if err != nil {
		respondError(c, logger, err, "Failed to create account")
		return
	}
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

// getAccount godoc
// @Summary Get an account by hash
// @Tags accounts
// @Produce json
// @Param hash path string true "Account hash"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{hash} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	account, err := h.accountService.GetAccount(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// updateAccount godoc
// @Summary Rename a leaf account or change its code
// @Description Restricted to leaf accounts without postings; the account hash changes
// @Tags accounts
// @Accept json
// @Produce json
// @Param hash path string true "Account hash"
// @Param account body dto.UpdateAccountRequest true "Fields to change"
// @Success 200 {object} dto.AccountResponse
// @Failure 409 {object} map[string]string "Account has children or postings"
// @Security BearerAuth
// @Router /accounts/{hash} [put]
func (h *accountHandler) updateAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	updater, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), updater, c.Param("hash"), req)
	if err != nil {
		respondError(c, logger, err, "Failed to update account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// deleteAccount godoc
// @Summary Delete a leaf account
// @Description The account must have no children, no postings and empty balances
// @Tags accounts
// @Param hash path string true "Account hash"
// @Success 204 "Deleted"
// @Failure 409 {object} map[string]string "Account is still in use"
// @Security BearerAuth
// @Router /accounts/{hash} [delete]
func (h *accountHandler) deleteAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	deleter, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.accountService.DeleteAccount(c.Request.Context(), deleter, c.Param("hash")); err != nil {
		respondError(c, logger, err, "Failed to delete account")
		return
	}
	c.Status(http.StatusNoContent)
}

// listChildren godoc
// @Summary List direct children of a ledger or account node
// @Tags accounts
// @Produce json
// @Param hash path string true "Parent hash"
// @Success 200 {array} dto.AccountResponse
// @Security BearerAuth
// @Router /accounts/{hash}/children [get]
func (h *accountHandler) listChildren(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	children, err := h.accountService.ListChildren(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to list children")
		return
	}
	out := make([]dto.AccountResponse, 0, len(children))
	for i := range children {
		out = append(out, dto.ToAccountResponse(&children[i]))
	}
	c.JSON(http.StatusOK, out)
}

// getAccountPath godoc
// @Summary Get the ancestor path of an account
// @Tags accounts
// @Produce json
// @Param hash path string true "Account hash"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{hash}/path [get]
func (h *accountHandler) getAccountPath(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	path, err := h.accountService.GetAccountPath(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to resolve account path")
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

// getBalances godoc
// @Summary Get an account's balances
// @Description Returns the local (own postings) and global (subtree roll-up) slices
// @Tags accounts
// @Produce json
// @Param hash path string true "Account hash"
// @Success 200 {object} dto.BalanceResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{hash}/balances [get]
func (h *accountHandler) getBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	balance, err := h.balanceService.GetBalances(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve balances")
		return
	}
	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}

// recalculateBalances godoc
// @Summary Recompute global balances bottom-up from this account
// @Tags accounts
// @Produce json
// @Param hash path string true "Account hash"
// @Success 200 {object} dto.BalanceResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{hash}/balances/recalculate [post]
func (h *accountHandler) recalculateBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountHash := c.Param("hash")
	caller, ok := middleware.GetCallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), accountHash)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve account")
		return
	}
	if err := h.balanceService.RecalculateGlobalBalances(c.Request.Context(), caller, accountHash, account.LedgerHash); err != nil {
		respondError(c, logger, err, "Failed to recalculate balances")
		return
	}
	balance, err := h.balanceService.GetBalances(c.Request.Context(), accountHash)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve balances")
		return
	}
	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}
