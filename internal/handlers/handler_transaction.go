package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/owetrack/owetrack/internal/apperrors"
	"github.com/owetrack/owetrack/internal/core/domain"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/dto"
	"github.com/owetrack/owetrack/internal/middleware"
)

// transactionHandler handles HTTP requests for the ledger: recording,
// cancelling, the draft lifecycle, listings, balances and rebuilds.
type transactionHandler struct {
	ledgerService portssvc.LedgerSvcFacade
	recalcService portssvc.RecalcSvcFacade
}

func newTransactionHandler(ls portssvc.LedgerSvcFacade, rs portssvc.RecalcSvcFacade) *transactionHandler {
	return &transactionHandler{
		ledgerService: ls,
		recalcService: rs,
	}
}

// RegisterTransactionRoutes registers ledger routes.
func RegisterTransactionRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, recalcService portssvc.RecalcSvcFacade) {
	h := newTransactionHandler(ledgerService, recalcService)

	transactions := rg.Group("/transactions")
	{
		transactions.POST("/topup", h.topup)
		transactions.POST("/withdraw", h.withdraw)
		transactions.DELETE("/:id", h.cancel)
	}

	drafts := rg.Group("/drafts")
	{
		drafts.POST("", h.createDraft)
		drafts.GET("/:token", h.getDraft)
		drafts.DELETE("/:token", h.discardDraft)
		drafts.POST("/:token/finalize", h.finalizeDraft)
	}

	contacts := rg.Group("/contacts/:id")
	{
		contacts.GET("/transactions", h.listTransactions)
		contacts.GET("/balances", h.queryBalances)
		contacts.POST("/balances/rebuild", h.rebuildBalances)
	}
}

// topup godoc
// @Summary Record a topup
// @Description Records a positive amount against a contact: the counterparty owes the user more.
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body dto.RecordTransactionRequest true "Transaction details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Security BearerAuth
// @Router /transactions/topup [post]
func (h *transactionHandler) topup(c *gin.Context) {
	h.recordTransaction(c, h.ledgerService.Topup)
}

// withdraw godoc
// @Summary Record a withdrawal
// @Description Records a negative amount against a contact: the user gave or owes.
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body dto.RecordTransactionRequest true "Transaction details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Security BearerAuth
// @Router /transactions/withdraw [post]
func (h *transactionHandler) withdraw(c *gin.Context) {
	h.recordTransaction(c, h.ledgerService.Withdraw)
}

type recordFunc func(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error)

func (h *transactionHandler) recordTransaction(c *gin.Context, record recordFunc) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind transaction request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	txn, err := record(c.Request.Context(), userID, req)
	if err != nil {
		respondLedgerError(c, err, "Failed to record transaction")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// cancel godoc
// @Summary Cancel a transaction
// @Description Soft-deletes the transaction, reverses its balance effect and cancels the linked mirror entry.
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 204 "Cancelled"
// @Failure 404 {object} ErrorResponse "Transaction not found or already cancelled"
// @Security BearerAuth
// @Router /transactions/{id} [delete]
func (h *transactionHandler) cancel(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.ledgerService.Cancel(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondLedgerError(c, err, "Failed to cancel transaction")
		return
	}

	c.Status(http.StatusNoContent)
}

// createDraft godoc
// @Summary Create a draft transaction
// @Description Records a transaction before its counterparty is known. Drafts have no ledger effect until finalized.
// @Tags drafts
// @Accept json
// @Produce json
// @Param draft body dto.CreateDraftRequest true "Draft details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 409 {object} ErrorResponse "Draft token already in use"
// @Security BearerAuth
// @Router /drafts [post]
func (h *transactionHandler) createDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind draft request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	draft, err := h.ledgerService.CreateDraft(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Draft token already in use"})
			return
		}
		respondLedgerError(c, err, "Failed to create draft")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransactionResponse(draft))
}

// getDraft godoc
// @Summary Get a draft by token
// @Tags drafts
// @Produce json
// @Param token path string true "Draft token"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} ErrorResponse "Draft not found"
// @Security BearerAuth
// @Router /drafts/{token} [get]
func (h *transactionHandler) getDraft(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	draft, err := h.ledgerService.GetDraft(c.Request.Context(), userID, c.Param("token"))
	if err != nil {
		respondLedgerError(c, err, "Failed to retrieve draft")
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(draft))
}

// discardDraft godoc
// @Summary Discard a draft
// @Description Hard-deletes an unfinalized draft. Drafts never touched balances, so nothing is reversed.
// @Tags drafts
// @Produce json
// @Param token path string true "Draft token"
// @Success 204 "Discarded"
// @Failure 404 {object} ErrorResponse "Draft not found"
// @Security BearerAuth
// @Router /drafts/{token} [delete]
func (h *transactionHandler) discardDraft(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.ledgerService.DiscardDraft(c.Request.Context(), userID, c.Param("token")); err != nil {
		respondLedgerError(c, err, "Failed to discard draft")
		return
	}

	c.Status(http.StatusNoContent)
}

// finalizeDraft godoc
// @Summary Finalize a draft
// @Description Attaches the draft to a contact and applies its balance and mirror effects exactly once.
// @Tags drafts
// @Accept json
// @Produce json
// @Param token path string true "Draft token"
// @Param finalize body dto.FinalizeDraftRequest true "Target contact"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} ErrorResponse "Draft or contact not found"
// @Failure 409 {object} ErrorResponse "Draft already finalized"
// @Security BearerAuth
// @Router /drafts/{token}/finalize [post]
func (h *transactionHandler) finalizeDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.FinalizeDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind finalize request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	txn, err := h.ledgerService.FinalizeDraft(c.Request.Context(), userID, c.Param("token"), req.ContactID)
	if err != nil {
		respondLedgerError(c, err, "Failed to finalize draft")
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listTransactions godoc
// @Summary List transactions for a contact
// @Tags transactions
// @Produce json
// @Param id path string true "Contact ID"
// @Param limit query int false "Page size"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Security BearerAuth
// @Router /contacts/{id}/transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Error("Failed to bind list params", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.ledgerService.ListTransactions(c.Request.Context(), userID, c.Param("id"), params)
	if err != nil {
		respondLedgerError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// queryBalances godoc
// @Summary Query balances for a contact
// @Description Returns the materialized per-currency balances, optionally narrowed to one currency.
// @Tags balances
// @Produce json
// @Param id path string true "Contact ID"
// @Param currencyID query string false "Currency ID"
// @Success 200 {array} dto.BalanceResponse
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Security BearerAuth
// @Router /contacts/{id}/balances [get]
func (h *transactionHandler) queryBalances(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var currencyID *string
	if v, exists := c.GetQuery("currencyID"); exists && v != "" {
		currencyID = &v
	}

	balances, err := h.ledgerService.QueryBalances(c.Request.Context(), userID, c.Param("id"), currencyID)
	if err != nil {
		respondLedgerError(c, err, "Failed to query balances")
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceResponses(balances))
}

// rebuildBalances godoc
// @Summary Rebuild balances for a contact
// @Description Recomputes every balance row from the live transaction log. Safe to run at any time.
// @Tags balances
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {array} dto.BalanceResponse
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Security BearerAuth
// @Router /contacts/{id}/balances/rebuild [post]
func (h *transactionHandler) rebuildBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	balances, err := h.recalcService.Rebuild(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondLedgerError(c, err, "Failed to rebuild balances")
		return
	}

	logger.Info("Balances rebuilt via API", slog.String("contact_id", c.Param("id")))
	c.JSON(http.StatusOK, dto.ToBalanceResponses(balances))
}

// respondLedgerError maps service errors onto HTTP statuses.
func respondLedgerError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Conflict"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Forbidden"})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}
