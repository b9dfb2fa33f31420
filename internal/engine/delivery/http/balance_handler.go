package http

import (
	"context"
	"net/http"

	"signals-pool/internal/engine/dto"
	"signals-pool/internal/engine/service"
	"signals-pool/internal/entity"
	"signals-pool/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BalanceHandler handles HTTP requests for the balance ledger.
type BalanceHandler struct {
	ledger service.LedgerService
	logger *logger.Logger
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(ledger service.LedgerService, log *logger.Logger) *BalanceHandler {
	return &BalanceHandler{ledger: ledger, logger: log}
}

// RegisterRoutes registers the balance routes to the Echo group.
func (h *BalanceHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/:userID", h.GetBalance)
	g.POST("/:userID/deposit", h.Deposit)
	g.POST("/:userID/transfer-to-trade", h.TransferToTrade)
	g.POST("/:userID/transfer-to-main", h.TransferToMain)
	g.POST("/:userID/unfreeze", h.Unfreeze)
	g.GET("/:userID/transactions", h.ListTransactions)
}

func (h *BalanceHandler) GetBalance(c echo.Context) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	balance, err := h.ledger.GetBalance(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toBalanceResponse(balance))
}

func (h *BalanceHandler) Deposit(c echo.Context) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	var req dto.AmountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}
	balance, err := h.ledger.Deposit(c.Request().Context(), userID, req.Amount)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toBalanceResponse(balance))
}

func (h *BalanceHandler) TransferToTrade(c echo.Context) error {
	return h.transfer(c, h.ledger.TransferToTrade)
}

func (h *BalanceHandler) TransferToMain(c echo.Context) error {
	return h.transfer(c, h.ledger.TransferToMain)
}

func (h *BalanceHandler) transfer(c echo.Context, op func(ctx context.Context, userID uint, amount float64) error) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	var req dto.AmountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}
	if err := op(c.Request().Context(), userID, req.Amount); err != nil {
		return respondError(c, h.logger, err)
	}
	balance, err := h.ledger.GetBalance(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toBalanceResponse(balance))
}

func (h *BalanceHandler) Unfreeze(c echo.Context) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	released, err := h.ledger.Unfreeze(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, dto.UnfreezeResponse{UnfrozenAmount: released})
}

func (h *BalanceHandler) ListTransactions(c echo.Context) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	txs, err := h.ledger.ListTransactions(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	resp := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, dto.TransactionResponse{
			ID:        tx.ID,
			Amount:    tx.Amount,
			Type:      tx.Type,
			CreatedAt: tx.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func toBalanceResponse(b *entity.Balance) dto.BalanceResponse {
	return dto.BalanceResponse{
		UserID: b.UserID,
		Main:   b.Main,
		Trade:  b.Trade,
		Frozen: b.Frozen,
		Earned: b.Earned,
	}
}
