package http

import (
	"errors"
	"net/http"
	"strconv"

	"signals-pool/internal/engine/dto"
	"signals-pool/internal/engine/service"
	"signals-pool/internal/entity"
	"signals-pool/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalHandler handles HTTP requests for signals, investments and auto mode.
type SignalHandler struct {
	signals     service.SignalService
	investments service.InvestmentService
	autoMode    service.AutoModeService
	logger      *logger.Logger
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(signals service.SignalService, investments service.InvestmentService, autoMode service.AutoModeService, log *logger.Logger) *SignalHandler {
	return &SignalHandler{signals: signals, investments: investments, autoMode: autoMode, logger: log}
}

// RegisterRoutes registers the signal routes to the Echo group.
func (h *SignalHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/join", h.Join)
	g.POST("/random", h.CreateRandom)
	g.POST("/custom", h.CreateCustom)
	g.GET("/open", h.ListOpen)
	g.GET("/investments/:userID", h.ListInvestments)
	g.POST("/automode/:userID/enable", h.EnableAutoMode)
	g.POST("/automode/:userID/disable", h.DisableAutoMode)
}

// Join enters a user into a signal. Expected failures are reported with
// success=false rather than an error status so clients can show the reason.
func (h *SignalHandler) Join(c echo.Context) error {
	var req dto.JoinSignalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}

	investment, err := h.investments.Join(c.Request().Context(), req.UserID, req.SignalID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) ||
			errors.Is(err, entity.ErrAlreadyJoined) ||
			errors.Is(err, entity.ErrSignalClosed) ||
			errors.Is(err, entity.ErrInsufficientFunds) {
			return c.JSON(http.StatusOK, dto.JoinSignalResponse{Success: false, Reason: err.Error()})
		}
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, dto.JoinSignalResponse{
		Success:  true,
		SignalID: investment.SignalID,
		Amount:   investment.Amount,
	})
}

func (h *SignalHandler) CreateRandom(c echo.Context) error {
	var req dto.CreateRandomSignalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}
	signal, err := h.signals.CreateRandomSignal(c.Request().Context(), req.Name)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, toSignalResponse(signal))
}

func (h *SignalHandler) CreateCustom(c echo.Context) error {
	var req dto.CreateCustomSignalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request payload"})
	}
	signal, err := h.signals.CreateCustomSignal(c.Request().Context(), service.CustomSignalParams{
		Name:          req.Name,
		JoinSeconds:   req.JoinSeconds,
		ActiveSeconds: req.ActiveSeconds,
		ProfitPercent: req.ProfitPercent,
		SignalCost:    req.SignalCost,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, toSignalResponse(signal))
}

// ListOpen returns the open signals visible to the user under their plan tier.
func (h *SignalHandler) ListOpen(c echo.Context) error {
	userID, err := parseUserID(c.QueryParam("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user_id"})
	}
	signals, err := h.signals.ListOpenSignals(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	resp := make([]dto.SignalResponse, 0, len(signals))
	for i := range signals {
		resp = append(resp, toSignalResponse(&signals[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SignalHandler) ListInvestments(c echo.Context) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	investments, err := h.investments.ListInvestments(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	resp := make([]dto.InvestmentResponse, 0, len(investments))
	for _, inv := range investments {
		item := dto.InvestmentResponse{
			ID:        inv.ID,
			SignalID:  inv.SignalID,
			Amount:    inv.Amount,
			AutoMode:  inv.AutoMode,
			CreatedAt: inv.CreatedAt,
		}
		if inv.Profit.Valid {
			profit := inv.Profit.Bool
			item.Profit = &profit
		}
		resp = append(resp, item)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SignalHandler) EnableAutoMode(c echo.Context) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	lockedUntil, err := h.autoMode.Enable(c.Request().Context(), userID)
	if err != nil {
		if entity.IsValidation(err) || errors.Is(err, entity.ErrInsufficientFunds) || errors.Is(err, entity.ErrAlreadyJoined) {
			return c.JSON(http.StatusOK, dto.AutoModeResponse{Success: false, Reason: err.Error()})
		}
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, dto.AutoModeResponse{Success: true, LockedUntil: &lockedUntil})
}

func (h *SignalHandler) DisableAutoMode(c echo.Context) error {
	userID, err := parseUserID(c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid user ID"})
	}
	lockedUntil, err := h.autoMode.Disable(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, entity.ErrAutoModeLocked) {
			return c.JSON(http.StatusOK, dto.AutoModeResponse{
				Success:     false,
				Reason:      err.Error(),
				LockedUntil: &lockedUntil,
			})
		}
		if entity.IsValidation(err) {
			return c.JSON(http.StatusOK, dto.AutoModeResponse{Success: false, Reason: err.Error()})
		}
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, dto.AutoModeResponse{Success: true})
}

func toSignalResponse(s *entity.Signal) dto.SignalResponse {
	return dto.SignalResponse{
		ID:            s.ID,
		Name:          s.Name,
		JoinUntil:     s.JoinUntil,
		ExpiresAt:     s.ExpiresAt,
		BurnChance:    s.BurnChance,
		ProfitPercent: s.ProfitPercent,
		SignalCost:    s.SignalCost,
	}
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
