package http

import (
	"errors"
	"net/http"

	"signals-pool/internal/engine/dto"
	"signals-pool/internal/entity"
	"signals-pool/pkg/logger"

	"github.com/labstack/echo/v4"
)

// respondError maps the domain error taxonomy onto HTTP statuses. Anything
// outside the expected set is treated as a storage failure: logged in full,
// surfaced generically.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	switch {
	case entity.IsValidation(err):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrNotFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrAlreadyJoined):
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrSignalClosed):
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrInsufficientFunds):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		log.Error("request failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
