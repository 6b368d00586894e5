package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
)

// writeError traduce errores de dominio a códigos HTTP. Los 5xx no exponen el detalle interno.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var (
		insufficient *domain.InsufficientStockError
		lineErr      *domain.LineError
		validation   *domain.ValidationError
		invalidState *domain.InvalidStateError
	)
	line := (*int)(nil)
	if errors.As(err, &lineErr) {
		l := lineErr.Line
		line = &l
	}

	switch {
	case errors.As(err, &validation):
		detail := dto.ValidationDetail{Field: validation.Field, Reason: validation.Reason}
		if validation.Line >= 0 {
			l := validation.Line
			detail.Line = &l
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error(), Details: detail})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: "stock insuficiente",
			Details: dto.InsufficientStockDetail{
				Line:        line,
				VariantID:   insufficient.VariantID,
				WarehouseID: insufficient.WarehouseID,
				Requested:   insufficient.Requested,
				Available:   insufficient.Available,
			},
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.As(err, &invalidState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: invalidState.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		log.Warn().Err(err).Str("path", c.Path()).Msg("conflicto de concurrencia")
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "conflicto de concurrencia, reintente", Retryable: true})
	case errors.Is(err, domain.ErrTransientStore):
		log.Warn().Err(err).Str("path", c.Path()).Msg("falla transitoria del almacenamiento")
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "TRANSIENT", Message: "almacenamiento no disponible, reintente", Retryable: true})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
