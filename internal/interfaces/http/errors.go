package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Prospectos-api/internal/application/dto"
	"github.com/jhoicas/Prospectos-api/internal/domain"
)

// writeError traduce errores de dominio a HTTP con dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	var incomplete *domain.ValidationIncompleteError
	switch {
	case errors.As(err, &incomplete):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code: "VALIDATION_INCOMPLETE", Message: err.Error(), Missing: incomplete.Missing,
		})
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHENTICATED", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	case errors.Is(err, domain.ErrPermissionSourceUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code: "PERMISSION_SOURCE_UNAVAILABLE", Message: err.Error(), Retryable: true,
		})
	case errors.Is(err, domain.ErrTransitionNotAllowed):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "TRANSITION_NOT_ALLOWED", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateLifetimeAllocation):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "DUPLICATE_LIFETIME_ALLOCATION", Message: err.Error()})
	case errors.Is(err, domain.ErrLeadNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "EMAIL_EXISTS", Message: err.Error()})
	case errors.Is(err, domain.ErrNothingToRetry):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOTHING_TO_RETRY", Message: err.Error()})
	case errors.Is(err, domain.ErrRetryLimitReached):
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RETRY_LIMIT_REACHED", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: "la operación excedió el tiempo límite"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
