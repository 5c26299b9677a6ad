package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrLeadNotFound       = errors.New("prospecto no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")

	// Taxonomía del motor de acceso y del ciclo de vida de prospectos.
	ErrUnauthenticated             = errors.New("sesión no válida, inicie sesión de nuevo")
	ErrPermissionSourceUnavailable = errors.New("no se pudo consultar la fuente de permisos")
	ErrValidationIncomplete        = errors.New("validación incompleta")
	ErrDuplicateLifetimeAllocation = errors.New("el prospecto ya tiene un identificador permanente asignado")
	ErrTransitionNotAllowed        = errors.New("transición de estado no permitida")
	ErrNothingToRetry              = errors.New("no hay verificación pendiente para reintentar")
	ErrRetryLimitReached           = errors.New("se agotaron los reintentos de verificación")
)

// ValidationIncompleteError nombra los criterios de validación que faltan.
// errors.Is(err, ErrValidationIncomplete) es verdadero.
type ValidationIncompleteError struct {
	LeadID  string
	Missing []string
}

func (e *ValidationIncompleteError) Error() string {
	if len(e.Missing) == 0 || (len(e.Missing) == 1 && e.Missing[0] == "registro_validacion") {
		return fmt.Sprintf("%s: el prospecto %s no tiene registro de validación", ErrValidationIncomplete, e.LeadID)
	}
	return fmt.Sprintf("%s: faltan %s", ErrValidationIncomplete, strings.Join(e.Missing, ", "))
}

func (e *ValidationIncompleteError) Unwrap() error { return ErrValidationIncomplete }

// TransitionNotAllowedError indica un salto fuera del grafo de estados.
type TransitionNotAllowedError struct {
	From string
	To   string
}

func (e *TransitionNotAllowedError) Error() string {
	return fmt.Sprintf("%s: %s → %s", ErrTransitionNotAllowed, e.From, e.To)
}

func (e *TransitionNotAllowedError) Unwrap() error { return ErrTransitionNotAllowed }

// PermissionSourceError envuelve la causa de un fallo de la fuente de permisos.
type PermissionSourceError struct {
	Role   string
	PageID string
	Cause  error
}

func (e *PermissionSourceError) Error() string {
	return fmt.Sprintf("%s (rol %s, página %s): %v", ErrPermissionSourceUnavailable, e.Role, e.PageID, e.Cause)
}

// Unwrap expone tanto el centinela como la causa original (timeout, red, etc.).
func (e *PermissionSourceError) Unwrap() []error {
	return []error{ErrPermissionSourceUnavailable, e.Cause}
}
