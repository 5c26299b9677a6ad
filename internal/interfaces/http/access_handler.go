package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
	"github.com/jhoicas/Prospectos-api/internal/application/dto"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/infrastructure/notify"
)

// AccessHandler expone el guard de navegación de la consola.
type AccessHandler struct {
	guards *access.GuardRegistry
	inbox  *notify.Inbox
}

// NewAccessHandler construye el handler. inbox puede ser nil.
func NewAccessHandler(guards *access.GuardRegistry, inbox *notify.Inbox) *AccessHandler {
	return &AccessHandler{guards: guards, inbox: inbox}
}

// Check godoc
// @Summary      Verificar acceso a una ruta de la consola
// @Description  seq = 0 asigna la siguiente secuencia. Sin sesión responde state=unauthenticated con redirect_to.
// @Tags         access
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AccessCheckRequest  true  "ruta y secuencia"
// @Success      200   {object}  dto.AccessDecisionResponse
// @Router       /api/access/check [post]
func (h *AccessHandler) Check(c *fiber.Ctx) error {
	var in dto.AccessCheckRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	guard := h.guards.For(GetUserID(c))
	var d entity.AccessDecision
	var err error
	if in.Seq == 0 {
		d, err = guard.Navigate(c.UserContext(), in.Path)
	} else {
		d, err = guard.Check(c.UserContext(), in.Seq, in.Path)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDecisionResponse(d))
}

// Retry godoc
// @Summary      Reintentar la verificación pendiente
// @Tags         access
// @Produce      json
// @Success      200   {object}  dto.AccessDecisionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      429   {object}  dto.ErrorResponse
// @Router       /api/access/retry [post]
func (h *AccessHandler) Retry(c *fiber.Ctx) error {
	d, err := h.guards.For(GetUserID(c)).Retry(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDecisionResponse(d))
}

// Current godoc
// @Summary      Última decisión aplicada
// @Tags         access
// @Produce      json
// @Success      200   {object}  dto.AccessDecisionResponse
// @Router       /api/access/current [get]
func (h *AccessHandler) Current(c *fiber.Ctx) error {
	return c.JSON(toDecisionResponse(h.guards.For(GetUserID(c)).Current()))
}

// Notifications godoc
// @Summary      Avisos pendientes de la sesión
// @Tags         access
// @Produce      json
// @Router       /api/notifications [get]
func (h *AccessHandler) Notifications(c *fiber.Ctx) error {
	if h.inbox == nil {
		return c.JSON([]fiber.Map{})
	}
	items := h.inbox.Drain(GetUserID(c))
	out := make([]fiber.Map, 0, len(items))
	for _, n := range items {
		out = append(out, fiber.Map{
			"level":   n.Level,
			"kind":    n.Kind,
			"lead_id": n.LeadID,
			"message": n.Message,
			"at":      n.At,
		})
	}
	return c.JSON(out)
}

func toDecisionResponse(d entity.AccessDecision) dto.AccessDecisionResponse {
	return dto.AccessDecisionResponse{
		Seq:        d.Seq,
		Path:       d.Path,
		PageID:     d.PageID,
		State:      string(d.State),
		Allow:      d.Allow,
		Pending:    d.Pending,
		Retryable:  d.Retryable,
		Reason:     d.Reason,
		RedirectTo: d.RedirectTo,
		FromCache:  d.FromCache,
		Superseded: d.Superseded,
		Attempts:   d.Attempts,
	}
}
