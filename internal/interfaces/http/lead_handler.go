package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Prospectos-api/internal/application/dto"
	"github.com/jhoicas/Prospectos-api/internal/application/intake"
	"github.com/jhoicas/Prospectos-api/internal/application/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// LeadHandler captura de prospectos y cambios de estado.
type LeadHandler struct {
	lifecycle *lifecycle.LeadLifecycleUseCase
	intake    *intake.IntakeUseCase
}

// NewLeadHandler construye el handler de prospectos.
func NewLeadHandler(lc *lifecycle.LeadLifecycleUseCase, in *intake.IntakeUseCase) *LeadHandler {
	return &LeadHandler{lifecycle: lc, intake: in}
}

// Intake godoc
// @Summary      Capturar prospecto
// @Description  Deduplica por id externo, teléfono o email; si ya existe se fusiona.
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IntakeRequest  true  "datos del prospecto"
// @Success      201   {object}  dto.IntakeResponse
// @Success      200   {object}  dto.IntakeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/leads [post]
func (h *LeadHandler) Intake(c *fiber.Ctx) error {
	var in dto.IntakeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.intake.Capture(c.UserContext(), toRecord(in, ""))
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Merged {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.IntakeResponse{Lead: toLeadResponse(res.Lead), Merged: res.Merged})
}

// Import godoc
// @Summary      Importación masiva
// @Description  Procesa fila por fila; los errores de una fila no detienen las demás.
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ImportRequest  true  "registros"
// @Success      200   {array}   dto.ImportItemResponse
// @Router       /api/leads/import [post]
func (h *LeadHandler) Import(c *fiber.Ctx) error {
	var in dto.ImportRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.Records) == 0 || len(in.Records) > 1000 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "records debe tener entre 1 y 1000 filas"})
	}
	records := make([]intake.Record, len(in.Records))
	for i, r := range in.Records {
		records[i] = toRecord(r, entity.ChannelImport)
	}
	items, err := h.intake.CaptureBatch(c.UserContext(), records)
	if err != nil && len(items) == 0 {
		return writeError(c, err)
	}
	out := make([]dto.ImportItemResponse, 0, len(items))
	for _, it := range items {
		row := dto.ImportItemResponse{Index: it.Index, Merged: it.Merged}
		if it.Err != nil {
			row.Error = it.Err.Error()
		}
		if it.Lead != nil {
			lr := toLeadResponse(it.Lead)
			row.Lead = &lr
		}
		out = append(out, row)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener prospecto
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "ID del prospecto"
// @Success      200  {object}  dto.LeadResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/leads/{id} [get]
func (h *LeadHandler) Get(c *fiber.Ctx) error {
	lead, err := h.lifecycle.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toLeadResponse(lead))
}

// ChangeStatus godoc
// @Summary      Solicitar cambio de estado
// @Description  Un owner aplica la aprobación aunque falten criterios (queda marcada como forzada).
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del prospecto"
// @Param        body  body  dto.StatusChangeRequest  true  "estado destino"
// @Success      200   {object}  dto.TransitionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/leads/{id}/status [post]
func (h *LeadHandler) ChangeStatus(c *fiber.Ctx) error {
	var in dto.StatusChangeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.lifecycle.RequestStatusChange(c.UserContext(), c.Params("id"), entity.ParseLeadStatus(in.Status), GetPrincipal(c))
	return h.transition(c, res, err)
}

// Approve godoc
// @Summary      Aprobación comercial (→ calificado)
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "ID del prospecto"
// @Success      200  {object}  dto.TransitionResponse
// @Router       /api/leads/{id}/approve [post]
func (h *LeadHandler) Approve(c *fiber.Ctx) error {
	res, err := h.lifecycle.Approve(c.UserContext(), c.Params("id"), GetPrincipal(c))
	return h.transition(c, res, err)
}

// Validate godoc
// @Summary      Validación (→ validado)
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "ID del prospecto"
// @Success      200  {object}  dto.TransitionResponse
// @Router       /api/leads/{id}/validate [post]
func (h *LeadHandler) Validate(c *fiber.Ctx) error {
	res, err := h.lifecycle.Validate(c.UserContext(), c.Params("id"), GetPrincipal(c))
	return h.transition(c, res, err)
}

// Reject godoc
// @Summary      Rechazar prospecto
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "ID del prospecto"
// @Success      200  {object}  dto.TransitionResponse
// @Router       /api/leads/{id}/reject [post]
func (h *LeadHandler) Reject(c *fiber.Ctx) error {
	res, err := h.lifecycle.Reject(c.UserContext(), c.Params("id"), GetPrincipal(c))
	return h.transition(c, res, err)
}

// RecordCall godoc
// @Summary      Registrar llamada
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "ID del prospecto"
// @Success      200  {object}  dto.LeadResponse
// @Router       /api/leads/{id}/calls [post]
func (h *LeadHandler) RecordCall(c *fiber.Ctx) error {
	lead, err := h.lifecycle.RecordCall(c.UserContext(), c.Params("id"), GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toLeadResponse(lead))
}

// GetValidation godoc
// @Summary      Formulario de validación
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "ID del prospecto"
// @Success      200  {object}  dto.ValidationResponse
// @Router       /api/leads/{id}/validation [get]
func (h *LeadHandler) GetValidation(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.lifecycle.Get(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	rec, err := h.lifecycle.GetValidation(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toValidationResponse(id, rec))
}

// SaveValidation godoc
// @Summary      Guardar formulario de validación
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del prospecto"
// @Param        body  body  dto.ValidationRequest  true  "criterios"
// @Success      200   {object}  dto.ValidationResponse
// @Router       /api/leads/{id}/validation [put]
func (h *LeadHandler) SaveValidation(c *fiber.Ctx) error {
	var in dto.ValidationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	id := c.Params("id")
	rec, err := h.lifecycle.SaveValidation(c.UserContext(), lifecycle.ValidationInput{
		LeadID:                id,
		AgeRequirementMet:     in.AgeRequirementMet,
		InterviewPassed:       in.InterviewPassed,
		BackgroundCheckPassed: in.BackgroundCheckPassed,
		Notes:                 in.Notes,
	}, GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toValidationResponse(id, rec))
}

// History godoc
// @Summary      Bitácora de transiciones
// @Tags         leads
// @Produce      json
// @Param        id     path   string  true   "ID del prospecto"
// @Param        limit  query  int     false  "máximo de entradas (por defecto 50)"
// @Success      200    {array}  dto.AuditEntryResponse
// @Router       /api/leads/{id}/history [get]
func (h *LeadHandler) History(c *fiber.Ctx) error {
	entries, err := h.lifecycle.History(c.UserContext(), c.Params("id"), c.QueryInt("limit", 50))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			ActorID:   e.ActorID,
			ActorRole: string(e.ActorRole),
			At:        e.At,
			From:      string(e.From),
			To:        string(e.To),
			Forced:    e.Forced,
			Outcome:   e.Outcome,
			Detail:    e.Detail,
		})
	}
	return c.JSON(out)
}

func (h *LeadHandler) transition(c *fiber.Ctx, res *lifecycle.TransitionResult, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TransitionResponse{
		Lead:    toLeadResponse(res.Lead),
		From:    string(res.From),
		Noop:    res.Noop,
		Forced:  res.Forced,
		Missing: res.Missing,
	})
}

func toRecord(in dto.IntakeRequest, fallback entity.SourceChannel) intake.Record {
	ch := entity.SourceChannel(in.Channel)
	if ch == "" {
		ch = fallback
	}
	return intake.Record{
		Name:       in.Name,
		ExternalID: in.ExternalID,
		Email:      in.Email,
		Phone:      in.Phone,
		Channel:    ch,
	}
}

func toLeadResponse(l *entity.Lead) dto.LeadResponse {
	if l == nil {
		return dto.LeadResponse{}
	}
	return dto.LeadResponse{
		ID:            l.ID,
		Name:          l.Name,
		ExternalID:    l.Contact.ExternalID,
		Email:         l.Contact.Email,
		Phone:         l.Contact.Phone,
		Status:        string(l.Status),
		SourceChannel: string(l.SourceChannel),
		CallCount:     l.CallCount,
		LastCallDate:  l.LastCallDate,
		LifetimeID:    l.LifetimeID,
		Forced:        l.Forced,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func toValidationResponse(leadID string, rec *entity.ValidationRecord) dto.ValidationResponse {
	out := dto.ValidationResponse{LeadID: leadID, Missing: rec.MissingCriteria()}
	if rec == nil {
		return out
	}
	out.AgeRequirementMet = rec.AgeRequirementMet
	out.InterviewPassed = rec.InterviewPassed
	out.BackgroundCheckPassed = rec.BackgroundCheckPassed
	out.Notes = rec.Notes
	out.UpdatedBy = rec.UpdatedBy
	out.UpdatedAt = rec.UpdatedAt
	return out
}
