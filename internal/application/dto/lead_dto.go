package dto

import "time"

// IntakeRequest captura de un prospecto.
type IntakeRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Channel    string `json:"channel" validate:"required,oneof=formulario_web call_center importacion"`
}

// ImportRequest importación masiva; el canal por defecto es importacion.
type ImportRequest struct {
	Records []IntakeRequest `json:"records" validate:"required,min=1,max=1000"`
}

// ImportItemResponse resultado por fila.
type ImportItemResponse struct {
	Index  int           `json:"index"`
	Lead   *LeadResponse `json:"lead,omitempty"`
	Merged bool          `json:"merged"`
	Error  string        `json:"error,omitempty"`
}

// IntakeResponse prospecto resultante de la captura.
type IntakeResponse struct {
	Lead   LeadResponse `json:"lead"`
	Merged bool         `json:"merged"`
}

// LeadResponse salida de un prospecto.
type LeadResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ExternalID    string     `json:"external_id,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Status        string     `json:"status"`
	SourceChannel string     `json:"source_channel"`
	CallCount     int        `json:"call_count"`
	LastCallDate  *time.Time `json:"last_call_date,omitempty"`
	LifetimeID    string     `json:"lifetime_id,omitempty"`
	Forced        bool       `json:"forced"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StatusChangeRequest solicitud de cambio de estado.
type StatusChangeRequest struct {
	Status string `json:"status" validate:"required"`
}

// TransitionResponse resultado de un cambio de estado.
type TransitionResponse struct {
	Lead    LeadResponse `json:"lead"`
	From    string       `json:"from"`
	Noop    bool         `json:"noop"`
	Forced  bool         `json:"forced"`
	Missing []string     `json:"missing,omitempty"`
}

// ValidationRequest campos del formulario de validación; los ausentes no se modifican.
type ValidationRequest struct {
	AgeRequirementMet     *bool   `json:"age_requirement_met"`
	InterviewPassed       *bool   `json:"interview_passed"`
	BackgroundCheckPassed *bool   `json:"background_check_passed"`
	Notes                 *string `json:"notes"`
}

// ValidationResponse formulario de validación.
type ValidationResponse struct {
	LeadID                string    `json:"lead_id"`
	AgeRequirementMet     *bool     `json:"age_requirement_met"`
	InterviewPassed       *bool     `json:"interview_passed"`
	BackgroundCheckPassed *bool     `json:"background_check_passed"`
	Notes                 string    `json:"notes,omitempty"`
	Missing               []string  `json:"missing"`
	UpdatedBy             string    `json:"updated_by,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// AuditEntryResponse entrada de la bitácora.
type AuditEntryResponse struct {
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	At        time.Time `json:"at"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Forced    bool      `json:"forced"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}
