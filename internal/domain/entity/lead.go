package entity

import (
	"strings"
	"time"
)

// LeadStatus estado del prospecto dentro del ciclo de vida.
type LeadStatus string

const (
	StatusNew                LeadStatus = "nuevo"
	StatusContacted          LeadStatus = "contactado"
	StatusCalledFirstContact LeadStatus = "llamado_primer_contacto"
	StatusQualified          LeadStatus = "calificado"
	StatusPendingValidation  LeadStatus = "pendiente_validacion"
	StatusValidated          LeadStatus = "validado"
	StatusRejected           LeadStatus = "rechazado"

	// StatusUnrecognized estado desconocido recibido del backend; no admite transiciones.
	StatusUnrecognized LeadStatus = "unrecognized"
)

var knownStatuses = map[LeadStatus]struct{}{
	StatusNew:                {},
	StatusContacted:          {},
	StatusCalledFirstContact: {},
	StatusQualified:          {},
	StatusPendingValidation:  {},
	StatusValidated:          {},
	StatusRejected:           {},
}

// ParseLeadStatus valida el estado; valores desconocidos → StatusUnrecognized.
func ParseLeadStatus(s string) LeadStatus {
	st := LeadStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownStatuses[st]; ok {
		return st
	}
	return StatusUnrecognized
}

// IsValid indica si el estado pertenece al grafo.
func (s LeadStatus) IsValid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsApproval estados que requieren validación completa y asignan identificador permanente.
func (s LeadStatus) IsApproval() bool {
	return s == StatusQualified || s == StatusValidated
}

func (s LeadStatus) String() string { return string(s) }

// SourceChannel canal de captura del prospecto.
type SourceChannel string

const (
	ChannelWebForm    SourceChannel = "formulario_web"
	ChannelCallCenter SourceChannel = "call_center"
	ChannelImport     SourceChannel = "importacion"
)

// IsValid indica si el canal es conocido.
func (c SourceChannel) IsValid() bool {
	switch c {
	case ChannelWebForm, ChannelCallCenter, ChannelImport:
		return true
	}
	return false
}

// ContactInfo datos de contacto usados para deduplicar.
type ContactInfo struct {
	ExternalID string
	Email      string
	Phone      string
}

// Lead prospecto (custodio potencial). Nunca se elimina desde el núcleo.
type Lead struct {
	ID            string
	Name          string
	Contact       ContactInfo
	Status        LeadStatus
	SourceChannel SourceChannel
	CallCount     int
	LastCallDate  *time.Time
	// LifetimeID identificador permanente; se asigna una sola vez en la primera aprobación.
	LifetimeID string
	// Forced la aprobación se aplicó por un owner con validación incompleta.
	Forced    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasLifetimeID indica si ya se asignó el identificador permanente.
func (l *Lead) HasLifetimeID() bool {
	return l != nil && l.LifetimeID != ""
}
