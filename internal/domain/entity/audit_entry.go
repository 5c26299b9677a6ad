package entity

import "time"

// Resultados registrados en la bitácora de transiciones.
const (
	AuditOutcomeApplied = "applied"
	AuditOutcomeNoop    = "noop"
	AuditOutcomeRefused = "refused"
	// AuditOutcomeAlert inconsistencia de almacenamiento (asignación duplicada de identificador).
	AuditOutcomeAlert = "alert"
)

// AuditEntry registro {quién, cuándo, desde, hacia, forzado} de una solicitud de transición.
type AuditEntry struct {
	ID        string
	LeadID    string
	ActorID   string
	ActorRole Role
	At        time.Time
	From      LeadStatus
	To        LeadStatus
	Forced    bool
	Outcome   string
	Detail    string
}
