package ports

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// Niveles de aviso para el usuario.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notification aviso (toast/banner) dirigido al usuario de la consola.
type Notification struct {
	Level       string
	Kind        string // access_decision, lifecycle_error, audit_failure, ...
	PrincipalID string
	LeadID      string
	Message     string
}

// NotificationSink muestra avisos al usuario. Fire-and-forget: el núcleo no consume respuesta.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification)
}

// AuditSink recibe los registros de transición. Es best-effort: un error aquí no revierte
// la transición, solo se reporta al NotificationSink.
type AuditSink interface {
	Record(ctx context.Context, e *entity.AuditEntry) error
}

// Metrics contadores de negocio del motor de acceso y del ciclo de vida.
type Metrics interface {
	ObserveDecision(state entity.GuardState, fromCache bool)
	ObserveTransition(to entity.LeadStatus, outcome string, forced bool)
}

// NopNotifier descarta los avisos.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}

// NopMetrics descarta las métricas.
type NopMetrics struct{}

func (NopMetrics) ObserveDecision(entity.GuardState, bool)           {}
func (NopMetrics) ObserveTransition(entity.LeadStatus, string, bool) {}
