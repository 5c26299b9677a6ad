// Package lifecycle orquesta los cambios de estado de los prospectos.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Prospectos-api/internal/application/ports"
	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	domlifecycle "github.com/jhoicas/Prospectos-api/internal/domain/lifecycle"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

// Config ajustes del ciclo de vida.
type Config struct {
	Policy         domlifecycle.Policy
	LifetimePrefix string
}

// Deps colaboradores. Audit, Notifier, Metrics e IDs son opcionales.
type Deps struct {
	Tx          TxRunner
	Leads       repository.LeadRepository
	Validations repository.ValidationRepository
	History     repository.AuditRepository
	Audit       ports.AuditSink
	Notifier    ports.NotificationSink
	Metrics     ports.Metrics
	IDs         LifetimeIDGenerator
	Log         zerolog.Logger
	Now         func() time.Time
}

// TransitionResult resultado de una solicitud de cambio de estado.
type TransitionResult struct {
	Lead *entity.Lead
	From entity.LeadStatus
	// Noop el prospecto ya estaba en el estado solicitado; nada cambió.
	Noop bool
	// Forced aprobación aplicada por un owner con criterios faltantes (Missing).
	Forced  bool
	Missing []string
}

// LeadLifecycleUseCase máquina de estados del prospecto.
type LeadLifecycleUseCase struct {
	deps  Deps
	graph *domlifecycle.Graph
}

// NewLeadLifecycleUseCase construye el caso de uso.
func NewLeadLifecycleUseCase(deps Deps, cfg Config) *LeadLifecycleUseCase {
	if deps.IDs == nil {
		deps.IDs = UUIDLifetimeIDs{Prefix: cfg.LifetimePrefix}
	}
	if deps.Notifier == nil {
		deps.Notifier = ports.NopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Log = deps.Log.With().Str("component", "lead_lifecycle").Logger()
	return &LeadLifecycleUseCase{deps: deps, graph: domlifecycle.NewGraph(cfg.Policy)}
}

// Approve camino de aprobación comercial (→ calificado).
func (uc *LeadLifecycleUseCase) Approve(ctx context.Context, leadID string, actor *entity.Principal) (*TransitionResult, error) {
	return uc.RequestStatusChange(ctx, leadID, entity.StatusQualified, actor)
}

// Validate camino del formulario de validación (→ validado).
func (uc *LeadLifecycleUseCase) Validate(ctx context.Context, leadID string, actor *entity.Principal) (*TransitionResult, error) {
	return uc.RequestStatusChange(ctx, leadID, entity.StatusValidated, actor)
}

// Reject rechaza el prospecto desde cualquier estado no terminal.
func (uc *LeadLifecycleUseCase) Reject(ctx context.Context, leadID string, actor *entity.Principal) (*TransitionResult, error) {
	return uc.RequestStatusChange(ctx, leadID, entity.StatusRejected, actor)
}

// RequestStatusChange aplica leer–validar–escribir dentro de una transacción.
// Un fallo deja intactos el estado y el identificador permanente.
func (uc *LeadLifecycleUseCase) RequestStatusChange(ctx context.Context, leadID string, target entity.LeadStatus, actor *entity.Principal) (*TransitionResult, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	if leadID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.deps.Now()

	var res *TransitionResult
	var from entity.LeadStatus
	err := uc.deps.Tx.RunLifecycle(ctx, func(leads repository.LeadRepository, validations repository.ValidationRepository) error {
		lead, err := leads.GetForUpdate(ctx, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return domain.ErrLeadNotFound
		}
		from = lead.Status
		if err := uc.graph.Check(lead.Status, target); err != nil {
			return err
		}
		if lead.Status == target {
			res = &TransitionResult{Lead: lead, From: from, Noop: true}
			return nil
		}

		var gate domlifecycle.GateResult
		if target.IsApproval() {
			rec, err := validations.GetByLeadID(ctx, lead.ID)
			if err != nil {
				return err
			}
			gate, err = domlifecycle.EvaluateGate(lead.ID, target, rec, actor.Role)
			if err != nil {
				return err
			}
		}

		updated := *lead
		updated.Status = target
		updated.UpdatedAt = now
		if target.IsApproval() {
			updated.Forced = gate.Forced
			if !lead.HasLifetimeID() {
				id := uc.deps.IDs.NewLifetimeID(now)
				if err := leads.AssignLifetimeID(ctx, lead.ID, id); err != nil {
					return err
				}
				updated.LifetimeID = id
			}
		}
		if err := leads.UpdateStatus(ctx, &updated); err != nil {
			return err
		}
		res = &TransitionResult{Lead: &updated, From: from, Forced: gate.Forced, Missing: gate.Missing}
		return nil
	})

	entry := &entity.AuditEntry{
		LeadID:    leadID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        now,
		From:      from,
		To:        target,
	}
	if err != nil {
		uc.onFailure(ctx, entry, err)
		return nil, err
	}

	entry.Forced = res.Forced
	entry.Outcome = entity.AuditOutcomeApplied
	if res.Noop {
		entry.Outcome = entity.AuditOutcomeNoop
	}
	if res.Forced {
		uc.deps.Log.Warn().
			Str("lead_id", leadID).Str("actor_id", actor.ID).Str("to", string(target)).
			Strs("missing", res.Missing).
			Msg("transición forzada con validación incompleta")
		entry.Detail = "criterios faltantes: " + strings.Join(res.Missing, ", ")
	}
	uc.deps.Metrics.ObserveTransition(target, entry.Outcome, res.Forced)
	uc.record(ctx, entry)
	return res, nil
}

// onFailure reporta el error. La asignación duplicada es una inconsistencia del
// almacenamiento: se alerta a la bitácora y no se reintenta.
func (uc *LeadLifecycleUseCase) onFailure(ctx context.Context, entry *entity.AuditEntry, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicateLifetimeAllocation):
		uc.deps.Log.Error().Err(err).Str("lead_id", entry.LeadID).Msg("asignación duplicada de identificador permanente")
		entry.Outcome = entity.AuditOutcomeAlert
		entry.Detail = err.Error()
		uc.deps.Metrics.ObserveTransition(entry.To, entry.Outcome, false)
		uc.record(ctx, entry)
	case errors.Is(err, domain.ErrValidationIncomplete), errors.Is(err, domain.ErrTransitionNotAllowed):
		entry.Outcome = entity.AuditOutcomeRefused
		entry.Detail = err.Error()
		uc.deps.Metrics.ObserveTransition(entry.To, entry.Outcome, false)
		uc.record(ctx, entry)
	default:
		uc.deps.Log.Error().Err(err).Str("lead_id", entry.LeadID).Str("to", string(entry.To)).Msg("cambio de estado")
	}
	uc.deps.Notifier.Notify(ctx, ports.Notification{
		Level:       ports.LevelError,
		Kind:        "lifecycle_error",
		PrincipalID: entry.ActorID,
		LeadID:      entry.LeadID,
		Message:     err.Error(),
	})
}

// record escribe en la bitácora; un fallo no revierte la transición, se avisa al usuario.
func (uc *LeadLifecycleUseCase) record(ctx context.Context, entry *entity.AuditEntry) {
	if uc.deps.Audit == nil {
		return
	}
	if err := uc.deps.Audit.Record(ctx, entry); err != nil {
		uc.deps.Log.Error().Err(err).Str("lead_id", entry.LeadID).Msg("no se pudo registrar la bitácora")
		uc.deps.Notifier.Notify(ctx, ports.Notification{
			Level:       ports.LevelWarning,
			Kind:        "audit_failure",
			PrincipalID: entry.ActorID,
			LeadID:      entry.LeadID,
			Message:     "el cambio se aplicó pero no se pudo registrar en la bitácora",
		})
	}
}
