package lifecycle

import (
	"context"

	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

// ValidationInput campos del formulario de validación. nil = no modificar.
type ValidationInput struct {
	LeadID                string
	AgeRequirementMet     *bool
	InterviewPassed       *bool
	BackgroundCheckPassed *bool
	Notes                 *string
}

// Get obtiene un prospecto.
func (uc *LeadLifecycleUseCase) Get(ctx context.Context, leadID string) (*entity.Lead, error) {
	lead, err := uc.deps.Leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrLeadNotFound
	}
	return lead, nil
}

// GetValidation devuelve el formulario de validación o (nil, nil) si aún no existe.
func (uc *LeadLifecycleUseCase) GetValidation(ctx context.Context, leadID string) (*entity.ValidationRecord, error) {
	return uc.deps.Validations.GetByLeadID(ctx, leadID)
}

// SaveValidation crea el registro en el primer guardado y lo actualiza en los siguientes.
func (uc *LeadLifecycleUseCase) SaveValidation(ctx context.Context, in ValidationInput, actor *entity.Principal) (*entity.ValidationRecord, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	if in.LeadID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.deps.Now()
	var saved *entity.ValidationRecord
	err := uc.deps.Tx.RunLifecycle(ctx, func(leads repository.LeadRepository, validations repository.ValidationRepository) error {
		lead, err := leads.GetForUpdate(ctx, in.LeadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return domain.ErrLeadNotFound
		}
		rec, err := validations.GetByLeadID(ctx, in.LeadID)
		if err != nil {
			return err
		}
		if rec == nil {
			rec = &entity.ValidationRecord{LeadID: in.LeadID, CreatedAt: now}
		}
		if in.AgeRequirementMet != nil {
			rec.AgeRequirementMet = in.AgeRequirementMet
		}
		if in.InterviewPassed != nil {
			rec.InterviewPassed = in.InterviewPassed
		}
		if in.BackgroundCheckPassed != nil {
			rec.BackgroundCheckPassed = in.BackgroundCheckPassed
		}
		if in.Notes != nil {
			rec.Notes = *in.Notes
		}
		rec.UpdatedBy = actor.ID
		rec.UpdatedAt = now
		if err := validations.Save(ctx, rec); err != nil {
			return err
		}
		saved = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// RecordCall registra una llamada del call center: incrementa el contador y la fecha.
func (uc *LeadLifecycleUseCase) RecordCall(ctx context.Context, leadID string, actor *entity.Principal) (*entity.Lead, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	now := uc.deps.Now()
	var out *entity.Lead
	err := uc.deps.Tx.RunLifecycle(ctx, func(leads repository.LeadRepository, _ repository.ValidationRepository) error {
		lead, err := leads.GetForUpdate(ctx, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return domain.ErrLeadNotFound
		}
		lead.LastCallDate = &now
		lead.UpdatedAt = now
		if err := leads.IncrementCallCount(ctx, lead); err != nil {
			return err
		}
		out = lead
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History últimas entradas de la bitácora del prospecto.
func (uc *LeadLifecycleUseCase) History(ctx context.Context, leadID string, limit int) ([]*entity.AuditEntry, error) {
	if uc.deps.History == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.deps.History.ListByLead(ctx, leadID, limit)
}
