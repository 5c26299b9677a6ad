package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

var _ repository.ValidationRepository = (*ValidationRepo)(nil)

// ValidationRepo tabla lead_validations (una fila por prospecto).
type ValidationRepo struct {
	q Querier
}

// NewValidationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewValidationRepository(q Querier) *ValidationRepo {
	return &ValidationRepo{q: q}
}

// GetByLeadID devuelve (nil, nil) si el prospecto aún no tiene formulario.
func (r *ValidationRepo) GetByLeadID(ctx context.Context, leadID string) (*entity.ValidationRecord, error) {
	query := `
		SELECT lead_id, age_requirement_met, interview_passed, background_check_passed,
			notes, updated_by, created_at, updated_at
		FROM lead_validations WHERE lead_id = $1`
	var v entity.ValidationRecord
	err := r.q.QueryRow(ctx, query, leadID).Scan(
		&v.LeadID, &v.AgeRequirementMet, &v.InterviewPassed, &v.BackgroundCheckPassed,
		&v.Notes, &v.UpdatedBy, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lead validation: %w", err)
	}
	return &v, nil
}

// Save crea el formulario en el primer guardado y lo actualiza en los siguientes.
func (r *ValidationRepo) Save(ctx context.Context, rec *entity.ValidationRecord) error {
	query := `
		INSERT INTO lead_validations (lead_id, age_requirement_met, interview_passed, background_check_passed,
			notes, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lead_id) DO UPDATE SET
			age_requirement_met = EXCLUDED.age_requirement_met,
			interview_passed = EXCLUDED.interview_passed,
			background_check_passed = EXCLUDED.background_check_passed,
			notes = EXCLUDED.notes,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		rec.LeadID, rec.AgeRequirementMet, rec.InterviewPassed, rec.BackgroundCheckPassed,
		rec.Notes, rec.UpdatedBy, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save lead validation: %w", err)
	}
	return nil
}
