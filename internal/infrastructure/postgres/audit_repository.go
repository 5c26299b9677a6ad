package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo tabla lead_audit (solo inserción).
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Insert agrega una entrada a la bitácora.
func (r *AuditRepo) Insert(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO lead_audit (id, lead_id, actor_id, actor_role, at, from_status, to_status, forced, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.LeadID, e.ActorID, string(e.ActorRole), e.At,
		string(e.From), string(e.To), e.Forced, e.Outcome, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert lead audit: %w", err)
	}
	return nil
}

// ListByLead últimas entradas del prospecto, más reciente primero.
func (r *AuditRepo) ListByLead(ctx context.Context, leadID string, limit int) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, lead_id, actor_id, actor_role, at, from_status, to_status, forced, outcome, detail
		FROM lead_audit WHERE lead_id = $1 ORDER BY at DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lead audit: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		var role, from, to string
		if err := rows.Scan(&e.ID, &e.LeadID, &e.ActorID, &role, &e.At, &from, &to, &e.Forced, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan lead audit: %w", err)
		}
		e.ActorRole = entity.ParseRole(role)
		e.From = entity.LeadStatus(from)
		e.To = entity.LeadStatus(to)
		list = append(list, &e)
	}
	return list, rows.Err()
}
