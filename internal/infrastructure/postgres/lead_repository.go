package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/identity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

var _ repository.LeadRepository = (*LeadRepo)(nil)

// LeadRepo implementación de LeadRepository (usable con pool o tx).
type LeadRepo struct {
	q Querier
}

// NewLeadRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLeadRepository(q Querier) *LeadRepo {
	return &LeadRepo{q: q}
}

const leadColumns = `id, name, external_id, email, phone, status, source_channel, call_count,
	last_call_date, lifetime_id, forced, created_at, updated_at`

// Create persiste un nuevo prospecto con sus claves normalizadas de búsqueda.
func (r *LeadRepo) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (id, name, external_id, email, phone, phone_normalized, email_normalized,
			status, source_channel, call_count, last_call_date, lifetime_id, forced, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		lead.ID, lead.Name, lead.Contact.ExternalID, lead.Contact.Email, lead.Contact.Phone,
		identity.NormalizePhone(lead.Contact.Phone), identity.NormalizeEmail(lead.Contact.Email),
		string(lead.Status), string(lead.SourceChannel), lead.CallCount, lead.LastCallDate,
		nullIfEmpty(lead.LifetimeID), lead.Forced, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// GetByID obtiene un prospecto por ID.
func (r *LeadRepo) GetByID(ctx context.Context, id string) (*entity.Lead, error) {
	l, err := scanLead(r.q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// GetForUpdate bloquea la fila hasta el fin de la transacción.
func (r *LeadRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lead, error) {
	l, err := scanLead(r.q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("get lead for update: %w", err)
	}
	return l, nil
}

// FindCandidates prospectos que comparten alguna clave normalizada con el contacto.
func (r *LeadRepo) FindCandidates(ctx context.Context, contact entity.ContactInfo) ([]*entity.Lead, error) {
	ext := strings.TrimSpace(contact.ExternalID)
	phone := identity.NormalizePhone(contact.Phone)
	email := identity.NormalizeEmail(contact.Email)
	if ext == "" && phone == "" && email == "" {
		return nil, nil
	}
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1 <> '' AND external_id = $1)
		   OR ($2 <> '' AND phone_normalized = $2)
		   OR ($3 <> '' AND email_normalized = $3)
		ORDER BY (($1 <> '' AND external_id = $1) OR ($2 <> '' AND phone_normalized = $2)) DESC, created_at
		LIMIT $4`
	rows, err := r.q.Query(ctx, query, ext, phone, email, repository.MaxLeadCandidates)
	if err != nil {
		return nil, fmt.Errorf("find lead candidates: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// UpdateContact actualiza nombre y datos de contacto.
func (r *LeadRepo) UpdateContact(ctx context.Context, lead *entity.Lead) error {
	query := `
		UPDATE leads SET name = $2, external_id = $3, email = $4, phone = $5,
			phone_normalized = $6, email_normalized = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		lead.ID, lead.Name, lead.Contact.ExternalID, lead.Contact.Email, lead.Contact.Phone,
		identity.NormalizePhone(lead.Contact.Phone), identity.NormalizeEmail(lead.Contact.Email), lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

// UpdateStatus actualiza estado y marca de aprobación forzada.
func (r *LeadRepo) UpdateStatus(ctx context.Context, lead *entity.Lead) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE leads SET status = $2, forced = $3, updated_at = $4 WHERE id = $1`,
		lead.ID, string(lead.Status), lead.Forced, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

// AssignLifetimeID escribe el identificador solo si la columna sigue en NULL.
func (r *LeadRepo) AssignLifetimeID(ctx context.Context, leadID, lifetimeID string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE leads SET lifetime_id = $2 WHERE id = $1 AND lifetime_id IS NULL`,
		leadID, lifetimeID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrConflict, constraintName(err))
		}
		return fmt.Errorf("assign lifetime id: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var existing *string
	err = r.q.QueryRow(ctx, `SELECT lifetime_id FROM leads WHERE id = $1`, leadID).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrLeadNotFound
		}
		return fmt.Errorf("check lifetime id: %w", err)
	}
	return domain.ErrDuplicateLifetimeAllocation
}

// IncrementCallCount suma una llamada y devuelve el contador resultante en lead.CallCount.
func (r *LeadRepo) IncrementCallCount(ctx context.Context, lead *entity.Lead) error {
	err := r.q.QueryRow(ctx, `
		UPDATE leads SET call_count = call_count + 1,
			last_call_date = COALESCE($2, last_call_date), updated_at = $3
		WHERE id = $1
		RETURNING call_count`,
		lead.ID, lead.LastCallDate, lead.UpdatedAt,
	).Scan(&lead.CallCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrLeadNotFound
		}
		return fmt.Errorf("increment call count: %w", err)
	}
	return nil
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var l entity.Lead
	var status, channel string
	var lifetimeID *string
	err := row.Scan(
		&l.ID, &l.Name, &l.Contact.ExternalID, &l.Contact.Email, &l.Contact.Phone,
		&status, &channel, &l.CallCount, &l.LastCallDate, &lifetimeID, &l.Forced,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	l.Status = entity.ParseLeadStatus(status)
	l.SourceChannel = entity.SourceChannel(channel)
	l.LifetimeID = fromNull(lifetimeID)
	return &l, nil
}
