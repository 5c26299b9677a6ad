package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/identity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

// UserRepo usuarios en memoria.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) UpdateRole(_ context.Context, id string, role entity.Role, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role, u.UpdatedAt = role, at
	return nil
}

func (r *UserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	t := at
	u.LastLogin = &t
	return nil
}

// CurrentRole implementa access.RoleSource.
func (r *UserRepo) CurrentRole(ctx context.Context, principalID string) (entity.Role, error) {
	u, err := r.GetByID(ctx, principalID)
	if err != nil {
		return entity.RoleUnrecognized, err
	}
	if u == nil {
		return entity.RoleUnrecognized, domain.ErrUserNotFound
	}
	return u.Role, nil
}

// PermissionRepo tabla de permisos en memoria.
type PermissionRepo struct{ s *Store }

func permKey(role entity.Role, typ, id string) string {
	return string(role) + "|" + typ + "|" + id
}

func (r *PermissionRepo) GetRolePermission(ctx context.Context, role entity.Role, pageID string) (*entity.PermissionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.permissions[permKey(role, entity.PermissionTypePage, pageID)]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (r *PermissionRepo) Upsert(_ context.Context, entry *entity.PermissionEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *entry
	r.s.permissions[permKey(entry.Role, entry.PermissionType, entry.PermissionID)] = &c
	return nil
}

func (r *PermissionRepo) ListByRole(_ context.Context, role entity.Role) ([]*entity.PermissionEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.PermissionEntry
	for _, e := range r.s.permissions {
		if e.Role == role {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PermissionID < out[j].PermissionID })
	return out, nil
}

// LeadRepo prospectos en memoria.
type LeadRepo struct{ s *Store }

func (r *LeadRepo) Create(_ context.Context, lead *entity.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leads[lead.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.leads[lead.ID] = copyLead(lead)
	return nil
}

func (r *LeadRepo) GetByID(_ context.Context, id string) (*entity.Lead, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyLead(r.s.leads[id]), nil
}

// GetForUpdate en memoria el bloqueo lo da la serialización de TxRunner.
func (r *LeadRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lead, error) {
	return r.GetByID(ctx, id)
}

func (r *LeadRepo) FindCandidates(_ context.Context, contact entity.ContactInfo) ([]*entity.Lead, error) {
	phone := identity.NormalizePhone(contact.Phone)
	email := identity.NormalizeEmail(contact.Email)
	ext := strings.TrimSpace(contact.ExternalID)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Lead
	strong := make(map[string]bool)
	for _, l := range r.s.leads {
		switch {
		case ext != "" && l.Contact.ExternalID == ext,
			phone != "" && identity.NormalizePhone(l.Contact.Phone) == phone:
			strong[l.ID] = true
			out = append(out, copyLead(l))
		case email != "" && identity.NormalizeEmail(l.Contact.Email) == email:
			out = append(out, copyLead(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if strong[out[i].ID] != strong[out[j].ID] {
			return strong[out[i].ID]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > repository.MaxLeadCandidates {
		out = out[:repository.MaxLeadCandidates]
	}
	return out, nil
}

func (r *LeadRepo) UpdateContact(_ context.Context, lead *entity.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[lead.ID]
	if !ok {
		return domain.ErrLeadNotFound
	}
	l.Name, l.Contact, l.UpdatedAt = lead.Name, lead.Contact, lead.UpdatedAt
	return nil
}

func (r *LeadRepo) UpdateStatus(_ context.Context, lead *entity.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[lead.ID]
	if !ok {
		return domain.ErrLeadNotFound
	}
	l.Status, l.Forced, l.UpdatedAt = lead.Status, lead.Forced, lead.UpdatedAt
	return nil
}

func (r *LeadRepo) AssignLifetimeID(_ context.Context, leadID, lifetimeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[leadID]
	if !ok {
		return domain.ErrLeadNotFound
	}
	if l.LifetimeID != "" {
		return domain.ErrDuplicateLifetimeAllocation
	}
	for _, other := range r.s.leads {
		if other.LifetimeID == lifetimeID {
			return domain.ErrConflict
		}
	}
	l.LifetimeID = lifetimeID
	return nil
}

func (r *LeadRepo) IncrementCallCount(_ context.Context, lead *entity.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[lead.ID]
	if !ok {
		return domain.ErrLeadNotFound
	}
	l.CallCount++
	if lead.LastCallDate != nil {
		t := *lead.LastCallDate
		l.LastCallDate = &t
	}
	lead.CallCount = l.CallCount
	return nil
}

// ValidationRepo formularios de validación en memoria.
type ValidationRepo struct{ s *Store }

func (r *ValidationRepo) GetByLeadID(_ context.Context, leadID string) (*entity.ValidationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyValidation(r.s.validations[leadID]), nil
}

func (r *ValidationRepo) Save(_ context.Context, rec *entity.ValidationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.validations[rec.LeadID] = copyValidation(rec)
	return nil
}

// AuditRepo bitácora en memoria.
type AuditRepo struct{ s *Store }

func (r *AuditRepo) Insert(_ context.Context, e *entity.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *e
	r.s.audit = append(r.s.audit, &c)
	return nil
}

func (r *AuditRepo) ListByLead(_ context.Context, leadID string, limit int) ([]*entity.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.AuditEntry
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		if r.s.audit[i].LeadID != leadID {
			continue
		}
		c := *r.s.audit[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
