// Package memory implementa los repositorios en memoria del proceso.
// Se usa con STORE_DRIVER=memory (desarrollo local) y como respaldo de los tests.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

// Store datos en memoria. Las transacciones se serializan con txMu; mu protege los mapas.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	users       map[string]*entity.User
	permissions map[string]*entity.PermissionEntry
	leads       map[string]*entity.Lead
	validations map[string]*entity.ValidationRecord
	audit       []*entity.AuditEntry
}

// NewStore construye un Store vacío.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]*entity.User),
		permissions: make(map[string]*entity.PermissionEntry),
		leads:       make(map[string]*entity.Lead),
		validations: make(map[string]*entity.ValidationRecord),
	}
}

// Users repositorio de usuarios.
func (s *Store) Users() repository.UserRepository { return &UserRepo{s: s} }

// Roles rol vigente de los usuarios (access.RoleSource).
func (s *Store) Roles() *UserRepo { return &UserRepo{s: s} }

// Permissions repositorio de permisos.
func (s *Store) Permissions() repository.PermissionRepository { return &PermissionRepo{s: s} }

// Leads repositorio de prospectos.
func (s *Store) Leads() repository.LeadRepository { return &LeadRepo{s: s} }

// Validations repositorio de formularios de validación.
func (s *Store) Validations() repository.ValidationRepository { return &ValidationRepo{s: s} }

// Audit bitácora de transiciones.
func (s *Store) Audit() repository.AuditRepository { return &AuditRepo{s: s} }

// TxRunner ejecuta callbacks con rollback por instantánea.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el Store.
func NewTxRunner(s *Store) *TxRunner { return &TxRunner{s: s} }

// RunLifecycle serializa la transacción y restaura prospectos y validaciones si fn falla.
func (r *TxRunner) RunLifecycle(ctx context.Context, fn func(leads repository.LeadRepository, validations repository.ValidationRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	leads, validations := r.s.snapshot()
	if err := fn(r.s.Leads(), r.s.Validations()); err != nil {
		r.s.restore(leads, validations)
		return err
	}
	return nil
}

// RunIntake misma semántica que RunLifecycle para la captura de prospectos.
func (r *TxRunner) RunIntake(ctx context.Context, fn func(leads repository.LeadRepository) error) error {
	return r.RunLifecycle(ctx, func(leads repository.LeadRepository, _ repository.ValidationRepository) error {
		return fn(leads)
	})
}

func (s *Store) snapshot() (map[string]*entity.Lead, map[string]*entity.ValidationRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leads := make(map[string]*entity.Lead, len(s.leads))
	for k, v := range s.leads {
		leads[k] = copyLead(v)
	}
	validations := make(map[string]*entity.ValidationRecord, len(s.validations))
	for k, v := range s.validations {
		validations[k] = copyValidation(v)
	}
	return leads, validations
}

func (s *Store) restore(leads map[string]*entity.Lead, validations map[string]*entity.ValidationRecord) {
	s.mu.Lock()
	s.leads = leads
	s.validations = validations
	s.mu.Unlock()
}

func copyLead(l *entity.Lead) *entity.Lead {
	if l == nil {
		return nil
	}
	c := *l
	if l.LastCallDate != nil {
		t := *l.LastCallDate
		c.LastCallDate = &t
	}
	return &c
}

func copyValidation(v *entity.ValidationRecord) *entity.ValidationRecord {
	if v == nil {
		return nil
	}
	c := *v
	c.AgeRequirementMet = copyBool(v.AgeRequirementMet)
	c.InterviewPassed = copyBool(v.InterviewPassed)
	c.BackgroundCheckPassed = copyBool(v.BackgroundCheckPassed)
	return &c
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
