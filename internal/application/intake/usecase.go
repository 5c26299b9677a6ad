// Package intake captura prospectos desde el formulario web, el call center y las importaciones.
package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/identity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

// TxRunner ejecuta búsqueda de candidatos y alta/fusión como una sola operación.
type TxRunner interface {
	RunIntake(ctx context.Context, fn func(leads repository.LeadRepository) error) error
}

// Record registro de captura tal como llega del canal.
type Record struct {
	Name       string
	ExternalID string
	Email      string
	Phone      string
	Channel    entity.SourceChannel
}

// Contact datos de contacto del registro.
func (r Record) Contact() entity.ContactInfo {
	return entity.ContactInfo{
		ExternalID: strings.TrimSpace(r.ExternalID),
		Email:      strings.TrimSpace(r.Email),
		Phone:      strings.TrimSpace(r.Phone),
	}
}

// Result prospecto resultante; Merged indica que se fusionó con uno existente.
type Result struct {
	Lead   *entity.Lead
	Merged bool
}

// BatchItem resultado por fila de una importación.
type BatchItem struct {
	Index  int
	Lead   *entity.Lead
	Merged bool
	Err    error
}

// Deps colaboradores del caso de uso. Matcher, Now y NewID son opcionales.
type Deps struct {
	Tx      TxRunner
	Matcher *identity.Matcher
	Log     zerolog.Logger
	Now     func() time.Time
	NewID   func() string
}

// IntakeUseCase alta de prospectos con deduplicación por identidad.
type IntakeUseCase struct {
	deps Deps
}

// NewIntakeUseCase construye el caso de uso.
func NewIntakeUseCase(deps Deps) *IntakeUseCase {
	if deps.Matcher == nil {
		deps.Matcher = identity.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.New().String() }
	}
	deps.Log = deps.Log.With().Str("component", "lead_intake").Logger()
	return &IntakeUseCase{deps: deps}
}

// Capture crea un prospecto nuevo o fusiona el registro con el existente de la misma persona.
func (uc *IntakeUseCase) Capture(ctx context.Context, rec Record) (*Result, error) {
	if err := uc.validate(rec); err != nil {
		return nil, err
	}
	now := uc.deps.Now()
	contact := rec.Contact()

	var res *Result
	err := uc.deps.Tx.RunIntake(ctx, func(leads repository.LeadRepository) error {
		candidates, err := leads.FindCandidates(ctx, uc.lookupKey(contact))
		if err != nil {
			return err
		}
		if match := uc.deps.Matcher.FindMatch(contact, candidates); match != nil {
			lead, err := uc.merge(ctx, leads, match, rec, now)
			if err != nil {
				return err
			}
			res = &Result{Lead: lead, Merged: true}
			return nil
		}

		lead := &entity.Lead{
			ID:            uc.deps.NewID(),
			Name:          strings.TrimSpace(rec.Name),
			Contact:       contact,
			Status:        entity.StatusNew,
			SourceChannel: rec.Channel,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if rec.Channel == entity.ChannelCallCenter {
			lead.CallCount = 1
			lead.LastCallDate = &now
		}
		if err := leads.Create(ctx, lead); err != nil {
			return err
		}
		res = &Result{Lead: lead}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Log.Info().
		Str("lead_id", res.Lead.ID).Str("channel", string(rec.Channel)).Bool("merged", res.Merged).
		Msg("prospecto capturado")
	return res, nil
}

// lookupKey descarta los correos de relleno: nunca identifican a nadie y saturarían la búsqueda.
func (uc *IntakeUseCase) lookupKey(contact entity.ContactInfo) entity.ContactInfo {
	if uc.deps.Matcher.IsPlaceholderEmail(contact.Email) {
		contact.Email = ""
	}
	return contact
}

// CaptureBatch procesa una importación fila por fila. Los duplicados dentro del mismo lote
// se fusionan porque cada fila ve las altas anteriores. Un error en una fila no detiene el lote.
func (uc *IntakeUseCase) CaptureBatch(ctx context.Context, records []Record) ([]BatchItem, error) {
	out := make([]BatchItem, 0, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if rec.Channel == "" {
			rec.Channel = entity.ChannelImport
		}
		item := BatchItem{Index: i}
		res, err := uc.Capture(ctx, rec)
		if err != nil {
			item.Err = err
		} else {
			item.Lead, item.Merged = res.Lead, res.Merged
		}
		out = append(out, item)
	}
	return out, nil
}

func (uc *IntakeUseCase) validate(rec Record) error {
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
	}
	if !rec.Channel.IsValid() {
		return fmt.Errorf("%w: canal %q desconocido", domain.ErrInvalidInput, rec.Channel)
	}
	c := rec.Contact()
	hasEmail := c.Email != "" && !uc.deps.Matcher.IsPlaceholderEmail(c.Email)
	if c.ExternalID == "" && identity.NormalizePhone(c.Phone) == "" && !hasEmail {
		return fmt.Errorf("%w: se requiere al menos un dato de contacto", domain.ErrInvalidInput)
	}
	return nil
}

// merge completa los campos vacíos del prospecto existente; nunca sobrescribe datos capturados.
func (uc *IntakeUseCase) merge(ctx context.Context, leads repository.LeadRepository, existing *entity.Lead, rec Record, now time.Time) (*entity.Lead, error) {
	lead := *existing
	c := rec.Contact()
	changed := false
	if lead.Name == "" && strings.TrimSpace(rec.Name) != "" {
		lead.Name, changed = strings.TrimSpace(rec.Name), true
	}
	if lead.Contact.ExternalID == "" && c.ExternalID != "" {
		lead.Contact.ExternalID, changed = c.ExternalID, true
	}
	if lead.Contact.Phone == "" && c.Phone != "" {
		lead.Contact.Phone, changed = c.Phone, true
	}
	if (lead.Contact.Email == "" || uc.deps.Matcher.IsPlaceholderEmail(lead.Contact.Email)) &&
		c.Email != "" && !uc.deps.Matcher.IsPlaceholderEmail(c.Email) {
		lead.Contact.Email, changed = c.Email, true
	}
	if changed {
		lead.UpdatedAt = now
		if err := leads.UpdateContact(ctx, &lead); err != nil {
			return nil, err
		}
	}
	if rec.Channel == entity.ChannelCallCenter {
		lead.LastCallDate = &now
		lead.UpdatedAt = now
		if err := leads.IncrementCallCount(ctx, &lead); err != nil {
			return nil, err
		}
	}
	return &lead, nil
}
