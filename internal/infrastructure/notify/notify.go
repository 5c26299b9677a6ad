// Package notify entrega avisos al usuario y registros de bitácora.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Prospectos-api/internal/application/ports"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

// LogNotifier escribe cada aviso en el log estructurado.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier construye el notificador.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, item ports.Notification) {
	var ev *zerolog.Event
	switch item.Level {
	case ports.LevelError:
		ev = n.log.Error()
	case ports.LevelWarning:
		ev = n.log.Warn()
	default:
		ev = n.log.Info()
	}
	ev.Str("kind", item.Kind).
		Str("principal_id", item.PrincipalID).
		Str("lead_id", item.LeadID).
		Msg(item.Message)
}

// Delivered aviso guardado para la consola.
type Delivered struct {
	ports.Notification
	At time.Time
}

// Inbox guarda los últimos avisos de cada Principal para que la consola los muestre.
// Las bandejas sin actividad expiran.
type Inbox struct {
	perPrincipal int
	mu           sync.Mutex
	boxes        *expirable.LRU[string, []Delivered]
	now          func() time.Time
}

// NewInbox construye la bandeja. perPrincipal <= 0 usa 20.
func NewInbox(principals, perPrincipal int, ttl time.Duration) *Inbox {
	if principals <= 0 {
		principals = 1024
	}
	if perPrincipal <= 0 {
		perPrincipal = 20
	}
	return &Inbox{
		perPrincipal: perPrincipal,
		boxes:        expirable.NewLRU[string, []Delivered](principals, nil, ttl),
		now:          time.Now,
	}
}

func (b *Inbox) Notify(_ context.Context, item ports.Notification) {
	if item.PrincipalID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	box, _ := b.boxes.Get(item.PrincipalID)
	box = append(box, Delivered{Notification: item, At: b.now()})
	if len(box) > b.perPrincipal {
		box = box[len(box)-b.perPrincipal:]
	}
	b.boxes.Add(item.PrincipalID, box)
}

// Drain devuelve y vacía los avisos pendientes del Principal, más antiguo primero.
func (b *Inbox) Drain(principalID string) []Delivered {
	b.mu.Lock()
	defer b.mu.Unlock()
	box, ok := b.boxes.Get(principalID)
	if !ok {
		return nil
	}
	b.boxes.Remove(principalID)
	return box
}

// Fanout reparte cada aviso a varios destinos.
type Fanout []ports.NotificationSink

func (f Fanout) Notify(ctx context.Context, item ports.Notification) {
	for _, s := range f {
		if s != nil {
			s.Notify(ctx, item)
		}
	}
}

// RepositoryAuditSink persiste la bitácora en el repositorio.
type RepositoryAuditSink struct {
	repo repository.AuditRepository
}

// NewRepositoryAuditSink construye el adaptador.
func NewRepositoryAuditSink(repo repository.AuditRepository) *RepositoryAuditSink {
	return &RepositoryAuditSink{repo: repo}
}

func (s *RepositoryAuditSink) Record(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	// La bitácora se escribe aunque la petición ya haya terminado.
	return s.repo.Insert(context.WithoutCancel(ctx), e)
}

var (
	_ ports.NotificationSink = (*LogNotifier)(nil)
	_ ports.NotificationSink = (*Inbox)(nil)
	_ ports.NotificationSink = Fanout(nil)
	_ ports.AuditSink        = (*RepositoryAuditSink)(nil)
)
