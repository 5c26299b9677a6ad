package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateRole(ctx context.Context, id string, role entity.Role, at time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
