package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Prospectos-api/internal/application/dto"
	"github.com/jhoicas/Prospectos-api/internal/application/ports"
	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
	"github.com/jhoicas/Prospectos-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// RoleInvalidator descarta decisiones de permisos cacheadas de un rol.
type RoleInvalidator interface {
	InvalidateRole(role entity.Role)
}

// SessionPublisher emite cambios de sesión (inicio, cierre, cambio de rol).
type SessionPublisher interface {
	Publish(ch ports.SessionChange)
}

// Deps colaboradores. Permissions, Cache, Sessions y Now son opcionales.
type Deps struct {
	Users       repository.UserRepository
	Permissions repository.PermissionRepository
	Cache       RoleInvalidator
	Sessions    SessionPublisher
	Log         zerolog.Logger
	Now         func() time.Time
}

// AuthUseCase registro, login, cambio de rol y administración de permisos.
type AuthUseCase struct {
	deps   Deps
	jwtCfg JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(deps Deps, jwtCfg JWTConfig) *AuthUseCase {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Log = deps.Log.With().Str("component", "auth").Logger()
	return &AuthUseCase{deps: deps, jwtCfg: jwtCfg}
}

// RegisterUser crea un usuario con rol unverified. Devuelve ErrEmailAlreadyExists si el email ya existe.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || len(in.Password) < 8 {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := uc.deps.Now()
	name := in.Name
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         entity.RoleUnverified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.deps.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

// Login verifica email/password, actualiza lastLogin, genera JWT y publica el inicio de sesión.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.deps.Users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	now := uc.deps.Now()
	if err := uc.deps.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	token, err := jwt.Generate(uc.jwtCfg.Secret, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes, jwt.Identity{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ports.SessionChange{Kind: ports.SessionSignedIn, PrincipalID: user.ID, NewRole: user.Role})
	return &dto.LoginResponse{
		Token: token,
		User:  *ToUserResponse(user),
	}, nil
}

// SignOut publica el cierre de sesión; el guard y la señal de privilegio se descartan.
func (uc *AuthUseCase) SignOut(_ context.Context, actor *entity.Principal) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	uc.publish(ports.SessionChange{Kind: ports.SessionSignedOut, PrincipalID: actor.ID, OldRole: actor.Role})
	return nil
}

// Me devuelve el usuario vigente del Principal.
func (uc *AuthUseCase) Me(ctx context.Context, actor *entity.Principal) (*dto.UserResponse, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	user, err := uc.deps.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return ToUserResponse(user), nil
}

// UpdateRole cambia el rol de un usuario. Solo admin y owner asignan roles; owner solo lo asigna otro owner.
// Invalida las decisiones cacheadas de ambos roles y publica el cambio.
func (uc *AuthUseCase) UpdateRole(ctx context.Context, actor *entity.Principal, userID, rawRole string) (*dto.UserResponse, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	role := entity.ParseRole(rawRole)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: rol %q desconocido", domain.ErrInvalidInput, rawRole)
	}
	if !actor.Role.CanAssign(role) {
		return nil, domain.ErrForbidden
	}
	user, err := uc.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if user.Role == entity.RoleOwner && actor.Role != entity.RoleOwner {
		return nil, domain.ErrForbidden
	}
	old := user.Role
	if old == role {
		return ToUserResponse(user), nil
	}
	now := uc.deps.Now()
	if err := uc.deps.Users.UpdateRole(ctx, user.ID, role, now); err != nil {
		return nil, err
	}
	user.Role, user.UpdatedAt = role, now
	if uc.deps.Cache != nil {
		uc.deps.Cache.InvalidateRole(old)
		uc.deps.Cache.InvalidateRole(role)
	}
	uc.deps.Log.Info().
		Str("actor_id", actor.ID).Str("user_id", user.ID).
		Str("old_role", string(old)).Str("new_role", string(role)).
		Msg("rol actualizado")
	uc.publish(ports.SessionChange{Kind: ports.SessionRoleChanged, PrincipalID: user.ID, OldRole: old, NewRole: role})
	return ToUserResponse(user), nil
}

// UpsertPermission crea o actualiza una fila de permisos de página. Solo actores privilegiados.
func (uc *AuthUseCase) UpsertPermission(ctx context.Context, actor *entity.Principal, in dto.UpsertPermissionRequest) (*dto.PermissionResponse, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	if !actor.Role.IsPrivileged() {
		return nil, domain.ErrForbidden
	}
	if uc.deps.Permissions == nil {
		return nil, domain.ErrPermissionSourceUnavailable
	}
	role := entity.ParseRole(in.Role)
	pageID := strings.ToLower(strings.TrimSpace(in.PageID))
	if !role.IsValid() || pageID == "" {
		return nil, domain.ErrInvalidInput
	}
	entry := &entity.PermissionEntry{
		Role:           role,
		PermissionType: entity.PermissionTypePage,
		PermissionID:   pageID,
		Allowed:        in.Allowed,
	}
	if err := uc.deps.Permissions.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	if uc.deps.Cache != nil {
		uc.deps.Cache.InvalidateRole(role)
	}
	return &dto.PermissionResponse{Role: string(role), Type: entry.PermissionType, PageID: pageID, Allowed: entry.Allowed}, nil
}

// ListPermissions filas de permisos de un rol.
func (uc *AuthUseCase) ListPermissions(ctx context.Context, rawRole string) ([]dto.PermissionResponse, error) {
	if uc.deps.Permissions == nil {
		return nil, domain.ErrPermissionSourceUnavailable
	}
	role := entity.ParseRole(rawRole)
	if !role.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.deps.Permissions.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PermissionResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.PermissionResponse{Role: string(e.Role), Type: e.PermissionType, PageID: e.PermissionID, Allowed: e.Allowed})
	}
	return out, nil
}

func (uc *AuthUseCase) publish(ch ports.SessionChange) {
	if uc.deps.Sessions != nil {
		uc.deps.Sessions.Publish(ch)
	}
}

// ToUserResponse convierte la entidad en DTO (sin password).
func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		LastLogin:     u.LastLogin,
	}
}
