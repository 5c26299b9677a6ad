package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Prospectos-api/internal/application/access"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
	"github.com/jhoicas/Prospectos-api/internal/domain/repository"
)

var _ repository.PermissionRepository = (*PermissionRepo)(nil)
var _ access.PermissionStore = (*PermissionRepo)(nil)

// PermissionRepo tabla role_permissions.
type PermissionRepo struct {
	q Querier
}

// NewPermissionRepository construye el adaptador.
func NewPermissionRepository(q Querier) *PermissionRepo {
	return &PermissionRepo{q: q}
}

// GetRolePermission devuelve (nil, nil) si no hay fila para (rol, "page", página).
func (r *PermissionRepo) GetRolePermission(ctx context.Context, role entity.Role, pageID string) (*entity.PermissionEntry, error) {
	query := `
		SELECT role, permission_type, permission_id, allowed
		FROM role_permissions
		WHERE role = $1 AND permission_type = $2 AND permission_id = $3`
	var e entity.PermissionEntry
	var rawRole string
	err := r.q.QueryRow(ctx, query, string(role), entity.PermissionTypePage, pageID).
		Scan(&rawRole, &e.PermissionType, &e.PermissionID, &e.Allowed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role permission: %w", err)
	}
	e.Role = entity.ParseRole(rawRole)
	return &e, nil
}

// Upsert crea o actualiza la fila única de (rol, tipo, id).
func (r *PermissionRepo) Upsert(ctx context.Context, entry *entity.PermissionEntry) error {
	query := `
		INSERT INTO role_permissions (role, permission_type, permission_id, allowed, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (role, permission_type, permission_id)
		DO UPDATE SET allowed = EXCLUDED.allowed, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, string(entry.Role), entry.PermissionType, entry.PermissionID, entry.Allowed); err != nil {
		return fmt.Errorf("upsert role permission: %w", err)
	}
	return nil
}

// ListByRole filas de permisos de un rol ordenadas por página.
func (r *PermissionRepo) ListByRole(ctx context.Context, role entity.Role) ([]*entity.PermissionEntry, error) {
	query := `
		SELECT role, permission_type, permission_id, allowed
		FROM role_permissions WHERE role = $1 ORDER BY permission_id`
	rows, err := r.q.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	defer rows.Close()
	var list []*entity.PermissionEntry
	for rows.Next() {
		var e entity.PermissionEntry
		var rawRole string
		if err := rows.Scan(&rawRole, &e.PermissionType, &e.PermissionID, &e.Allowed); err != nil {
			return nil, fmt.Errorf("scan role permission: %w", err)
		}
		e.Role = entity.ParseRole(rawRole)
		list = append(list, &e)
	}
	return list, rows.Err()
}
