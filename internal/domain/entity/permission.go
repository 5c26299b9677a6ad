package entity

import "strings"

// PermissionTypePage único tipo de permiso que consulta el resolvedor.
const PermissionTypePage = "page"

// Identificadores de página reservados.
const (
	AuthPageID    = "auth"
	LandingPageID = "dashboard"
)

// PermissionEntry fila de la tabla de permisos. Como máximo una por (Role, PermissionType, PermissionID).
type PermissionEntry struct {
	Role           Role
	PermissionType string
	PermissionID   string
	Allowed        bool
}

// PageIDFromPath toma el primer segmento de la ruta solicitada.
// "/leads/123?x=1" → "leads"; "" o "/" → LandingPageID.
func PageIDFromPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return LandingPageID
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return strings.ToLower(path)
}
