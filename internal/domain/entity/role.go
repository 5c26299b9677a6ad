package entity

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Role etiqueta de rol de un usuario de la consola.
type Role string

// Roles válidos. No existe orden total entre ellos: solo admin y owner son privilegiados.
const (
	RoleUnverified       Role = "unverified"
	RolePending          Role = "pending"
	RoleAtencionAfiliado Role = "atención_afiliado"
	RoleSupply           Role = "supply"
	RoleSupplyAdmin      Role = "supply_admin"
	RoleAfiliados        Role = "afiliados"
	RoleAdmin            Role = "admin"
	RoleOwner            Role = "owner"

	// RoleUnrecognized agrupa cualquier cadena desconocida recibida del backend.
	RoleUnrecognized Role = "unrecognized"
)

var knownRoles = map[Role]struct{}{
	RoleUnverified:       {},
	RolePending:          {},
	RoleAtencionAfiliado: {},
	RoleSupply:           {},
	RoleSupplyAdmin:      {},
	RoleAfiliados:        {},
	RoleAdmin:            {},
	RoleOwner:            {},
}

// Roles devuelve los roles reconocidos.
func Roles() []Role {
	return []Role{
		RoleUnverified, RolePending, RoleAtencionAfiliado, RoleSupply,
		RoleSupplyAdmin, RoleAfiliados, RoleAdmin, RoleOwner,
	}
}

// ParseRole normaliza (NFC, minúsculas) y valida una etiqueta de rol.
// Cualquier valor desconocido se convierte en RoleUnrecognized.
func ParseRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
	if s == "atencion_afiliado" {
		return RoleAtencionAfiliado
	}
	r := Role(s)
	if _, ok := knownRoles[r]; ok {
		return r
	}
	return RoleUnrecognized
}

// IsValid indica si el rol pertenece al conjunto canónico.
func (r Role) IsValid() bool {
	_, ok := knownRoles[r]
	return ok
}

// IsPrivileged indica si el rol omite la verificación por página (admin, owner).
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleOwner
}

// CanForceTransitions solo owner puede forzar transiciones con validación incompleta.
func (r Role) CanForceTransitions() bool {
	return r == RoleOwner
}

// CanAssign indica si un actor con este rol puede asignar el rol target a otro usuario.
// owner solo lo asigna otro owner.
func (r Role) CanAssign(target Role) bool {
	if !r.IsPrivileged() || !target.IsValid() {
		return false
	}
	if target == RoleOwner {
		return r == RoleOwner
	}
	return true
}

func (r Role) String() string { return string(r) }

// IsPrivileged función libre equivalente a Role.IsPrivileged.
func IsPrivileged(r Role) bool { return r.IsPrivileged() }
