package entity

import "time"

// Principal actor autenticado de una sesión. Lo crea la capa de sesión al iniciar sesión
// y se descarta al cerrarla; ningún otro componente lo muta.
type Principal struct {
	ID            string
	Email         string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	LastLogin     time.Time
}
