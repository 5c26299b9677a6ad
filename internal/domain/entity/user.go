package entity

import "time"

// User representa una cuenta de la consola de prospectos.
type User struct {
	ID            string
	Email         string
	PasswordHash  string // bcrypt hash, nunca plano en dominio después de persistir
	Name          string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLogin     *time.Time
}

// Principal construye la vista de sesión del usuario.
func (u *User) Principal() *Principal {
	if u == nil {
		return nil
	}
	p := &Principal{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
	if u.LastLogin != nil {
		p.LastLogin = *u.LastLogin
	}
	return p
}
