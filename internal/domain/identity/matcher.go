// Package identity decide si dos registros de captura denotan a la misma persona.
package identity

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// phoneDigits dígitos significativos de un teléfono (número nacional de 10 dígitos).
const phoneDigits = 10

// DefaultPlaceholderEmails correos de relleno que capturan los operadores cuando el
// prospecto no tiene correo. Nunca cuentan como coincidencia.
var DefaultPlaceholderEmails = []string{
	"sin@correo.com",
	"sincorreo@correo.com",
	"sin_correo@sincorreo.com",
	"noemail@noemail.com",
	"no@email.com",
	"na@na.com",
}

// NormalizePhone elimina todo lo que no sea dígito y conserva los últimos 10.
// "+52 55 1234 5678" → "5512345678".
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > phoneDigits {
		digits = digits[len(digits)-phoneDigits:]
	}
	return digits
}

// NormalizeEmail recorta espacios y aplica plegado de mayúsculas Unicode.
// Un Caser no se comparte entre goroutines, por eso se crea en cada llamada.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// Matcher compara identidades de contacto. El valor cero es utilizable (sin correos de relleno).
type Matcher struct {
	placeholders map[string]struct{}
}

// NewMatcher construye un Matcher con los correos de relleno indicados.
func NewMatcher(placeholderEmails ...string) *Matcher {
	m := &Matcher{placeholders: make(map[string]struct{}, len(placeholderEmails))}
	for _, e := range placeholderEmails {
		if n := NormalizeEmail(e); n != "" {
			m.placeholders[n] = struct{}{}
		}
	}
	return m
}

// Default Matcher con DefaultPlaceholderEmails.
func Default() *Matcher {
	return NewMatcher(DefaultPlaceholderEmails...)
}

// IsPlaceholderEmail indica si el correo normalizado es un valor de relleno.
func (m *Matcher) IsPlaceholderEmail(email string) bool {
	if m == nil || m.placeholders == nil {
		return false
	}
	_, ok := m.placeholders[NormalizeEmail(email)]
	return ok
}

// IsSameIdentity dos registros son la misma persona si comparten ExternalID no vacío,
// o teléfono normalizado no vacío, o correo normalizado no vacío y no de relleno.
// Es simétrica; la transitividad no está garantizada (ver DESIGN.md).
func (m *Matcher) IsSameIdentity(a, b entity.ContactInfo) bool {
	if ea, eb := strings.TrimSpace(a.ExternalID), strings.TrimSpace(b.ExternalID); ea != "" && ea == eb {
		return true
	}
	if pa, pb := NormalizePhone(a.Phone), NormalizePhone(b.Phone); pa != "" && pa == pb {
		return true
	}
	ma, mb := NormalizeEmail(a.Email), NormalizeEmail(b.Email)
	if ma != "" && ma == mb && !m.IsPlaceholderEmail(ma) {
		return true
	}
	return false
}

// FindMatch devuelve el primer prospecto existente con la misma identidad, o nil.
func (m *Matcher) FindMatch(candidate entity.ContactInfo, existing []*entity.Lead) *entity.Lead {
	for _, l := range existing {
		if l != nil && m.IsSameIdentity(candidate, l.Contact) {
			return l
		}
	}
	return nil
}

// IsSameIdentity usa el Matcher por defecto.
func IsSameIdentity(a, b entity.ContactInfo) bool {
	return defaultMatcher.IsSameIdentity(a, b)
}

var defaultMatcher = Default()
