package lifecycle

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLifetimePrefix prefijo por defecto del identificador permanente (custodio).
const DefaultLifetimePrefix = "CUS"

// LifetimeIDPattern formato <PREFIJO>-<AÑO>-<8 HEX>, p. ej. CUS-2026-9F86D081.
var LifetimeIDPattern = regexp.MustCompile(`^[A-Z]{2,8}-\d{4}-[0-9A-F]{8}$`)

// UUIDLifetimeIDs genera identificadores con entropía de UUID v4.
type UUIDLifetimeIDs struct {
	Prefix string
}

// NewLifetimeID construye un identificador candidato para el año de now.
func (g UUIDLifetimeIDs) NewLifetimeID(now time.Time) string {
	prefix := strings.ToUpper(strings.TrimSpace(g.Prefix))
	if prefix == "" {
		prefix = DefaultLifetimePrefix
	}
	u := uuid.New()
	return fmt.Sprintf("%s-%04d-%s", prefix, now.Year(), strings.ToUpper(hex.EncodeToString(u[:4])))
}
