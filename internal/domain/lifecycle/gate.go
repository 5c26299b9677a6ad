package lifecycle

import (
	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// GateResult resultado de evaluar los criterios de aprobación.
type GateResult struct {
	Missing []string
	// Forced los criterios no se cumplen pero el actor puede forzar.
	Forced bool
}

// EvaluateGate aplica los criterios de validación cuando el destino es una aprobación.
// Un owner aprueba aunque falten criterios y el resultado queda marcado como forzado.
// Cualquier otro rol recibe *domain.ValidationIncompleteError.
func EvaluateGate(leadID string, to entity.LeadStatus, rec *entity.ValidationRecord, actor entity.Role) (GateResult, error) {
	if !to.IsApproval() {
		return GateResult{}, nil
	}
	missing := rec.MissingCriteria()
	if len(missing) == 0 {
		return GateResult{}, nil
	}
	if actor.CanForceTransitions() {
		return GateResult{Missing: missing, Forced: true}, nil
	}
	return GateResult{Missing: missing}, &domain.ValidationIncompleteError{LeadID: leadID, Missing: missing}
}
