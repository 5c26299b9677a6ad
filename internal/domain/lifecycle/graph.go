// Package lifecycle contiene el grafo de estados del prospecto y las reglas de aprobación.
package lifecycle

import (
	"github.com/jhoicas/Prospectos-api/internal/domain"
	"github.com/jhoicas/Prospectos-api/internal/domain/entity"
)

// Policy ajustes de despliegue del grafo.
type Policy struct {
	// QualifiedIsTerminal si es true, "calificado" no admite más transiciones.
	QualifiedIsTerminal bool
}

// Graph grafo de transiciones permitido bajo una Policy.
type Graph struct {
	edges map[entity.LeadStatus][]entity.LeadStatus
}

// NewGraph construye el grafo.
//
//	nuevo → contactado | rechazado
//	contactado → llamado_primer_contacto | rechazado
//	llamado_primer_contacto → calificado | pendiente_validacion | validado | rechazado
//	pendiente_validacion → validado | rechazado
//	calificado → validado | rechazado (salvo QualifiedIsTerminal)
func NewGraph(p Policy) *Graph {
	edges := map[entity.LeadStatus][]entity.LeadStatus{
		entity.StatusNew:       {entity.StatusContacted, entity.StatusRejected},
		entity.StatusContacted: {entity.StatusCalledFirstContact, entity.StatusRejected},
		entity.StatusCalledFirstContact: {
			entity.StatusQualified, entity.StatusPendingValidation,
			entity.StatusValidated, entity.StatusRejected,
		},
		entity.StatusPendingValidation: {entity.StatusValidated, entity.StatusRejected},
		entity.StatusValidated:         nil,
		entity.StatusRejected:          nil,
	}
	if p.QualifiedIsTerminal {
		edges[entity.StatusQualified] = nil
	} else {
		edges[entity.StatusQualified] = []entity.LeadStatus{entity.StatusValidated, entity.StatusRejected}
	}
	return &Graph{edges: edges}
}

// IsTerminal indica si el estado no admite salidas. Estados desconocidos se tratan como terminales.
func (g *Graph) IsTerminal(s entity.LeadStatus) bool {
	return len(g.edges[s]) == 0
}

// Next estados alcanzables desde s.
func (g *Graph) Next(s entity.LeadStatus) []entity.LeadStatus {
	out := make([]entity.LeadStatus, len(g.edges[s]))
	copy(out, g.edges[s])
	return out
}

// CanTransition indica si from → to es una arista del grafo.
func (g *Graph) CanTransition(from, to entity.LeadStatus) bool {
	for _, s := range g.edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Check valida from → to. Mismo estado (conocido) es un no-op permitido.
func (g *Graph) Check(from, to entity.LeadStatus) error {
	if !from.IsValid() || !to.IsValid() {
		return &domain.TransitionNotAllowedError{From: string(from), To: string(to)}
	}
	if from == to {
		return nil
	}
	if !g.CanTransition(from, to) {
		return &domain.TransitionNotAllowedError{From: string(from), To: string(to)}
	}
	return nil
}
