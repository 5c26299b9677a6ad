package entity

import "time"

// Nombres de los criterios que bloquean la aprobación.
const (
	CriterionValidationRecord = "registro_validacion"
	CriterionAge              = "edad_requerida"
	CriterionInterview        = "entrevista_aprobada"
	CriterionBackgroundCheck  = "antecedentes_aprobados"
)

// ValidationRecord formulario de validación de un prospecto (uno por Lead).
// Los punteros distinguen "sin capturar" de "false".
type ValidationRecord struct {
	LeadID                string
	AgeRequirementMet     *bool
	InterviewPassed       *bool
	BackgroundCheckPassed *bool
	Notes                 string
	UpdatedBy             string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// MissingCriteria devuelve los criterios que no están en true, en orden fijo.
func (v *ValidationRecord) MissingCriteria() []string {
	if v == nil {
		return []string{CriterionValidationRecord}
	}
	var missing []string
	if !isTrue(v.AgeRequirementMet) {
		missing = append(missing, CriterionAge)
	}
	if !isTrue(v.InterviewPassed) {
		missing = append(missing, CriterionInterview)
	}
	if !isTrue(v.BackgroundCheckPassed) {
		missing = append(missing, CriterionBackgroundCheck)
	}
	return missing
}

// Complete los tres criterios están en true.
func (v *ValidationRecord) Complete() bool {
	return v != nil && len(v.MissingCriteria()) == 0
}

func isTrue(b *bool) bool { return b != nil && *b }
