package workflow

// View is the screen the workflow is currently showing.
type View int

const (
	ViewLogin View = iota
	ViewHome
	ViewCapture
	ViewCaptureSummary
	ViewReportDraft
	ViewPlanInput
	ViewPlanReview
	ViewResult
	ViewHistory
	ViewPlaceholder
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewHome:
		return "home"
	case ViewCapture:
		return "capture"
	case ViewCaptureSummary:
		return "capture_summary"
	case ViewReportDraft:
		return "report_draft"
	case ViewPlanInput:
		return "plan_input"
	case ViewPlanReview:
		return "plan_review"
	case ViewResult:
		return "result"
	case ViewHistory:
		return "history"
	case ViewPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Title is the heading shown for the view.
func (v View) Title() string {
	switch v {
	case ViewLogin:
		return "Acceso"
	case ViewHome:
		return "Panel de auditoría"
	case ViewCapture:
		return "Registro de evidencia"
	case ViewCaptureSummary:
		return "Sesión de campo"
	case ViewReportDraft:
		return "Redactor de hallazgo"
	case ViewPlanInput:
		return "Planificador CIA"
	case ViewPlanReview:
		return "Revisión del plan"
	case ViewResult:
		return "Informe"
	case ViewHistory:
		return "Historial"
	case ViewPlaceholder:
		return "Próximamente"
	default:
		return ""
	}
}

// RequiresUser reports whether the view is only reachable after login.
func (v View) RequiresUser() bool {
	return v != ViewLogin
}
