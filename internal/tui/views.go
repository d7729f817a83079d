package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/field-audit/internal/audit"
	"github.com/kingrea/field-audit/internal/export"
	"github.com/kingrea/field-audit/internal/workflow"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0070C0")).MarginBottom(1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	header := headerStyle.Render("⬡ FIELD AUDIT · " + a.state.View.Title())
	if u := a.state.User; u != nil {
		header += hintStyle.Render(fmt.Sprintf("   %s (%s)", u.Name, u.Role))
	}

	content := a.renderContent()
	if a.state.Loading {
		content = fmt.Sprintf("%s Procesando con IA...\n\n%s", a.spinner.View(), hintStyle.Render("ctrl+x cancelar"))
	}
	main := boxStyle.Width(max(20, width-2)).Render(content)

	sections := []string{header}
	if a.state.Err != "" {
		sections = append(sections, errorStyle.Render("⚠ "+a.state.Err)+hintStyle.Render("  (Esc para cerrar)"))
	}
	if a.state.Notice != "" {
		sections = append(sections, noticeStyle.Render("✓ "+a.state.Notice))
	}
	sections = append(sections, main)
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, hintStyle.Render(a.keyHints()))
	return strings.Join(sections, "\n")
}

func (a *App) renderContent() string {
	switch a.state.View {
	case workflow.ViewLogin:
		return a.renderLogin()
	case workflow.ViewHome:
		return a.homeMenu.View()
	case workflow.ViewCapture:
		heading := "Nueva observación"
		if a.state.Editing != "" {
			heading = "Editar observación"
		}
		return titleStyle.Render(heading) + "\n\n" + a.capture.view()
	case workflow.ViewCaptureSummary:
		return renderDraft(a.state.Draft, a.selection)
	case workflow.ViewReportDraft:
		return titleStyle.Render("Observación a redactar") + "\n\n" + a.single.view()
	case workflow.ViewPlanInput:
		return titleStyle.Render("Proceso a auditar") + "\n\n" + a.planForm.view()
	case workflow.ViewPlanReview:
		return a.planReview.View()
	case workflow.ViewResult:
		return a.result.View()
	case workflow.ViewHistory:
		return a.renderHistory()
	case workflow.ViewPlaceholder:
		name := a.placeholder
		if name == "" {
			name = "Este módulo"
		}
		return fmt.Sprintf("%s\n\n%s", titleStyle.Render(name), "Módulo en construcción. Estará disponible en una próxima versión.")
	}
	return ""
}

func (a *App) renderLogin() string {
	heading := "Iniciar sesión"
	if a.state.Registering {
		heading = "Registro de auditor"
	}
	return titleStyle.Render(heading) + "\n\n" + a.login.view(a.state.Registering)
}

func (a *App) renderHistory() string {
	tabs := []string{"Informes", "Planes"}
	for i := range tabs {
		label := fmt.Sprintf("%s (%d)", tabs[i], []int{len(a.state.History), len(a.state.PlanHistory)}[i])
		if historyTab(i) == a.historyTab {
			tabs[i] = cursorStyle.Render("[" + label + "]")
		} else {
			tabs[i] = hintStyle.Render(" " + label + " ")
		}
	}
	body := a.reportList.View()
	empty := len(a.state.History) == 0
	if a.historyTab == tabPlans {
		body = a.planList.View()
		empty = len(a.state.PlanHistory) == 0
	}
	if empty {
		body = hintStyle.Render("Sin registros todavía.")
	}
	lines := []string{strings.Join(tabs, " "), "", body}
	if a.importing {
		lines = append(lines, "", a.backupInput.View())
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := titleStyle.Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) keyHints() string {
	if a.state.Loading {
		return "ctrl+x cancelar · ctrl+c salir"
	}
	switch a.state.View {
	case workflow.ViewLogin:
		return "tab campo · enter confirmar · ctrl+r registro/acceso · ctrl+c salir"
	case workflow.ViewHome:
		return "↑/↓ mover · enter abrir · q salir"
	case workflow.ViewCapture:
		return "tab nota/foto · enter adjuntar foto · ctrl+d quitar foto · ctrl+s guardar · esc volver"
	case workflow.ViewCaptureSummary:
		return "↑/↓ mover · n nueva · e editar · d eliminar · g generar informe · esc inicio"
	case workflow.ViewReportDraft:
		return "tab nota/foto · enter adjuntar foto · ctrl+s redactar hallazgo · esc inicio"
	case workflow.ViewPlanInput:
		return "tab campo · enter generar plan · esc inicio"
	case workflow.ViewPlanReview:
		return "↑/↓ mover · espacio incluir/excluir · enter confirmar · r rediseñar · esc inicio"
	case workflow.ViewResult:
		return "↑/↓ desplazar · e Excel · w Word · h historial · esc inicio"
	case workflow.ViewHistory:
		if a.importing {
			return "enter importar · esc cancelar"
		}
		return "tab informes/planes · enter abrir · d eliminar · b respaldar · i importar · esc inicio"
	}
	return "esc inicio"
}

func renderDraft(draft []audit.Observation, selection int) string {
	if len(draft) == 0 {
		return hintStyle.Render("No hay observaciones en la sesión. Pulsa n para registrar una.")
	}
	lines := []string{titleStyle.Render(pluralize(len(draft), "observación en la sesión", "observaciones en la sesión")), ""}
	for i, obs := range draft {
		cursor := "  "
		if i == selection {
			cursor = cursorStyle.Render("▸ ")
		}
		desc := strings.TrimSpace(obs.Description)
		if desc == "" {
			desc = hintStyle.Render("(sin descripción)")
		}
		lines = append(lines, fmt.Sprintf("%s%d. %s  %s", cursor, i+1, truncate(desc, 60),
			hintStyle.Render(fmt.Sprintf("📷 %d · %s", len(obs.Images), obs.Timestamp.Local().Format("15:04")))))
	}
	return strings.Join(lines, "\n")
}

// ratingStyle colours a rating label with its export fill.
func ratingStyle(r audit.Rating) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color("#" + export.RatingColor(r)))
}

func renderRating(value string) string {
	r, err := audit.ParseRating(value)
	if err != nil {
		return value
	}
	return ratingStyle(r).Render(" " + string(r) + " ")
}

// renderReport lays out a report as the memo header, the findings and the
// annex gallery of each finding.
func renderReport(r audit.SavedReport) string {
	var b strings.Builder
	title := r.Title
	if r.DocCode != "" {
		title = r.DocCode + " INFORME · " + title
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	for _, row := range [][2]string{
		{"Para", r.To},
		{"En", r.At},
		{"Cc", r.Cc},
		{"De", r.From},
		{"Asunto", r.Subject},
	} {
		if strings.TrimSpace(row[1]) != "" {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", row[0]+":")), row[1])
		}
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", "Fecha:")), r.Timestamp.Local().Format("02/01/2006"))
	if r.Auditor != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", "Auditor:")), r.Auditor)
	}
	if r.GlobalRating != "" {
		fmt.Fprintf(&b, "\n%s %s\n", labelStyle.Render("Calificación global:"), renderRating(r.GlobalRating))
	}

	annexes := r.Annexes()
	for i, f := range r.Findings {
		fmt.Fprintf(&b, "\n%s %s\n", titleStyle.Render(fmt.Sprintf("HALLAZGO %d:", i+1)), f.Title)
		writeField(&b, "Condición", f.Condition)
		writeField(&b, "Riesgos", f.Effect)
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Calificación:"), ratingStyle(f.Rating).Render(" "+string(f.Rating)+" "))
		writeField(&b, "Recomendaciones", f.Recommendations)
		writeField(&b, "Planes de acción", f.ActionPlans)
		writeField(&b, "Responsable", f.Responsible)
		writeField(&b, "Fecha de implementación", f.ImplementationDate)
		if i < len(annexes) && len(annexes[i]) > 0 {
			b.WriteString(labelStyle.Render("Anexos:") + "\n")
			for j, label := range annexes[i] {
				fmt.Fprintf(&b, "  📷 Anexo %s · %s\n", label, describeImage(r.Observations[i].Images[j]))
			}
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s\n%s\n", labelStyle.Render(label+":"), value)
}

// renderPlan lists the plan items with the cursor on item selection.
func renderPlan(p audit.AuditPlan, selection int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Title) + "\n")
	if p.OverallObjective != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Objetivo:"), p.OverallObjective)
	}
	if p.Context != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Contexto:"), p.Context)
	}
	fmt.Fprintf(&b, "%s\n\n", hintStyle.Render(fmt.Sprintf("%d de %d ítems en alcance", len(p.SelectedItems()), len(p.Items))))
	for i, item := range p.Items {
		cursor := "  "
		if i == selection {
			cursor = cursorStyle.Render("▸ ")
		}
		box := "[ ]"
		if item.Selected {
			box = "[x]"
		}
		line := fmt.Sprintf("%s%s %s · %s", cursor, box, item.Category, item.Title)
		if score, ok := item.RiskScore(); ok {
			line += " " + bandStyle(item.Band()).Render(fmt.Sprintf(" %d ", score))
		}
		b.WriteString(line + "\n")
		if item.Description != "" {
			b.WriteString("      " + hintStyle.Render(truncate(item.Description, 100)) + "\n")
		}
		if item.Logic != "" {
			b.WriteString("      " + hintStyle.Render("Lógica: "+truncate(item.Logic, 92)) + "\n")
		}
	}
	return b.String()
}

func bandStyle(band audit.RiskBand) lipgloss.Style {
	color := "#999999"
	switch band {
	case audit.BandHigh:
		color = "#FF0000"
	case audit.BandMedium:
		color = "#FFC000"
	case audit.BandLow:
		color = "#4CAF50"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color(color))
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
