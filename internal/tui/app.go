// internal/tui/app.go
//
// This is the terminal UI for fieldaudit. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: the App below, which mirrors a workflow.State snapshot
// 2. Update: key presses become workflow intents; async work comes back as
//    completion intents
// 3. View: renders the snapshot and the local form widgets
//
// All application state lives in the workflow.Controller. The App only keeps
// widget state (cursor positions, half-typed text).

package tui

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/kingrea/field-audit/internal/audit"
	"github.com/kingrea/field-audit/internal/export"
	"github.com/kingrea/field-audit/internal/logbook"
	"github.com/kingrea/field-audit/internal/workflow"
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook attaches the journey logbook shown in the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithContext sets the context passed to background commands.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// WithFileReader overrides how attached photos are read from disk.
func WithFileReader(read func(string) ([]byte, error)) AppOption {
	return func(a *App) {
		if read != nil {
			a.readFile = read
		}
	}
}

// WithLogger routes UI diagnostics to log.
func WithLogger(log logrus.FieldLogger) AppOption {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

type historyTab int

const (
	tabReports historyTab = iota
	tabPlans
)

// App is the bubbletea model.
type App struct {
	ctrl     *workflow.Controller
	state    workflow.State
	logbook  *logbook.Logbook
	ctx      context.Context
	readFile func(string) ([]byte, error)
	log      logrus.FieldLogger

	homeMenu    list.Model
	reportList  list.Model
	planList    list.Model
	historyTab  historyTab
	backupInput textinput.Model
	importing   bool

	login    loginForm
	capture  observationForm
	single   observationForm
	planForm planForm

	result     viewport.Model
	planReview viewport.Model
	spinner    spinner.Model

	selection   int
	placeholder string

	width  int
	height int
}

// NewApp creates the UI around a controller.
func NewApp(ctrl *workflow.Controller, opts ...AppOption) *App {
	homeMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	homeMenu.Title = "⬡ FIELD AUDIT"
	homeMenu.SetShowStatusBar(false)
	homeMenu.SetFilteringEnabled(false)

	reportList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	reportList.Title = "Informes"
	reportList.SetShowStatusBar(false)
	reportList.SetFilteringEnabled(false)

	planList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	planList.Title = "Planes"
	planList.SetShowStatusBar(false)
	planList.SetFilteringEnabled(false)

	backupInput := newInput("Respaldo: ", "vacío = el más reciente")

	app := &App{
		ctrl:        ctrl,
		ctx:         context.Background(),
		readFile:    os.ReadFile,
		log:         logrus.StandardLogger(),
		homeMenu:    homeMenu,
		reportList:  reportList,
		planList:    planList,
		backupInput: backupInput,
		login:       newLoginForm(),
		capture:     newObservationForm(),
		single:      newObservationForm(),
		planForm:    newPlanForm(),
		result:      viewport.New(80, 20),
		planReview:  viewport.New(80, 20),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.log = app.log.WithField("component", "tui")
	app.state = ctrl.Snapshot()
	app.refreshHomeMenu()
	return app
}

// Init restores a persisted session.
func (a *App) Init() tea.Cmd {
	return a.dispatch(workflow.Boot{})
}

// dispatch forwards an intent to the controller, refreshes the snapshot and
// wraps any follow-up work as a tea.Cmd.
func (a *App) dispatch(in workflow.Intent) tea.Cmd {
	before := a.state
	work := a.ctrl.Dispatch(in)
	a.state = a.ctrl.Snapshot()
	a.sync(before)

	var cmds []tea.Cmd
	if work != nil {
		ctx := a.ctx
		cmds = append(cmds, func() tea.Msg {
			return work(ctx)
		})
	}
	if a.state.Loading && !before.Loading {
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// sync resets widget state after the snapshot changed.
func (a *App) sync(before workflow.State) {
	entered := a.state.View != before.View
	switch a.state.View {
	case workflow.ViewLogin:
		if entered {
			a.login = newLoginForm()
		} else if before.Registering != a.state.Registering {
			a.login.focus = 0
			a.login.focusOn(a.state.Registering)
		}
	case workflow.ViewHome:
		a.refreshHomeMenu()
	case workflow.ViewCapture:
		if entered {
			if obs, ok := a.state.EditingObservation(); ok {
				a.capture.load(obs)
			} else {
				a.capture.reset()
			}
		}
	case workflow.ViewCaptureSummary:
		if a.selection >= len(a.state.Draft) {
			a.selection = max(0, len(a.state.Draft)-1)
		}
		if entered {
			a.selection = 0
		}
	case workflow.ViewReportDraft:
		if entered {
			a.single.reset()
		}
	case workflow.ViewPlanInput:
		if entered {
			if a.state.Plan != nil {
				a.planForm.load(a.state.Plan.Process, a.state.Plan.Context)
			} else {
				a.planForm.load("", "")
			}
		}
	case workflow.ViewPlanReview:
		if entered {
			a.selection = 0
		}
		a.refreshPlanReview(entered)
	case workflow.ViewResult:
		if a.state.Result != nil {
			a.result.SetContent(renderReport(*a.state.Result))
			if entered {
				a.result.GotoTop()
			}
		}
	case workflow.ViewHistory:
		if entered {
			a.importing = false
			a.backupInput.Blur()
		}
		a.refreshHistory()
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case spinner.TickMsg:
		if !a.state.Loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case workflow.Intent:
		return a, a.dispatch(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "ctrl+x":
			if a.state.Loading {
				return a, a.dispatch(workflow.CancelLoading{})
			}
			return a, nil
		}
		if a.state.Loading {
			return a, nil
		}
		if msg.String() == "esc" && a.state.Err != "" {
			return a, a.dispatch(workflow.DismissError{})
		}
		return a, a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch a.state.View {
	case workflow.ViewLogin:
		return a.loginKey(msg)
	case workflow.ViewHome:
		return a.homeKey(msg)
	case workflow.ViewCapture:
		return a.captureKey(msg)
	case workflow.ViewCaptureSummary:
		return a.summaryKey(msg)
	case workflow.ViewReportDraft:
		return a.reportDraftKey(msg)
	case workflow.ViewPlanInput:
		return a.planInputKey(msg)
	case workflow.ViewPlanReview:
		return a.planReviewKey(msg)
	case workflow.ViewResult:
		return a.resultKey(msg)
	case workflow.ViewHistory:
		return a.historyKey(msg)
	case workflow.ViewPlaceholder:
		if msg.String() == "esc" || msg.String() == "enter" {
			return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
		}
	}
	return nil
}

func (a *App) loginKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "down", "up":
		return a.login.cycle(a.state.Registering)
	case "ctrl+r":
		return a.dispatch(workflow.ToggleRegister{})
	case "enter":
		return a.dispatch(workflow.SubmitCredentials{
			Email:    a.login.email.Value(),
			Name:     a.login.name.Value(),
			Password: a.login.password.Value(),
		})
	}
	return a.login.update(msg, a.state.Registering)
}

func (a *App) homeKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "enter":
		item, ok := a.homeMenu.SelectedItem().(menuItem)
		if !ok {
			return nil
		}
		return a.selectHomeItem(item)
	}
	var cmd tea.Cmd
	a.homeMenu, cmd = a.homeMenu.Update(msg)
	return cmd
}

func (a *App) selectHomeItem(item menuItem) tea.Cmd {
	a.log.WithField("item", item.title).Debug("menu selection")
	switch item.action {
	case actionCapture:
		return a.dispatch(workflow.OpenCapture{})
	case actionSummary:
		return a.dispatch(workflow.Navigate{To: workflow.ViewCaptureSummary})
	case actionReportDraft:
		return a.dispatch(workflow.Navigate{To: workflow.ViewReportDraft})
	case actionPlan:
		return a.dispatch(workflow.Navigate{To: workflow.ViewPlanInput})
	case actionHistory:
		return a.dispatch(workflow.Navigate{To: workflow.ViewHistory})
	case actionPlaceholder:
		a.placeholder = item.title
		return a.dispatch(workflow.Navigate{To: workflow.ViewPlaceholder})
	case actionLogout:
		return a.dispatch(workflow.Logout{})
	case actionQuit:
		return tea.Quit
	}
	return nil
}

func (a *App) captureKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		if len(a.state.Draft) > 0 {
			return a.dispatch(workflow.Navigate{To: workflow.ViewCaptureSummary})
		}
		return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
	case "tab":
		return a.capture.toggleFocus()
	case "ctrl+d":
		a.capture.dropLastImage()
		return nil
	case "ctrl+s":
		return a.dispatch(workflow.SaveObservation{Observation: a.capture.observation()})
	case "enter":
		if a.capture.pathFocused {
			a.capture.attach(a.readFile)
			return nil
		}
	}
	return a.capture.update(msg)
}

func (a *App) summaryKey(msg tea.KeyMsg) tea.Cmd {
	draft := a.state.Draft
	switch msg.String() {
	case "esc":
		return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
	case "up", "k":
		if a.selection > 0 {
			a.selection--
		}
	case "down", "j":
		if a.selection < len(draft)-1 {
			a.selection++
		}
	case "n":
		return a.dispatch(workflow.OpenCapture{})
	case "e", "enter":
		if a.selection < len(draft) {
			return a.dispatch(workflow.EditObservation{ID: draft[a.selection].ID})
		}
	case "d":
		if a.selection < len(draft) {
			return a.dispatch(workflow.DeleteObservation{ID: draft[a.selection].ID})
		}
	case "g":
		return a.dispatch(workflow.SubmitDraft{})
	}
	return nil
}

func (a *App) reportDraftKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
	case "tab":
		return a.single.toggleFocus()
	case "ctrl+d":
		a.single.dropLastImage()
		return nil
	case "ctrl+s":
		return a.dispatch(workflow.SubmitSingle{Observation: a.single.observation()})
	case "enter":
		if a.single.pathFocused {
			a.single.attach(a.readFile)
			return nil
		}
	}
	return a.single.update(msg)
}

func (a *App) planInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
	case "tab", "shift+tab":
		return a.planForm.toggleFocus()
	case "enter":
		if a.planForm.focus == 0 {
			return a.planForm.toggleFocus()
		}
		return a.generatePlan()
	case "ctrl+s":
		return a.generatePlan()
	}
	return a.planForm.update(msg)
}

func (a *App) generatePlan() tea.Cmd {
	return a.dispatch(workflow.GeneratePlan{
		Process: a.planForm.process.Value(),
		Context: a.planForm.context.Value(),
	})
}

func (a *App) planReviewKey(msg tea.KeyMsg) tea.Cmd {
	plan := a.state.Plan
	if plan == nil {
		return nil
	}
	switch msg.String() {
	case "esc":
		return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
	case "up", "k":
		if a.selection > 0 {
			a.selection--
		}
		a.refreshPlanReview(false)
	case "down", "j":
		if a.selection < len(plan.Items)-1 {
			a.selection++
		}
		a.refreshPlanReview(false)
	case " ", "x":
		if a.selection < len(plan.Items) {
			return a.dispatch(workflow.TogglePlanItem{ID: plan.Items[a.selection].ID})
		}
	case "enter", "ctrl+s":
		return a.dispatch(workflow.ConfirmPlan{})
	case "r":
		return a.dispatch(workflow.RedesignPlan{})
	default:
		var cmd tea.Cmd
		a.planReview, cmd = a.planReview.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) resultKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
	case "h":
		return a.dispatch(workflow.Navigate{To: workflow.ViewHistory})
	case "e":
		return a.dispatch(workflow.ExportReport{Format: export.FormatXLSX})
	case "w":
		return a.dispatch(workflow.ExportReport{Format: export.FormatDOCX})
	}
	var cmd tea.Cmd
	a.result, cmd = a.result.Update(msg)
	return cmd
}

func (a *App) historyKey(msg tea.KeyMsg) tea.Cmd {
	if a.importing {
		switch msg.String() {
		case "esc":
			a.importing = false
			a.backupInput.Blur()
			return nil
		case "enter":
			a.importing = false
			a.backupInput.Blur()
			source := a.backupInput.Value()
			a.backupInput.Reset()
			return a.dispatch(workflow.ImportBackup{Source: source})
		}
		var cmd tea.Cmd
		a.backupInput, cmd = a.backupInput.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "esc":
		return a.dispatch(workflow.Navigate{To: workflow.ViewHome})
	case "tab":
		a.historyTab = 1 - a.historyTab
		return nil
	case "b":
		return a.dispatch(workflow.ExportBackup{})
	case "i":
		a.importing = true
		return a.backupInput.Focus()
	case "enter":
		if id := a.selectedHistoryID(); id != "" {
			if a.historyTab == tabPlans {
				return a.dispatch(workflow.OpenPlan{ID: id})
			}
			return a.dispatch(workflow.OpenReport{ID: id})
		}
		return nil
	case "d":
		if id := a.selectedHistoryID(); id != "" {
			if a.historyTab == tabPlans {
				return a.dispatch(workflow.DeletePlan{ID: id})
			}
			return a.dispatch(workflow.DeleteReport{ID: id})
		}
		return nil
	}
	var cmd tea.Cmd
	if a.historyTab == tabPlans {
		a.planList, cmd = a.planList.Update(msg)
	} else {
		a.reportList, cmd = a.reportList.Update(msg)
	}
	return cmd
}

func (a *App) selectedHistoryID() string {
	if a.historyTab == tabPlans {
		if item, ok := a.planList.SelectedItem().(planItem); ok {
			return item.plan.ID
		}
		return ""
	}
	if item, ok := a.reportList.SelectedItem().(reportItem); ok {
		return item.report.ID
	}
	return ""
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	inner := max(20, width-6)
	body := max(5, height-16)
	a.homeMenu.SetSize(inner, body)
	a.reportList.SetSize(inner, body)
	a.planList.SetSize(inner, body)
	a.result.Width = inner
	a.result.Height = body
	a.planReview.Width = inner
	a.planReview.Height = body
	a.capture.setWidth(inner)
	a.single.setWidth(inner)
	if a.state.Result != nil {
		a.result.SetContent(renderReport(*a.state.Result))
	}
	a.refreshPlanReview(false)
}

func (a *App) refreshHomeMenu() {
	a.homeMenu.SetItems(buildHomeMenu(a.state))
}

func (a *App) refreshHistory() {
	reports := make([]list.Item, len(a.state.History))
	for i, r := range a.state.History {
		reports[i] = reportItem{report: r}
	}
	plans := make([]list.Item, len(a.state.PlanHistory))
	for i, p := range a.state.PlanHistory {
		plans[i] = planItem{plan: p}
	}
	a.reportList.SetItems(reports)
	a.planList.SetItems(plans)
}

func (a *App) refreshPlanReview(top bool) {
	if a.state.Plan == nil {
		return
	}
	a.planReview.SetContent(renderPlan(*a.state.Plan, a.selection))
	if top {
		a.planReview.GotoTop()
	}
}

// menu actions
const (
	actionCapture = iota
	actionSummary
	actionReportDraft
	actionPlan
	actionHistory
	actionPlaceholder
	actionLogout
	actionQuit
)

// menuItem implements list.Item for the home menu.
type menuItem struct {
	title  string
	desc   string
	action int
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

func buildHomeMenu(state workflow.State) []list.Item {
	items := []list.Item{
		menuItem{title: "Nueva observación", desc: "Registrar evidencia de campo con fotos y notas", action: actionCapture},
	}
	if n := len(state.Draft); n > 0 {
		items = append(items, menuItem{
			title:  "Sesión en curso",
			desc:   pluralize(n, "observación pendiente", "observaciones pendientes"),
			action: actionSummary,
		})
	}
	items = append(items,
		menuItem{title: "Redactor de hallazgos", desc: "Convertir una observación suelta en hallazgo", action: actionReportDraft},
		menuItem{title: "Planificación CIA", desc: "Diseñar un plan de auditoría basado en riesgos", action: actionPlan},
		menuItem{title: "Historial", desc: "Informes, planes y respaldos", action: actionHistory},
		menuItem{title: "Seguimiento de hallazgos", desc: "Próximamente", action: actionPlaceholder},
		menuItem{title: "Tableros de control", desc: "Próximamente", action: actionPlaceholder},
		menuItem{title: "Gestión de accesos", desc: "Próximamente", action: actionPlaceholder},
		menuItem{title: "Cerrar sesión", desc: "Volver a la pantalla de acceso", action: actionLogout},
		menuItem{title: "Salir", desc: "Cerrar fieldaudit", action: actionQuit},
	)
	return items
}

type reportItem struct {
	report audit.SavedReport
}

func (i reportItem) Title() string {
	title := strings.TrimSpace(i.report.Title)
	if title == "" {
		title = i.report.ID
	}
	return title
}

func (i reportItem) Description() string {
	parts := []string{i.report.Timestamp.Local().Format("02/01/2006 15:04")}
	parts = append(parts, pluralize(len(i.report.Findings), "hallazgo", "hallazgos"))
	if i.report.Auditor != "" {
		parts = append(parts, i.report.Auditor)
	}
	return strings.Join(parts, " · ")
}

func (i reportItem) FilterValue() string { return i.report.Title }

type planItem struct {
	plan audit.AuditPlan
}

func (i planItem) Title() string { return i.plan.Title }

func (i planItem) Description() string {
	return strings.Join([]string{
		i.plan.Timestamp.Local().Format("02/01/2006 15:04"),
		pluralize(len(i.plan.SelectedItems()), "ítem en alcance", "ítems en alcance"),
	}, " · ")
}

func (i planItem) FilterValue() string { return i.plan.Title }
