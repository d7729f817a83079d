package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/field-audit/internal/audit"
	"github.com/kingrea/field-audit/internal/backup"
	"github.com/kingrea/field-audit/internal/export"
	"github.com/kingrea/field-audit/internal/generator"
)

// Store is the persistence the controller needs.
type Store interface {
	FindUser(email string) (audit.User, bool, error)
	RegisterUser(u audit.User) error
	Session() (*audit.User, error)
	SaveSession(u audit.User) error
	ClearSession() error
	Draft() ([]audit.Observation, error)
	SaveDraft(obs []audit.Observation) error
	Reports() ([]audit.SavedReport, error)
	SaveReport(r audit.SavedReport) error
	RecordReport(r audit.SavedReport) error
	DeleteReport(id string) error
	Plans() ([]audit.AuditPlan, error)
	SavePlan(p audit.AuditPlan) error
	DeletePlan(id string) error
	ExportBundle() ([]byte, error)
	ImportBundle(data []byte) error
}

// Exporter renders a report to a file and returns its path.
type Exporter interface {
	Export(report audit.SavedReport, format export.Format) (string, error)
}

// Deps are the collaborators behind the controller.
type Deps struct {
	Store    Store
	Reports  generator.ReportGenerator
	Plans    generator.PlanGenerator
	Exporter Exporter
	Backups  backup.Sink
}

// Controller owns the application state. Dispatch is the only way to change
// it; asynchronous work comes back as completion intents through Dispatch
// as well, so callers must not dispatch from more than one goroutine.
type Controller struct {
	deps          Deps
	state         State
	fallbackAdmin string
	log           logrus.FieldLogger
	now           func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger routes controller diagnostics to log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFallbackAdmin sets the email that can always log in as audit manager.
// An empty email disables the fallback identity.
func WithFallbackAdmin(email string) Option {
	return func(c *Controller) {
		c.fallbackAdmin = audit.NormalizeEmail(email)
	}
}

// NewController builds a controller showing the login view.
func NewController(deps Deps, opts ...Option) *Controller {
	c := &Controller{
		deps:          deps,
		state:         State{View: ViewLogin},
		fallbackAdmin: "admin@admin.com",
		log:           logrus.StandardLogger(),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "workflow")
	return c
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	return c.state.Clone()
}

// Dispatch applies an intent and returns follow-up work, or nil.
func (c *Controller) Dispatch(in Intent) Command {
	before := c.state.View
	cmd := c.apply(in)
	if after := c.state.View; after != before {
		c.log.WithFields(logrus.Fields{"from": before.String(), "to": after.String()}).Debug("view changed")
	}
	return cmd
}

func (c *Controller) apply(in Intent) Command {
	switch in := in.(type) {
	case Boot:
		c.boot()
	case ToggleRegister:
		c.state.Registering = !c.state.Registering
		c.state.Err = ""
		c.state.Notice = ""
	case SubmitCredentials:
		c.submitCredentials(in)
	case Navigate:
		c.navigate(in.To)
	case OpenCapture:
		if c.state.User != nil {
			c.state.Editing = ""
			c.setView(ViewCapture)
		}
	case EditObservation:
		c.editObservation(in.ID)
	case SaveObservation:
		c.saveObservation(in.Observation)
	case DeleteObservation:
		c.deleteObservation(in.ID)
	case SubmitDraft:
		return c.submitDraft()
	case SubmitSingle:
		return c.submitSingle(in.Observation)
	case ReportFinished:
		c.reportFinished(in)
	case CancelLoading:
		if c.state.Loading {
			c.state.Loading = false
			c.state.Err = msgCancelled
			c.log.Warn("loading cancelled by user; outstanding request left running")
		}
	case GeneratePlan:
		return c.generatePlan(in)
	case PlanFinished:
		c.planFinished(in)
	case TogglePlanItem:
		c.togglePlanItem(in.ID)
	case ConfirmPlan:
		c.confirmPlan()
	case RedesignPlan:
		if c.state.User != nil && !c.state.Loading {
			c.setView(ViewPlanInput)
		}
	case OpenReport:
		c.openReport(in.ID)
	case OpenPlan:
		c.openPlan(in.ID)
	case DeleteReport:
		c.deleteReport(in.ID)
	case DeletePlan:
		c.deletePlan(in.ID)
	case ExportBackup:
		return c.exportBackup()
	case BackupExported:
		c.backupExported(in)
	case ImportBackup:
		return c.importBackup(in.Source)
	case BackupLoaded:
		c.backupLoaded(in)
	case ExportReport:
		return c.exportReport(in.Format)
	case ReportExported:
		c.reportExported(in)
	case DismissError:
		c.state.Err = ""
	case Logout:
		c.logout()
	}
	return nil
}

func (c *Controller) setView(v View) {
	c.state.View = v
	c.state.Err = ""
}

func (c *Controller) fail(msg string, err error, op string) {
	c.state.Err = msg
	if err != nil {
		c.log.WithError(err).WithField("op", op).Error("operation failed")
	}
}

func (c *Controller) boot() {
	user, err := c.deps.Store.Session()
	if err != nil {
		c.fail(msgStorageFailed, err, "boot")
		return
	}
	if user == nil {
		c.state.View = ViewLogin
		return
	}
	c.enter(*user)
}

// enter makes u the current user and loads the persisted caches.
func (c *Controller) enter(u audit.User) {
	c.state.User = &u
	c.state.Registering = false
	c.state.Notice = ""
	c.state.Loading = false
	c.setView(ViewHome)
	c.reload()
	c.log.WithFields(logrus.Fields{"email": u.Email, "role": string(u.Role)}).Info("session started")
}

// reload refreshes history caches and the draft from the store.
func (c *Controller) reload() {
	reports, err := c.deps.Store.Reports()
	if err != nil {
		c.fail(msgStorageFailed, err, "load reports")
		return
	}
	plans, err := c.deps.Store.Plans()
	if err != nil {
		c.fail(msgStorageFailed, err, "load plans")
		return
	}
	draft, err := c.deps.Store.Draft()
	if err != nil {
		c.fail(msgStorageFailed, err, "load draft")
		return
	}
	c.state.History = reports
	c.state.PlanHistory = plans
	c.state.Draft = draft
}

func (c *Controller) submitCredentials(in SubmitCredentials) {
	if c.state.View != ViewLogin || c.state.Loading {
		return
	}
	c.state.Err = ""
	c.state.Notice = ""
	email := audit.NormalizeEmail(in.Email)
	if email == "" {
		c.state.Err = msgEmailRequired
		return
	}

	if c.state.Registering {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = audit.DefaultName(email)
		}
		err := c.deps.Store.RegisterUser(audit.User{Name: name, Email: email, Role: audit.RoleAuditorSenior})
		if err != nil {
			c.fail(credentialMessage(err), err, "register")
			return
		}
		c.state.Registering = false
		c.state.Notice = msgRegistered
		return
	}

	user, ok, err := c.deps.Store.FindUser(email)
	if err != nil {
		c.fail(msgStorageFailed, err, "login")
		return
	}
	if !ok && c.fallbackAdmin != "" && email == c.fallbackAdmin {
		user, ok = audit.User{Name: "Admin", Email: email, Role: audit.RoleAuditManager}, true
	}
	if !ok {
		c.fail(credentialMessage(ErrInvalidCredentials), nil, "login")
		c.log.WithField("email", email).Warn("login rejected")
		return
	}
	if err := c.deps.Store.SaveSession(user); err != nil {
		c.fail(msgStorageFailed, err, "save session")
		return
	}
	c.enter(user)
}

func (c *Controller) navigate(to View) {
	if c.state.User == nil || to == ViewLogin {
		return
	}
	switch to {
	case ViewResult:
		if c.state.Result == nil {
			return
		}
	case ViewPlanReview:
		if c.state.Plan == nil {
			return
		}
	case ViewCapture:
		c.state.Editing = ""
	case ViewPlanInput:
		if c.state.View == ViewHome {
			c.state.Plan = nil
		}
	}
	c.setView(to)
}

func (c *Controller) draftIndex(id string) int {
	for i, obs := range c.state.Draft {
		if obs.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) editObservation(id string) {
	if c.state.User == nil || c.state.Loading || c.draftIndex(id) < 0 {
		return
	}
	c.state.Editing = id
	c.setView(ViewCapture)
}

func (c *Controller) saveObservation(obs audit.Observation) {
	if c.state.User == nil || c.state.Loading || obs.IsEmpty() {
		return
	}
	obs = obs.Clone()
	if obs.ID == "" {
		obs.ID = c.state.Editing
	}
	if obs.ID == "" {
		obs.ID = audit.NewID()
	}
	next := audit.CloneObservations(c.state.Draft)
	idx := c.draftIndex(obs.ID)
	if obs.Timestamp.IsZero() && idx >= 0 {
		obs.Timestamp = next[idx].Timestamp
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = c.now()
	}
	if idx >= 0 {
		next[idx] = obs
	} else {
		next = append(next, obs)
	}
	if err := c.deps.Store.SaveDraft(next); err != nil {
		c.fail(msgStorageFailed, err, "save draft")
		return
	}
	c.state.Draft = next
	c.state.Editing = ""
	c.setView(ViewCaptureSummary)
}

func (c *Controller) deleteObservation(id string) {
	if c.state.User == nil || c.state.Loading {
		return
	}
	idx := c.draftIndex(id)
	if idx < 0 {
		return
	}
	next := make([]audit.Observation, 0, len(c.state.Draft)-1)
	next = append(next, c.state.Draft[:idx]...)
	next = append(next, c.state.Draft[idx+1:]...)
	if err := c.deps.Store.SaveDraft(next); err != nil {
		c.fail(msgStorageFailed, err, "save draft")
		return
	}
	c.state.Draft = audit.CloneObservations(next)
	if c.state.Editing == id {
		c.state.Editing = ""
	}
}

func (c *Controller) submitDraft() Command {
	if c.state.User == nil || c.state.Loading || len(c.state.Draft) == 0 {
		return nil
	}
	return c.startReport(audit.CloneObservations(c.state.Draft), true)
}

func (c *Controller) submitSingle(obs audit.Observation) Command {
	if c.state.User == nil || c.state.Loading || obs.IsEmpty() {
		return nil
	}
	obs = obs.Clone()
	if obs.ID == "" {
		obs.ID = audit.NewID()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = c.now()
	}
	return c.startReport([]audit.Observation{obs}, false)
}

func (c *Controller) startReport(batch []audit.Observation, fromDraft bool) Command {
	c.state.Loading = true
	c.state.Err = ""
	c.log.WithFields(logrus.Fields{"observations": len(batch), "from_draft": fromDraft}).Info("report requested")
	reports := c.deps.Reports
	return func(ctx context.Context) Intent {
		report, err := reports.GenerateReport(ctx, generator.ReportRequest{Observations: batch})
		return ReportFinished{Report: report, Err: err, FromDraft: fromDraft}
	}
}

func (c *Controller) reportFinished(in ReportFinished) {
	c.state.Loading = false
	if in.Err != nil {
		c.fail(generatorMessage(in.Err, msgReportFailed), in.Err, "generate report")
		return
	}
	report := in.Report.Clone()
	if c.state.User != nil {
		report.Auditor = c.state.User.Name
	}
	save := c.deps.Store.RecordReport
	if in.FromDraft {
		save = c.deps.Store.SaveReport
	}
	if err := save(report); err != nil {
		c.fail(msgStorageFailed, err, "save report")
		return
	}
	if in.FromDraft {
		c.state.Draft = nil
		c.state.Editing = ""
	}
	if reports, err := c.deps.Store.Reports(); err == nil {
		c.state.History = reports
	} else {
		c.log.WithError(err).Warn("report history refresh failed")
	}
	if c.state.User == nil {
		// Logged out while the request was outstanding: keep the report in
		// history but stay on the login view.
		return
	}
	c.state.Result = &report
	c.setView(ViewResult)
}

func (c *Controller) generatePlan(in GeneratePlan) Command {
	if c.state.User == nil || c.state.Loading || strings.TrimSpace(in.Process) == "" {
		return nil
	}
	c.state.Loading = true
	c.state.Err = ""
	req := generator.PlanRequest{Process: strings.TrimSpace(in.Process), Context: strings.TrimSpace(in.Context)}
	c.log.WithField("process", req.Process).Info("plan requested")
	plans := c.deps.Plans
	return func(ctx context.Context) Intent {
		draft, err := plans.GeneratePlan(ctx, req)
		return PlanFinished{Process: req.Process, Context: req.Context, Draft: draft, Err: err}
	}
}

func (c *Controller) planFinished(in PlanFinished) {
	c.state.Loading = false
	if in.Err != nil {
		c.fail(generatorMessage(in.Err, msgPlanFailed), in.Err, "generate plan")
		return
	}
	if c.state.User == nil {
		return
	}
	items := make([]audit.AuditPlanItem, len(in.Draft.Items))
	for i, item := range in.Draft.Items {
		item.Selected = true
		if item.ID == "" {
			item.ID = audit.NewID()
		}
		items[i] = item
	}
	plan := audit.AuditPlan{
		ID:               audit.NewID(),
		Title:            "Plan CIA: " + in.Process,
		Process:          in.Process,
		Context:          in.Context,
		Timestamp:        c.now(),
		OverallObjective: in.Draft.OverallObjective,
		Items:            items,
		Auditor:          c.state.User.Name,
	}
	plan = plan.Clone()
	c.state.Plan = &plan
	c.setView(ViewPlanReview)
}

func (c *Controller) togglePlanItem(id string) {
	if c.state.Plan == nil || c.state.View != ViewPlanReview {
		return
	}
	for i := range c.state.Plan.Items {
		if c.state.Plan.Items[i].ID == id {
			c.state.Plan.Items[i].Selected = !c.state.Plan.Items[i].Selected
			return
		}
	}
}

func (c *Controller) confirmPlan() {
	if c.state.Plan == nil || c.state.Loading {
		return
	}
	plan := c.state.Plan.Clone()
	if err := c.deps.Store.SavePlan(plan); err != nil {
		c.fail(msgStorageFailed, err, "save plan")
		return
	}
	plans, err := c.deps.Store.Plans()
	if err != nil {
		c.fail(msgStorageFailed, err, "load plans")
		return
	}
	c.state.PlanHistory = plans
	c.setView(ViewHome)
}

func (c *Controller) openReport(id string) {
	if c.state.User == nil {
		return
	}
	for _, r := range c.state.History {
		if r.ID == id {
			report := r.Clone()
			c.state.Result = &report
			c.setView(ViewResult)
			return
		}
	}
}

func (c *Controller) openPlan(id string) {
	if c.state.User == nil {
		return
	}
	for _, p := range c.state.PlanHistory {
		if p.ID == id {
			plan := p.Clone()
			c.state.Plan = &plan
			c.setView(ViewPlanReview)
			return
		}
	}
}

func (c *Controller) deleteReport(id string) {
	if c.state.User == nil || c.state.Loading {
		return
	}
	if err := c.deps.Store.DeleteReport(id); err != nil {
		c.fail(msgStorageFailed, err, "delete report")
		return
	}
	reports, err := c.deps.Store.Reports()
	if err != nil {
		c.fail(msgStorageFailed, err, "load reports")
		return
	}
	c.state.History = reports
	if c.state.Result != nil && c.state.Result.ID == id {
		c.state.Result = nil
	}
}

func (c *Controller) deletePlan(id string) {
	if c.state.User == nil || c.state.Loading {
		return
	}
	if err := c.deps.Store.DeletePlan(id); err != nil {
		c.fail(msgStorageFailed, err, "delete plan")
		return
	}
	plans, err := c.deps.Store.Plans()
	if err != nil {
		c.fail(msgStorageFailed, err, "load plans")
		return
	}
	c.state.PlanHistory = plans
	if c.state.Plan != nil && c.state.Plan.ID == id {
		c.state.Plan = nil
	}
}

func (c *Controller) exportBackup() Command {
	if c.state.User == nil || c.deps.Backups == nil {
		return nil
	}
	data, err := c.deps.Store.ExportBundle()
	if err != nil {
		c.fail(msgBackupFailed, err, "export bundle")
		return nil
	}
	c.state.Err = ""
	name := backup.Name(c.now())
	sink := c.deps.Backups
	return func(ctx context.Context) Intent {
		loc, err := sink.Write(ctx, name, data)
		return BackupExported{Location: loc, Err: err}
	}
}

func (c *Controller) backupExported(in BackupExported) {
	if in.Err != nil {
		c.fail(msgBackupFailed, in.Err, "write backup")
		return
	}
	c.state.Notice = msgBackupSaved + in.Location
	c.log.WithField("location", in.Location).Info("backup written")
}

func (c *Controller) importBackup(source string) Command {
	if c.state.User == nil || c.state.Loading || c.deps.Backups == nil {
		return nil
	}
	c.state.Err = ""
	c.state.Notice = ""
	sink := c.deps.Backups
	source = strings.TrimSpace(source)
	return func(ctx context.Context) Intent {
		name := source
		if name == "" {
			names, err := sink.List(ctx)
			if err != nil {
				return BackupLoaded{Err: err}
			}
			latest, ok := backup.Latest(names)
			if !ok {
				return BackupLoaded{Err: backup.ErrNotFound}
			}
			name = latest
		}
		data, err := sink.Read(ctx, name)
		return BackupLoaded{Source: name, Data: data, Err: err}
	}
}

func (c *Controller) backupLoaded(in BackupLoaded) {
	if in.Err != nil {
		msg := msgImportFailed
		if errors.Is(in.Err, backup.ErrNotFound) && in.Source == "" {
			msg = msgNoBackup
		}
		c.fail(msg, in.Err, "read backup")
		return
	}
	if err := c.deps.Store.ImportBundle(in.Data); err != nil {
		c.fail(msgImportFailed, err, "import bundle")
		return
	}
	c.log.WithField("source", in.Source).Info("backup restored")
	c.reload()
	if c.state.Err != "" {
		return
	}
	// The restored user table may no longer hold the current user; the
	// session itself is not part of a bundle and stays valid.
	if user, err := c.deps.Store.Session(); err == nil && user != nil {
		c.state.User = user
	}
	c.state.Notice = msgImported
}

func (c *Controller) exportReport(format export.Format) Command {
	if c.state.Result == nil || c.deps.Exporter == nil {
		return nil
	}
	report := c.state.Result.Clone()
	exporter := c.deps.Exporter
	return func(context.Context) Intent {
		path, err := exporter.Export(report, format)
		return ReportExported{Path: path, Err: err}
	}
}

func (c *Controller) reportExported(in ReportExported) {
	if in.Err != nil {
		c.fail(msgExportFailed, in.Err, "export report")
		return
	}
	c.state.LastExport = in.Path
	c.state.Notice = msgExported + in.Path
}

func (c *Controller) logout() {
	if err := c.deps.Store.ClearSession(); err != nil {
		c.log.WithError(err).Warn("session clear failed")
	}
	if c.state.User != nil {
		c.log.WithField("email", c.state.User.Email).Info("session ended")
	}
	c.state.User = nil
	c.state.Result = nil
	c.state.Plan = nil
	c.state.Editing = ""
	c.state.Notice = ""
	c.state.Registering = false
	c.state.Loading = false
	c.setView(ViewLogin)
}
