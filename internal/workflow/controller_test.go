package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/kingrea/field-audit/internal/audit"
	"github.com/kingrea/field-audit/internal/backup"
	"github.com/kingrea/field-audit/internal/export"
	"github.com/kingrea/field-audit/internal/generator"
	"github.com/kingrea/field-audit/internal/store"
)

type fakeReports struct {
	calls []generator.ReportRequest
	err   error
}

func (f *fakeReports) GenerateReport(_ context.Context, req generator.ReportRequest) (audit.SavedReport, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return audit.SavedReport{}, f.err
	}
	findings := make([]audit.AuditFinding, len(req.Observations))
	for i := range req.Observations {
		findings[i] = audit.AuditFinding{ID: audit.NewID(), Condition: "finding", Rating: audit.RatingMedium}
	}
	return audit.SavedReport{
		ID:           audit.NewID(),
		ReportHeader: audit.ReportHeader{DocCode: "IA-1", Subject: "Inspección"},
		Title:        "Inspección",
		Timestamp:    time.Now().UTC(),
		Observations: audit.CloneObservations(req.Observations),
		Findings:     findings,
	}, nil
}

type fakePlans struct {
	calls int
	err   error
}

func (f *fakePlans) GeneratePlan(_ context.Context, req generator.PlanRequest) (generator.PlanDraft, error) {
	f.calls++
	if f.err != nil {
		return generator.PlanDraft{}, f.err
	}
	p, i := 4, 4
	return generator.PlanDraft{
		OverallObjective: "Evaluar " + req.Process,
		Items: []audit.AuditPlanItem{
			{ID: "i1", Title: "Sobreprecio", Category: audit.CategoryRisk, Probability: &p, Impact: &i},
			{ID: "i2", Title: "Muestra", Category: audit.CategorySampling},
		},
	}, nil
}

type fakeExporter struct {
	dir string
}

func (f fakeExporter) Export(report audit.SavedReport, format export.Format) (string, error) {
	path := filepath.Join(f.dir, export.FileName(report, format))
	return path, os.WriteFile(path, []byte("x"), 0o644)
}

type harness struct {
	ctrl    *Controller
	store   *store.Store
	backend *store.MemoryBackend
	reports *fakeReports
	plans   *fakePlans
	backups string
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	backend := store.NewMemoryBackend()
	st := store.New(backend, store.WithLogger(logger))
	h := &harness{
		store:   st,
		backend: backend,
		reports: &fakeReports{},
		plans:   &fakePlans{},
		backups: t.TempDir(),
		now:     time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC),
	}
	h.ctrl = NewController(Deps{
		Store:    st,
		Reports:  h.reports,
		Plans:    h.plans,
		Exporter: fakeExporter{dir: t.TempDir()},
		Backups:  backup.NewDirSink(h.backups),
	}, WithLogger(logger), WithClock(func() time.Time { return h.now }))
	return h
}

// runCommands dispatches in and drains every follow-up command.
func runCommands(t *testing.T, c *Controller, in Intent) State {
	t.Helper()
	cmd := c.Dispatch(in)
	for steps := 0; cmd != nil; steps++ {
		if steps > 10 {
			t.Fatalf("command chain did not settle")
		}
		cmd = c.Dispatch(cmd(context.Background()))
	}
	return c.Snapshot()
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	state := runCommands(t, h.ctrl, SubmitCredentials{Email: "admin@admin.com"})
	if state.View != ViewHome {
		t.Fatalf("expected home after login, got %s (err %q)", state.View, state.Err)
	}
}

func (h *harness) persistedDraft(t *testing.T) []audit.Observation {
	t.Helper()
	draft, err := h.store.Draft()
	if err != nil {
		t.Fatalf("read draft: %v", err)
	}
	return draft
}

func sameIDs(a, b []audit.Observation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Description != b[i].Description || len(a[i].Images) != len(b[i].Images) {
			return false
		}
	}
	return true
}

func TestDraftPersistedAfterEveryMutation(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	runCommands(t, h.ctrl, OpenCapture{})
	state := runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "extintor bloqueado"}})
	if state.View != ViewCaptureSummary {
		t.Fatalf("expected summary after save, got %s", state.View)
	}
	if !sameIDs(state.Draft, h.persistedDraft(t)) {
		t.Fatalf("draft not persisted after add")
	}

	id := state.Draft[0].ID
	captured := state.Draft[0].Timestamp
	h.now = h.now.Add(15 * time.Minute)
	runCommands(t, h.ctrl, EditObservation{ID: id})
	if got := h.ctrl.Snapshot(); got.View != ViewCapture || got.Editing != id {
		t.Fatalf("expected capture editing %s, got %s/%q", id, got.View, got.Editing)
	}
	state = runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "extintor obstruido por cajas"}})
	if len(state.Draft) != 1 || state.Draft[0].ID != id || state.Draft[0].Description != "extintor obstruido por cajas" {
		t.Fatalf("edit should replace in place, got %+v", state.Draft)
	}
	if state.Editing != "" {
		t.Fatalf("editing should be cleared after save")
	}
	if !state.Draft[0].Timestamp.Equal(captured) {
		t.Fatalf("edit changed the capture time: got %v want %v", state.Draft[0].Timestamp, captured)
	}
	if !sameIDs(state.Draft, h.persistedDraft(t)) {
		t.Fatalf("draft not persisted after edit")
	}

	state = runCommands(t, h.ctrl, DeleteObservation{ID: id})
	if len(state.Draft) != 0 || len(h.persistedDraft(t)) != 0 {
		t.Fatalf("draft not emptied after delete")
	}
}

func TestEmptyObservationIsRejected(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, OpenCapture{})
	state := runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "   "}})
	if state.View != ViewCapture || len(state.Draft) != 0 {
		t.Fatalf("empty observation must not be saved, view %s draft %d", state.View, len(state.Draft))
	}
}

func TestDeleteFirstOfTwoObservations(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "solo texto"}})
	state := runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Images: []string{"data:image/png;base64,AA=="}}})
	if len(state.Draft) != 2 {
		t.Fatalf("expected two observations, got %d", len(state.Draft))
	}
	second := state.Draft[1]

	state = runCommands(t, h.ctrl, DeleteObservation{ID: state.Draft[0].ID})
	if len(state.Draft) != 1 || state.Draft[0].ID != second.ID {
		t.Fatalf("expected only the image observation to remain, got %+v", state.Draft)
	}
	if !sameIDs(state.Draft, h.persistedDraft(t)) {
		t.Fatalf("persisted draft differs from memory")
	}
}

func TestSubmitEmptyDraftDoesNothing(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, Navigate{To: ViewCaptureSummary})
	if cmd := h.ctrl.Dispatch(SubmitDraft{}); cmd != nil {
		t.Fatalf("empty draft must not start a request")
	}
	state := h.ctrl.Snapshot()
	if state.View != ViewCaptureSummary || state.Loading {
		t.Fatalf("view or loading changed: %s loading=%v", state.View, state.Loading)
	}
	if len(h.reports.calls) != 0 {
		t.Fatalf("generator invoked %d times", len(h.reports.calls))
	}
}

func TestSubmitDraftSuccess(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	if err := h.store.RecordReport(audit.SavedReport{ID: "older"}); err != nil {
		t.Fatal(err)
	}
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "a", Images: []string{"data:image/png;base64,AA=="}}})
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "b"}})

	cmd := h.ctrl.Dispatch(SubmitDraft{})
	if cmd == nil {
		t.Fatalf("expected generator command")
	}
	if !h.ctrl.Snapshot().Loading {
		t.Fatalf("expected loading while the request is outstanding")
	}
	if h.ctrl.Dispatch(SubmitDraft{}) != nil {
		t.Fatalf("a second submission must be rejected while loading")
	}
	h.ctrl.Dispatch(cmd(context.Background()))

	state := h.ctrl.Snapshot()
	if state.Loading || state.View != ViewResult || state.Result == nil {
		t.Fatalf("expected result view, got %s loading=%v", state.View, state.Loading)
	}
	if len(state.Draft) != 0 || len(h.persistedDraft(t)) != 0 {
		t.Fatalf("draft must be cleared after success")
	}
	if len(state.History) != 2 || state.History[0].ID != state.Result.ID {
		t.Fatalf("new report must head history, got %d entries", len(state.History))
	}
	if state.Result.Auditor != "Admin" {
		t.Fatalf("auditor = %q", state.Result.Auditor)
	}
	if err := state.Result.CheckAlignment(); err != nil {
		t.Fatalf("alignment: %v", err)
	}
	if annexes := state.Result.Annexes(); len(annexes[0]) != 1 || annexes[0][0] != "1.1" {
		t.Fatalf("annexes = %v", annexes)
	}
}

func TestSubmitDraftFailureKeepsDraftAndView(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.reports.err = errors.New("upstream 503")
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "a"}})
	before := h.ctrl.Snapshot()

	state := runCommands(t, h.ctrl, SubmitDraft{})
	if state.Loading {
		t.Fatalf("loading must be cleared on failure")
	}
	if state.View != before.View {
		t.Fatalf("view advanced on failure: %s", state.View)
	}
	if state.Err != msgReportFailed {
		t.Fatalf("err = %q", state.Err)
	}
	if !sameIDs(state.Draft, before.Draft) || !sameIDs(h.persistedDraft(t), before.Draft) {
		t.Fatalf("draft changed on failure")
	}
	if len(state.History) != 0 {
		t.Fatalf("history must be untouched")
	}

	h.reports.err = generator.ErrMissingCredential
	state = runCommands(t, h.ctrl, SubmitDraft{})
	if state.Err != msgMissingCredential {
		t.Fatalf("err = %q", state.Err)
	}
	state = runCommands(t, h.ctrl, DismissError{})
	if state.Err != "" {
		t.Fatalf("error not dismissed")
	}
}

func TestSubmitSingleLeavesDraftAlone(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "pendiente"}})
	runCommands(t, h.ctrl, Navigate{To: ViewReportDraft})

	state := runCommands(t, h.ctrl, SubmitSingle{Observation: audit.Observation{Description: "hallazgo suelto"}})
	if state.View != ViewResult {
		t.Fatalf("expected result view, got %s", state.View)
	}
	if len(h.reports.calls) != 1 || len(h.reports.calls[0].Observations) != 1 {
		t.Fatalf("expected one single-observation request")
	}
	if len(state.Draft) != 1 || len(h.persistedDraft(t)) != 1 {
		t.Fatalf("draft must survive a single submission")
	}
	if len(state.History) != 1 {
		t.Fatalf("report not recorded")
	}
}

func TestCancelIsCosmetic(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "a"}})
	cmd := h.ctrl.Dispatch(SubmitDraft{})

	state := runCommands(t, h.ctrl, CancelLoading{})
	if state.Loading || state.Err != msgCancelled {
		t.Fatalf("cancel should clear loading and set error, got loading=%v err=%q", state.Loading, state.Err)
	}

	h.ctrl.Dispatch(cmd(context.Background()))
	state = h.ctrl.Snapshot()
	if state.View != ViewResult || len(state.History) != 1 {
		t.Fatalf("late success is still applied, got view %s", state.View)
	}
}

func TestRegisterDuplicateThenLogin(t *testing.T) {
	h := newHarness(t)
	runCommands(t, h.ctrl, Boot{})
	if h.ctrl.Snapshot().View != ViewLogin {
		t.Fatalf("expected login view without a session")
	}

	runCommands(t, h.ctrl, ToggleRegister{})
	state := runCommands(t, h.ctrl, SubmitCredentials{Email: "User@X.com", Password: "secret"})
	if state.Err != "" || state.Notice != msgRegistered || state.Registering {
		t.Fatalf("registration failed: err=%q notice=%q", state.Err, state.Notice)
	}

	runCommands(t, h.ctrl, ToggleRegister{})
	state = runCommands(t, h.ctrl, SubmitCredentials{Email: "user@x.com"})
	if state.Err != msgEmailExists || !state.Registering {
		t.Fatalf("expected email-exists error with form kept, got err=%q registering=%v", state.Err, state.Registering)
	}

	runCommands(t, h.ctrl, ToggleRegister{})
	state = runCommands(t, h.ctrl, SubmitCredentials{Email: " user@x.com "})
	if state.View != ViewHome {
		t.Fatalf("expected home, got %s (%q)", state.View, state.Err)
	}
	if state.User == nil || state.User.Name != "user" || state.User.Role != audit.RoleAuditorSenior {
		t.Fatalf("unexpected user %+v", state.User)
	}
	if len(state.History) != 0 || len(state.PlanHistory) != 0 {
		t.Fatalf("expected empty histories")
	}

	session, err := h.store.Session()
	if err != nil || session == nil || session.Email != "user@x.com" {
		t.Fatalf("session not persisted: %+v %v", session, err)
	}
}

func TestLoginRejectsUnknownAndBootRestores(t *testing.T) {
	h := newHarness(t)
	state := runCommands(t, h.ctrl, SubmitCredentials{Email: "nobody@x.com"})
	if state.View != ViewLogin || state.Err != msgInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %s %q", state.View, state.Err)
	}
	runCommands(t, h.ctrl, Navigate{To: ViewHistory})
	if h.ctrl.Snapshot().View != ViewLogin {
		t.Fatalf("navigation must require a user")
	}

	h.login(t)
	if u := h.ctrl.Snapshot().User; u.Role != audit.RoleAuditManager {
		t.Fatalf("fallback admin role = %q", u.Role)
	}

	fresh := NewController(Deps{Store: h.store, Reports: h.reports, Plans: h.plans})
	state = runCommands(t, fresh, Boot{})
	if state.View != ViewHome || state.User == nil || state.User.Email != "admin@admin.com" {
		t.Fatalf("boot should restore the persisted session, got %s", state.View)
	}

	state = runCommands(t, fresh, Logout{})
	if state.View != ViewLogin || state.User != nil {
		t.Fatalf("logout should return to login")
	}
	if s, _ := h.store.Session(); s != nil {
		t.Fatalf("session must be cleared")
	}
}

func TestFallbackAdminCanBeDisabled(t *testing.T) {
	h := newHarness(t)
	ctrl := NewController(Deps{Store: h.store}, WithFallbackAdmin(""))
	state := runCommands(t, ctrl, SubmitCredentials{Email: "admin@admin.com"})
	if state.Err != msgInvalidCredentials {
		t.Fatalf("expected rejection, got %q", state.Err)
	}
}

func TestPlanLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, Navigate{To: ViewPlanInput})

	if h.ctrl.Dispatch(GeneratePlan{Process: "   "}) != nil {
		t.Fatalf("blank process must not call the generator")
	}
	state := runCommands(t, h.ctrl, GeneratePlan{Process: "Compras", Context: "planta"})
	if state.View != ViewPlanReview || state.Plan == nil {
		t.Fatalf("expected plan review, got %s", state.View)
	}
	if state.Plan.Title != "Plan CIA: Compras" || state.Plan.Auditor != "Admin" {
		t.Fatalf("plan = %+v", state.Plan)
	}
	for _, item := range state.Plan.Items {
		if !item.Selected {
			t.Fatalf("items start selected")
		}
	}
	if got := state.Plan.Items[0].Band(); got != audit.BandHigh {
		t.Fatalf("4x4 should be high band, got %s", got)
	}
	if len(state.PlanHistory) != 0 {
		t.Fatalf("plan must not be persisted before confirmation")
	}

	state = runCommands(t, h.ctrl, TogglePlanItem{ID: "i2"})
	if state.Plan.Items[1].Selected {
		t.Fatalf("toggle did not deselect")
	}
	if len(state.Plan.SelectedItems()) != 1 {
		t.Fatalf("expected one selected item")
	}

	state = runCommands(t, h.ctrl, RedesignPlan{})
	if state.View != ViewPlanInput || state.Plan == nil || state.Plan.Process != "Compras" {
		t.Fatalf("redesign keeps the plan for prefill")
	}
	runCommands(t, h.ctrl, Navigate{To: ViewPlanReview})

	state = runCommands(t, h.ctrl, ConfirmPlan{})
	if state.View != ViewHome || len(state.PlanHistory) != 1 {
		t.Fatalf("confirm should persist and go home, got %s with %d plans", state.View, len(state.PlanHistory))
	}
	if state.PlanHistory[0].Items[1].Selected {
		t.Fatalf("selection must be persisted")
	}

	state = runCommands(t, h.ctrl, OpenPlan{ID: state.PlanHistory[0].ID})
	if state.View != ViewPlanReview {
		t.Fatalf("open plan from history, got %s", state.View)
	}
}

func TestPlanFailureSetsError(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.plans.err = errors.New("timeout")
	runCommands(t, h.ctrl, Navigate{To: ViewPlanInput})
	state := runCommands(t, h.ctrl, GeneratePlan{Process: "Compras"})
	if state.View != ViewPlanInput || state.Err != msgPlanFailed || state.Loading {
		t.Fatalf("unexpected state %s %q loading=%v", state.View, state.Err, state.Loading)
	}
	if len(state.PlanHistory) != 0 {
		t.Fatalf("plan history must be untouched")
	}
}

func TestHistoryDeleteByID(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"r1", "r2", "r3"} {
		if err := h.store.RecordReport(audit.SavedReport{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	h.login(t)
	runCommands(t, h.ctrl, Navigate{To: ViewHistory})
	runCommands(t, h.ctrl, OpenReport{ID: "r2"})
	state := runCommands(t, h.ctrl, DeleteReport{ID: "r2"})

	want := []string{"r3", "r1"}
	if len(state.History) != len(want) {
		t.Fatalf("history = %d entries", len(state.History))
	}
	for i, id := range want {
		if state.History[i].ID != id {
			t.Fatalf("history[%d] = %s, want %s", i, state.History[i].ID, id)
		}
	}
	if state.Result != nil {
		t.Fatalf("deleted report must not stay open")
	}
}

func TestBackupExportImportRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "borrador"}})
	runCommands(t, h.ctrl, SubmitSingle{Observation: audit.Observation{Description: "hallazgo"}})
	runCommands(t, h.ctrl, Navigate{To: ViewPlanInput})
	runCommands(t, h.ctrl, GeneratePlan{Process: "Caja"})
	runCommands(t, h.ctrl, ConfirmPlan{})
	if err := h.store.RegisterUser(audit.User{Name: "ana", Email: "ana@x.com", Role: audit.RoleAuditorSenior}); err != nil {
		t.Fatal(err)
	}
	runCommands(t, h.ctrl, Navigate{To: ViewHistory})

	state := runCommands(t, h.ctrl, ExportBackup{})
	if state.Err != "" {
		t.Fatalf("export failed: %q", state.Err)
	}
	want := filepath.Join(h.backups, "backup_audit_2025-06-09.json")
	if state.Notice != msgBackupSaved+want {
		t.Fatalf("notice = %q", state.Notice)
	}
	before := state

	wipe := []string{store.KeyUsers, store.KeyReports, store.KeyPlans, store.KeyDraft}
	for _, key := range wipe {
		if err := h.backend.Delete(key); err != nil {
			t.Fatal(err)
		}
	}

	state = runCommands(t, h.ctrl, ImportBackup{})
	if state.Err != "" || state.Notice != msgImported {
		t.Fatalf("import failed: err=%q notice=%q", state.Err, state.Notice)
	}
	if len(state.History) != len(before.History) || state.History[0].ID != before.History[0].ID {
		t.Fatalf("history not restored")
	}
	if len(state.PlanHistory) != 1 || state.PlanHistory[0].ID != before.PlanHistory[0].ID {
		t.Fatalf("plans not restored")
	}
	if !sameIDs(state.Draft, before.Draft) {
		t.Fatalf("draft not restored")
	}
	if _, ok, _ := h.store.FindUser("ana@x.com"); !ok {
		t.Fatalf("users not restored")
	}
	if state.User == nil {
		t.Fatalf("session must survive an import")
	}
}

func TestImportMalformedBackupFails(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	if err := os.WriteFile(filepath.Join(h.backups, "backup_audit_2025-01-01.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	state := runCommands(t, h.ctrl, ImportBackup{Source: "backup_audit_2025-01-01.json"})
	if state.Err != msgImportFailed {
		t.Fatalf("err = %q", state.Err)
	}

	state = runCommands(t, h.ctrl, ImportBackup{Source: "missing.json"})
	if state.Err != msgImportFailed {
		t.Fatalf("err = %q", state.Err)
	}
}

func TestImportWithoutBackups(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	state := runCommands(t, h.ctrl, ImportBackup{})
	if state.Err != msgNoBackup {
		t.Fatalf("err = %q", state.Err)
	}
}

func TestExportReport(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	if h.ctrl.Dispatch(ExportReport{Format: export.FormatXLSX}) != nil {
		t.Fatalf("export without an open report must be ignored")
	}
	runCommands(t, h.ctrl, SubmitSingle{Observation: audit.Observation{Description: "x"}})
	state := runCommands(t, h.ctrl, ExportReport{Format: export.FormatDOCX})
	if state.LastExport == "" || filepath.Base(state.LastExport) != "Report_"+state.Result.ID+".docx" {
		t.Fatalf("last export = %q", state.LastExport)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	runCommands(t, h.ctrl, SaveObservation{Observation: audit.Observation{Description: "a", Images: []string{"img"}}})
	snap := h.ctrl.Snapshot()
	snap.Draft[0].Images[0] = "mutated"
	snap.User.Name = "mutated"
	again := h.ctrl.Snapshot()
	if again.Draft[0].Images[0] != "img" || again.User.Name != "Admin" {
		t.Fatalf("snapshot shares memory with controller state")
	}
}

func TestViewNames(t *testing.T) {
	cases := map[View]string{
		ViewLogin:          "login",
		ViewCaptureSummary: "capture_summary",
		ViewPlanReview:     "plan_review",
		ViewPlaceholder:    "placeholder",
		View(99):           "unknown",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Fatalf("View(%d).String() = %q, want %q", v, got, want)
		}
	}
}
