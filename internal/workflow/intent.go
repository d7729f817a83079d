package workflow

import (
	"context"

	"github.com/kingrea/field-audit/internal/audit"
	"github.com/kingrea/field-audit/internal/export"
	"github.com/kingrea/field-audit/internal/generator"
)

// Intent is a request to change state. The set is closed: only types in this
// package implement it.
type Intent interface {
	intent()
}

// Command is deferred work started by Dispatch. It runs off the update loop
// and reports back with a completion intent that must be dispatched in turn.
type Command func(ctx context.Context) Intent

// Boot restores a persisted login on start-up.
type Boot struct{}

// ToggleRegister flips the login form between login and registration.
type ToggleRegister struct{}

// SubmitCredentials logs in, or registers when the form is in registration mode.
type SubmitCredentials struct {
	Email    string
	Name     string
	Password string
}

// Navigate moves to another view.
type Navigate struct{ To View }

// OpenCapture starts capturing a new observation.
type OpenCapture struct{}

// EditObservation reopens a draft observation in the capture view.
type EditObservation struct{ ID string }

// SaveObservation adds or replaces an observation in the draft.
type SaveObservation struct{ Observation audit.Observation }

// DeleteObservation removes an observation from the draft.
type DeleteObservation struct{ ID string }

// SubmitDraft sends the whole draft session to the report generator.
type SubmitDraft struct{}

// SubmitSingle sends one observation to the report generator, leaving the
// draft session alone.
type SubmitSingle struct{ Observation audit.Observation }

// ReportFinished carries the report generator's outcome.
type ReportFinished struct {
	Report    audit.SavedReport
	Err       error
	FromDraft bool
}

// CancelLoading drops the loading flag. The outstanding call is not aborted.
type CancelLoading struct{}

// GeneratePlan asks the plan generator for a plan.
type GeneratePlan struct {
	Process string
	Context string
}

// PlanFinished carries the plan generator's outcome.
type PlanFinished struct {
	Process string
	Context string
	Draft   generator.PlanDraft
	Err     error
}

// TogglePlanItem flips whether a plan item is in scope.
type TogglePlanItem struct{ ID string }

// ConfirmPlan saves the plan under review.
type ConfirmPlan struct{}

// RedesignPlan returns to the plan input, keeping the plan to prefill it.
type RedesignPlan struct{}

// OpenReport shows a report from history.
type OpenReport struct{ ID string }

// OpenPlan shows a plan from history.
type OpenPlan struct{ ID string }

// DeleteReport removes a report from history.
type DeleteReport struct{ ID string }

// DeletePlan removes a plan from history.
type DeletePlan struct{ ID string }

// ExportBackup writes a backup bundle to the backup sink.
type ExportBackup struct{}

// BackupExported carries the outcome of ExportBackup.
type BackupExported struct {
	Location string
	Err      error
}

// ImportBackup restores a bundle from the backup sink. An empty Source picks
// the latest backup.
type ImportBackup struct{ Source string }

// BackupLoaded carries the bundle read by ImportBackup.
type BackupLoaded struct {
	Source string
	Data   []byte
	Err    error
}

// ExportReport writes the open report as a file.
type ExportReport struct{ Format export.Format }

// ReportExported carries the outcome of ExportReport.
type ReportExported struct {
	Path string
	Err  error
}

// DismissError clears the error banner.
type DismissError struct{}

// Logout ends the session.
type Logout struct{}

func (Boot) intent()              {}
func (ToggleRegister) intent()    {}
func (SubmitCredentials) intent() {}
func (Navigate) intent()          {}
func (OpenCapture) intent()       {}
func (EditObservation) intent()   {}
func (SaveObservation) intent()   {}
func (DeleteObservation) intent() {}
func (SubmitDraft) intent()       {}
func (SubmitSingle) intent()      {}
func (ReportFinished) intent()    {}
func (CancelLoading) intent()     {}
func (GeneratePlan) intent()      {}
func (PlanFinished) intent()      {}
func (TogglePlanItem) intent()    {}
func (ConfirmPlan) intent()       {}
func (RedesignPlan) intent()      {}
func (OpenReport) intent()        {}
func (OpenPlan) intent()          {}
func (DeleteReport) intent()      {}
func (DeletePlan) intent()        {}
func (ExportBackup) intent()      {}
func (BackupExported) intent()    {}
func (ImportBackup) intent()      {}
func (BackupLoaded) intent()      {}
func (ExportReport) intent()      {}
func (ReportExported) intent()    {}
func (DismissError) intent()      {}
func (Logout) intent()            {}
