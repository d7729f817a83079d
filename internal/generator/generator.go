// Package generator drafts audit reports and audit plans with a generative
// model. Callers depend on the ReportGenerator and PlanGenerator interfaces;
// Gemini is the production implementation.
package generator

import (
	"context"
	"errors"

	"github.com/kingrea/field-audit/internal/audit"
)

var (
	// ErrMissingCredential is returned before any network call when no API key is configured.
	ErrMissingCredential = errors.New("generator: api credential not configured")
	// ErrMalformedResponse wraps a model reply that is not valid JSON or fails validation.
	ErrMalformedResponse = errors.New("generator: malformed response")
	// ErrMisalignedFindings is returned when the model returns a finding count
	// that differs from the observation count.
	ErrMisalignedFindings = errors.New("generator: findings do not match observations")
	// ErrProcessRequired is returned when a plan is requested without a process name.
	ErrProcessRequired = errors.New("generator: process name is required")
	// ErrNoObservations is returned when a report is requested for an empty batch.
	ErrNoObservations = errors.New("generator: no observations to report on")
)

// ReportRequest is an ordered batch of observations to turn into a report.
type ReportRequest struct {
	Observations []audit.Observation
}

// ReportGenerator turns field evidence into a formal report. The returned
// report holds one finding per observation, in the same order.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, req ReportRequest) (audit.SavedReport, error)
}

// PlanRequest names the process to plan an audit for.
type PlanRequest struct {
	Process string
	Context string
}

// PlanDraft is the generated part of a plan. The workflow stamps id, title,
// auditor and timestamp when it adopts the draft.
type PlanDraft struct {
	OverallObjective string
	Items            []audit.AuditPlanItem
}

// PlanGenerator drafts a risk-based audit plan.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (PlanDraft, error)
}
