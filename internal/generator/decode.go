package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kingrea/field-audit/internal/audit"
)

const defaultReportTitle = "Informe de Auditoría"

type findingPayload struct {
	Condition          string `json:"condition" validate:"required"`
	Title              string `json:"title" validate:"required"`
	Effect             string `json:"effect" validate:"required"`
	Rating             string `json:"rating" validate:"required,rating"`
	Recommendations    string `json:"recommendations" validate:"required"`
	ActionPlans        string `json:"actionPlans"`
	Responsible        string `json:"responsible" validate:"required"`
	ImplementationDate string `json:"implementationDate" validate:"required"`
}

type reportPayload struct {
	DocCode      string           `json:"docCode" validate:"required"`
	To           string           `json:"to" validate:"required"`
	At           string           `json:"at"`
	Cc           string           `json:"cc"`
	From         string           `json:"from"`
	Subject      string           `json:"subject" validate:"required"`
	GlobalRating string           `json:"globalRating" validate:"required"`
	Findings     []findingPayload `json:"findings" validate:"required,dive"`
}

type planItemPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,category"`
	Probability *int   `json:"probability" validate:"omitempty,min=1,max=5"`
	Impact      *int   `json:"impact" validate:"omitempty,min=1,max=5"`
	Logic       string `json:"logic"`
}

type planPayload struct {
	OverallObjective string            `json:"overallObjective" validate:"required"`
	Items            []planItemPayload `json:"items" validate:"required,min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		_, err := audit.ParseRating(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := audit.ParseCategory(fl.Field().String())
		return err == nil
	})
	return v
}

// decodeReport turns the model's JSON reply into a SavedReport for the given
// observations. The observations are copied so the report owns its evidence.
func decodeReport(text string, observations []audit.Observation, now time.Time) (audit.SavedReport, error) {
	var payload reportPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &payload); err != nil {
		return audit.SavedReport{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := validate.Struct(payload); err != nil {
		return audit.SavedReport{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(payload.Findings) != len(observations) {
		return audit.SavedReport{}, fmt.Errorf("%w: got %d findings for %d observations",
			ErrMisalignedFindings, len(payload.Findings), len(observations))
	}

	findings := make([]audit.AuditFinding, len(payload.Findings))
	for i, f := range payload.Findings {
		rating, _ := audit.ParseRating(f.Rating)
		findings[i] = audit.AuditFinding{
			ID:                 audit.NewID(),
			Condition:          f.Condition,
			Title:              f.Title,
			Effect:             f.Effect,
			Rating:             rating,
			Recommendations:    f.Recommendations,
			ActionPlans:        f.ActionPlans,
			Responsible:        f.Responsible,
			ImplementationDate: f.ImplementationDate,
		}
	}

	title := strings.TrimSpace(payload.Subject)
	if title == "" {
		title = defaultReportTitle
	}
	return audit.SavedReport{
		ID: audit.NewID(),
		ReportHeader: audit.ReportHeader{
			DocCode:      payload.DocCode,
			To:           payload.To,
			At:           payload.At,
			Cc:           payload.Cc,
			From:         payload.From,
			Subject:      payload.Subject,
			GlobalRating: payload.GlobalRating,
		},
		Title:        title,
		Timestamp:    now,
		Observations: audit.CloneObservations(observations),
		Findings:     findings,
	}, nil
}

// decodePlan turns the model's JSON reply into a plan draft. Every item starts
// selected; items without an id get one.
func decodePlan(text string) (PlanDraft, error) {
	var payload planPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &payload); err != nil {
		return PlanDraft{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := validate.Struct(payload); err != nil {
		return PlanDraft{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	items := make([]audit.AuditPlanItem, len(payload.Items))
	seen := map[string]bool{}
	for i, it := range payload.Items {
		category, _ := audit.ParseCategory(it.Category)
		id := strings.TrimSpace(it.ID)
		if id == "" || seen[id] {
			id = audit.NewID()
		}
		seen[id] = true
		items[i] = audit.AuditPlanItem{
			ID:          id,
			Title:       it.Title,
			Description: it.Description,
			Category:    category,
			Selected:    true,
			Logic:       it.Logic,
			Probability: it.Probability,
			Impact:      it.Impact,
		}
	}
	return PlanDraft{OverallObjective: payload.OverallObjective, Items: items}, nil
}
