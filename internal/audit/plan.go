package audit

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a plan item.
type Category string

const (
	CategoryRisk     Category = "Riesgo"
	CategoryFraud    Category = "Fraude"
	CategorySampling Category = "Muestreo"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRisk, CategoryFraud, CategorySampling:
		return true
	}
	return false
}

// ParseCategory accepts the stored label or its English name, case-insensitively.
func ParseCategory(value string) (Category, error) {
	if c := Category(strings.TrimSpace(value)); c.IsValid() {
		return c, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "riesgo", "risk":
		return CategoryRisk, nil
	case "fraude", "fraud":
		return CategoryFraud, nil
	case "muestreo", "sampling":
		return CategorySampling, nil
	}
	return "", fmt.Errorf("audit: unknown category %q", value)
}

// Risk band thresholds on probability × impact.
const (
	HighRiskThreshold   = 15
	MediumRiskThreshold = 8
)

// RiskBand is the display tier of a scored plan item.
type RiskBand int

const (
	BandUnscored RiskBand = iota
	BandLow
	BandMedium
	BandHigh
)

func (b RiskBand) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMedium:
		return "medium"
	case BandHigh:
		return "high"
	default:
		return "unscored"
	}
}

// BandFor maps a risk score to its display band.
func BandFor(score int) RiskBand {
	switch {
	case score >= HighRiskThreshold:
		return BandHigh
	case score >= MediumRiskThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// AuditPlanItem is one risk, fraud scenario or sampling procedure of a plan.
type AuditPlanItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Selected    bool     `json:"selected"`
	Logic       string   `json:"logic,omitempty"`
	Probability *int     `json:"probability,omitempty"`
	Impact      *int     `json:"impact,omitempty"`
}

// RiskScore returns probability × impact when both are set. The score is
// derived on demand and never persisted.
func (i AuditPlanItem) RiskScore() (int, bool) {
	if i.Probability == nil || i.Impact == nil || *i.Probability == 0 || *i.Impact == 0 {
		return 0, false
	}
	return *i.Probability * *i.Impact, true
}

// Band returns the item's display band.
func (i AuditPlanItem) Band() RiskBand {
	score, ok := i.RiskScore()
	if !ok {
		return BandUnscored
	}
	return BandFor(score)
}

// AuditPlan is an AI-drafted audit strategy for one business process.
type AuditPlan struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Process          string          `json:"process"`
	Context          string          `json:"context"`
	Timestamp        time.Time       `json:"timestamp"`
	OverallObjective string          `json:"overallObjective"`
	Items            []AuditPlanItem `json:"items"`
	Auditor          string          `json:"auditor,omitempty"`
}

// Clone returns a deep copy of the plan.
func (p AuditPlan) Clone() AuditPlan {
	items := make([]AuditPlanItem, len(p.Items))
	for idx, item := range p.Items {
		if item.Probability != nil {
			v := *item.Probability
			item.Probability = &v
		}
		if item.Impact != nil {
			v := *item.Impact
			item.Impact = &v
		}
		items[idx] = item
	}
	p.Items = items
	return p
}

// SelectedItems returns the items the auditor kept in scope.
func (p AuditPlan) SelectedItems() []AuditPlanItem {
	var out []AuditPlanItem
	for _, item := range p.Items {
		if item.Selected {
			out = append(out, item)
		}
	}
	return out
}
