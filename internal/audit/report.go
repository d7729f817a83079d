package audit

import (
	"fmt"
	"strings"
	"time"
)

// Rating grades a single finding.
type Rating string

const (
	RatingLow      Rating = "Baja"
	RatingMedium   Rating = "Media"
	RatingHigh     Rating = "Alta"
	RatingCritical Rating = "Crítica"
)

// Ratings lists every rating from least to most severe.
var Ratings = []Rating{RatingLow, RatingMedium, RatingHigh, RatingCritical}

// IsValid reports whether r is one of the four known ratings.
func (r Rating) IsValid() bool {
	for _, known := range Ratings {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRating accepts the stored label or its English name, case-insensitively.
func ParseRating(value string) (Rating, error) {
	if r := Rating(strings.TrimSpace(value)); r.IsValid() {
		return r, nil
	}
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "baja", "low":
		return RatingLow, nil
	case "media", "medium":
		return RatingMedium, nil
	case "alta", "high":
		return RatingHigh, nil
	case "crítica", "critica", "critical":
		return RatingCritical, nil
	}
	return "", fmt.Errorf("audit: unknown rating %q", value)
}

// AuditFinding is one generated row of an audit report.
type AuditFinding struct {
	ID                 string `json:"id"`
	Condition          string `json:"condition"`
	Title              string `json:"title"`
	Effect             string `json:"effect"`
	Rating             Rating `json:"rating"`
	Recommendations    string `json:"recommendations"`
	ActionPlans        string `json:"actionPlans"`
	Responsible        string `json:"responsible"`
	ImplementationDate string `json:"implementationDate"`
}

// ReportHeader carries the memo routing block of a report.
type ReportHeader struct {
	DocCode      string `json:"docCode,omitempty"`
	To           string `json:"to,omitempty"`
	At           string `json:"at,omitempty"`
	Cc           string `json:"cc,omitempty"`
	From         string `json:"from,omitempty"`
	Subject      string `json:"subject,omitempty"`
	GlobalRating string `json:"globalRating,omitempty"`
}

// SavedReport is a generated report together with the evidence behind it.
// Findings[i] was produced from Observations[i].
type SavedReport struct {
	ID string `json:"id"`
	ReportHeader
	Title        string         `json:"title"`
	Timestamp    time.Time      `json:"timestamp"`
	Observations []Observation  `json:"observations"`
	Findings     []AuditFinding `json:"findings"`
	Auditor      string         `json:"auditor,omitempty"`
}

// Clone returns a deep copy of the report.
func (r SavedReport) Clone() SavedReport {
	r.Observations = CloneObservations(r.Observations)
	r.Findings = append([]AuditFinding(nil), r.Findings...)
	return r
}

// CheckAlignment verifies the one-finding-per-observation invariant.
func (r SavedReport) CheckAlignment() error {
	if len(r.Findings) != len(r.Observations) {
		return fmt.Errorf("audit: report %s has %d findings for %d observations", r.ID, len(r.Findings), len(r.Observations))
	}
	return nil
}

// Annexes returns the annex labels for each observation's photos, indexed
// like Observations.
func (r SavedReport) Annexes() [][]string {
	out := make([][]string, len(r.Observations))
	for i, obs := range r.Observations {
		labels := make([]string, len(obs.Images))
		for j := range obs.Images {
			labels[j] = AnnexRef(i+1, j+1)
		}
		out[i] = labels
	}
	return out
}
