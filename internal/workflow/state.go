package workflow

import "github.com/kingrea/field-audit/internal/audit"

// State is the whole application state. Only the Controller mutates it;
// everything else works on snapshots.
type State struct {
	User        *audit.User
	Draft       []audit.Observation
	Editing     string // id of the draft observation being edited, "" when adding
	Plan        *audit.AuditPlan
	Loading     bool
	Result      *audit.SavedReport
	Err         string
	Notice      string
	Registering bool
	View        View
	History     []audit.SavedReport
	PlanHistory []audit.AuditPlan
	LastExport  string
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Draft = audit.CloneObservations(s.Draft)
	if s.Plan != nil {
		p := s.Plan.Clone()
		out.Plan = &p
	}
	if s.Result != nil {
		r := s.Result.Clone()
		out.Result = &r
	}
	if s.History != nil {
		out.History = make([]audit.SavedReport, len(s.History))
		for i, r := range s.History {
			out.History[i] = r.Clone()
		}
	}
	if s.PlanHistory != nil {
		out.PlanHistory = make([]audit.AuditPlan, len(s.PlanHistory))
		for i, p := range s.PlanHistory {
			out.PlanHistory[i] = p.Clone()
		}
	}
	return out
}

// EditingObservation returns the draft observation being edited, if any.
func (s State) EditingObservation() (audit.Observation, bool) {
	if s.Editing == "" {
		return audit.Observation{}, false
	}
	for _, obs := range s.Draft {
		if obs.ID == s.Editing {
			return obs.Clone(), true
		}
	}
	return audit.Observation{}, false
}
