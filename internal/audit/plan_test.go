package audit

import "testing"

func intPtr(v int) *int { return &v }

func TestRiskScoreBands(t *testing.T) {
	cases := []struct {
		name      string
		item      AuditPlanItem
		wantScore int
		wantOK    bool
		wantBand  RiskBand
	}{
		{"high", AuditPlanItem{Category: CategoryRisk, Probability: intPtr(4), Impact: intPtr(4)}, 16, true, BandHigh},
		{"medium", AuditPlanItem{Probability: intPtr(3), Impact: intPtr(3)}, 9, true, BandMedium},
		{"low", AuditPlanItem{Category: CategoryRisk, Probability: intPtr(2), Impact: intPtr(2)}, 4, true, BandLow},
		{"unscored", AuditPlanItem{Category: CategorySampling}, 0, false, BandUnscored},
	}
	for _, tc := range cases {
		score, ok := tc.item.RiskScore()
		if ok != tc.wantOK || score != tc.wantScore {
			t.Fatalf("%s: score = %d/%v, want %d/%v", tc.name, score, ok, tc.wantScore, tc.wantOK)
		}
		if got := tc.item.Band(); got != tc.wantBand {
			t.Fatalf("%s: band = %v, want %v", tc.name, got, tc.wantBand)
		}
	}
	if got := BandFor(HighRiskThreshold); got != BandHigh {
		t.Fatalf("threshold band = %v, want high", got)
	}
	if got := BandFor(HighRiskThreshold - 1); got != BandMedium {
		t.Fatalf("below threshold band = %v, want medium", got)
	}
}

func TestPlanCloneDoesNotShareScores(t *testing.T) {
	plan := AuditPlan{Items: []AuditPlanItem{{ID: "a", Probability: intPtr(2), Impact: intPtr(5), Selected: true}, {ID: "b"}}}
	cp := plan.Clone()
	*cp.Items[0].Probability = 5
	cp.Items[1].Selected = true

	if *plan.Items[0].Probability != 2 {
		t.Fatalf("clone shares probability pointer")
	}
	if got := len(plan.SelectedItems()); got != 1 {
		t.Fatalf("original selected = %d, want 1", got)
	}
	if got := len(cp.SelectedItems()); got != 2 {
		t.Fatalf("clone selected = %d, want 2", got)
	}
}

func TestParseRating(t *testing.T) {
	cases := map[string]Rating{
		" critical ": RatingCritical,
		"Crítica":    RatingCritical,
		"Alta":       RatingHigh,
		"MEDIUM":     RatingMedium,
		"baja":       RatingLow,
	}
	for in, want := range cases {
		got, err := ParseRating(in)
		if err != nil || got != want {
			t.Fatalf("ParseRating(%q) = %q, %v; want %q", in, got, err, want)
		}
		if !got.IsValid() {
			t.Fatalf("parsed rating %q is not valid", got)
		}
	}
	if _, err := ParseRating("severe"); err == nil {
		t.Fatalf("expected error for unknown rating")
	}
	if Rating("severe").IsValid() {
		t.Fatalf("unknown rating reported valid")
	}
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"fraud":      CategoryFraud,
		" Muestreo ": CategorySampling,
		"Riesgo":     CategoryRisk,
	}
	for in, want := range cases {
		got, err := ParseCategory(in)
		if err != nil || got != want {
			t.Fatalf("ParseCategory(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseCategory("control"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
	if Category("control").IsValid() {
		t.Fatalf("unknown category reported valid")
	}
}
