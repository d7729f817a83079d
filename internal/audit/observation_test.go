package audit

import (
	"bytes"
	"testing"
)

func TestObservationIsEmpty(t *testing.T) {
	if !(Observation{Description: "  "}).IsEmpty() {
		t.Fatalf("blank description should be empty")
	}
	if (Observation{Description: "leak"}).IsEmpty() {
		t.Fatalf("described observation should not be empty")
	}
	if (Observation{Images: []string{"data:image/png;base64,AA=="}}).IsEmpty() {
		t.Fatalf("observation with a photo should not be empty")
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	mime, data, err := ParseDataURL(DataURL("image/png", raw))
	if err != nil {
		t.Fatalf("parse data url: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(data, raw) {
		t.Fatalf("round trip = %q %v, want image/png %v", mime, data, raw)
	}

	for _, bad := range []string{"https://example.com/a.png", "data:image/png,raw"} {
		if _, _, err := ParseDataURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@X.com "); got != "user@x.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
	if got := DefaultName("User@X.com"); got != "user" {
		t.Fatalf("DefaultName = %q", got)
	}
}

func TestRoleIsValid(t *testing.T) {
	for _, r := range []Role{RoleAuditorSenior, RoleAuditManager} {
		if !r.IsValid() {
			t.Fatalf("%q should be valid", r)
		}
	}
	if Role("Becario").IsValid() {
		t.Fatalf("unknown role reported valid")
	}
}
