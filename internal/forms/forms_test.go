package forms

import (
	"testing"

	"github.com/san-kum/pendlab/internal/chain"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		value float64
	}{
		{"blank means no change", "", 0},
		{"plain number", "200", 200},
		{"decimal", "0.314", 0.314},
		{"negative", "-1.5", -1.5},
		{"garbage is silently no change", "abc", 0},
		{"trailing junk", "12x", 0},
		{"infinity is no change", "Inf", 0},
		{"nan is no change", "NaN", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseField(tt.in)
			switch tt.in {
			case "200", "0.314", "-1.5":
				if got == nil {
					t.Fatalf("expected %v, got nil", tt.value)
				}
				if *got != tt.value {
					t.Errorf("expected %v, got %v", tt.value, *got)
				}
			default:
				if got != nil {
					t.Errorf("expected nil, got %v", *got)
				}
			}
		})
	}
}

func snapWith(bobs ...chain.Bob) chain.Snapshot {
	return chain.Snapshot{Bobs: bobs}
}

func TestReconcileGrowsAndShrinks(t *testing.T) {
	s := NewStore()
	a, b := chain.NewBob(100, 1, 0, 0), chain.NewBob(100, 1, 0, 0)

	s.Reconcile(snapWith(a, b))
	if s.Len() != 2 {
		t.Fatalf("expected 2 forms, got %d", s.Len())
	}

	c := chain.NewBob(100, 1, 0, 0)
	s.Reconcile(snapWith(a, b, c))
	if s.Len() != 3 {
		t.Fatalf("expected 3 forms after growth, got %d", s.Len())
	}
	if !s.Form(c.ID).Blank() {
		t.Error("new bob must start with a blank form")
	}

	s.Reconcile(snapWith(a))
	if s.Len() != 1 {
		t.Fatalf("expected 1 form after shrink, got %d", s.Len())
	}
	if s.Form(b.ID) != nil || s.Form(c.ID) != nil {
		t.Error("forms for vanished bobs must be dropped")
	}
}

func TestReconcileKeepsEditsWithTheirBob(t *testing.T) {
	s := NewStore()
	a, b, c := chain.NewBob(100, 1, 0, 0), chain.NewBob(100, 1, 0, 0), chain.NewBob(100, 1, 0, 0)
	s.Reconcile(snapWith(a, b, c))

	s.Form(c.ID).Length = "250"

	// remove the middle bob; c shifts from position 2 to 1
	s.Reconcile(snapWith(a, c))

	if got := s.Form(c.ID).Length; got != "250" {
		t.Errorf("edit must follow the bob through the shift, got %q", got)
	}
	if s.Form(b.ID) != nil {
		t.Error("removed bob's form must be gone")
	}
}

func TestOverridesAndClearSubmitted(t *testing.T) {
	f := &EditForm{Length: "200", Mass: "oops", Theta: "", Omega: "1.5"}

	length, mass, theta, omega := f.Overrides()
	if length == nil || *length != 200 {
		t.Error("length should parse")
	}
	if mass != nil || theta != nil {
		t.Error("unparsable and blank fields must be nil")
	}
	if omega == nil || *omega != 1.5 {
		t.Error("omega should parse")
	}

	// a confirmed modify clears only what was sent
	f.ClearSubmitted(length, mass, theta, omega)
	if f.Length != "" || f.Omega != "" {
		t.Error("submitted fields must be cleared on success")
	}
	if f.Mass != "oops" {
		t.Error("unsent fields must be preserved for the user")
	}
}
