// Package forms keeps the per-bob edit forms in sync with the dynamically
// changing bob list. Forms are keyed by bob identity rather than position,
// so removing a middle bob drops exactly that bob's form and in-flight
// edits for the bobs after it stay attached to the right bob.
package forms

import (
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/san-kum/pendlab/internal/chain"
)

// Field indices into an EditForm, in display order.
const (
	FieldLength = iota
	FieldMass
	FieldTheta
	FieldOmega
	NumFields
)

// EditForm holds the user's override strings for one bob. Empty means "no
// change requested".
type EditForm struct {
	Length string
	Mass   string
	Theta  string
	Omega  string
}

func (f *EditForm) Field(i int) *string {
	switch i {
	case FieldLength:
		return &f.Length
	case FieldMass:
		return &f.Mass
	case FieldTheta:
		return &f.Theta
	case FieldOmega:
		return &f.Omega
	}
	return nil
}

func (f *EditForm) Blank() bool {
	return f.Length == "" && f.Mass == "" && f.Theta == "" && f.Omega == ""
}

// Overrides parses each field into the nullable command parameters. Fields
// the user left blank or filled with something unparsable come back nil.
func (f *EditForm) Overrides() (length, mass, theta, omega *float64) {
	return ParseField(f.Length), ParseField(f.Mass), ParseField(f.Theta), ParseField(f.Omega)
}

// ClearSubmitted blanks exactly the fields that were sent in a confirmed
// modify, leaving anything typed since (or never sent) alone.
func (f *EditForm) ClearSubmitted(length, mass, theta, omega *float64) {
	if length != nil {
		f.Length = ""
	}
	if mass != nil {
		f.Mass = ""
	}
	if theta != nil {
		f.Theta = ""
	}
	if omega != nil {
		f.Omega = ""
	}
}

// ParseField converts an edit string to a nullable number. Blank input and
// anything that does not parse to a finite number both mean "no change";
// invalid input is deliberately silent, never an error. Tests pin this.
func ParseField(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Store owns every live edit form, keyed by bob identity.
type Store struct {
	forms map[uuid.UUID]*EditForm
}

func NewStore() *Store {
	return &Store{forms: make(map[uuid.UUID]*EditForm)}
}

// Reconcile resizes the form set to match the snapshot: a blank form is
// created for each newly appeared bob and forms for vanished bobs are
// dropped, edits included. Forms for surviving bobs are untouched whatever
// their position.
func (s *Store) Reconcile(snap chain.Snapshot) {
	seen := make(map[uuid.UUID]struct{}, len(snap.Bobs))
	for _, b := range snap.Bobs {
		seen[b.ID] = struct{}{}
		if _, ok := s.forms[b.ID]; !ok {
			s.forms[b.ID] = &EditForm{}
		}
	}
	for id := range s.forms {
		if _, ok := seen[id]; !ok {
			delete(s.forms, id)
		}
	}
}

// Form returns the live form for a bob, or nil after the bob vanished.
func (s *Store) Form(id uuid.UUID) *EditForm {
	return s.forms[id]
}

func (s *Store) Len() int { return len(s.forms) }
