// Package session holds the per-user flow state of a bill split: the
// receipt draft, the people and who had what. State is immutable; every
// change goes through Reduce and yields a new value.
package session

import (
	"time"

	"github.com/annafiu/twabillsplitter/internal/assignment"
	"github.com/annafiu/twabillsplitter/internal/calculator"
	"github.com/annafiu/twabillsplitter/internal/models"
)

// Step is a screen of the flow. Steps are ordered.
type Step string

const (
	StepUpload Step = "upload"
	StepVerify Step = "verify"
	StepAssign Step = "assign"
	StepResult Step = "result"
)

var stepOrder = map[Step]int{
	StepUpload: 0,
	StepVerify: 1,
	StepAssign: 2,
	StepResult: 3,
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := stepOrder[s]
	return ok
}

// Before reports whether s comes strictly before other.
func (s Step) Before(other Step) bool {
	return stepOrder[s] < stepOrder[other]
}

type State struct {
	ID   string `json:"id"`
	Step Step   `json:"step"`

	// Receipt is nil until an extraction succeeds or manual entry starts.
	Receipt *models.Receipt `json:"receipt,omitempty"`

	People      []models.Person `json:"people"`
	Assignments assignment.Map  `json:"assignments"`

	// PendingUpload is the ID of the extraction in flight, if any. Results
	// for any other upload ID are stale and ignored.
	PendingUpload string `json:"pendingUpload,omitempty"`
	PendingDigest string `json:"pendingDigest,omitempty"`

	// SourceDigest identifies the image the current draft was read from.
	SourceDigest string `json:"sourceDigest,omitempty"`

	// LastError is the user-facing message of the last failed extraction.
	LastError string `json:"lastError,omitempty"`

	// Version increases by one with every applied action.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns the initial state of a session.
func New(id string, now time.Time) State {
	return State{
		ID:          id,
		Step:        StepUpload,
		People:      []models.Person{},
		Assignments: assignment.Map{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.Receipt != nil {
		r := s.Receipt.Clone()
		out.Receipt = &r
	}
	out.People = append([]models.Person{}, s.People...)
	out.Assignments = s.Assignments.Clone()
	return out
}

// Extracting reports whether an extraction is in flight.
func (s State) Extracting() bool {
	return s.PendingUpload != ""
}

// HasDraftFor reports whether the current draft was read from the image
// with the given digest.
func (s State) HasDraftFor(digest string) bool {
	return digest != "" && s.Receipt != nil && s.SourceDigest == digest
}

// FindPerson returns the index of the person with the given ID, or -1.
func (s State) FindPerson(personID string) int {
	for i, p := range s.People {
		if p.ID == personID {
			return i
		}
	}
	return -1
}

// Allocation computes the split for the current receipt and assignments.
func (s State) Allocation() models.Allocation {
	if s.Receipt == nil {
		return calculator.Allocate(models.Receipt{}, s.People, s.Assignments)
	}
	return calculator.Allocate(*s.Receipt, s.People, s.Assignments)
}
