package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/annafiu/twabillsplitter/internal/calculator"
	"github.com/annafiu/twabillsplitter/internal/models"
)

var (
	ErrIncompleteAssignment = errors.New("every item must be assigned to a person")
	ErrUnknownItem          = errors.New("unknown item")
	ErrUnknownPerson        = errors.New("unknown person")
	ErrInvalidStep          = errors.New("action not allowed at this step")
	ErrMissingID            = errors.New("missing id")
	ErrEmptyName            = errors.New("name must not be empty")
	ErrNoReceipt            = errors.New("no receipt draft")
	ErrUnknownAction        = errors.New("unknown action")
)

// Reduce applies action to state and returns the resulting state. The input
// is never modified. A result for a superseded upload returns state
// unchanged, with the same Version.
func Reduce(state State, action Action) (State, error) {
	if isStale(state, action) {
		return state, nil
	}

	next := state.Clone()
	if err := apply(&next, action); err != nil {
		return state, fmt.Errorf("%s: %w", ActionName(action), err)
	}
	next.Version = state.Version + 1
	return next, nil
}

func isStale(s State, action Action) bool {
	switch a := action.(type) {
	case ExtractionSucceeded:
		return a.UploadID == "" || a.UploadID != s.PendingUpload
	case ExtractionFailed:
		return a.UploadID == "" || a.UploadID != s.PendingUpload
	}
	return false
}

func apply(s *State, action Action) error {
	switch a := action.(type) {
	case BeginUpload:
		if s.Step != StepUpload {
			return ErrInvalidStep
		}
		if a.UploadID == "" {
			return ErrMissingID
		}
		s.PendingUpload = a.UploadID
		s.PendingDigest = a.Digest
		s.LastError = ""

	case ExtractionSucceeded:
		receipt := a.Receipt.Clone()
		s.Receipt = &receipt
		s.SourceDigest = s.PendingDigest
		s.PendingUpload = ""
		s.PendingDigest = ""
		s.LastError = ""
		clear(s.Assignments)
		s.Step = StepVerify

	case ExtractionFailed:
		s.PendingUpload = ""
		s.PendingDigest = ""
		s.LastError = a.Message

	case StartManualEntry:
		if s.Step != StepUpload {
			return ErrInvalidStep
		}
		// An extraction still in flight becomes stale.
		s.PendingUpload = ""
		s.PendingDigest = ""
		s.LastError = ""
		if s.Receipt == nil {
			s.Receipt = &models.Receipt{Items: []models.ReceiptItem{}}
			s.SourceDigest = ""
		}
		s.Step = StepVerify

	case UpdateReceipt:
		if err := requireDraft(s); err != nil {
			return err
		}
		s.Receipt.MerchantName = a.Receipt.MerchantName
		s.Receipt.Date = a.Receipt.Date
		s.Receipt.Subtotal = a.Receipt.Subtotal
		s.Receipt.TotalDiscount = a.Receipt.TotalDiscount
		s.Receipt.DeliveryFee = a.Receipt.DeliveryFee
		s.Receipt.ServiceFee = a.Receipt.ServiceFee
		s.Receipt.Tax = a.Receipt.Tax

	case AddItem:
		if err := requireDraft(s); err != nil {
			return err
		}
		if a.Item.ID == "" {
			return ErrMissingID
		}
		if s.Receipt.FindItem(a.Item.ID) >= 0 {
			return fmt.Errorf("item %s already exists", a.Item.ID)
		}
		s.Receipt.Items = append(s.Receipt.Items, a.Item)

	case UpdateItem:
		if err := requireDraft(s); err != nil {
			return err
		}
		i := s.Receipt.FindItem(a.Item.ID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownItem, a.Item.ID)
		}
		s.Receipt.Items[i] = a.Item

	case DeleteItem:
		if err := requireDraft(s); err != nil {
			return err
		}
		i := s.Receipt.FindItem(a.ItemID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownItem, a.ItemID)
		}
		s.Receipt.Items = append(s.Receipt.Items[:i], s.Receipt.Items[i+1:]...)
		s.Assignments.Unassign(a.ItemID)

	case ConfirmReceipt:
		if err := requireDraft(s); err != nil {
			return err
		}
		s.Receipt.Items = calculator.Explode(s.Receipt.Items)
		for itemID := range s.Assignments {
			if s.Receipt.FindItem(itemID) < 0 {
				s.Assignments.Unassign(itemID)
			}
		}
		s.Step = StepAssign

	case AddPerson:
		if s.Step != StepVerify && s.Step != StepAssign {
			return ErrInvalidStep
		}
		if a.Person.ID == "" {
			return ErrMissingID
		}
		name := strings.TrimSpace(a.Person.Name)
		if name == "" {
			return ErrEmptyName
		}
		if s.FindPerson(a.Person.ID) >= 0 {
			return fmt.Errorf("person %s already exists", a.Person.ID)
		}
		s.People = append(s.People, models.Person{ID: a.Person.ID, Name: name})

	case RenamePerson:
		if s.Step != StepVerify && s.Step != StepAssign {
			return ErrInvalidStep
		}
		i := s.FindPerson(a.PersonID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownPerson, a.PersonID)
		}
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return ErrEmptyName
		}
		s.People[i].Name = name

	case RemovePerson:
		if s.Step != StepVerify && s.Step != StepAssign {
			return ErrInvalidStep
		}
		i := s.FindPerson(a.PersonID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownPerson, a.PersonID)
		}
		s.People = append(s.People[:i], s.People[i+1:]...)
		s.Assignments.UnassignAllFor(a.PersonID)

	case AssignItem:
		if err := requireAssigning(s); err != nil {
			return err
		}
		if s.Receipt.FindItem(a.ItemID) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownItem, a.ItemID)
		}
		if s.FindPerson(a.PersonID) < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownPerson, a.PersonID)
		}
		s.Assignments.Assign(a.ItemID, a.PersonID)

	case UnassignItem:
		if s.Step != StepAssign {
			return ErrInvalidStep
		}
		s.Assignments.Unassign(a.ItemID)

	case ShowResult:
		if err := requireAssigning(s); err != nil {
			return err
		}
		if !s.Assignments.IsComplete(s.Receipt.Items) {
			return ErrIncompleteAssignment
		}
		s.Step = StepResult

	case GoToStep:
		if !a.Step.Valid() || !a.Step.Before(s.Step) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStep, s.Step, a.Step)
		}
		s.Step = a.Step

	case Reset:
		*s = New(s.ID, s.CreatedAt)

	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
	return nil
}

// requireDraft allows draft edits only while verifying.
func requireDraft(s *State) error {
	if s.Step != StepVerify {
		return ErrInvalidStep
	}
	if s.Receipt == nil {
		return ErrNoReceipt
	}
	return nil
}

func requireAssigning(s *State) error {
	if s.Step != StepAssign {
		return ErrInvalidStep
	}
	if s.Receipt == nil {
		return ErrNoReceipt
	}
	return nil
}
