package session

import "github.com/annafiu/twabillsplitter/internal/models"

// Action is a change requested by the user or by a finished extraction.
type Action interface {
	actionName() string
}

// BeginUpload records an extraction in flight. A later upload supersedes it.
type BeginUpload struct {
	UploadID string
	Digest   string
}

// ExtractionSucceeded delivers the draft for UploadID.
type ExtractionSucceeded struct {
	UploadID string
	Receipt  models.Receipt
}

// ExtractionFailed delivers the user-facing failure for UploadID.
type ExtractionFailed struct {
	UploadID string
	Message  string
}

// StartManualEntry skips extraction and opens an empty draft.
type StartManualEntry struct{}

// UpdateReceipt replaces the header fields of the draft. Items are kept.
type UpdateReceipt struct {
	Receipt models.Receipt
}

type AddItem struct {
	Item models.ReceiptItem
}

type UpdateItem struct {
	Item models.ReceiptItem
}

type DeleteItem struct {
	ItemID string
}

// ConfirmReceipt explodes the verified items and moves on to assignment.
type ConfirmReceipt struct{}

type AddPerson struct {
	Person models.Person
}

type RenamePerson struct {
	PersonID string
	Name     string
}

// RemovePerson drops the person and every assignment to them.
type RemovePerson struct {
	PersonID string
}

type AssignItem struct {
	ItemID   string
	PersonID string
}

type UnassignItem struct {
	ItemID string
}

// ShowResult moves to the result step once every item is assigned.
type ShowResult struct{}

// GoToStep navigates back to an earlier step.
type GoToStep struct {
	Step Step
}

// Reset discards everything and starts over.
type Reset struct{}

func (BeginUpload) actionName() string         { return "begin_upload" }
func (ExtractionSucceeded) actionName() string { return "extraction_succeeded" }
func (ExtractionFailed) actionName() string    { return "extraction_failed" }
func (StartManualEntry) actionName() string    { return "start_manual_entry" }
func (UpdateReceipt) actionName() string       { return "update_receipt" }
func (AddItem) actionName() string             { return "add_item" }
func (UpdateItem) actionName() string          { return "update_item" }
func (DeleteItem) actionName() string          { return "delete_item" }
func (ConfirmReceipt) actionName() string      { return "confirm_receipt" }
func (AddPerson) actionName() string           { return "add_person" }
func (RenamePerson) actionName() string        { return "rename_person" }
func (RemovePerson) actionName() string        { return "remove_person" }
func (AssignItem) actionName() string          { return "assign_item" }
func (UnassignItem) actionName() string        { return "unassign_item" }
func (ShowResult) actionName() string          { return "show_result" }
func (GoToStep) actionName() string            { return "go_to_step" }
func (Reset) actionName() string               { return "reset" }

// ActionName returns a stable name for logging.
func ActionName(a Action) string {
	if a == nil {
		return "none"
	}
	return a.actionName()
}
