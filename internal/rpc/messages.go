package rpc

import (
	"github.com/annafiu/twabillsplitter/internal/models"
	"github.com/annafiu/twabillsplitter/internal/session"
)

type CreateSessionRequest struct{}

type CreateSessionResponse struct {
	// Token must be sent as "Authorization: Bearer <token>" on every other call.
	Token   string         `json:"token"`
	Session *session.State `json:"session"`
}

type GetSessionRequest struct{}

type GetSessionResponse struct {
	Session *session.State `json:"session"`
}

type DeleteSessionRequest struct{}

type DeleteSessionResponse struct{}

type ExtractReceiptRequest struct {
	// Image is the raw photo or PDF (base64 in JSON).
	Image []byte `json:"image"`
	// MimeType may be empty; the type is then sniffed from the content.
	MimeType string `json:"mimeType"`
}

type ExtractReceiptResponse struct {
	Session *session.State `json:"session"`
	// Reused is true when the image matched the current draft and no
	// extraction ran.
	Reused bool `json:"reused"`
}

// Action types accepted by Dispatch.
const (
	ActionStartManualEntry = "start_manual_entry"
	ActionUpdateReceipt    = "update_receipt"
	ActionAddItem          = "add_item"
	ActionUpdateItem       = "update_item"
	ActionDeleteItem       = "delete_item"
	ActionConfirmReceipt   = "confirm_receipt"
	ActionAddPerson        = "add_person"
	ActionRenamePerson     = "rename_person"
	ActionRemovePerson     = "remove_person"
	ActionAssignItem       = "assign_item"
	ActionUnassignItem     = "unassign_item"
	ActionShowResult       = "show_result"
	ActionGoToStep         = "go_to_step"
	ActionReset            = "reset"
)

// Action is the wire form of a user action. Type selects which of the other
// fields are read.
type Action struct {
	Type     string              `json:"type"`
	Receipt  *models.Receipt     `json:"receipt,omitempty"`
	Item     *models.ReceiptItem `json:"item,omitempty"`
	ItemID   string              `json:"itemId,omitempty"`
	PersonID string              `json:"personId,omitempty"`
	Name     string              `json:"name,omitempty"`
	Step     string              `json:"step,omitempty"`
}

type DispatchRequest struct {
	// ExpectedVersion is the session version the action was based on.
	// Zero skips the check.
	ExpectedVersion int64  `json:"expectedVersion"`
	Action          Action `json:"action"`
}

type DispatchResponse struct {
	Session *session.State `json:"session"`
}

// CalculateSplitRequest computes a split without a session.
type CalculateSplitRequest struct {
	Receipt     models.Receipt    `json:"receipt"`
	People      []models.Person   `json:"people"`
	Assignments map[string]string `json:"assignments"`
	// Explode splits multi-quantity items before allocating.
	Explode bool `json:"explode"`
}

type CalculateSplitResponse struct {
	Allocation models.Allocation `json:"allocation"`
}

type GetBreakdownRequest struct{}

type GetBreakdownResponse struct {
	Allocation models.Allocation `json:"allocation"`
	GrandTotal float64           `json:"grandTotal"`
	// SubtotalMismatch is items total minus receipt subtotal, 0 within tolerance.
	SubtotalMismatch float64 `json:"subtotalMismatch"`
}

type GetSummaryRequest struct{}

type GetSummaryResponse struct {
	Text string `json:"text"`
}
