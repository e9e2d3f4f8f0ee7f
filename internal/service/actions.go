package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/annafiu/twabillsplitter/internal/models"
	"github.com/annafiu/twabillsplitter/internal/rpc"
	"github.com/annafiu/twabillsplitter/internal/session"
)

// toSessionAction converts a wire action. New items and people get an ID
// when the client sent none.
func toSessionAction(a rpc.Action) (session.Action, error) {
	switch a.Type {
	case rpc.ActionStartManualEntry:
		return session.StartManualEntry{}, nil
	case rpc.ActionUpdateReceipt:
		if a.Receipt == nil {
			return nil, fmt.Errorf("%w: %s needs a receipt", session.ErrUnknownAction, a.Type)
		}
		return session.UpdateReceipt{Receipt: *a.Receipt}, nil
	case rpc.ActionAddItem:
		item := models.ReceiptItem{Quantity: 1}
		if a.Item != nil {
			item = *a.Item
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		return session.AddItem{Item: item}, nil
	case rpc.ActionUpdateItem:
		if a.Item == nil {
			return nil, fmt.Errorf("%w: %s needs an item", session.ErrUnknownAction, a.Type)
		}
		return session.UpdateItem{Item: *a.Item}, nil
	case rpc.ActionDeleteItem:
		return session.DeleteItem{ItemID: a.ItemID}, nil
	case rpc.ActionConfirmReceipt:
		return session.ConfirmReceipt{}, nil
	case rpc.ActionAddPerson:
		personID := a.PersonID
		if personID == "" {
			personID = uuid.New().String()
		}
		return session.AddPerson{Person: models.Person{ID: personID, Name: a.Name}}, nil
	case rpc.ActionRenamePerson:
		return session.RenamePerson{PersonID: a.PersonID, Name: a.Name}, nil
	case rpc.ActionRemovePerson:
		return session.RemovePerson{PersonID: a.PersonID}, nil
	case rpc.ActionAssignItem:
		return session.AssignItem{ItemID: a.ItemID, PersonID: a.PersonID}, nil
	case rpc.ActionUnassignItem:
		return session.UnassignItem{ItemID: a.ItemID}, nil
	case rpc.ActionShowResult:
		return session.ShowResult{}, nil
	case rpc.ActionGoToStep:
		return session.GoToStep{Step: session.Step(a.Step)}, nil
	case rpc.ActionReset:
		return session.Reset{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", session.ErrUnknownAction, a.Type)
	}
}
