package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/annafiu/twabillsplitter/internal/extraction"
	"github.com/annafiu/twabillsplitter/internal/session"
	"github.com/annafiu/twabillsplitter/internal/storage"
)

// toConnectError maps domain errors to Connect codes. Extraction failures
// carry a {kind, message} detail with the user-facing message.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	if kind := extraction.KindOf(err); kind != 0 {
		code := connect.CodeInternal
		switch kind {
		case extraction.KindInput:
			code = connect.CodeInvalidArgument
		case extraction.KindUnavailable:
			code = connect.CodeUnavailable
		}
		out := connect.NewError(code, err)
		detail, detailErr := extractionDetail(kind, extraction.UserMessage(err))
		if detailErr != nil {
			slog.Warn("Failed to build error detail", "error", detailErr)
		} else {
			out.AddDetail(detail)
		}
		return out
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, session.ErrIncompleteAssignment),
		errors.Is(err, session.ErrInvalidStep),
		errors.Is(err, session.ErrNoReceipt):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, session.ErrUnknownItem),
		errors.Is(err, session.ErrUnknownPerson),
		errors.Is(err, session.ErrMissingID),
		errors.Is(err, session.ErrEmptyName),
		errors.Is(err, session.ErrUnknownAction):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func extractionDetail(kind extraction.Kind, message string) (*connect.ErrorDetail, error) {
	detail, err := structpb.NewStruct(map[string]any{
		"kind":    kind.String(),
		"message": message,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewErrorDetail(detail)
}

// ExtractionFailure reads the {kind, message} detail from an ExtractReceipt
// error. ok is false if err carries none.
func ExtractionFailure(err error) (kind, message string, ok bool) {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return "", "", false
	}
	for _, d := range connectErr.Details() {
		v, valueErr := d.Value()
		if valueErr != nil {
			continue
		}
		s, isStruct := v.(*structpb.Struct)
		if !isStruct {
			continue
		}
		fields := s.GetFields()
		return fields["kind"].GetStringValue(), fields["message"].GetStringValue(), true
	}
	return "", "", false
}
