package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/annafiu/twabillsplitter/internal/assignment"
	"github.com/annafiu/twabillsplitter/internal/calculator"
	"github.com/annafiu/twabillsplitter/internal/extraction"
	"github.com/annafiu/twabillsplitter/internal/metrics"
	"github.com/annafiu/twabillsplitter/internal/middleware"
	"github.com/annafiu/twabillsplitter/internal/models"
	"github.com/annafiu/twabillsplitter/internal/rpc"
	"github.com/annafiu/twabillsplitter/internal/session"
	"github.com/annafiu/twabillsplitter/internal/storage"
	"github.com/annafiu/twabillsplitter/internal/summary"
	"github.com/annafiu/twabillsplitter/internal/token"
)

// subtotalTolerance is the item-sum vs subtotal gap, in rupiah, that is not
// reported as a mismatch.
const subtotalTolerance = 1

// maxWriteAttempts bounds re-reads after a concurrent session write.
const maxWriteAttempts = 3

// Extractor reads a receipt image into a draft.
type Extractor interface {
	Validate(image []byte, mimeType string) (string, error)
	Extract(ctx context.Context, image []byte, mimeType string) (*models.Receipt, error)
}

// SplitService implements the Connect SplitService
type SplitService struct {
	rpc.UnimplementedSplitServiceHandler
	store     storage.Store
	tokens    *token.Manager
	extractor Extractor
	metrics   *metrics.Registry
}

// NewSplitService creates a new SplitService.
func NewSplitService(store storage.Store, tokens *token.Manager, extractor Extractor, m *metrics.Registry) *SplitService {
	return &SplitService{
		store:     store,
		tokens:    tokens,
		extractor: extractor,
		metrics:   m,
	}
}

// CreateSession starts a new bill split and returns its bearer token.
func (s *SplitService) CreateSession(ctx context.Context, req *connect.Request[rpc.CreateSessionRequest]) (*connect.Response[rpc.CreateSessionResponse], error) {
	state := session.New(uuid.New().String(), time.Now())
	if err := s.store.CreateSession(ctx, &state); err != nil {
		slog.Error("CreateSession failed", "error", err)
		return nil, toConnectError(err)
	}

	tok, err := s.tokens.Generate(state.ID)
	if err != nil {
		slog.Error("CreateSession: failed to issue token", "session_id", state.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.metrics.SessionsCreated.Inc()
	slog.Info("Session created", "session_id", state.ID)

	return connect.NewResponse(&rpc.CreateSessionResponse{
		Token:   tok,
		Session: &state,
	}), nil
}

// GetSession returns the caller's session.
func (s *SplitService) GetSession(ctx context.Context, req *connect.Request[rpc.GetSessionRequest]) (*connect.Response[rpc.GetSessionResponse], error) {
	state, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.GetSessionResponse{Session: &state}), nil
}

// DeleteSession discards the caller's session.
func (s *SplitService) DeleteSession(ctx context.Context, req *connect.Request[rpc.DeleteSessionRequest]) (*connect.Response[rpc.DeleteSessionResponse], error) {
	sessionID := middleware.GetSessionID(ctx)
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		slog.Error("DeleteSession failed", "session_id", sessionID, "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Session deleted", "session_id", sessionID)
	return connect.NewResponse(&rpc.DeleteSessionResponse{}), nil
}

// ExtractReceipt reads the uploaded image into the session's draft. The
// upload is recorded before the model is called, so a newer upload or a
// switch to manual entry makes this result stale and it is dropped.
func (s *SplitService) ExtractReceipt(ctx context.Context, req *connect.Request[rpc.ExtractReceiptRequest]) (*connect.Response[rpc.ExtractReceiptResponse], error) {
	sessionID := middleware.GetSessionID(ctx)

	mimeType, err := s.extractor.Validate(req.Msg.Image, req.Msg.MimeType)
	if err != nil {
		slog.Warn("ExtractReceipt rejected upload", "session_id", sessionID, "error", err)
		return nil, toConnectError(err)
	}
	digest := extraction.Digest(req.Msg.Image)
	uploadID := uuid.New().String()

	state, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}

	if state.HasDraftFor(digest) {
		// Same image as the current draft: skip the model and reopen it.
		draft := state.Receipt.Clone()
		state, err = s.apply(ctx, sessionID,
			session.BeginUpload{UploadID: uploadID, Digest: digest},
			session.ExtractionSucceeded{UploadID: uploadID, Receipt: draft},
		)
		if err != nil {
			return nil, err
		}
		slog.Info("ExtractReceipt reused current draft", "session_id", sessionID)
		resp := connect.NewResponse(&rpc.ExtractReceiptResponse{Session: &state, Reused: true})
		s.renewToken(resp.Header(), sessionID)
		return resp, nil
	}

	if _, err := s.apply(ctx, sessionID, session.BeginUpload{UploadID: uploadID, Digest: digest}); err != nil {
		return nil, err
	}

	receipt, extractErr := s.extractor.Extract(ctx, req.Msg.Image, mimeType)
	var result session.Action
	if extractErr != nil {
		result = session.ExtractionFailed{UploadID: uploadID, Message: extraction.UserMessage(extractErr)}
	} else {
		result = session.ExtractionSucceeded{UploadID: uploadID, Receipt: *receipt}
	}

	// The request context may be gone; the outcome is still recorded.
	state, err = s.apply(context.WithoutCancel(ctx), sessionID, result)
	if err != nil {
		return nil, err
	}
	if extractErr != nil {
		return nil, toConnectError(extractErr)
	}
	if state.PendingUpload != "" || state.SourceDigest != digest {
		slog.Info("ExtractReceipt result superseded", "session_id", sessionID, "upload_id", uploadID)
	}

	resp := connect.NewResponse(&rpc.ExtractReceiptResponse{Session: &state})
	s.renewToken(resp.Header(), sessionID)
	return resp, nil
}

// Dispatch applies one user action to the session.
func (s *SplitService) Dispatch(ctx context.Context, req *connect.Request[rpc.DispatchRequest]) (*connect.Response[rpc.DispatchResponse], error) {
	sessionID := middleware.GetSessionID(ctx)

	action, err := toSessionAction(req.Msg.Action)
	if err != nil {
		return nil, toConnectError(err)
	}

	state, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.ExpectedVersion != 0 && req.Msg.ExpectedVersion != state.Version {
		return nil, toConnectError(fmt.Errorf("%w: client has version %d, server %d",
			storage.ErrConflict, req.Msg.ExpectedVersion, state.Version))
	}

	next, err := session.Reduce(state, action)
	if err != nil {
		slog.Warn("Dispatch rejected", "session_id", sessionID, "action", session.ActionName(action), "error", err)
		return nil, toConnectError(err)
	}
	if err := s.store.UpdateSession(ctx, &next, state.Version); err != nil {
		slog.Error("Dispatch failed", "session_id", sessionID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Debug("Dispatch applied",
		"session_id", sessionID,
		"action", session.ActionName(action),
		"step", next.Step,
		"version", next.Version,
	)
	resp := connect.NewResponse(&rpc.DispatchResponse{Session: &next})
	s.renewToken(resp.Header(), sessionID)
	return resp, nil
}

// CalculateSplit computes a split for the given data without a session.
func (s *SplitService) CalculateSplit(ctx context.Context, req *connect.Request[rpc.CalculateSplitRequest]) (*connect.Response[rpc.CalculateSplitResponse], error) {
	receipt := req.Msg.Receipt.Clone()
	if req.Msg.Explode {
		receipt.Items = calculator.Explode(receipt.Items)
	}
	assignments := assignment.Map(req.Msg.Assignments).Clone()

	allocation := calculator.Allocate(receipt, req.Msg.People, assignments)
	for _, r := range allocation.Results {
		slog.Debug("Person split",
			"person", r.Person.Name,
			"subtotal", r.Subtotal,
			"discount", r.Discount,
			"tax", r.Tax,
			"fee", r.Fee,
			"total", r.Total,
		)
	}
	return connect.NewResponse(&rpc.CalculateSplitResponse{Allocation: allocation}), nil
}

// GetBreakdown returns the per-person split of the session's receipt.
func (s *SplitService) GetBreakdown(ctx context.Context, req *connect.Request[rpc.GetBreakdownRequest]) (*connect.Response[rpc.GetBreakdownResponse], error) {
	state, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if state.Receipt == nil {
		return nil, toConnectError(session.ErrNoReceipt)
	}

	allocation := state.Allocation()
	if allocation.UnassignedAmount != 0 {
		slog.Warn("Breakdown has unassigned items",
			"session_id", state.ID,
			"items", len(allocation.UnassignedItems),
			"amount", allocation.UnassignedAmount,
		)
	}
	return connect.NewResponse(&rpc.GetBreakdownResponse{
		Allocation:       allocation,
		GrandTotal:       state.Receipt.GrandTotal(),
		SubtotalMismatch: state.Receipt.SubtotalMismatch(subtotalTolerance),
	}), nil
}

// GetSummary returns the plain-text summary of a finished split.
func (s *SplitService) GetSummary(ctx context.Context, req *connect.Request[rpc.GetSummaryRequest]) (*connect.Response[rpc.GetSummaryResponse], error) {
	state, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if state.Step != session.StepResult {
		return nil, toConnectError(fmt.Errorf("%w: summary needs step %s, session is at %s",
			session.ErrInvalidStep, session.StepResult, state.Step))
	}
	return connect.NewResponse(&rpc.GetSummaryResponse{
		Text: summary.Text(*state.Receipt, state.Allocation()),
	}), nil
}

// renewToken issues a token whose lifetime restarts with the session's
// sliding expiry. A signing failure keeps the caller's current token.
func (s *SplitService) renewToken(header http.Header, sessionID string) {
	tok, err := s.tokens.Generate(sessionID)
	if err != nil {
		slog.Warn("Failed to renew session token", "session_id", sessionID, "error", err)
		return
	}
	header.Set(rpc.SessionTokenHeader, tok)
}

func (s *SplitService) loadSession(ctx context.Context) (session.State, error) {
	sessionID := middleware.GetSessionID(ctx)
	if sessionID == "" {
		return session.State{}, connect.NewError(connect.CodeUnauthenticated, token.ErrMissingToken)
	}
	state, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("Failed to load session", "session_id", sessionID, "error", err)
		}
		return session.State{}, toConnectError(err)
	}
	return state, nil
}

// apply reduces the latest stored state with actions and writes it back,
// re-reading after a concurrent write.
func (s *SplitService) apply(ctx context.Context, sessionID string, actions ...session.Action) (session.State, error) {
	var lastErr error
	for range maxWriteAttempts {
		current, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return session.State{}, toConnectError(err)
		}

		next := current
		for _, action := range actions {
			if next, err = session.Reduce(next, action); err != nil {
				return session.State{}, toConnectError(err)
			}
		}
		if next.Version == current.Version {
			return current, nil
		}

		err = s.store.UpdateSession(ctx, &next, current.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			slog.Error("Failed to save session", "session_id", sessionID, "error", err)
			return session.State{}, toConnectError(err)
		}
		lastErr = err
	}
	return session.State{}, toConnectError(lastErr)
}
