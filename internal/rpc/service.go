// Package rpc defines the billsplit.v1.SplitService Connect service: its
// procedures, messages, handler and client.
package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const SplitServiceName = "billsplit.v1.SplitService"

// Fully-qualified procedure names.
const (
	SplitServiceCreateSessionProcedure  = "/billsplit.v1.SplitService/CreateSession"
	SplitServiceGetSessionProcedure     = "/billsplit.v1.SplitService/GetSession"
	SplitServiceDeleteSessionProcedure  = "/billsplit.v1.SplitService/DeleteSession"
	SplitServiceExtractReceiptProcedure = "/billsplit.v1.SplitService/ExtractReceipt"
	SplitServiceDispatchProcedure       = "/billsplit.v1.SplitService/Dispatch"
	SplitServiceCalculateSplitProcedure = "/billsplit.v1.SplitService/CalculateSplit"
	SplitServiceGetBreakdownProcedure   = "/billsplit.v1.SplitService/GetBreakdown"
	SplitServiceGetSummaryProcedure     = "/billsplit.v1.SplitService/GetSummary"
)

// SessionTokenHeader carries a renewed session token on responses to writes.
// Clients replace their stored token with it.
const SessionTokenHeader = "Session-Token"

// PublicProcedures need no session token.
var PublicProcedures = []string{
	SplitServiceCreateSessionProcedure,
	SplitServiceCalculateSplitProcedure,
}

// SplitServiceHandler is implemented by the server.
type SplitServiceHandler interface {
	CreateSession(context.Context, *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error)
	GetSession(context.Context, *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error)
	DeleteSession(context.Context, *connect.Request[DeleteSessionRequest]) (*connect.Response[DeleteSessionResponse], error)
	ExtractReceipt(context.Context, *connect.Request[ExtractReceiptRequest]) (*connect.Response[ExtractReceiptResponse], error)
	Dispatch(context.Context, *connect.Request[DispatchRequest]) (*connect.Response[DispatchResponse], error)
	CalculateSplit(context.Context, *connect.Request[CalculateSplitRequest]) (*connect.Response[CalculateSplitResponse], error)
	GetBreakdown(context.Context, *connect.Request[GetBreakdownRequest]) (*connect.Response[GetBreakdownResponse], error)
	GetSummary(context.Context, *connect.Request[GetSummaryRequest]) (*connect.Response[GetSummaryResponse], error)
}

// NewSplitServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewSplitServiceHandler(svc SplitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	handlers := map[string]http.Handler{
		SplitServiceCreateSessionProcedure:  connect.NewUnaryHandler(SplitServiceCreateSessionProcedure, svc.CreateSession, opts...),
		SplitServiceGetSessionProcedure:     connect.NewUnaryHandler(SplitServiceGetSessionProcedure, svc.GetSession, opts...),
		SplitServiceDeleteSessionProcedure:  connect.NewUnaryHandler(SplitServiceDeleteSessionProcedure, svc.DeleteSession, opts...),
		SplitServiceExtractReceiptProcedure: connect.NewUnaryHandler(SplitServiceExtractReceiptProcedure, svc.ExtractReceipt, opts...),
		SplitServiceDispatchProcedure:       connect.NewUnaryHandler(SplitServiceDispatchProcedure, svc.Dispatch, opts...),
		SplitServiceCalculateSplitProcedure: connect.NewUnaryHandler(SplitServiceCalculateSplitProcedure, svc.CalculateSplit, opts...),
		SplitServiceGetBreakdownProcedure:   connect.NewUnaryHandler(SplitServiceGetBreakdownProcedure, svc.GetBreakdown, opts...),
		SplitServiceGetSummaryProcedure:     connect.NewUnaryHandler(SplitServiceGetSummaryProcedure, svc.GetSummary, opts...),
	}
	return "/" + SplitServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// UnimplementedSplitServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedSplitServiceHandler struct{}

func unimplemented(procedure string) error {
	name := procedure[strings.LastIndexByte(procedure, '/')+1:]
	return connect.NewError(connect.CodeUnimplemented, errors.New(SplitServiceName+"."+name+" is not implemented"))
}

func (UnimplementedSplitServiceHandler) CreateSession(context.Context, *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error) {
	return nil, unimplemented(SplitServiceCreateSessionProcedure)
}

func (UnimplementedSplitServiceHandler) GetSession(context.Context, *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error) {
	return nil, unimplemented(SplitServiceGetSessionProcedure)
}

func (UnimplementedSplitServiceHandler) DeleteSession(context.Context, *connect.Request[DeleteSessionRequest]) (*connect.Response[DeleteSessionResponse], error) {
	return nil, unimplemented(SplitServiceDeleteSessionProcedure)
}

func (UnimplementedSplitServiceHandler) ExtractReceipt(context.Context, *connect.Request[ExtractReceiptRequest]) (*connect.Response[ExtractReceiptResponse], error) {
	return nil, unimplemented(SplitServiceExtractReceiptProcedure)
}

func (UnimplementedSplitServiceHandler) Dispatch(context.Context, *connect.Request[DispatchRequest]) (*connect.Response[DispatchResponse], error) {
	return nil, unimplemented(SplitServiceDispatchProcedure)
}

func (UnimplementedSplitServiceHandler) CalculateSplit(context.Context, *connect.Request[CalculateSplitRequest]) (*connect.Response[CalculateSplitResponse], error) {
	return nil, unimplemented(SplitServiceCalculateSplitProcedure)
}

func (UnimplementedSplitServiceHandler) GetBreakdown(context.Context, *connect.Request[GetBreakdownRequest]) (*connect.Response[GetBreakdownResponse], error) {
	return nil, unimplemented(SplitServiceGetBreakdownProcedure)
}

func (UnimplementedSplitServiceHandler) GetSummary(context.Context, *connect.Request[GetSummaryRequest]) (*connect.Response[GetSummaryResponse], error) {
	return nil, unimplemented(SplitServiceGetSummaryProcedure)
}

// SplitServiceClient is a client for the billsplit.v1.SplitService service.
type SplitServiceClient struct {
	createSession  *connect.Client[CreateSessionRequest, CreateSessionResponse]
	getSession     *connect.Client[GetSessionRequest, GetSessionResponse]
	deleteSession  *connect.Client[DeleteSessionRequest, DeleteSessionResponse]
	extractReceipt *connect.Client[ExtractReceiptRequest, ExtractReceiptResponse]
	dispatch       *connect.Client[DispatchRequest, DispatchResponse]
	calculateSplit *connect.Client[CalculateSplitRequest, CalculateSplitResponse]
	getBreakdown   *connect.Client[GetBreakdownRequest, GetBreakdownResponse]
	getSummary     *connect.Client[GetSummaryRequest, GetSummaryResponse]
}

// NewSplitServiceClient constructs a client for the service at baseURL
// (for example, http://localhost:8080).
func NewSplitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SplitServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &SplitServiceClient{
		createSession:  connect.NewClient[CreateSessionRequest, CreateSessionResponse](httpClient, baseURL+SplitServiceCreateSessionProcedure, opts...),
		getSession:     connect.NewClient[GetSessionRequest, GetSessionResponse](httpClient, baseURL+SplitServiceGetSessionProcedure, opts...),
		deleteSession:  connect.NewClient[DeleteSessionRequest, DeleteSessionResponse](httpClient, baseURL+SplitServiceDeleteSessionProcedure, opts...),
		extractReceipt: connect.NewClient[ExtractReceiptRequest, ExtractReceiptResponse](httpClient, baseURL+SplitServiceExtractReceiptProcedure, opts...),
		dispatch:       connect.NewClient[DispatchRequest, DispatchResponse](httpClient, baseURL+SplitServiceDispatchProcedure, opts...),
		calculateSplit: connect.NewClient[CalculateSplitRequest, CalculateSplitResponse](httpClient, baseURL+SplitServiceCalculateSplitProcedure, opts...),
		getBreakdown:   connect.NewClient[GetBreakdownRequest, GetBreakdownResponse](httpClient, baseURL+SplitServiceGetBreakdownProcedure, opts...),
		getSummary:     connect.NewClient[GetSummaryRequest, GetSummaryResponse](httpClient, baseURL+SplitServiceGetSummaryProcedure, opts...),
	}
}

func (c *SplitServiceClient) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *SplitServiceClient) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *SplitServiceClient) DeleteSession(ctx context.Context, req *connect.Request[DeleteSessionRequest]) (*connect.Response[DeleteSessionResponse], error) {
	return c.deleteSession.CallUnary(ctx, req)
}

func (c *SplitServiceClient) ExtractReceipt(ctx context.Context, req *connect.Request[ExtractReceiptRequest]) (*connect.Response[ExtractReceiptResponse], error) {
	return c.extractReceipt.CallUnary(ctx, req)
}

func (c *SplitServiceClient) Dispatch(ctx context.Context, req *connect.Request[DispatchRequest]) (*connect.Response[DispatchResponse], error) {
	return c.dispatch.CallUnary(ctx, req)
}

func (c *SplitServiceClient) CalculateSplit(ctx context.Context, req *connect.Request[CalculateSplitRequest]) (*connect.Response[CalculateSplitResponse], error) {
	return c.calculateSplit.CallUnary(ctx, req)
}

func (c *SplitServiceClient) GetBreakdown(ctx context.Context, req *connect.Request[GetBreakdownRequest]) (*connect.Response[GetBreakdownResponse], error) {
	return c.getBreakdown.CallUnary(ctx, req)
}

func (c *SplitServiceClient) GetSummary(ctx context.Context, req *connect.Request[GetSummaryRequest]) (*connect.Response[GetSummaryResponse], error) {
	return c.getSummary.CallUnary(ctx, req)
}
