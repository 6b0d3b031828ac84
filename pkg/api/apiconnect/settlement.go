package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/pkg/api"
)

// SettlementServiceName is the fully-qualified name of the SettlementService.
const SettlementServiceName = "clubsplit.v1.SettlementService"

// Procedure paths, usable as HTTP routes and in interceptors.
const (
	SettlementServiceGetBalancesProcedure        = "/clubsplit.v1.SettlementService/GetBalances"
	SettlementServiceGetDebtsProcedure           = "/clubsplit.v1.SettlementService/GetDebts"
	SettlementServiceSuggestSettlementsProcedure = "/clubsplit.v1.SettlementService/SuggestSettlements"
	SettlementServiceRecordSettlementProcedure   = "/clubsplit.v1.SettlementService/RecordSettlement"
	SettlementServiceListSettlementsProcedure    = "/clubsplit.v1.SettlementService/ListSettlements"
)

// SettlementServiceClient is a client for the clubsplit.v1.SettlementService service.
type SettlementServiceClient interface {
	GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error)
	GetDebts(context.Context, *connect.Request[api.GetDebtsRequest]) (*connect.Response[api.GetDebtsResponse], error)
	SuggestSettlements(context.Context, *connect.Request[api.SuggestSettlementsRequest]) (*connect.Response[api.SuggestSettlementsResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error)
}

// NewSettlementServiceClient constructs a client for clubsplit.v1.SettlementService. baseURL is
// the scheme and host of the server, e.g. http://localhost:8080.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SettlementServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &settlementServiceClient{
		getBalances: connect.NewClient[api.GetBalancesRequest, api.GetBalancesResponse](
			httpClient,
			baseURL+SettlementServiceGetBalancesProcedure,
			opts...,
		),
		getDebts: connect.NewClient[api.GetDebtsRequest, api.GetDebtsResponse](
			httpClient,
			baseURL+SettlementServiceGetDebtsProcedure,
			opts...,
		),
		suggestSettlements: connect.NewClient[api.SuggestSettlementsRequest, api.SuggestSettlementsResponse](
			httpClient,
			baseURL+SettlementServiceSuggestSettlementsProcedure,
			opts...,
		),
		recordSettlement: connect.NewClient[api.RecordSettlementRequest, api.RecordSettlementResponse](
			httpClient,
			baseURL+SettlementServiceRecordSettlementProcedure,
			opts...,
		),
		listSettlements: connect.NewClient[api.ListSettlementsRequest, api.ListSettlementsResponse](
			httpClient,
			baseURL+SettlementServiceListSettlementsProcedure,
			opts...,
		),
	}
}

type settlementServiceClient struct {
	getBalances        *connect.Client[api.GetBalancesRequest, api.GetBalancesResponse]
	getDebts           *connect.Client[api.GetDebtsRequest, api.GetDebtsResponse]
	suggestSettlements *connect.Client[api.SuggestSettlementsRequest, api.SuggestSettlementsResponse]
	recordSettlement   *connect.Client[api.RecordSettlementRequest, api.RecordSettlementResponse]
	listSettlements    *connect.Client[api.ListSettlementsRequest, api.ListSettlementsResponse]
}

func (c *settlementServiceClient) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *settlementServiceClient) GetDebts(ctx context.Context, req *connect.Request[api.GetDebtsRequest]) (*connect.Response[api.GetDebtsResponse], error) {
	return c.getDebts.CallUnary(ctx, req)
}

func (c *settlementServiceClient) SuggestSettlements(ctx context.Context, req *connect.Request[api.SuggestSettlementsRequest]) (*connect.Response[api.SuggestSettlementsResponse], error) {
	return c.suggestSettlements.CallUnary(ctx, req)
}

func (c *settlementServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *settlementServiceClient) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

// SettlementServiceHandler is implemented by the server side of clubsplit.v1.SettlementService.
type SettlementServiceHandler interface {
	GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error)
	GetDebts(context.Context, *connect.Request[api.GetDebtsRequest]) (*connect.Response[api.GetDebtsResponse], error)
	SuggestSettlements(context.Context, *connect.Request[api.SuggestSettlementsRequest]) (*connect.Response[api.SuggestSettlementsResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error)
}

// NewSettlementServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	getBalancesHandler := connect.NewUnaryHandler(
		SettlementServiceGetBalancesProcedure,
		svc.GetBalances,
		opts...,
	)
	getDebtsHandler := connect.NewUnaryHandler(
		SettlementServiceGetDebtsProcedure,
		svc.GetDebts,
		opts...,
	)
	suggestSettlementsHandler := connect.NewUnaryHandler(
		SettlementServiceSuggestSettlementsProcedure,
		svc.SuggestSettlements,
		opts...,
	)
	recordSettlementHandler := connect.NewUnaryHandler(
		SettlementServiceRecordSettlementProcedure,
		svc.RecordSettlement,
		opts...,
	)
	listSettlementsHandler := connect.NewUnaryHandler(
		SettlementServiceListSettlementsProcedure,
		svc.ListSettlements,
		opts...,
	)
	return "/clubsplit.v1.SettlementService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SettlementServiceGetBalancesProcedure:
			getBalancesHandler.ServeHTTP(w, r)
		case SettlementServiceGetDebtsProcedure:
			getDebtsHandler.ServeHTTP(w, r)
		case SettlementServiceSuggestSettlementsProcedure:
			suggestSettlementsHandler.ServeHTTP(w, r)
		case SettlementServiceRecordSettlementProcedure:
			recordSettlementHandler.ServeHTTP(w, r)
		case SettlementServiceListSettlementsProcedure:
			listSettlementsHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
