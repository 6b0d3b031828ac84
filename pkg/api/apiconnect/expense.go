package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/pkg/api"
)

// ExpenseServiceName is the fully-qualified name of the ExpenseService.
const ExpenseServiceName = "clubsplit.v1.ExpenseService"

// Procedure paths, usable as HTTP routes and in interceptors.
const (
	ExpenseServiceCreateExpenseProcedure       = "/clubsplit.v1.ExpenseService/CreateExpense"
	ExpenseServiceGetExpenseProcedure          = "/clubsplit.v1.ExpenseService/GetExpense"
	ExpenseServiceListExpensesProcedure        = "/clubsplit.v1.ExpenseService/ListExpenses"
	ExpenseServiceUpdateExpenseStatusProcedure = "/clubsplit.v1.ExpenseService/UpdateExpenseStatus"
	ExpenseServiceValidateExpenseProcedure     = "/clubsplit.v1.ExpenseService/ValidateExpense"
	ExpenseServiceSplitExpenseProcedure        = "/clubsplit.v1.ExpenseService/SplitExpense"
	ExpenseServiceImportExpensesProcedure      = "/clubsplit.v1.ExpenseService/ImportExpenses"
)

// ExpenseServiceClient is a client for the clubsplit.v1.ExpenseService service.
type ExpenseServiceClient interface {
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	UpdateExpenseStatus(context.Context, *connect.Request[api.UpdateExpenseStatusRequest]) (*connect.Response[api.UpdateExpenseStatusResponse], error)
	ValidateExpense(context.Context, *connect.Request[api.ValidateExpenseRequest]) (*connect.Response[api.ValidateExpenseResponse], error)
	SplitExpense(context.Context, *connect.Request[api.SplitExpenseRequest]) (*connect.Response[api.SplitExpenseResponse], error)
	ImportExpenses(context.Context, *connect.Request[api.ImportExpensesRequest]) (*connect.Response[api.ImportExpensesResponse], error)
}

// NewExpenseServiceClient constructs a client for clubsplit.v1.ExpenseService. baseURL is
// the scheme and host of the server, e.g. http://localhost:8080.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &expenseServiceClient{
		createExpense: connect.NewClient[api.CreateExpenseRequest, api.CreateExpenseResponse](
			httpClient,
			baseURL+ExpenseServiceCreateExpenseProcedure,
			opts...,
		),
		getExpense: connect.NewClient[api.GetExpenseRequest, api.GetExpenseResponse](
			httpClient,
			baseURL+ExpenseServiceGetExpenseProcedure,
			opts...,
		),
		listExpenses: connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](
			httpClient,
			baseURL+ExpenseServiceListExpensesProcedure,
			opts...,
		),
		updateExpenseStatus: connect.NewClient[api.UpdateExpenseStatusRequest, api.UpdateExpenseStatusResponse](
			httpClient,
			baseURL+ExpenseServiceUpdateExpenseStatusProcedure,
			opts...,
		),
		validateExpense: connect.NewClient[api.ValidateExpenseRequest, api.ValidateExpenseResponse](
			httpClient,
			baseURL+ExpenseServiceValidateExpenseProcedure,
			opts...,
		),
		splitExpense: connect.NewClient[api.SplitExpenseRequest, api.SplitExpenseResponse](
			httpClient,
			baseURL+ExpenseServiceSplitExpenseProcedure,
			opts...,
		),
		importExpenses: connect.NewClient[api.ImportExpensesRequest, api.ImportExpensesResponse](
			httpClient,
			baseURL+ExpenseServiceImportExpensesProcedure,
			opts...,
		),
	}
}

type expenseServiceClient struct {
	createExpense       *connect.Client[api.CreateExpenseRequest, api.CreateExpenseResponse]
	getExpense          *connect.Client[api.GetExpenseRequest, api.GetExpenseResponse]
	listExpenses        *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	updateExpenseStatus *connect.Client[api.UpdateExpenseStatusRequest, api.UpdateExpenseStatusResponse]
	validateExpense     *connect.Client[api.ValidateExpenseRequest, api.ValidateExpenseResponse]
	splitExpense        *connect.Client[api.SplitExpenseRequest, api.SplitExpenseResponse]
	importExpenses      *connect.Client[api.ImportExpensesRequest, api.ImportExpensesResponse]
}

func (c *expenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) UpdateExpenseStatus(ctx context.Context, req *connect.Request[api.UpdateExpenseStatusRequest]) (*connect.Response[api.UpdateExpenseStatusResponse], error) {
	return c.updateExpenseStatus.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ValidateExpense(ctx context.Context, req *connect.Request[api.ValidateExpenseRequest]) (*connect.Response[api.ValidateExpenseResponse], error) {
	return c.validateExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) SplitExpense(ctx context.Context, req *connect.Request[api.SplitExpenseRequest]) (*connect.Response[api.SplitExpenseResponse], error) {
	return c.splitExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ImportExpenses(ctx context.Context, req *connect.Request[api.ImportExpensesRequest]) (*connect.Response[api.ImportExpensesResponse], error) {
	return c.importExpenses.CallUnary(ctx, req)
}

// ExpenseServiceHandler is implemented by the server side of clubsplit.v1.ExpenseService.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	UpdateExpenseStatus(context.Context, *connect.Request[api.UpdateExpenseStatusRequest]) (*connect.Response[api.UpdateExpenseStatusResponse], error)
	ValidateExpense(context.Context, *connect.Request[api.ValidateExpenseRequest]) (*connect.Response[api.ValidateExpenseResponse], error)
	SplitExpense(context.Context, *connect.Request[api.SplitExpenseRequest]) (*connect.Response[api.SplitExpenseResponse], error)
	ImportExpenses(context.Context, *connect.Request[api.ImportExpensesRequest]) (*connect.Response[api.ImportExpensesResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	createExpenseHandler := connect.NewUnaryHandler(
		ExpenseServiceCreateExpenseProcedure,
		svc.CreateExpense,
		opts...,
	)
	getExpenseHandler := connect.NewUnaryHandler(
		ExpenseServiceGetExpenseProcedure,
		svc.GetExpense,
		opts...,
	)
	listExpensesHandler := connect.NewUnaryHandler(
		ExpenseServiceListExpensesProcedure,
		svc.ListExpenses,
		opts...,
	)
	updateExpenseStatusHandler := connect.NewUnaryHandler(
		ExpenseServiceUpdateExpenseStatusProcedure,
		svc.UpdateExpenseStatus,
		opts...,
	)
	validateExpenseHandler := connect.NewUnaryHandler(
		ExpenseServiceValidateExpenseProcedure,
		svc.ValidateExpense,
		opts...,
	)
	splitExpenseHandler := connect.NewUnaryHandler(
		ExpenseServiceSplitExpenseProcedure,
		svc.SplitExpense,
		opts...,
	)
	importExpensesHandler := connect.NewUnaryHandler(
		ExpenseServiceImportExpensesProcedure,
		svc.ImportExpenses,
		opts...,
	)
	return "/clubsplit.v1.ExpenseService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ExpenseServiceCreateExpenseProcedure:
			createExpenseHandler.ServeHTTP(w, r)
		case ExpenseServiceGetExpenseProcedure:
			getExpenseHandler.ServeHTTP(w, r)
		case ExpenseServiceListExpensesProcedure:
			listExpensesHandler.ServeHTTP(w, r)
		case ExpenseServiceUpdateExpenseStatusProcedure:
			updateExpenseStatusHandler.ServeHTTP(w, r)
		case ExpenseServiceValidateExpenseProcedure:
			validateExpenseHandler.ServeHTTP(w, r)
		case ExpenseServiceSplitExpenseProcedure:
			splitExpenseHandler.ServeHTTP(w, r)
		case ExpenseServiceImportExpensesProcedure:
			importExpensesHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
