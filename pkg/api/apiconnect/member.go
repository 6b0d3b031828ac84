package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/pkg/api"
)

// MemberServiceName is the fully-qualified name of the MemberService.
const MemberServiceName = "clubsplit.v1.MemberService"

// Procedure paths, usable as HTTP routes and in interceptors.
const (
	MemberServiceUpsertMemberProcedure = "/clubsplit.v1.MemberService/UpsertMember"
	MemberServiceListMembersProcedure  = "/clubsplit.v1.MemberService/ListMembers"
)

// MemberServiceClient is a client for the clubsplit.v1.MemberService service.
type MemberServiceClient interface {
	UpsertMember(context.Context, *connect.Request[api.UpsertMemberRequest]) (*connect.Response[api.UpsertMemberResponse], error)
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error)
}

// NewMemberServiceClient constructs a client for clubsplit.v1.MemberService. baseURL is
// the scheme and host of the server, e.g. http://localhost:8080.
func NewMemberServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) MemberServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &memberServiceClient{
		upsertMember: connect.NewClient[api.UpsertMemberRequest, api.UpsertMemberResponse](
			httpClient,
			baseURL+MemberServiceUpsertMemberProcedure,
			opts...,
		),
		listMembers: connect.NewClient[api.ListMembersRequest, api.ListMembersResponse](
			httpClient,
			baseURL+MemberServiceListMembersProcedure,
			opts...,
		),
	}
}

type memberServiceClient struct {
	upsertMember *connect.Client[api.UpsertMemberRequest, api.UpsertMemberResponse]
	listMembers  *connect.Client[api.ListMembersRequest, api.ListMembersResponse]
}

func (c *memberServiceClient) UpsertMember(ctx context.Context, req *connect.Request[api.UpsertMemberRequest]) (*connect.Response[api.UpsertMemberResponse], error) {
	return c.upsertMember.CallUnary(ctx, req)
}

func (c *memberServiceClient) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

// MemberServiceHandler is implemented by the server side of clubsplit.v1.MemberService.
type MemberServiceHandler interface {
	UpsertMember(context.Context, *connect.Request[api.UpsertMemberRequest]) (*connect.Response[api.UpsertMemberResponse], error)
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error)
}

// NewMemberServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewMemberServiceHandler(svc MemberServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	upsertMemberHandler := connect.NewUnaryHandler(
		MemberServiceUpsertMemberProcedure,
		svc.UpsertMember,
		opts...,
	)
	listMembersHandler := connect.NewUnaryHandler(
		MemberServiceListMembersProcedure,
		svc.ListMembers,
		opts...,
	)
	return "/clubsplit.v1.MemberService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case MemberServiceUpsertMemberProcedure:
			upsertMemberHandler.ServeHTTP(w, r)
		case MemberServiceListMembersProcedure:
			listMembersHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
