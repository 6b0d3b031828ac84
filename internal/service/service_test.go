package service

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/clubsplit/internal/auth"
	"github.com/mmynk/clubsplit/internal/lock"
	"github.com/mmynk/clubsplit/internal/middleware"
	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
	"github.com/mmynk/clubsplit/internal/storage/sqlite"
	"github.com/mmynk/clubsplit/pkg/api/apiconnect"
)

const testClub = "club-1"

// testEnv is a running server with clients for every service.
type testEnv struct {
	expenses    apiconnect.ExpenseServiceClient
	settlements apiconnect.SettlementServiceClient
	members     apiconnect.MemberServiceClient

	store         storage.Store
	settlementSvc *SettlementService
	metrics       *middleware.Metrics
	jwt           *auth.JWTManager
}

// setupTestServer creates a test server backed by a temporary SQLite database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	metrics := middleware.NewMetrics(prometheus.NewRegistry())
	interceptors := middleware.Interceptors(jwtManager, metrics)

	settlementSvc := NewSettlementService(store, lock.NewLocal(), metrics)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewExpenseServiceHandler(NewExpenseService(store), interceptors))
	mux.Handle(apiconnect.NewSettlementServiceHandler(settlementSvc, interceptors))
	mux.Handle(apiconnect.NewMemberServiceHandler(NewMemberService(store), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		expenses:      apiconnect.NewExpenseServiceClient(http.DefaultClient, server.URL),
		settlements:   apiconnect.NewSettlementServiceClient(http.DefaultClient, server.URL),
		members:       apiconnect.NewMemberServiceClient(http.DefaultClient, server.URL),
		store:         store,
		settlementSvc: settlementSvc,
		metrics:       metrics,
		jwt:           jwtManager,
	}
}

// token mints a session token for userID in testClub.
func (e *testEnv) token(t *testing.T, userID string, role models.Role) string {
	return e.tokenFor(t, userID, testClub, role)
}

func (e *testEnv) tokenFor(t *testing.T, userID, clubID string, role models.Role) string {
	t.Helper()
	token, err := e.jwt.Generate(&models.Member{ID: userID, ClubID: clubID, Role: role})
	require.NoError(t, err)
	return token
}

// as wraps msg in a request authenticated with token.
func as[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

// requireCode asserts err is a Connect error with the given code.
func requireCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, connect.CodeOf(err), "error: %v", err)
}
