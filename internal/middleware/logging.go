package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/internal/auth"
)

// Interceptors returns the handler interceptor chain in the order the server
// runs it. LoggingInterceptor sits inside RequireAuth so the session identity
// is on its context.
func Interceptors(jwtManager *auth.JWTManager, metrics *Metrics) connect.Option {
	return connect.WithInterceptors(
		metrics.Interceptor(),
		RequireAuth(jwtManager),
		LoggingInterceptor(),
	)
}

// LoggingInterceptor returns a Connect interceptor that logs every
// authenticated RPC call with its procedure, caller, club and duration.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", procedure,
				"user_id", GetUserID(ctx),
				"club_id", GetClubID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					slog.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
				} else {
					slog.Error("RPC error", append(attrs, "error", err)...)
				}
			} else {
				slog.Info("RPC ok", attrs...)
			}

			return resp, err
		}
	}
}
