package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/annafiu/twabillsplitter/internal/token"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// SessionIDKey is the context key for the session bound to the request token.
	SessionIDKey contextKey = "session_id"

	requestInfoKey contextKey = "request_info"
)

// requestInfo carries values discovered by inner interceptors back out to
// the logging interceptor.
type requestInfo struct {
	sessionID string
}

// GetSessionID extracts the session ID from the context.
// Returns empty string if not found.
func GetSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionIDKey).(string)
	return sessionID
}

// WithSessionID returns a context carrying sessionID, as RequireSession does.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.sessionID = sessionID
	}
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// RequireSession returns a middleware that validates the session token on
// every procedure except the exempt ones, and adds the session ID to the
// request context.
func RequireSession(tokens *token.Manager, exempt ...string) connect.UnaryInterceptorFunc {
	open := make(map[string]bool, len(exempt))
	for _, procedure := range exempt {
		open[procedure] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if open[req.Spec().Procedure] {
				return next(ctx, req)
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, token.ErrMissingToken)
			}

			// Parse Bearer token
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, token.ErrInvalidToken)
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithSessionID(ctx, claims.SessionID), req)
		}
	}
}
