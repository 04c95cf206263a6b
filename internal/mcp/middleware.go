package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tally/internal/auth"
)

// IdentityResolver resolves a caller identity from a bearer token.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (auth.Identity, error)
}

// identityMiddleware resolves the caller from the Authorization header of
// each request and stores it in the context.
func identityMiddleware(resolver IdentityResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Protocol methods carry no caller.
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			token := bearerToken(req)
			if token == "" {
				return nil, MapError(auth.ErrUnauthenticated)
			}

			id, err := resolver.ResolveIdentity(ctx, token)
			if err != nil || id.IsZero() {
				return nil, MapError(auth.ErrUnauthenticated)
			}

			return next(auth.WithIdentity(ctx, id), method, req)
		}
	}
}

func bearerToken(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	extra := req.GetExtra()
	if extra == nil || extra.Header == nil {
		return ""
	}
	header := extra.Header.Get("Authorization")
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

func caller(ctx context.Context) auth.Identity {
	id, _ := auth.FromContext(ctx)
	return id
}
