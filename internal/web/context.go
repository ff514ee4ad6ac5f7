package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/bodymetrics/internal/core"
	"github.com/JonMunkholm/bodymetrics/internal/web/middleware"
)

// withRequestMetadata adds the client IP to the context for import logging.
// RemoteAddr has already been rewritten by TrustedRealIP.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClientIP(ctx, middleware.ClientIP(r))
}
