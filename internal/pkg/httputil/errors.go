package httputil

import (
	"context"
	"net/http"

	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
)

// WriteError answers with err's text under status. Server-side failures are
// logged at error level, client mistakes at debug.
func WriteError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	logger := ctxlog.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Debug("request rejected", "status", status, "error", err)
	}
	Error(w, status, err.Error())
}
