package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/baharkarakas/bankmore/internal/api/httpx"
	"github.com/baharkarakas/bankmore/internal/apperr"
)

// Recover turns a handler panic into a 500 with the usual error body. The
// panic is logged with the request id so it can be matched to the client's
// X-Request-Id.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Default().With("request_id", RequestIDFrom(r.Context())).Error("handler panic",
				"err", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			httpx.WriteProblem(w, http.StatusInternalServerError, string(apperr.Internal), "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
