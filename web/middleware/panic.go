package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/adamwoolhether/pakfetch/web"
)

// Panics recovers from panics, logs them with their stack and answers
// with a 500.
func Panics(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(debug.Stack()))
				log.Error("request panicked", "trace_id", GetValues(r.Context()).TraceID, "error", err)

				_ = web.RespondError(w, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
