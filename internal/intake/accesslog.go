package intake

import (
	"net/http"

	"github.com/kpcyrd/brchd/internal/logging"
)

// statusRecorder captures the status code a handler wrote, since
// http.ResponseWriter doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withAccessLog wraps next with the one-line-per-request access log
// required by §4.8: remote socket, method+path+query+protocol, status,
// user agent.
func withAccessLog(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info().
			Str("remote", r.RemoteAddr).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Str("proto", r.Proto).
			Int("status", rec.status).
			Str("user_agent", r.UserAgent()).
			Msg("request")
	})
}
