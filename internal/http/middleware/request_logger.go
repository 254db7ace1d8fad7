package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agendohealth/agenda-api/pkg/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// RequestLogger emits one structured log line per HTTP request, tagged with
// the clinic when the request carries a tenant.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"request_id", reqID,
				"remote_ip", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			clinicID := r.Header.Get("X-Clinic-Id")
			if clinicID == "" {
				clinicID = r.URL.Query().Get("clinicId")
			}
			if clinicID != "" {
				fields = append(fields, "clinic_id", clinicID)
			}
			logger.Info("request completed", fields...)
		})
	}
}
