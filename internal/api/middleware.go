package api

import (
	"fmt"
	"net/http"
	"time"

	"organmatch/internal/common/errors"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/observability"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogging(log logger.Logger, obs *observability.Observability) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			if obs != nil {
				ctx, span := obs.StartSpan(r.Context(), r.Method+" "+routeTemplate(r),
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				)
				defer func() {
					span.SetAttributes(attribute.Int("http.status_code", rec.status))
					if rec.status >= http.StatusInternalServerError {
						span.SetStatus(codes.Error, http.StatusText(rec.status))
					}
					span.End()
				}()
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(rec, r)

			log.Info("request handled", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"durationMs": time.Since(start).Milliseconds(),
			})
		})
	}
}

func recoverPanics(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.Error("handler panic", map[string]interface{}{
						"path":  r.URL.Path,
						"panic": fmt.Sprint(p),
					})
					writeError(w, errors.FromMatchingError(fmt.Errorf("panic: %v", p)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}
