package middleware

import (
	"net/http"

	"github.com/kbukum/yttext/util"
)

const defaultMaxBodySize = 1 << 20 // 1MB

// BodySizeLimit restricts request bodies to maxSize (e.g. "64KB", "1MB").
// Reads past the limit fail, which the JSON binder reports as a bad request.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(`{"error":{"code":"VALIDATION_ERROR","message":"Request body too large","retryable":false}}`))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}
