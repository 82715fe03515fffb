package middleware

import (
	"net/http"
)

// DefaultMaxBodySize bounds request bodies when no limit is configured.
// It matches the default bulk upload limit.
const DefaultMaxBodySize = 10 << 20

// MaxBodySize rejects requests whose declared length exceeds limit with
// 413, and caps streamed bodies at limit. A limit of zero or less uses
// DefaultMaxBodySize. GET, HEAD and OPTIONS pass through untouched.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				respondTooLarge(w, r, "Request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
