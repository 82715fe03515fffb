// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/papertrail/internal/domain"
)

// respondWithError writes the standard error envelope. It cannot use the
// handler package, which imports this one for GetLogger.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := domain.HTTPStatus(code)

	logger := GetLogger(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("middleware rejected request", "error", err, "code", code, "status", status)
	} else {
		logger.Info("middleware rejected request", "code", code, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": domain.ErrorMessage(err),
		},
	})
}

func respondInternalError(w http.ResponseWriter, r *http.Request, err error) {
	respondWithError(w, r, domain.Internal(err, "", "An unexpected error occurred"))
}

func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Errorf(domain.ERATELIMIT, "", "Too many requests"))
}

func respondTooLarge(w http.ResponseWriter, r *http.Request, message string) {
	respondWithError(w, r, domain.Errorf(domain.ETOOLARGE, "", "%s", message))
}
