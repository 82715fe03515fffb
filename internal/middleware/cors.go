package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the single-page frontend to call the API with bearer tokens.
// The webhook route does not need it but is harmless behind it.
func CORS(allowedOrigins ...string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}
