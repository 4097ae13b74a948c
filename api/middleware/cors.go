package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

const localOrigin = "http://localhost:3000"

// CORS returns middleware that allows the storefront origin and local dev.
func CORS(publicURL string) func(http.Handler) http.Handler {
	origins := []string{localOrigin}
	if publicURL != "" && publicURL != localOrigin {
		origins = append(origins, publicURL)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
