package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS lets browser front ends on the configured origins call the API and read the
// artifacts back, including ranged clip reads.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(corsOptions(allowedOrigins))
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	wildcard := slices.Contains(allowedOrigins, "*")

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range", RequestIDHeader},
		ExposedHeaders: []string{"Content-Length", "Content-Range", "Accept-Ranges", RequestIDHeader},
		// credentials are never sent to a wildcard origin
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}
