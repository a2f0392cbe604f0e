// Package api implements the lintel HTTP surface using chi.
package api

import (
	"net/http"
)

// NoCache marks responses as revalidate-always. Decorated pages embed a
// clock reading, so a stored copy is stale after a second.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}
