// Package vecdbhttp is a thin JSON-over-HTTP binding of the database's
// nine operations, illustrating the external RPC surface without being
// part of the core database itself.
package vecdbhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/VantageDataChat/vecdb/internal/middleware"
	"github.com/VantageDataChat/vecdb/internal/vecdb"
)

// toChiMiddleware adapts the func(http.HandlerFunc) http.HandlerFunc shape
// used by internal/middleware to chi's func(http.Handler) http.Handler.
func toChiMiddleware(mw middleware.Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter builds the HTTP handler tree for db.
func NewRouter(db *vecdb.Database) http.Handler {
	rl := middleware.NewRateLimiter(600, time.Minute)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(toChiMiddleware(middleware.Chain(middleware.CORS(), rl.Limit())))

	h := &handlers{db: db}

	r.Route("/collections", func(r chi.Router) {
		r.Post("/", h.createCollection)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.getCollection)
			r.Delete("/", h.deleteCollection)

			r.Post("/embeddings", h.addEmbedding)
			r.Put("/embeddings/{id}", h.updateEmbedding)
			r.Delete("/embeddings/{id}", h.removeEmbedding)

			r.Post("/search/vector", h.searchVector)
			r.Post("/search/filter", h.searchFilter)
			r.Post("/search/hybrid", h.searchHybrid)
		})
	})

	return r
}

type handlers struct {
	db *vecdb.Database
}
