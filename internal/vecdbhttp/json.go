package vecdbhttp

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/VantageDataChat/vecdb/internal/vecdb"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeDBError maps a *vecdb.Error to its RPC status code: UniqueViolation
// -> 409, NotFound -> 404, DimensionMismatch -> 400, anything else -> 500.
func writeDBError(w http.ResponseWriter, err error) {
	kind, ok := vecdb.KindOf(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch kind {
	case vecdb.UniqueViolation:
		writeError(w, http.StatusConflict, err.Error())
	case vecdb.NotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case vecdb.DimensionMismatch:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// requestLogger logs each request's method, path, status, and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Printf("[vecdbhttp] %s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
