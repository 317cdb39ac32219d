package vecdbhttp

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/VantageDataChat/vecdb/internal/collection"
	"github.com/VantageDataChat/vecdb/internal/distance"
	"github.com/VantageDataChat/vecdb/internal/metaval"
)

type createCollectionRequest struct {
	Name      string   `json:"name"`
	Dimension int      `json:"dimension"`
	Distance  string   `json:"distance"`
	Fields    []string `json:"metadata_fields"`
}

func (h *handlers) createCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	metric, err := distance.ParseMetric(req.Distance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid distance metric")
		return
	}
	if req.Dimension <= 0 {
		writeError(w, http.StatusBadRequest, "dimension must be positive")
		return
	}
	if err := h.db.CreateCollection(req.Name, req.Dimension, metric, req.Fields); err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (h *handlers) getCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, ok := h.db.GetCollection(name)
	if !ok {
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      c.Name(),
		"dimension": c.Dimension(),
		"distance":  c.Metric().String(),
		"count":     c.Len(),
	})
}

func (h *handlers) deleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.db.DeleteCollection(name); err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type embeddingRequest struct {
	Vector   []float32       `json:"vector"`
	Metadata *metaval.Object `json:"metadata"`
}

func (h *handlers) addEmbedding(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req embeddingRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := h.db.AddEmbedding(name, req.Vector, req.Metadata)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (h *handlers) updateEmbedding(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid embedding id")
		return
	}
	var req embeddingRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.db.UpdateEmbedding(name, id, req.Vector, req.Metadata); err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) removeEmbedding(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid embedding id")
		return
	}
	if err := h.db.RemoveEmbedding(name, id); err != nil {
		writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchVectorRequest struct {
	Query []float32 `json:"query"`
	K     int       `json:"k"`
}

type searchFilterRequest struct {
	Filters *metaval.Object `json:"filters"`
	K       int             `json:"k"`
}

type searchHybridRequest struct {
	Query   []float32       `json:"query"`
	Filters *metaval.Object `json:"filters"`
	K       int             `json:"k"`
}

func writeResults(w http.ResponseWriter, results []collection.Result) {
	type hit struct {
		Score    float32         `json:"score"`
		ID       uint64          `json:"id"`
		Metadata *metaval.Object `json:"metadata,omitempty"`
	}
	out := make([]hit, len(results))
	for i, r := range results {
		out[i] = hit{Score: r.Score, ID: r.ID, Metadata: r.Metadata}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) searchVector(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req searchVectorRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := h.db.SearchVector(r.Context(), name, req.Query, req.K)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeResults(w, results)
}

func (h *handlers) searchFilter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req searchFilterRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := h.db.SearchFilter(r.Context(), name, req.Filters, req.K)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeResults(w, results)
}

func (h *handlers) searchHybrid(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req searchHybridRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := h.db.SearchHybrid(r.Context(), name, req.Query, req.Filters, req.K)
	if err != nil {
		writeDBError(w, err)
		return
	}
	writeResults(w, results)
}
