package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/allaspectsdev/windowcapd/internal/domain"
	"github.com/allaspectsdev/windowcapd/internal/metrics"
	"github.com/allaspectsdev/windowcapd/internal/store"
)

// paginatedResponse wraps a page of list results with its paging metadata,
// mirroring the viewer's PaginatedResponse view model.
type paginatedResponse struct {
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Total int               `json:"total"`
	Items []*store.Document `json:"items"`
}

// documentDetail pairs a document's metadata with its ordered chunk text,
// mirroring the viewer's ContentDetail view model.
type documentDetail struct {
	Document *store.Document `json:"document"`
	Chunks   []domain.Chunk  `json:"chunks"`
}

// statsResponse pairs durable store counts with the in-process collector
// snapshot, mirroring the viewer's DbStats view model.
type statsResponse struct {
	Store     store.Stats    `json:"store"`
	Collector *metrics.Stats `json:"collector"`
}

// writeJSON writes v as an indented JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// queryInt parses an integer query parameter, falling back to defaultVal
// when absent or malformed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}
