package ranking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// defaultLimit is used when a request omits or mangles the n parameter
const defaultLimit = 10

// maxLimit caps result sizes; larger requests are clamped, not rejected
const maxLimit = 100

// Handlers provides the HTTP surface over the ranking query service
type Handlers struct {
	query *Query
}

// NewHandlers creates ranking HTTP handlers
func NewHandlers(query *Query) *Handlers {
	return &Handlers{query: query}
}

// RegisterRoutes registers ranking and search routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/rankings/top", h.getTop).Methods("GET")
	router.HandleFunc("/rankings/trending", h.getTrending).Methods("GET")
	router.HandleFunc("/rankings/genres/{genre}", h.getByGenre).Methods("GET")
	router.HandleFunc("/rankings/tools/{tool}", h.getByTool).Methods("GET")
	router.HandleFunc("/search", h.search).Methods("GET")
}

func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func writeRanked(w http.ResponseWriter, items []RankedItem) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func (h *Handlers) getTop(w http.ResponseWriter, r *http.Request) {
	category := Category(r.URL.Query().Get("category"))
	if category == "" {
		category = CategoryPopularity
	}

	items, err := h.query.TopN(category, parseLimit(r))
	if err != nil {
		if errors.Is(err, ErrUnknownCategory) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRanked(w, items)
}

func (h *Handlers) getTrending(w http.ResponseWriter, r *http.Request) {
	writeRanked(w, h.query.Trending(parseLimit(r)))
}

func (h *Handlers) getByGenre(w http.ResponseWriter, r *http.Request) {
	writeRanked(w, h.query.ByGenre(mux.Vars(r)["genre"], parseLimit(r)))
}

func (h *Handlers) getByTool(w http.ResponseWriter, r *http.Request) {
	writeRanked(w, h.query.ByTool(mux.Vars(r)["tool"], parseLimit(r)))
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	writeRanked(w, h.query.Search(r.URL.Query().Get("q"), parseLimit(r)))
}
