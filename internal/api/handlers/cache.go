package handlers

import (
	"net/http"

	"github.com/caption-stream/backend/internal/caption"
	"github.com/caption-stream/backend/internal/db"
)

type CacheHandler struct {
	database *db.Database
	engine   *caption.Engine
}

func NewCacheHandler(database *db.Database, engine *caption.Engine) *CacheHandler {
	return &CacheHandler{database: database, engine: engine}
}

// Count returns the number of persisted translations.
func (h *CacheHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.database.CountTranslations()
	if err != nil {
		jsonError(w, "failed to count translations", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]int{"count": count}, http.StatusOK)
}

// Clear deletes all persisted translations and resets the in-memory state so
// nothing keeps serving from the wiped cache.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.database.ClearTranslations()
	if err != nil {
		jsonError(w, "failed to clear translations", http.StatusInternalServerError)
		return
	}
	h.engine.Reset()
	jsonResponse(w, map[string]int64{"deleted": deleted}, http.StatusOK)
}
