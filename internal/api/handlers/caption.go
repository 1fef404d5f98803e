package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/caption-stream/backend/internal/caption"
	"github.com/caption-stream/backend/internal/db"
	"github.com/caption-stream/backend/internal/job"
)

type CaptionHandler struct {
	engine     *caption.Engine
	database   *db.Database
	queue      *job.JobQueue
	targetLang func() string
}

func NewCaptionHandler(engine *caption.Engine, database *db.Database, queue *job.JobQueue, targetLang func() string) *CaptionHandler {
	return &CaptionHandler{engine: engine, database: database, queue: queue, targetLang: targetLang}
}

type enqueueRequest struct {
	Fragments []caption.Fragment `json:"fragments"`
}

type enqueueResponse struct {
	Accepted int `json:"accepted"` // newly queued for translation
	Cached   int `json:"cached"`   // resolved from the persistent cache
	Skipped  int `json:"skipped"`  // already pending, translated, or cooling down
}

// Enqueue receives caption fragments as they are displayed and queues the
// untracked ones for translation. Fragments with a cached translation are
// resolved immediately without a provider round trip.
func (h *CaptionHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Fragments) == 0 {
		jsonError(w, "no fragments provided", http.StatusBadRequest)
		return
	}

	target := h.targetLang()
	var resp enqueueResponse
	var misses []caption.Fragment
	for _, f := range req.Fragments {
		if translated, ok := h.database.LookupTranslation(f.Text, target); ok {
			if h.engine.ResolveFromCache(f.Text, translated) {
				resp.Cached++
			} else {
				resp.Skipped++
			}
			continue
		}
		misses = append(misses, f)
	}

	resp.Accepted = h.engine.EnqueueFragments(req.Fragments)
	resp.Skipped += len(misses) - resp.Accepted

	jsonResponse(w, resp, http.StatusOK)
}

type stateRequest struct {
	Texts []string `json:"texts"`
}

type stateEntry struct {
	Status string         `json:"status"`
	State  *caption.State `json:"state,omitempty"`
}

// States returns the lifecycle state for each requested text. Unknown texts
// report status "untracked" so the client knows to enqueue them.
func (h *CaptionHandler) States(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := make(map[string]stateEntry, len(req.Texts))
	for _, text := range req.Texts {
		if st, ok := h.engine.StateOf(text); ok {
			s := st
			result[text] = stateEntry{Status: st.Status.String(), State: &s}
		} else {
			result[text] = stateEntry{Status: "untracked"}
		}
	}

	jsonResponse(w, result, http.StatusOK)
}

// Summary reports the engine's tracked/queued counts and current content label.
func (h *CaptionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	store := h.engine.Store()
	jsonResponse(w, map[string]interface{}{
		"tracked": store.Count(),
		"queued":  store.QueueLen(),
		"context": h.engine.Context(),
	}, http.StatusOK)
}

// Fragments returns the accumulated, time-ordered fragment list for the
// current content.
func (h *CaptionHandler) Fragments(w http.ResponseWriter, r *http.Request) {
	fragments := h.engine.Fragments()
	if fragments == nil {
		fragments = []caption.Fragment{}
	}
	jsonResponse(w, fragments, http.StatusOK)
}

type contextRequest struct {
	Label string `json:"label"`
}

// SetContext switches the engine to a new content item, discarding all
// per-content state.
func (h *CaptionHandler) SetContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.engine.SetContext(req.Label)
	w.WriteHeader(http.StatusNoContent)
}

// Reset clears all translation state without changing the content label.
func (h *CaptionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	w.WriteHeader(http.StatusNoContent)
}

type translateAllRequest struct {
	VTT string `json:"vtt"`
}

// TranslateAll enqueues a whole-file translation job for the supplied WebVTT
// content and returns the created job.
func (h *CaptionHandler) TranslateAll(w http.ResponseWriter, r *http.Request) {
	var req translateAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.VTT == "" {
		jsonError(w, "vtt content is required", http.StatusBadRequest)
		return
	}

	label := h.engine.Context()
	if label == "" {
		label = "whole-file translation"
	}

	j, err := h.queue.Enqueue(job.JobTranslateAll, label, job.TranslateAllParams{
		TargetLang: h.targetLang(),
		VTT:        req.VTT,
	})
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}
