package caption

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Record is one persisted translation triple plus the content it belongs to.
type Record struct {
	SourceText   string `json:"source_text"`
	SourceLang   string `json:"source_lang"`
	TargetLang   string `json:"target_lang"`
	Translated   string `json:"translated_text"`
	ContextLabel string `json:"context_label"`
}

// CacheSink persists resolved translations. Writes are best-effort:
// the engine fires them asynchronously and only logs failures.
type CacheSink interface {
	PutBatch(ctx context.Context, records []Record) error
}

// ProgressFunc reports bulk translation progress as processed/total fragments.
type ProgressFunc func(processed, total int)

// Config tunes batching and pacing. Zero values fall back to the defaults.
type Config struct {
	BatchMax    int           // JIT batch size (default 7)
	ChunkSize   int           // bulk chunk size (default 10)
	ChunkPacing time.Duration // delay before every bulk chunk after the first (default 500ms)
	Cooldown    time.Duration // failure cooldown (default 30s)
	SourceLang  string        // language tag recorded in cache writes (default "auto")
}

const (
	defaultBatchMax    = 7
	defaultChunkSize   = 10
	defaultChunkPacing = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.BatchMax <= 0 {
		c.BatchMax = defaultBatchMax
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkPacing <= 0 {
		c.ChunkPacing = defaultChunkPacing
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.SourceLang == "" {
		c.SourceLang = "auto"
	}
	return c
}

// Engine coordinates translation requests for caption fragments: it dedups
// them through the state store, drains just-in-time requests in small
// batches, runs whole-file translation in paced chunks, and writes resolved
// translations through to the cache sink. The JIT and bulk paths may run
// concurrently; they synchronize only through the store's pending-only
// transition rules.
type Engine struct {
	store      *Store
	transport  Transport
	cache      CacheSink
	enabled    func() bool
	targetLang func() string
	cfg        Config

	draining   atomic.Bool
	bulkActive atomic.Bool

	fragMu    sync.Mutex
	fragments []Fragment
	fragSeen  map[Fragment]struct{}

	ctxMu        sync.Mutex
	contextLabel string

	cacheWrites sync.WaitGroup // tests wait for fire-and-forget flushes
}

// NewEngine assembles an engine. transport is typically a RetryingTransport;
// enabled and targetLang are read at processing boundaries so their values
// may change between batches. cache may be nil.
func NewEngine(store *Store, transport Transport, cache CacheSink, enabled func() bool, targetLang func() string, cfg Config) *Engine {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	if targetLang == nil {
		targetLang = func() string { return "en" }
	}
	return &Engine{
		store:      store,
		transport:  transport,
		cache:      cache,
		enabled:    enabled,
		targetLang: targetLang,
		cfg:        cfg.withDefaults(),
		fragSeen:   make(map[Fragment]struct{}),
	}
}

// Enqueue queues rawText for just-in-time translation and kicks the queue
// processor. Returns false when the fragment is already pending, translated,
// or cooling down after a failure.
func (e *Engine) Enqueue(rawText string) bool {
	if !e.store.EnqueueJIT(rawText) {
		return false
	}
	go e.ProcessQueue()
	return true
}

// EnqueueFragments merges timed fragments into the accumulated list and
// queues each text for just-in-time translation. Returns how many texts were
// newly accepted.
func (e *Engine) EnqueueFragments(fragments []Fragment) int {
	e.mergeFragments(fragments)
	accepted := 0
	for _, f := range fragments {
		if e.store.EnqueueJIT(f.Text) {
			accepted++
		}
	}
	if accepted > 0 {
		go e.ProcessQueue()
	}
	return accepted
}

// ResolveFromCache applies a previously persisted translation without a
// transport round trip. Returns false when the fragment is already tracked.
func (e *Engine) ResolveFromCache(rawText, translated string) bool {
	if !e.store.Enqueue(rawText) {
		return false
	}
	return e.store.ResolveSuccess(rawText, translated)
}

// StateOf returns the current lifecycle state for rawText.
func (e *Engine) StateOf(rawText string) (State, bool) {
	return e.store.Get(rawText)
}

// Store exposes the underlying state store.
func (e *Engine) Store() *Store {
	return e.store
}

// Reset wipes the state store and the JIT queue. Called on target-language
// change, explicit cache clear, or navigation to new content. A bulk run
// already in flight is allowed to finish; its resolutions are discarded
// because the keys it resolves against are no longer pending.
func (e *Engine) Reset() {
	e.store.Reset()
}

// SetContext switches the engine to a new content item. The accumulated
// fragment list belongs to the previous content, so it is cleared along with
// all translation state.
func (e *Engine) SetContext(label string) {
	e.ctxMu.Lock()
	e.contextLabel = label
	e.ctxMu.Unlock()

	e.fragMu.Lock()
	e.fragments = nil
	e.fragSeen = make(map[Fragment]struct{})
	e.fragMu.Unlock()

	e.Reset()
}

// Context returns the current content label.
func (e *Engine) Context() string {
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()
	return e.contextLabel
}

// Fragments returns a copy of the accumulated time-ordered fragment list.
func (e *Engine) Fragments() []Fragment {
	e.fragMu.Lock()
	defer e.fragMu.Unlock()
	out := make([]Fragment, len(e.fragments))
	copy(out, e.fragments)
	return out
}

// mergeFragments folds new fragments into the accumulated list, deduped by
// exact (start, end, text) and kept in playback order for skip/repeat
// features.
func (e *Engine) mergeFragments(fragments []Fragment) {
	e.fragMu.Lock()
	defer e.fragMu.Unlock()
	for _, f := range fragments {
		if _, seen := e.fragSeen[f]; seen {
			continue
		}
		e.fragSeen[f] = struct{}{}
		e.fragments = append(e.fragments, f)
	}
	sort.SliceStable(e.fragments, func(i, j int) bool {
		return e.fragments[i].Start < e.fragments[j].Start
	})
}

// translateBatch runs one transport call for batch and applies the aligned
// results to the store. Shared by the JIT and bulk paths.
func (e *Engine) translateBatch(ctx context.Context, batch []string) {
	results, err := e.transport.Translate(ctx, batch, e.targetLang(), false)
	if err != nil {
		log.Printf("[caption] batch of %d failed: %v", len(batch), err)
		for _, text := range batch {
			e.store.ResolveFailure(text, err.Error(), e.cfg.Cooldown)
		}
		return
	}

	var records []Record
	label := e.Context()
	for i, text := range batch {
		var translated *string
		if i < len(results) {
			translated = results[i]
		}
		if translated == nil {
			e.store.ResolveFailure(text, "empty translation response", e.cfg.Cooldown)
			continue
		}
		if e.store.ResolveSuccess(text, *translated) && label != "" {
			records = append(records, Record{
				SourceText:   text,
				SourceLang:   e.cfg.SourceLang,
				TargetLang:   e.targetLang(),
				Translated:   normalizeTranslation(*translated),
				ContextLabel: label,
			})
		}
	}
	e.flushCache(records)
}

// flushCache persists records on a detached goroutine. A failure to persist
// never affects in-memory state.
func (e *Engine) flushCache(records []Record) {
	if e.cache == nil || len(records) == 0 {
		return
	}
	e.cacheWrites.Add(1)
	go func() {
		defer e.cacheWrites.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.cache.PutBatch(ctx, records); err != nil {
			log.Printf("[caption] cache write of %d records failed: %v", len(records), err)
		}
	}()
}
