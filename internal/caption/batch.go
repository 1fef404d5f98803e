package caption

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrBulkInProgress is returned by TranslateAll while another run is active.
var ErrBulkInProgress = errors.New("bulk translation already in progress")

// TranslateAll translates an entire known set of fragments ahead of playback
// need, without contending with the JIT queue. Fragments are registered
// directly against the state store, so anything already pending or resolved
// elsewhere is skipped; the newly accepted remainder is translated in fixed
// chunks, strictly sequentially, with a pacing delay before every chunk after
// the first. progress is reported after each chunk against the fixed total.
//
// Single-flight: a call while a run is active returns ErrBulkInProgress
// without touching any state.
func (e *Engine) TranslateAll(ctx context.Context, fragments []Fragment, progress ProgressFunc) error {
	if !e.bulkActive.CompareAndSwap(false, true) {
		return ErrBulkInProgress
	}
	defer e.bulkActive.Store(false)

	if progress == nil {
		progress = func(int, int) {}
	}

	e.mergeFragments(fragments)

	// Register directly, bypassing the JIT queue. Dedup still applies.
	var accepted []string
	for _, f := range fragments {
		if e.store.Enqueue(f.Text) {
			accepted = append(accepted, f.Text)
		}
	}
	if len(accepted) == 0 {
		return nil
	}

	total := len(accepted)
	log.Printf("[caption] bulk translating %d of %d fragments", total, len(fragments))

	processed := 0
	for start := 0; start < total; start += e.cfg.ChunkSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.cfg.ChunkPacing):
			}
		}

		end := min(start+e.cfg.ChunkSize, total)
		chunk := accepted[start:end]
		e.translateBatch(ctx, chunk)

		processed += len(chunk)
		progress(processed, total)
	}

	log.Printf("[caption] bulk translation finished: %d fragments", processed)
	return nil
}
