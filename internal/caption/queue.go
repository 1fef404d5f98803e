package caption

import "context"

// ProcessQueue drains the JIT queue in FIFO batches of at most
// Config.BatchMax texts per transport call. Single-flight: a call while a
// drain is already active is a no-op, and the active loop keeps going until
// the queue is empty, so later calls can always make progress once the flag
// is released.
func (e *Engine) ProcessQueue() {
	if !e.draining.CompareAndSwap(false, true) {
		return
	}
	defer e.draining.Store(false)

	if !e.enabled() {
		return
	}

	for {
		batch := e.store.DequeueBatch(e.cfg.BatchMax)
		if len(batch) == 0 {
			return
		}

		if !e.enabled() {
			// Translation was switched off between dequeues. Zero cooldown
			// so these items are immediately retryable once re-enabled.
			for _, text := range batch {
				e.store.ResolveFailure(text, "feature disabled", 0)
			}
			return
		}

		e.translateBatch(context.Background(), batch)
	}
}
