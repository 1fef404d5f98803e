package caption

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingTransport captures every batch it receives and answers with a
// scripted reply function.
type recordingTransport struct {
	mu      sync.Mutex
	batches [][]string
	times   []time.Time
	reply   func(texts []string) ([]*string, error)
}

func (r *recordingTransport) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	r.mu.Lock()
	batch := make([]string, len(texts))
	copy(batch, texts)
	r.batches = append(r.batches, batch)
	r.times = append(r.times, time.Now())
	r.mu.Unlock()
	if r.reply != nil {
		return r.reply(texts)
	}
	out := make([]*string, len(texts))
	for i, text := range texts {
		out[i] = ptr("X:" + text)
	}
	return out, nil
}

func (r *recordingTransport) batchSizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sizes := make([]int, len(r.batches))
	for i, b := range r.batches {
		sizes[i] = len(b)
	}
	return sizes
}

// memorySink collects cache writes.
type memorySink struct {
	mu      sync.Mutex
	records []Record
}

func (m *memorySink) PutBatch(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *memorySink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func newTestEngine(tr Transport, sink CacheSink, enabled func() bool) *Engine {
	return NewEngine(NewStore(nil), tr, sink, enabled, func() string { return "fi" }, Config{
		ChunkPacing: time.Millisecond,
	})
}

func TestProcessQueueBatchSplit(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(tr, nil, nil)

	for i := 0; i < 9; i++ {
		if !e.store.EnqueueJIT(fmt.Sprintf("line %d", i)) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	e.ProcessQueue()

	sizes := tr.batchSizes()
	if len(sizes) != 2 || sizes[0] != 7 || sizes[1] != 2 {
		t.Fatalf("batch sizes = %v, want [7 2]", sizes)
	}
	// FIFO order: first batch starts with the first enqueued text.
	if tr.batches[0][0] != "line 0" || tr.batches[1][0] != "line 7" {
		t.Errorf("batches not in FIFO order: %v", tr.batches)
	}
	for i := 0; i < 9; i++ {
		st, ok := e.StateOf(fmt.Sprintf("line %d", i))
		if !ok || st.Status != StatusSuccess {
			t.Errorf("line %d state = %+v, want success", i, st)
		}
	}
}

func TestProcessQueueSingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	tr := TransportFunc(func(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
		close(started)
		<-release
		out := make([]*string, len(texts))
		for i := range texts {
			out[i] = ptr("x")
		}
		return out, nil
	})
	e := newTestEngine(tr, nil, nil)
	e.store.EnqueueJIT("one")

	go e.ProcessQueue()
	<-started

	// Second call while the first drain is blocked must return immediately.
	done := make(chan struct{})
	go func() {
		e.ProcessQueue()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("re-entrant ProcessQueue did not return immediately")
	}
	close(release)
}

func TestProcessQueueFeatureDisabledMidDrain(t *testing.T) {
	var enabled = true
	tr := &recordingTransport{}
	e := newTestEngine(tr, nil, func() bool { return enabled })

	// First batch succeeds, then the flag flips before the second dequeue.
	tr.reply = func(texts []string) ([]*string, error) {
		enabled = false
		out := make([]*string, len(texts))
		for i := range texts {
			out[i] = ptr("x")
		}
		return out, nil
	}

	for i := 0; i < 9; i++ {
		e.store.EnqueueJIT(fmt.Sprintf("line %d", i))
	}
	e.ProcessQueue()

	if calls := len(tr.batchSizes()); calls != 1 {
		t.Fatalf("transport calls = %d, want 1 (drain stops once disabled)", calls)
	}
	// The dequeued-but-untranslated items fail with zero cooldown so they are
	// immediately retryable once re-enabled.
	st, _ := e.StateOf("line 7")
	if st.Status != StatusFailed || st.Err != "feature disabled" {
		t.Fatalf("state = %+v, want failed/feature disabled", st)
	}
	enabled = true
	if !e.store.Enqueue("line 7") {
		t.Error("item not immediately retryable after feature re-enabled")
	}
}

func TestProcessQueueDisabledNoop(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(tr, nil, func() bool { return false })
	e.store.EnqueueJIT("one")

	e.ProcessQueue()

	if len(tr.batchSizes()) != 0 {
		t.Error("transport called while feature disabled")
	}
	if e.store.QueueLen() != 1 {
		t.Error("queue drained while feature disabled")
	}
}

func TestProcessQueueTransportFailure(t *testing.T) {
	tr := &recordingTransport{reply: func(texts []string) ([]*string, error) {
		return nil, errors.New("rate limited")
	}}
	e := newTestEngine(tr, nil, nil)

	for _, text := range []string{"a", "b", "c"} {
		e.store.EnqueueJIT(text)
	}
	e.ProcessQueue()

	for _, text := range []string{"a", "b", "c"} {
		st, _ := e.StateOf(text)
		if st.Status != StatusFailed || st.Err != "rate limited" {
			t.Errorf("%q state = %+v, want failed/rate limited", text, st)
		}
		if st.NextRetryAt.Before(st.UpdatedAt.Add(29 * time.Second)) {
			t.Errorf("%q cooldown shorter than default: %v", text, st.NextRetryAt.Sub(st.UpdatedAt))
		}
	}
}

func TestProcessQueuePartialNullResults(t *testing.T) {
	tr := &recordingTransport{reply: func(texts []string) ([]*string, error) {
		return []*string{ptr("Hei"), nil, ptr("Moi")}, nil
	}}
	sink := &memorySink{}
	e := newTestEngine(tr, sink, nil)
	e.SetContext("video-42")

	for _, text := range []string{"a", "b", "c"} {
		e.store.EnqueueJIT(text)
	}
	e.ProcessQueue()
	e.cacheWrites.Wait()

	if st, _ := e.StateOf("a"); st.Status != StatusSuccess || st.Text != "Hei" {
		t.Errorf("a state = %+v, want success/Hei", st)
	}
	if st, _ := e.StateOf("b"); st.Status != StatusFailed || st.Err != "empty translation response" {
		t.Errorf("b state = %+v, want failed/empty translation response", st)
	}
	if st, _ := e.StateOf("c"); st.Status != StatusSuccess || st.Text != "Moi" {
		t.Errorf("c state = %+v, want success/Moi", st)
	}
	if sink.len() != 2 {
		t.Errorf("cache records = %d, want 2", sink.len())
	}
	for _, rec := range sink.records {
		if rec.TargetLang != "fi" || rec.ContextLabel != "video-42" {
			t.Errorf("record = %+v, want target fi and context video-42", rec)
		}
	}
}

func TestCacheWriteSkippedWithoutContext(t *testing.T) {
	sink := &memorySink{}
	e := newTestEngine(&recordingTransport{}, sink, nil)

	e.store.EnqueueJIT("hello")
	e.ProcessQueue()
	e.cacheWrites.Wait()

	if sink.len() != 0 {
		t.Errorf("cache records = %d, want 0 without a content identifier", sink.len())
	}
}

func TestEnqueueKicksProcessing(t *testing.T) {
	tr := &recordingTransport{}
	e := newTestEngine(tr, nil, nil)
	e.SetContext("video-1")

	if !e.Enqueue("hello there") {
		t.Fatal("enqueue rejected")
	}
	if e.Enqueue("hello there") {
		t.Error("duplicate enqueue accepted before resolution")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if st, ok := e.StateOf("hello there"); ok && st.Status == StatusSuccess {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("fragment never resolved")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
