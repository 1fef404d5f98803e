package caption

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedTransport replays a fixed sequence of outcomes.
type scriptedTransport struct {
	calls   int
	results [][]*string
	errs    []error
}

func (s *scriptedTransport) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	i := s.calls
	s.calls++
	return s.results[i], s.errs[i]
}

func ptr(s string) *string { return &s }

func newTestRetrying(inner Transport) *RetryingTransport {
	return &RetryingTransport{inner: inner, attempts: 3, retryWait: time.Millisecond}
}

func TestRetryingTransportSuccessFirstTry(t *testing.T) {
	inner := &scriptedTransport{
		results: [][]*string{{ptr("hei")}},
		errs:    []error{nil},
	}
	rt := newTestRetrying(inner)

	results, err := rt.Translate(context.Background(), []string{"hi"}, "fi", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0] == nil || *results[0] != "hei" {
		t.Errorf("results = %v", results)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

func TestRetryingTransportRetriesNoResponse(t *testing.T) {
	inner := &scriptedTransport{
		results: [][]*string{nil, {ptr("hei")}},
		errs:    []error{nil, nil},
	}
	rt := newTestRetrying(inner)

	results, err := rt.Translate(context.Background(), []string{"hi"}, "fi", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0] == nil || *results[0] != "hei" {
		t.Errorf("results = %v", results)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

func TestRetryingTransportUnavailableAfterNoResponses(t *testing.T) {
	inner := &scriptedTransport{
		results: [][]*string{nil, nil, nil},
		errs:    []error{nil, nil, nil},
	}
	rt := newTestRetrying(inner)

	_, err := rt.Translate(context.Background(), []string{"hi"}, "fi", false)
	if err == nil || err.Error() != "transport unavailable" {
		t.Errorf("error = %v, want transport unavailable", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestRetryingTransportRetriesRecoverableError(t *testing.T) {
	inner := &scriptedTransport{
		results: [][]*string{nil, {ptr("hei")}},
		errs:    []error{errors.New("message channel: connection closed before response"), nil},
	}
	rt := newTestRetrying(inner)

	_, err := rt.Translate(context.Background(), []string{"hi"}, "fi", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

func TestRetryingTransportSurfacesTerminalError(t *testing.T) {
	inner := &scriptedTransport{
		results: [][]*string{nil},
		errs:    []error{errors.New("rate limited")},
	}
	rt := newTestRetrying(inner)

	_, err := rt.Translate(context.Background(), []string{"hi"}, "fi", false)
	if err == nil || err.Error() != "rate limited" {
		t.Errorf("error = %v, want rate limited", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1: terminal errors are not retried", inner.calls)
	}
}

func TestRetryingTransportRecoverableExhaustsAttempts(t *testing.T) {
	recoverable := errors.New("Extension context: runtime invalidated")
	inner := &scriptedTransport{
		results: [][]*string{nil, nil, nil},
		errs:    []error{recoverable, recoverable, recoverable},
	}
	rt := newTestRetrying(inner)

	_, err := rt.Translate(context.Background(), []string{"hi"}, "fi", false)
	if !errors.Is(err, recoverable) {
		t.Errorf("error = %v, want final attempt's error", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"connection closed before a response was received", true},
		{"Runtime Invalidated", true},
		{"the receiving end does not exist", true},
		{"rate limited", false},
		{"bad response", false},
	}
	for _, tt := range tests {
		if got := isRecoverable(errors.New(tt.msg)); got != tt.want {
			t.Errorf("isRecoverable(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
