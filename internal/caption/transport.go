package caption

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Transport performs one translation call for an ordered batch of texts. The
// returned slice is positionally aligned with the input; a nil entry means
// the provider had no translation for that item, not an error. A nil slice
// with a nil error means the underlying channel produced no response at all.
type Transport interface {
	Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error)

func (f TransportFunc) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	return f(ctx, texts, targetLang, contextual)
}

const (
	transportAttempts  = 3
	transportRetryWait = time.Second
)

// recoverableErrors are host-channel failure classes worth an automatic
// retry. Anything else surfaces immediately.
var recoverableErrors = []string{
	"connection closed",
	"runtime invalidated",
	"receiving end does not exist",
}

func isRecoverable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, class := range recoverableErrors {
		if strings.Contains(msg, class) {
			return true
		}
	}
	return false
}

// RetryingTransport wraps a Transport with bounded retry so callers only
// ever see a two-outcome result: an aligned translation slice, or a terminal
// error. Transient channel flakiness is absorbed here and never reaches the
// queue processor or the batch controller.
type RetryingTransport struct {
	inner     Transport
	attempts  int
	retryWait time.Duration
}

// NewRetryingTransport wraps inner with the default attempt count and wait.
func NewRetryingTransport(inner Transport) *RetryingTransport {
	return &RetryingTransport{
		inner:     inner,
		attempts:  transportAttempts,
		retryWait: transportRetryWait,
	}
}

func (t *RetryingTransport) Translate(ctx context.Context, texts []string, targetLang string, contextual bool) ([]*string, error) {
	for attempt := 1; attempt <= t.attempts; attempt++ {
		results, err := t.inner.Translate(ctx, texts, targetLang, contextual)
		if err == nil && results != nil {
			return results, nil
		}

		last := attempt == t.attempts
		if err == nil {
			// No response at all from the channel.
			if last {
				return nil, errors.New("transport unavailable")
			}
		} else if last || !isRecoverable(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.retryWait):
		}
	}
	return nil, errors.New("translation failed after retries")
}
