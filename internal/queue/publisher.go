package queue

import "context"

// Publisher hands email events to the broker. reqID travels as the
// X-Request-ID header so notifier logs correlate with the API request.
type Publisher interface {
	PublishEmail(ctx context.Context, ev EmailRequested, reqID string) error
	Close() error
}
