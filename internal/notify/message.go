// Package notify delivers transactional email outside the request cycle.
//
// Handlers hand a Message to a Dispatcher and return; the dispatcher decides
// where delivery happens (an in-process worker pool or a RabbitMQ exchange
// drained by cmd/notifier). Delivery failures are logged and counted, never
// retried and never reported back to the caller.
package notify

import "context"

type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
)

type Message struct {
	Kind      Kind
	To        string
	Subject   string
	HTML      string
	RequestID string
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Dispatcher schedules a delivery without blocking the caller.
type Dispatcher interface {
	Dispatch(m Message)
	Close()
}
