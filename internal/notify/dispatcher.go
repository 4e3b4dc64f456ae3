package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/helper"
	"github.com/tazhibayda/quiz-auth-service/internal/metrics"
	"github.com/tazhibayda/quiz-auth-service/internal/queue"
)

const sendTimeout = 30 * time.Second

// Pool delivers through a Sender on a fixed set of workers. Each delivery
// gets a fresh context so it outlives the request that scheduled it.
type Pool struct {
	sender Sender
	log    *zap.Logger
	jobs   chan Message

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(sender Sender, workers, buffer int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	p := &Pool{sender: sender, log: log, jobs: make(chan Message, buffer)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for m := range p.jobs {
		deliver(p.sender, p.log, m)
	}
}

// Dispatch never blocks: when the buffer is full the message is dropped.
func (p *Pool) Dispatch(m Message) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("notify: pool closed, dropping mail", zap.String("kind", string(m.Kind)))
		metrics.Emails.WithLabelValues(string(m.Kind), "dropped").Inc()
		return
	}
	select {
	case p.jobs <- m:
	default:
		p.log.Warn("notify: queue full, dropping mail",
			zap.String("kind", string(m.Kind)), zap.String("request_id", m.RequestID))
		metrics.Emails.WithLabelValues(string(m.Kind), "dropped").Inc()
	}
}

// Close stops intake and waits for queued mail to be attempted.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func deliver(sender Sender, log *zap.Logger, m Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := sender.Send(ctx, m); err != nil {
		log.Error("notify: delivery failed",
			zap.String("kind", string(m.Kind)),
			zap.String("to", helper.Hash8(m.To)),
			zap.String("request_id", m.RequestID),
			zap.Error(err))
		metrics.Emails.WithLabelValues(string(m.Kind), "failed").Inc()
		return
	}
	metrics.Emails.WithLabelValues(string(m.Kind), "sent").Inc()
}

// QueueDispatcher hands mail to RabbitMQ; cmd/notifier performs delivery.
type QueueDispatcher struct {
	pub queue.Publisher
	log *zap.Logger
	wg  sync.WaitGroup
}

func NewQueueDispatcher(pub queue.Publisher, log *zap.Logger) *QueueDispatcher {
	return &QueueDispatcher{pub: pub, log: log}
}

func (d *QueueDispatcher) Dispatch(m Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ev := queue.EmailRequested{
			Kind: string(m.Kind), To: m.To, Subject: m.Subject, HTML: m.HTML,
			RequestedAt: time.Now().UTC(),
		}
		if err := d.pub.PublishEmail(context.Background(), ev, m.RequestID); err != nil {
			d.log.Error("notify: publish failed",
				zap.String("kind", string(m.Kind)),
				zap.String("request_id", m.RequestID),
				zap.Error(err))
			metrics.Emails.WithLabelValues(string(m.Kind), "failed").Inc()
			return
		}
		metrics.Emails.WithLabelValues(string(m.Kind), "queued").Inc()
	}()
}

func (d *QueueDispatcher) Close() { d.wg.Wait() }

// HandleDelivery decodes an EmailRequested body and sends it. It is the
// per-message handler of cmd/notifier.
func HandleDelivery(sender Sender, log *zap.Logger) func(ctx context.Context, body []byte) error {
	return func(ctx context.Context, body []byte) error {
		var ev queue.EmailRequested
		if err := json.Unmarshal(body, &ev); err != nil {
			log.Error("notify: bad message", zap.Error(err))
			return fmt.Errorf("decode: %w", err)
		}
		m := Message{Kind: Kind(ev.Kind), To: ev.To, Subject: ev.Subject, HTML: ev.HTML}
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := sender.Send(ctx, m); err != nil {
			log.Error("notify: delivery failed",
				zap.String("kind", ev.Kind), zap.String("to", helper.Hash8(ev.To)), zap.Error(err))
			metrics.Emails.WithLabelValues(ev.Kind, "failed").Inc()
			return err
		}
		metrics.Emails.WithLabelValues(ev.Kind, "sent").Inc()
		return nil
	}
}
