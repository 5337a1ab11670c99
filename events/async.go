package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("publisher closed")

type message struct {
	key     string
	payload any
}

// Async hands messages to a background goroutine so request handlers never
// wait on the broker. When the buffer is full the message is dropped and
// logged; events are best effort.
type Async struct {
	next    Publisher
	log     *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan message
	done   chan struct{}
}

func NewAsync(next Publisher, buffer int, log *zap.Logger) *Async {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	a := &Async{
		next:    next,
		log:     log,
		timeout: 5 * time.Second,
		queue:   make(chan message, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for m := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, m.key, m.payload); err != nil {
			a.log.Warn("event publish failed", zap.String("key", m.key), zap.Error(err))
		}
		cancel()
	}
}

// Publish enqueues without blocking. ctx is not carried to the broker call
// since the request will usually be finished by then.
func (a *Async) Publish(_ context.Context, key string, payload any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- message{key: key, payload: payload}:
	default:
		a.log.Warn("event buffer full, dropping", zap.String("key", key))
	}
	return nil
}

// Close drains queued messages and closes the underlying publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
