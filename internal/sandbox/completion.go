package sandbox

import (
	"context"
	"sync"

	"github.com/lambda-feedback/scripthost/models"
)

// NewCompletion creates a one-shot channel that carries the single
// response of an invocation from the sandbox to the waiting caller.
func NewCompletion() (*Sender, *Receiver) {
	ch := make(chan models.Response, 1)
	return &Sender{ch: ch}, &Receiver{ch: ch}
}

// Sender is the producing side of a completion channel. The first Send
// delivers the response and closes the channel.
type Sender struct {
	mu     sync.Mutex
	ch     chan<- models.Response
	closed bool
}

// Send delivers res. Any call after the first send, or after Close,
// returns ErrAlreadySent and has no effect.
func (s *Sender) Send(res models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrAlreadySent
	}

	s.ch <- res
	close(s.ch)
	s.closed = true

	return nil
}

// Sent reports whether the channel was consumed.
func (s *Sender) Sent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close drops the producer. If nothing was sent, the receiver observes
// ErrChannelClosed. Close is idempotent.
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	close(s.ch)
	s.closed = true
}

// Receiver is the consuming side of a completion channel.
type Receiver struct {
	ch <-chan models.Response
}

// Recv waits for the response. It returns ErrChannelClosed if the
// producer was dropped without sending, or the context error if ctx is
// done first.
func (r *Receiver) Recv(ctx context.Context) (models.Response, error) {
	select {
	case res, ok := <-r.ch:
		if !ok {
			return models.Response{}, ErrChannelClosed
		}
		return res, nil
	case <-ctx.Done():
		return models.Response{}, ctx.Err()
	}
}
