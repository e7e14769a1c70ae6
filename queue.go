package alphasms

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

type queueState int

const (
	queueOpen queueState = iota
	queueClosed
)

// MessageQueue batches several messages into a single gateway round trip.
// Messages are validated as they are added, so malformed input fails at the
// point of the mistake rather than at flush time. The flush happens exactly
// once; typical usage ties it to scope exit:
//
//	q := client.MessageQueue()
//	defer q.CloseWith(ctx, &err)
//	if err = q.AddMessage(msg); err != nil { ... }
//
// A MessageQueue is owned by a single goroutine and is not safe for
// concurrent use.
type MessageQueue struct {
	client  *Client
	pending []Message
	state   queueState
	results []SendResult
}

func newMessageQueue(c *Client) *MessageQueue {
	return &MessageQueue{client: c}
}

// AddMessage validates the message and appends it to the pending batch. It
// never touches the network. After the queue has been flushed it fails with
// ErrInvalidState.
func (q *MessageQueue) AddMessage(msg Message) error {
	if q.state != queueOpen {
		return fmt.Errorf("%w: queue already flushed", ErrInvalidState)
	}
	if _, err := msg.normalize(q.client.region); err != nil {
		return err
	}
	q.pending = append(q.pending, msg)
	return nil
}

// Len reports how many messages are waiting to be flushed.
func (q *MessageQueue) Len() int {
	return len(q.pending)
}

// Flush sends the pending batch in one round trip and closes the queue. A
// second call is a no-op returning the recorded results, so a double scope
// exit can never send twice. An empty queue flushes without any network call.
func (q *MessageQueue) Flush(ctx context.Context) ([]SendResult, error) {
	if q.state == queueClosed {
		return q.results, nil
	}
	q.state = queueClosed

	if len(q.pending) == 0 {
		return nil, nil
	}

	pending := q.pending
	q.pending = nil
	results, err := q.client.SendMessages(ctx, pending)
	if err != nil {
		return nil, err
	}

	q.results = results
	return results, nil
}

// Close flushes the queue, discarding the results. Use Results to inspect
// them afterwards.
func (q *MessageQueue) Close(ctx context.Context) error {
	_, err := q.Flush(ctx)
	return err
}

// CloseWith is the deferred form of Close. A flush failure is appended to
// *errp, so an error already propagating out of the scope keeps priority and
// the flush failure is attached rather than dropped.
func (q *MessageQueue) CloseWith(ctx context.Context, errp *error) {
	*errp = multierr.Append(*errp, q.Close(ctx))
}

// Results returns the outcome recorded by the flush, one entry per added
// message in insertion order. It is nil before the flush and after a failed
// or empty flush.
func (q *MessageQueue) Results() []SendResult {
	return q.results
}
