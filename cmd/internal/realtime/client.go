package realtime

import (
	"sync"

	v1 "taskflow/shared/contracts/events/v1"
)

// Offer outcomes, also used as the deliveries metric label.
const (
	offerDelivered = "delivered"
	offerDropped   = "dropped"
	offerClosed    = "closed"
)

// Client is one authenticated websocket session owned by UserID.
//
// Send is never closed by the server; publishers use Offer and the writer
// loop stops on Done.
type Client struct {
	SessionID string
	UserID    int64
	Send      chan v1.Envelope

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(userID int64, sessionID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan v1.Envelope, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Offer enqueues env without blocking. A full queue drops the envelope.
func (c *Client) Offer(env v1.Envelope) string {
	select {
	case <-c.Done():
		return offerClosed
	default:
	}
	select {
	case c.Send <- env:
		return offerDelivered
	default:
		return offerDropped
	}
}

// Done is closed once the session is shutting down. A nil Client is
// always done.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close stops the session goroutines. Safe to call repeatedly.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() { close(c.done) })
}
