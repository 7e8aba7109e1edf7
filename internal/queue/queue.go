// Package queue implements the deferred reminder queue on Redis sorted
// sets: members are job envelopes, scores are unix fire times. Delivery
// is at-least-once; handlers must be idempotent.
package queue

import (
	"context"
	"time"
)

// Enqueuer submits a message for delivery at or after fireAt.
type Enqueuer interface {
	Enqueue(ctx context.Context, body []byte, fireAt time.Time) error
}

// Handler processes one delivered message body. Returning nil
// acknowledges the message; returning an error requests redelivery.
// Handlers signal permanent drops (malformed payload, vanished subject)
// by returning nil after logging.
type Handler func(ctx context.Context, body []byte) error
