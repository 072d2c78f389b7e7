package realtime

import (
	"time"

	"taskflow/cmd/identity/ids"
)

// NewSessionID returns a ULID identifying one websocket session in logs and
// the hello_ack payload.
func NewSessionID(now time.Time) string { return ids.MustULID(now) }

// newEnvelopeID returns a ULID for an outbound envelope.
func newEnvelopeID(now time.Time) string { return ids.MustULID(now) }
