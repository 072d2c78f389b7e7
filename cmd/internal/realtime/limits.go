package realtime

import "time"

const (
	// Max bytes per inbound frame. Clients only ever send hello.
	maxFrameBytes = 8 << 10

	defaultSendQueueSize = 64
	minSendQueueSize     = 8

	defaultHelloTimeout = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second
	maxPingFailures   = 3

	// Inbound frames per window before the connection is closed.
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second
)
