package consts

import "time"

// Tunable options
const (
	// BUFFERED_READ_BUFFSIZE is the read buffer size of client connections
	BUFFERED_READ_BUFFSIZE = 16384
	// BUFFERED_WRITE_BUFFSIZE is the write buffer size of client connections
	BUFFERED_WRITE_BUFFSIZE = 16384

	// CLIENT_PROXY_SET_TCP_NO_DELAY = true sets client connections to TcpNoDelay
	CLIENT_PROXY_SET_TCP_NO_DELAY = true

	// SERVER_TICK_INTERVAL is the tick interval of the main loop timers,
	// which bounds timer resolution
	SERVER_TICK_INTERVAL = time.Millisecond * 10

	// SCENE_SWEEP_INTERVAL is how often stale scenes are recomputed even
	// without world changes
	SCENE_SWEEP_INTERVAL = time.Second * 1
)

// Debug options
const (
	DEBUG_PACKETS = false
)
