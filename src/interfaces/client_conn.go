package interfaces

// -----------------------------------------------------------------------------
// IClientConn abstracts one duplex client connection for the subscription
// layer, decoupled from the websocket library internals.
// -----------------------------------------------------------------------------

type IClientConn interface {

	// -----------------------------------------------------------------------------

	// Send enqueues one JSON message for delivery. Never blocks: a closed
	// connection or a full outbound buffer returns an error, and the caller
	// treats the connection as dead.
	Send(v interface{}) error

	// -----------------------------------------------------------------------------

	// IsOpen reports whether the connection is still usable.
	IsOpen() bool

	// -----------------------------------------------------------------------------

	// Close tears the transport down. Safe to call more than once.
	Close()
}
