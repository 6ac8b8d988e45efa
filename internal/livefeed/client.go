package livefeed

// Client is one subscriber of the audit feed. The hub owns its lifecycle:
// Close is called exactly once, after the client has been removed.
type Client interface {
	// GetID returns a key unique per connection.
	GetID() string

	// GetSendChannel returns the channel the hub delivers events on.
	GetSendChannel() chan<- Event

	// Run starts the client's read and write pumps.
	Run()
	// Close stops the write pump.
	Close()
}
