package interfaces

// Connection represents a WebSocket status subscriber
// ARCHITECTURAL DISCOVERY: Pure abstraction without implementation details
// ensures clean boundaries between WebSocket infrastructure and the status hub
type Connection interface {
	// WriteJSON sends a JSON message to the client (thread-safe)
	WriteJSON(v interface{}) error

	// Close closes the connection and cleans up resources
	Close() error

	// GetViewerID returns the subscribing account's ID
	GetViewerID() string

	// GetItemID returns the content item this connection watches
	GetItemID() string
}
