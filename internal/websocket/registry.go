package websocket

import (
	"sort"
	"sync"
)

// Registry tracks status subscribers per content item
// ARCHITECTURAL DISCOVERY: Pure connection management without business logic
// maintains clean separation between connection tracking and status polling
type Registry struct {
	mu    sync.RWMutex                         // TECHNICAL DISCOVERY: RWMutex optimizes for read-heavy lookup patterns
	items map[string]map[*Connection]struct{} // itemID -> subscribers
	total int
}

// NewRegistry creates a new connection registry
func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]map[*Connection]struct{}),
	}
}

// RegisterConnection adds a subscribed connection
// FUNCTIONAL DISCOVERY: One viewer may watch the same item from several
// tabs, so connections are keyed by instance rather than by viewer
func (r *Registry) RegisterConnection(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if !conn.IsSubscribed() {
		return ErrConnectionNotSubscribed
	}

	itemID := conn.GetItemID()

	r.mu.Lock()
	defer r.mu.Unlock()

	subscribers := r.items[itemID]
	if subscribers == nil {
		subscribers = make(map[*Connection]struct{})
		r.items[itemID] = subscribers
	}
	if _, exists := subscribers[conn]; !exists {
		subscribers[conn] = struct{}{}
		r.total++
	}
	return nil
}

// UnregisterConnection removes a connection; unknown connections are ignored
func (r *Registry) UnregisterConnection(conn *Connection) {
	if conn == nil {
		return
	}
	itemID := conn.GetItemID()

	r.mu.Lock()
	defer r.mu.Unlock()

	subscribers, exists := r.items[itemID]
	if !exists {
		return
	}
	if _, exists := subscribers[conn]; !exists {
		return
	}
	delete(subscribers, conn)
	r.total--

	// TECHNICAL DISCOVERY: Clean up empty maps to prevent memory leaks
	if len(subscribers) == 0 {
		delete(r.items, itemID)
	}
}

// GetItemConnections returns the subscribers of one item for broadcasting
func (r *Registry) GetItemConnections(itemID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers := r.items[itemID]
	connections := make([]*Connection, 0, len(subscribers))
	for conn := range subscribers {
		connections = append(connections, conn)
	}
	return connections
}

// Items returns the IDs of all watched items in a stable order
func (r *Registry) Items() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetStats returns registry statistics for monitoring and debugging
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections": r.total,
		"watched_items":     len(r.items),
	}
}
