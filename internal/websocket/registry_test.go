package websocket

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// subscribed builds a connection without a socket; registry code never
// touches the socket
func subscribed(t *testing.T, viewerID, itemID string) *Connection {
	t.Helper()
	conn := &Connection{}
	if err := conn.Subscribe(viewerID, itemID); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	return conn
}

func TestRegistry_RegisterRequiresSubscription(t *testing.T) {
	r := NewRegistry()

	if err := r.RegisterConnection(nil); !errors.Is(err, ErrNilConnection) {
		t.Errorf("Expected ErrNilConnection, got %v", err)
	}
	if err := r.RegisterConnection(&Connection{}); !errors.Is(err, ErrConnectionNotSubscribed) {
		t.Errorf("Expected ErrConnectionNotSubscribed, got %v", err)
	}
}

func TestRegistry_SameViewerSeveralTabs(t *testing.T) {
	r := NewRegistry()
	tab1 := subscribed(t, "42", "item-1")
	tab2 := subscribed(t, "42", "item-1")
	other := subscribed(t, "7", "item-2")

	for _, c := range []*Connection{tab1, tab2, other, tab1} {
		if err := r.RegisterConnection(c); err != nil {
			t.Fatalf("RegisterConnection failed: %v", err)
		}
	}

	if got := len(r.GetItemConnections("item-1")); got != 2 {
		t.Errorf("Expected 2 subscribers for item-1, got %d", got)
	}
	stats := r.GetStats()
	if stats["total_connections"] != 3 || stats["watched_items"] != 2 {
		t.Errorf("Unexpected stats: %v", stats)
	}

	items := r.Items()
	if len(items) != 2 || items[0] != "item-1" || items[1] != "item-2" {
		t.Errorf("Expected sorted items [item-1 item-2], got %v", items)
	}
}

func TestRegistry_UnregisterCleansUp(t *testing.T) {
	r := NewRegistry()
	conn := subscribed(t, "42", "item-1")
	_ = r.RegisterConnection(conn)

	r.UnregisterConnection(conn)
	r.UnregisterConnection(conn)
	r.UnregisterConnection(nil)
	r.UnregisterConnection(subscribed(t, "9", "item-9"))

	if got := len(r.GetItemConnections("item-1")); got != 0 {
		t.Errorf("Expected no subscribers, got %d", got)
	}
	if len(r.Items()) != 0 {
		t.Errorf("Expected empty item map, got %v", r.Items())
	}
	if r.GetStats()["total_connections"] != 0 {
		t.Errorf("Expected zero connections, got %v", r.GetStats())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	conns := make([]*Connection, 50)
	for i := range conns {
		conns[i] = subscribed(t, fmt.Sprintf("viewer-%d", i), fmt.Sprintf("item-%d", i%5))
	}

	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn *Connection) {
			defer wg.Done()
			if err := r.RegisterConnection(conn); err != nil {
				t.Errorf("RegisterConnection failed: %v", err)
				return
			}
			_ = r.GetItemConnections(conn.GetItemID())
			_ = r.Items()
			if i%2 == 0 {
				r.UnregisterConnection(conn)
			}
		}(i, conn)
	}
	wg.Wait()

	if got := r.GetStats()["total_connections"]; got != 25 {
		t.Errorf("Expected 25 remaining connections, got %d", got)
	}
}
