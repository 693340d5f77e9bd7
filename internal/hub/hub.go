package hub

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"meetingbridge/internal/websocket"
	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// StatusSource is the part of the meeting service the hub polls
type StatusSource interface {
	QueryStatus(ctx context.Context, item types.ContentItem, requester types.Account, forceRefresh bool) (*types.StatusReport, error)
}

// StatusMessage is pushed to every subscriber of an item
type StatusMessage struct {
	Type          string      `json:"type"`
	ItemID        string      `json:"item_id"`
	State         types.State `json:"state"`
	Running       bool        `json:"running"`
	ForciblyEnded bool        `json:"forcibly_ended"`
	Participants  int         `json:"participants"`
	Moderators    int         `json:"moderators"`
	Error         string      `json:"error,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// sameStatus ignores the timestamp
func sameStatus(a, b StatusMessage) bool {
	a.Timestamp, b.Timestamp = time.Time{}, time.Time{}
	return a == b
}

// Hub polls the status of watched items and pushes changes to subscribers
// ARCHITECTURAL DISCOVERY: One server-side poll per watched item replaces a
// poll per open browser tab; the conferencing server sees the same load no
// matter how many people wait on the same page
type Hub struct {
	// FUNCTIONAL DISCOVERY: Buffered channels prevent blocking the WebSocket
	// handler while the hub is busy polling
	refreshChannel   chan string
	subscribeChannel chan *websocket.Connection
	shutdownChannel  chan struct{}

	registry *websocket.Registry
	catalog  interfaces.ContentCatalog
	source   StatusSource
	interval time.Duration

	// last is only touched by the run goroutine
	last map[string]StatusMessage
	now  func() time.Time

	running bool
	mu      sync.RWMutex
}

// NewHub creates a new hub polling every interval
func NewHub(registry *websocket.Registry, catalog interfaces.ContentCatalog, source StatusSource, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Hub{
		refreshChannel:   make(chan string, 100),
		subscribeChannel: make(chan *websocket.Connection, 100),
		registry:         registry,
		catalog:          catalog,
		source:           source,
		interval:         interval,
		last:             make(map[string]StatusMessage),
		now:              time.Now,
	}
}

// Start begins hub processing
// FUNCTIONAL DISCOVERY: Single hub goroutine prevents race conditions
// on the last-known status map
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.shutdownChannel = make(chan struct{})
	shutdown := h.shutdownChannel
	h.mu.Unlock()

	log.Printf("Starting status hub (interval %v)...", h.interval)

	go h.run(ctx, shutdown)

	return nil
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	log.Println("Stopping status hub...")
	close(h.shutdownChannel)

	return nil
}

// IsRunning reports whether the hub loop is active
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Subscribe queues a new connection to receive the current status of its item
func (h *Hub) Subscribe(conn *websocket.Connection) error {
	if !h.IsRunning() {
		return ErrHubNotRunning
	}

	select {
	case h.subscribeChannel <- conn:
		return nil
	default:
		return ErrSubscribeChannelFull
	}
}

// Refresh queues an immediate status broadcast for one item
// FUNCTIONAL DISCOVERY: Called after every lifecycle change made through the
// API so waiting attendees learn about it before the next poll
func (h *Hub) Refresh(itemID string) error {
	if !h.IsRunning() {
		return ErrHubNotRunning
	}

	select {
	case h.refreshChannel <- itemID:
		return nil
	default:
		return ErrRefreshChannelFull
	}
}

// run is the main hub processing loop
// TECHNICAL DISCOVERY: Single select loop handles all coordination
// preventing race conditions while maintaining high throughput
func (h *Hub) run(ctx context.Context, shutdown <-chan struct{}) {
	defer log.Println("Hub processing stopped")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.poll(ctx)

		case itemID := <-h.refreshChannel:
			if msg, ok := h.status(ctx, itemID); ok {
				h.last[itemID] = msg
				h.broadcast(itemID, msg)
			}

		case conn := <-h.subscribeChannel:
			h.handleSubscription(ctx, conn)

		case <-shutdown:
			log.Println("Hub shutdown requested")
			return

		case <-ctx.Done():
			log.Println("Hub context cancelled")
			return
		}
	}
}

// poll refreshes every watched item and broadcasts the ones that changed
func (h *Hub) poll(ctx context.Context) {
	watched := h.registry.Items()

	seen := make(map[string]bool, len(watched))
	for _, itemID := range watched {
		seen[itemID] = true

		msg, ok := h.status(ctx, itemID)
		if !ok {
			continue
		}
		if prev, known := h.last[itemID]; known && sameStatus(prev, msg) {
			continue
		}
		h.last[itemID] = msg
		h.broadcast(itemID, msg)
	}

	// TECHNICAL DISCOVERY: Forget items nobody watches any more
	for itemID := range h.last {
		if !seen[itemID] {
			delete(h.last, itemID)
		}
	}
}

func (h *Hub) handleSubscription(ctx context.Context, conn *websocket.Connection) {
	if conn == nil {
		log.Printf("Attempted to subscribe nil connection")
		return
	}
	itemID := conn.GetItemID()

	msg, known := h.last[itemID]
	if !known {
		var ok bool
		if msg, ok = h.status(ctx, itemID); !ok {
			return
		}
		h.last[itemID] = msg
	}

	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Failed to send status to viewer %s for item %s: %v", conn.GetViewerID(), itemID, err)
	}
}

// status builds the status message of one item. ok is false when the status
// could not be determined and the previous one should stand.
func (h *Hub) status(ctx context.Context, itemID string) (StatusMessage, bool) {
	msg := StatusMessage{
		Type:      "status",
		ItemID:    itemID,
		State:     types.StateUninitialized,
		Timestamp: h.now().UTC(),
	}

	item, err := h.catalog.GetContentItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			msg.Error = "content item not found"
			return msg, true
		}
		log.Printf("WARNING: status poll could not load item %s: %v", itemID, err)
		return msg, false
	}

	report, err := h.source.QueryStatus(ctx, *item, types.Account{}, true)
	switch {
	case err == nil, errors.Is(err, types.ErrAlreadyEnded) && report != nil:
	case errors.Is(err, types.ErrConfigurationMissing):
		msg.Error = "meetings are not enabled for this content type"
		return msg, true
	default:
		log.Printf("WARNING: status poll failed for item %s: %v", itemID, err)
		return msg, false
	}

	msg.State = report.State
	msg.Running = report.Running
	msg.ForciblyEnded = report.ForciblyEnded
	if report.Info != nil {
		msg.Participants = report.Info.ParticipantCount
		msg.Moderators = report.Info.ModeratorCount
	}
	return msg, true
}

// broadcast sends msg to every subscriber of itemID
// TECHNICAL DISCOVERY: Write errors are logged but don't stop the broadcast;
// the connection's own read loop unregisters it once it is gone
func (h *Hub) broadcast(itemID string, msg StatusMessage) {
	for _, conn := range h.registry.GetItemConnections(itemID) {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Failed to push status to viewer %s for item %s: %v", conn.GetViewerID(), itemID, err)
		}
	}
}
