package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"meetingbridge/internal/access"
	"meetingbridge/pkg/interfaces"
)

// WebSocket upgrader with production-ready settings
// ARCHITECTURAL DISCOVERY: Separate upgrader configuration enables reuse
// and consistent WebSocket settings across different handler instances
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// FUNCTIONAL DISCOVERY: The feed sits behind the content-management
		// system, which already decided who may watch which item
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// StatusFeed delivers status updates to subscribed connections
type StatusFeed interface {
	// Subscribe sends the current status of the connection's item to it
	Subscribe(conn *Connection) error

	// Refresh asks for a fresh status of one item to be broadcast
	Refresh(itemID string) error
}

// Options tune connection heartbeats and buffering
type Options struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 100
	}
	return o
}

// Handler upgrades status feed requests for one content item
// ARCHITECTURAL DISCOVERY: Clean separation of WebSocket handling from business logic
// integrates with Registry for connection management and interfaces for external dependencies
type Handler struct {
	registry *Registry
	catalog  interfaces.ContentCatalog
	configs  interfaces.TypeConfigLoader
	feed     StatusFeed
	opts     Options
}

// NewHandler creates a new WebSocket handler. feed may be nil, in which case
// connections only receive broadcasts.
func NewHandler(registry *Registry, catalog interfaces.ContentCatalog, configs interfaces.TypeConfigLoader, feed StatusFeed, opts Options) *Handler {
	return &Handler{
		registry: registry,
		catalog:  catalog,
		configs:  configs,
		feed:     feed,
		opts:     opts.withDefaults(),
	}
}

// clientMessage is the only thing a subscriber may send
type clientMessage struct {
	Type string `json:"type"`
}

// HandleWebSocket serves GET /ws/meetings/{id}
// ARCHITECTURAL DISCOVERY: Multi-stage validation (item -> type -> access -> upgrade -> registration)
// ensures invalid requests get plain HTTP errors and never consume a socket
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	if itemID == "" {
		http.Error(w, "Missing content item ID", http.StatusBadRequest)
		return
	}

	item, err := h.catalog.GetContentItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			http.Error(w, "Content item not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: failed to load content item %s: %v", itemID, err)
		http.Error(w, "Content lookup failed", http.StatusInternalServerError)
		return
	}

	if cfg, ok := h.configs.Load(item.Type); !ok || !cfg.Active {
		http.Error(w, "Meetings are not enabled for this content type", http.StatusForbidden)
		return
	}

	viewer := access.FromRequest(r)
	if !access.CanAttend(viewer, *item) && !access.CanModerate(viewer, *item) {
		http.Error(w, "Not authorized to watch this meeting", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn, h.opts.BufferSize, h.opts.WriteTimeout)
	if err := wsConn.Subscribe(viewer.ID, item.ID); err != nil {
		log.Printf("Failed to subscribe connection: %v", err)
		_ = wsConn.Close()
		return
	}

	if err := h.registry.RegisterConnection(wsConn); err != nil {
		log.Printf("Failed to register connection: %v", err)
		_ = wsConn.Close()
		return
	}

	if h.feed != nil {
		if err := h.feed.Subscribe(wsConn); err != nil {
			log.Printf("WARNING: initial status for item=%s not queued: %v", item.ID, err)
		}
	}

	go h.handleConnection(wsConn)
}

// handleConnection manages the connection lifecycle with heartbeat monitoring
// ARCHITECTURAL DISCOVERY: Single goroutine per connection handles both heartbeat
// and message reading to prevent goroutine proliferation and resource leaks
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.registry.UnregisterConnection(conn)
		_ = conn.Close()
	}()

	readTimeout := h.opts.ReadTimeout
	if err := conn.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.opts.WriteTimeout)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	// FUNCTIONAL DISCOVERY: A subscriber may ask for an immediate refresh,
	// e.g. right after a moderator link was clicked; anything else is ignored
	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage || h.feed == nil {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "refresh" {
			continue
		}
		if err := h.feed.Refresh(conn.GetItemID()); err != nil {
			log.Printf("WARNING: refresh for item=%s not queued: %v", conn.GetItemID(), err)
		}
	}
}
