package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"meetingbridge/internal/api"
	"meetingbridge/internal/bbb"
	"meetingbridge/internal/cache"
	"meetingbridge/internal/config"
	"meetingbridge/internal/database"
	"meetingbridge/internal/hooks"
	"meetingbridge/internal/hub"
	"meetingbridge/internal/i18n"
	"meetingbridge/internal/params"
	"meetingbridge/internal/session"
	"meetingbridge/internal/store"
	"meetingbridge/internal/typeconfig"
	"meetingbridge/internal/websocket"
)

// Application coordinates all system components
// Dependency order: Database → Types → Remote → Hooks → Resolver → Cache → Session → Hub → API → HTTP
type Application struct {
	config     *config.Config
	dbManager  *database.Manager
	types      *typeconfig.Catalog
	remote     *bbb.Client
	hooks      *hooks.Registry
	cache      *cache.Cache
	meetings   *session.Manager
	registry   *websocket.Registry
	statusHub  *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewApplication creates a new application instance with all components initialized
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Database manager applies migrations before returning
	dbManager, err := database.NewManager(cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	// STEP 2: Per-type meeting configuration
	typeCatalog, err := typeconfig.LoadFile(cfg.Site.TypesFile)
	if err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to load content type configuration: %w", err)
	}
	log.Printf("Loaded meeting configuration for content types %v", typeCatalog.Active())

	// STEP 3: Conferencing server client
	remote, err := bbb.NewClient(bbb.Options{
		BaseURL:           cfg.BBB.BaseURL,
		Secret:            cfg.BBB.Secret,
		ChecksumAlgorithm: cfg.BBB.ChecksumAlgorithm,
		Timeout:           cfg.BBB.Timeout,
	})
	if err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to initialize conferencing client: %w", err)
	}

	// STEP 4: Site language and extension hooks
	translator := i18n.New(i18n.Match(cfg.Site.Locale))

	hookRegistry := hooks.NewRegistry()
	hookRegistry.AddParameterAlterer("type_limits", hooks.TypeLimits{
		MaxParticipants: cfg.Site.MaxParticipants,
		MaxDuration:     cfg.Site.MaxDuration,
	})
	hookRegistry.AddSessionAlterer("moderator_link_policy", hooks.ModeratorLinkPolicy{})

	// STEP 5: Parameter resolution, session records and the resolution cache
	resolver, err := params.NewResolver(params.Options{
		SiteBaseURL: cfg.Site.BaseURL,
		MeetingSalt: cfg.Site.MeetingSalt,
	}, nil, hookRegistry, translator)
	if err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to initialize parameter resolver: %w", err)
	}

	records := store.New(dbManager.Collection(store.Collection))
	resolutionCache := cache.New(records, remote, hookRegistry, translator, cache.Options{TTL: cfg.Cache.TTL})

	// STEP 6: Meeting lifecycle coordinator
	meetings := session.NewManager(typeCatalog, resolver, remote, records, resolutionCache)

	// STEP 7: Status push to watching browsers
	registry := websocket.NewRegistry()
	statusHub := hub.NewHub(registry, dbManager, meetings, cfg.WebSocket.StatusInterval)

	// STEP 8: API server and WebSocket handler
	apiServer := api.NewServer(meetings, dbManager, registry, api.Options{
		Notifier:  statusHub,
		Remote:    remote,
		RateLimit: cfg.HTTP.RateLimit,
		Locale:    translator.Tag(),
	})

	wsHandler := websocket.NewHandler(registry, dbManager, typeCatalog, statusHub, websocket.Options{
		PingInterval: cfg.WebSocket.PingInterval,
		ReadTimeout:  cfg.WebSocket.ReadTimeout,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		BufferSize:   cfg.WebSocket.BufferSize,
	})

	// STEP 9: HTTP server with both API and WebSocket endpoints
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("GET /ws/meetings/{id}", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		dbManager:  dbManager,
		types:      typeCatalog,
		remote:     remote,
		hooks:      hookRegistry,
		cache:      resolutionCache,
		meetings:   meetings,
		registry:   registry,
		statusHub:  statusHub,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins application execution
// The hub starts first so that the first WebSocket subscriber is served
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting meetingbridge on %s", app.httpServer.Addr)

	// STEP 1: Start status hub
	if err := app.statusHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start status hub: %w", err)
	}

	// STEP 2: Bind before returning so address errors surface here
	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		app.statusHub.Stop()
		return fmt.Errorf("HTTP server error: %w", err)
	}
	app.mu.Lock()
	app.listener = listener
	app.mu.Unlock()

	// STEP 3: Serve
	go func() {
		if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ERROR: HTTP server stopped: %v", err)
		}
	}()

	log.Printf("meetingbridge started successfully on %s", listener.Addr())
	return nil
}

// Stop gracefully shuts down the application
// Reverse dependency order: HTTP → Hub → Database
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down meetingbridge")

	// STEP 1: Stop accepting new connections
	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// STEP 2: Stop status pushes
	if app.statusHub.IsRunning() {
		if err := app.statusHub.Stop(); err != nil {
			log.Printf("Status hub shutdown error: %v", err)
		}
	}

	// STEP 3: Close database connections
	if err := app.dbManager.Close(); err != nil {
		log.Printf("Database shutdown error: %v", err)
	}

	log.Printf("meetingbridge shutdown complete")
	return nil
}

// Close releases resources of an application that was never started
func (app *Application) Close() error {
	return app.dbManager.Close()
}

// ReloadTypes re-reads the content type configuration file and drops
// resolved sessions computed under the previous configuration
func (app *Application) ReloadTypes() error {
	if err := app.types.Reload(); err != nil {
		return fmt.Errorf("failed to reload content type configuration: %w", err)
	}
	app.cache.Purge()
	log.Printf("Reloaded meeting configuration for content types %v", app.types.Active())
	return nil
}

// GetAddr returns the server address for external connections
// Once started this is the bound address, which matters when the port is 0
func (app *Application) GetAddr() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// Meetings exposes the lifecycle coordinator for command line operations
func (app *Application) Meetings() *session.Manager {
	return app.meetings
}

// Database exposes the database manager, which also serves as the content catalog
func (app *Application) Database() *database.Manager {
	return app.dbManager
}

// Types exposes the content type configuration
func (app *Application) Types() *typeconfig.Catalog {
	return app.types
}

// Remote exposes the conferencing server client
func (app *Application) Remote() *bbb.Client {
	return app.remote
}

// Hooks exposes the extension registry so embedders can add alterers before Start
func (app *Application) Hooks() *hooks.Registry {
	return app.hooks
}
