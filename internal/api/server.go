package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"meetingbridge/internal/access"
	"meetingbridge/internal/i18n"
	"meetingbridge/internal/params"
	"meetingbridge/internal/session"
	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// Registry interface to avoid tight coupling to websocket.Registry implementation
type Registry interface {
	GetStats() map[string]int
}

// Notifier is told about lifecycle changes so status subscribers hear about
// them before the next poll
type Notifier interface {
	Refresh(itemID string) error
}

// RemoteProbe checks that the conferencing server answers
type RemoteProbe interface {
	Version(ctx context.Context) (string, error)
}

// Options carry the optional collaborators and settings of a Server
type Options struct {
	Notifier  Notifier
	Remote    RemoteProbe
	RateLimit int
	Locale    language.Tag
}

// ARCHITECTURAL DISCOVERY: HTTP API layer serves as pure interface between external clients and internal components
// Clean separation - no business logic, only access checks, HTTP handling and JSON serialization
type Server struct {
	service  interfaces.MeetingService
	db       interfaces.DatabaseManager
	registry Registry
	notifier Notifier
	remote   RemoteProbe
	limiter  *RateLimiter
	locale   language.Tag
	started  time.Time
	router   *http.ServeMux
}

// FUNCTIONAL DISCOVERY: Constructor initializes all dependencies and sets up routing
// Dependency injection pattern maintains architectural boundaries
func NewServer(service interfaces.MeetingService, db interfaces.DatabaseManager, registry Registry, opts Options) *Server {
	locale := opts.Locale
	if locale == language.Und {
		locale = i18n.Default()
	}
	s := &Server{
		service:  service,
		db:       db,
		registry: registry,
		notifier: opts.Notifier,
		remote:   opts.Remote,
		limiter:  NewRateLimiter(opts.RateLimit),
		locale:   locale,
		started:  time.Now(),
		router:   http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

// ARCHITECTURAL DISCOVERY: Route setup follows REST conventions with proper middleware
// CORS and JSON middleware applied to all routes; mutating routes are rate limited per account
func (s *Server) setupRoutes() {
	read := func(h http.HandlerFunc) http.Handler {
		return s.corsMiddleware(s.jsonMiddleware(h))
	}
	write := func(h http.HandlerFunc) http.Handler {
		return s.corsMiddleware(s.jsonMiddleware(s.rateLimitMiddleware(h)))
	}

	s.router.Handle("PUT /api/content/{id}", write(s.upsertContent))
	s.router.Handle("DELETE /api/content/{id}", write(s.forgetContent))

	s.router.Handle("GET /api/meetings/{id}", read(s.getMeeting))
	s.router.Handle("POST /api/meetings/{id}", write(s.createMeeting))
	s.router.Handle("PUT /api/meetings/{id}", write(s.updateMeeting))
	s.router.Handle("DELETE /api/meetings/{id}", write(s.terminateMeeting))
	s.router.Handle("GET /api/meetings/{id}/status", read(s.meetingStatus))
	s.router.Handle("POST /api/meetings/{id}/attend", write(s.join(types.ModeAttend)))
	s.router.Handle("POST /api/meetings/{id}/moderate", write(s.join(types.ModeModerate)))

	s.router.Handle("OPTIONS /api/", read(func(w http.ResponseWriter, r *http.Request) {}))
	s.router.Handle("GET /health", read(s.healthCheck))
}

// FUNCTIONAL DISCOVERY: Implement http.Handler interface for integration with standard HTTP server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Request/Response types for JSON serialization
type ContentRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	OwnerID string `json:"owner_id"`
}

// MeetingResponse describes a stored meeting without its credentials
type MeetingResponse struct {
	ItemID         string    `json:"item_id"`
	MeetingID      string    `json:"meeting_id"`
	MeetingName    string    `json:"meeting_name"`
	WelcomeMessage string    `json:"welcome_message"`
	DialNumber     string    `json:"dial_number,omitempty"`
	VoiceBridge    int       `json:"voice_bridge"`
	Record         bool      `json:"record"`
	Generation     int       `json:"generation"`
	CreatedAt      time.Time `json:"created_at"`
}

type ForgetResponse struct {
	ItemID    string                 `json:"item_id"`
	Deleted   bool                   `json:"deleted"`
	Terminate *types.TerminateResult `json:"terminate,omitempty"`
	Warning   string                 `json:"warning,omitempty"`
}

type TerminateResponse struct {
	*types.TerminateResult
	Warning string `json:"warning,omitempty"`
}

type JoinResponse struct {
	*types.JoinDecision
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Remote      string         `json:"remote"`
	Connections map[string]int `json:"connections"`
	Uptime      string         `json:"uptime"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func meetingResponse(itemID string, rec *types.SessionRecord) MeetingResponse {
	return MeetingResponse{
		ItemID:         itemID,
		MeetingID:      rec.MeetingID,
		MeetingName:    rec.Params.MeetingName,
		WelcomeMessage: rec.Params.WelcomeMessage,
		DialNumber:     rec.Params.DialNumber,
		VoiceBridge:    rec.Params.VoiceBridge,
		Record:         rec.Params.Record,
		Generation:     rec.Generation,
		CreatedAt:      rec.CreatedAt,
	}
}

// FUNCTIONAL DISCOVERY: PUT /api/content/{id} - Mirror a content item from the CMS
func (s *Server) upsertContent(w http.ResponseWriter, r *http.Request) {
	if !access.CanAdminister(access.FromRequest(r)) {
		s.sendLocalized(w, r, i18n.KeyAccessDenied, http.StatusForbidden)
		return
	}

	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	item := &types.ContentItem{
		ID:      r.PathValue("id"),
		Type:    req.Type,
		Title:   req.Title,
		OwnerID: req.OwnerID,
	}
	if err := item.Validate(); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.db.UpsertContentItem(r.Context(), item); err != nil {
		log.Printf("ERROR: failed to store content item %s: %v", item.ID, err)
		s.sendError(w, "Failed to store content item", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(item)
}

// FUNCTIONAL DISCOVERY: DELETE /api/content/{id} - The CMS deleted the item,
// so its meeting is ended and the local record dropped before the item goes
func (s *Server) forgetContent(w http.ResponseWriter, r *http.Request) {
	if !access.CanAdminister(access.FromRequest(r)) {
		s.sendLocalized(w, r, i18n.KeyAccessDenied, http.StatusForbidden)
		return
	}
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}

	resp := ForgetResponse{ItemID: item.ID}
	result, err := s.service.Terminate(r.Context(), *item)
	switch {
	case err == nil:
		resp.Terminate = result
	case errors.Is(err, types.ErrConfigurationMissing):
		// Not meeting-enabled, so there is nothing to end
	case result != nil:
		resp.Terminate = result
		resp.Warning = s.translator(r).Sprintf(i18n.KeyTerminateFailed)
	default:
		s.sendServiceError(w, r, err)
		return
	}

	deleted, err := s.db.DeleteContentItem(r.Context(), item.ID)
	if err != nil {
		log.Printf("ERROR: failed to delete content item %s: %v", item.ID, err)
		s.sendError(w, "Failed to delete content item", http.StatusInternalServerError)
		return
	}
	resp.Deleted = deleted
	s.notify(item.ID)

	json.NewEncoder(w).Encode(resp)
}

// FUNCTIONAL DISCOVERY: GET /api/meetings/{id} - Everything a page needs to
// render the meeting block; ?refresh=1 bypasses the cache
func (s *Server) getMeeting(w http.ResponseWriter, r *http.Request) {
	item, requester, ok := s.authorize(w, r, canView)
	if !ok {
		return
	}

	display, err := s.service.ResolveForDisplay(r.Context(), *item, requester, wantsRefresh(r))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	json.NewEncoder(w).Encode(display)
}

// FUNCTIONAL DISCOVERY: POST /api/meetings/{id} - Create the meeting if it
// does not exist yet; an empty body uses the configured defaults
func (s *Server) createMeeting(w http.ResponseWriter, r *http.Request) {
	item, _, ok := s.authorize(w, r, access.CanModerate)
	if !ok {
		return
	}
	explicit, ok := s.decodeParams(w, r)
	if !ok {
		return
	}

	rec, err := s.service.EnsureCreated(r.Context(), *item, explicit)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.notify(item.ID)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(meetingResponse(item.ID, rec))
}

// FUNCTIONAL DISCOVERY: PUT /api/meetings/{id} - Re-resolve and store new parameters
func (s *Server) updateMeeting(w http.ResponseWriter, r *http.Request) {
	item, _, ok := s.authorize(w, r, access.CanModerate)
	if !ok {
		return
	}
	explicit, ok := s.decodeParams(w, r)
	if !ok {
		return
	}

	rec, err := s.service.Update(r.Context(), *item, explicit)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.notify(item.ID)

	json.NewEncoder(w).Encode(meetingResponse(item.ID, rec))
}

// FUNCTIONAL DISCOVERY: DELETE /api/meetings/{id} - End the meeting for everyone
// The local record is always removed; a remote failure is reported as a warning
func (s *Server) terminateMeeting(w http.ResponseWriter, r *http.Request) {
	item, _, ok := s.authorize(w, r, access.CanTerminate)
	if !ok {
		return
	}

	result, err := s.service.Terminate(r.Context(), *item)
	if err != nil && result == nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.notify(item.ID)

	resp := TerminateResponse{TerminateResult: result}
	if err != nil {
		resp.Warning = s.translator(r).Sprintf(i18n.KeyTerminateFailed)
	}
	json.NewEncoder(w).Encode(resp)
}

// FUNCTIONAL DISCOVERY: GET /api/meetings/{id}/status - A forcibly ended
// meeting is reported as state "ended", not as an error, because pollers
// only care about the state
func (s *Server) meetingStatus(w http.ResponseWriter, r *http.Request) {
	item, requester, ok := s.authorize(w, r, canView)
	if !ok {
		return
	}

	report, err := s.service.QueryStatus(r.Context(), *item, requester, wantsRefresh(r))
	if err != nil && !(errors.Is(err, types.ErrAlreadyEnded) && report != nil) {
		s.sendServiceError(w, r, err)
		return
	}

	json.NewEncoder(w).Encode(report)
}

// FUNCTIONAL DISCOVERY: POST /api/meetings/{id}/attend|moderate - Hand out a
// join URL; attendees of a moderated meeting that has not started get 202
// and a localized explanation instead
func (s *Server) join(mode string) http.HandlerFunc {
	allowed := access.CanAttend
	if mode == types.ModeModerate {
		allowed = access.CanModerate
	}

	return func(w http.ResponseWriter, r *http.Request) {
		item, requester, ok := s.authorize(w, r, allowed)
		if !ok {
			return
		}

		var decision *types.JoinDecision
		var err error
		if mode == types.ModeModerate {
			decision, err = s.service.Moderate(r.Context(), *item, requester)
		} else {
			decision, err = s.service.Attend(r.Context(), *item, requester)
		}
		if err != nil {
			s.sendServiceError(w, r, err)
			return
		}
		if decision.Created {
			s.notify(item.ID)
		}

		resp := JoinResponse{JoinDecision: decision}
		if decision.Wait {
			resp.Message = s.translator(r).Sprintf(i18n.KeyWaitModerator)
			w.WriteHeader(http.StatusAccepted)
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// FUNCTIONAL DISCOVERY: GET /health - Database and conferencing server health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	remoteStatus := "not_configured"

	if err := s.db.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	// FUNCTIONAL DISCOVERY: An unreachable conferencing server degrades the
	// service but pages still render from stored records
	if s.remote != nil {
		if version, err := s.remote.Version(ctx); err != nil {
			if status == "healthy" {
				status = "degraded"
			}
			remoteStatus = fmt.Sprintf("error: %v", err)
		} else {
			remoteStatus = "healthy (" + version + ")"
		}
	}

	connections := map[string]int{}
	if s.registry != nil {
		connections = s.registry.GetStats()
	}

	response := HealthResponse{
		Status:      status,
		Timestamp:   time.Now(),
		Database:    dbStatus,
		Remote:      remoteStatus,
		Connections: connections,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func canView(account types.Account, item types.ContentItem) bool {
	return access.CanAttend(account, item) || access.CanModerate(account, item)
}

// loadItem resolves the {id} path segment against the content catalog
func (s *Server) loadItem(w http.ResponseWriter, r *http.Request) (*types.ContentItem, bool) {
	itemID := r.PathValue("id")
	item, err := s.db.GetContentItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			s.sendError(w, "Content item not found", http.StatusNotFound)
		} else {
			log.Printf("ERROR: failed to load content item %s: %v", itemID, err)
			s.sendError(w, "Failed to load content item", http.StatusInternalServerError)
		}
		return nil, false
	}
	return item, true
}

// authorize loads the item and checks the requester against allowed
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, allowed func(types.Account, types.ContentItem) bool) (*types.ContentItem, types.Account, bool) {
	requester := access.FromRequest(r)
	item, ok := s.loadItem(w, r)
	if !ok {
		return nil, requester, false
	}
	if !allowed(requester, *item) {
		s.sendLocalized(w, r, i18n.KeyAccessDenied, http.StatusForbidden)
		return nil, requester, false
	}
	return item, requester, true
}

// decodeParams reads optional explicit parameters; an empty body means none
func (s *Server) decodeParams(w http.ResponseWriter, r *http.Request) (*types.MeetingParams, bool) {
	var explicit types.MeetingParams
	if err := json.NewDecoder(r.Body).Decode(&explicit); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, true
		}
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return nil, false
	}
	return &explicit, true
}

func wantsRefresh(r *http.Request) bool {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return refresh
}

func (s *Server) notify(itemID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Refresh(itemID); err != nil {
		log.Printf("WARNING: status refresh for item=%s not queued: %v", itemID, err)
	}
}

func (s *Server) translator(r *http.Request) *i18n.Translator {
	return i18n.New(i18n.ResolveTag(r, s.locale))
}

// sendServiceError maps lifecycle errors onto status codes with a message in
// the requester's language
func (s *Server) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrConfigurationMissing):
		s.sendLocalized(w, r, i18n.KeyNotEnabled, http.StatusForbidden)
	case errors.Is(err, types.ErrAlreadyEnded):
		s.sendLocalized(w, r, i18n.KeyTerminated, http.StatusConflict)
	case errors.Is(err, types.ErrNotFound):
		s.sendLocalized(w, r, i18n.KeyNotFound, http.StatusNotFound)
	case errors.Is(err, session.ErrNoJoinURL):
		s.sendLocalized(w, r, i18n.KeyAccessDenied, http.StatusForbidden)
	case errors.Is(err, types.ErrRemoteRejected):
		s.sendLocalized(w, r, i18n.KeyRemoteRejected, http.StatusBadGateway)
	case errors.Is(err, types.ErrRemoteUnavailable):
		s.sendLocalized(w, r, i18n.KeyRemoteDown, http.StatusBadGateway)
	case isInvalidInput(err):
		s.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrConcurrentUpdate):
		s.sendError(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("ERROR: %s %s failed: %v", r.Method, r.URL.Path, err)
		s.sendError(w, "Internal error", http.StatusInternalServerError)
	}
}

var invalidInput = []error{
	types.ErrInvalidItemID,
	types.ErrInvalidItemType,
	types.ErrEmptyTitle,
	types.ErrEmptyMeetingName,
	types.ErrEmptyPassword,
	types.ErrSamePasswords,
	types.ErrInvalidVoiceBridge,
	types.ErrInvalidLimit,
	params.ErrInvalidLogoutURL,
}

func isInvalidInput(err error) bool {
	for _, target := range invalidInput {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) sendLocalized(w http.ResponseWriter, r *http.Request, key string, code int) {
	s.sendError(w, s.translator(r).Sprintf(key), code)
}

// FUNCTIONAL DISCOVERY: Consistent error response format
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// ARCHITECTURAL DISCOVERY: CORS middleware enables web client access
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, "+
			access.HeaderAccountID+", "+access.HeaderAccountName+", "+access.HeaderAccountPermissions)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FUNCTIONAL DISCOVERY: JSON middleware ensures proper content-type headers
func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware budgets mutating requests per account; anonymous
// requests share a budget per remote address
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := access.FromRequest(r).ID
		if client == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			client = "addr:" + host
		}

		if !s.limiter.Allow(client) {
			s.sendError(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
