package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meetingbridge/internal/cache"
	"meetingbridge/internal/params"
	"meetingbridge/internal/store"
	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// Manager implements the MeetingService interface
// ARCHITECTURAL DISCOVERY: Writes for one content item run under a per-item
// lock; the store's insert-if-absent and compare-and-swap catch writers in
// other processes, and the loser adopts the winner's record
type Manager struct {
	configs  interfaces.TypeConfigLoader
	resolver *params.Resolver
	remote   interfaces.RemoteClient
	records  *store.SessionStore
	cache    *cache.Cache
	locks    *keyedMutex
	now      func() time.Time
}

// NewManager creates a new lifecycle manager
func NewManager(configs interfaces.TypeConfigLoader, resolver *params.Resolver, remote interfaces.RemoteClient, records *store.SessionStore, c *cache.Cache) *Manager {
	return &Manager{
		configs:  configs,
		resolver: resolver,
		remote:   remote,
		records:  records,
		cache:    c,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// typeConfig returns the settings of item's type, or ErrConfigurationMissing
// when the type is not meeting-enabled
func (m *Manager) typeConfig(item types.ContentItem) (types.TypeConfig, error) {
	cfg, ok := m.configs.Load(item.Type)
	if !ok || !cfg.Active {
		return types.TypeConfig{}, fmt.Errorf("%w: %s", types.ErrConfigurationMissing, item.Type)
	}
	if err := item.Validate(); err != nil {
		return types.TypeConfig{}, err
	}
	return cfg, nil
}

// EnsureCreated creates the remote meeting when none exists (or when the
// previous one was forcibly ended) and returns the stored record
func (m *Manager) EnsureCreated(ctx context.Context, item types.ContentItem, explicit *types.MeetingParams) (*types.SessionRecord, error) {
	cfg, err := m.typeConfig(item)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(item.ID)
	defer unlock()

	rec, _, err := m.ensureCreated(ctx, item, cfg, explicit, types.Account{})
	return rec, err
}

// ensureCreated must run under the item lock
func (m *Manager) ensureCreated(ctx context.Context, item types.ContentItem, cfg types.TypeConfig, explicit *types.MeetingParams, requester types.Account) (*types.SessionRecord, bool, error) {
	rec, found, err := m.records.Get(ctx, item.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load meeting record: %w", err)
	}
	if !found {
		return m.create(ctx, item, cfg, explicit, nil)
	}

	resolved, err := m.cache.Get(ctx, item, cfg, requester, false)
	if err != nil {
		return nil, false, err
	}
	if resolved.State() == types.StateEnded {
		log.Printf("Meeting was forcibly ended, starting a fresh one: item=%s meeting=%s generation=%d", item.ID, rec.MeetingID, rec.Generation)
		return m.create(ctx, item, cfg, explicit, rec)
	}
	return rec, false, nil
}

// create resolves parameters, creates the remote meeting and persists the
// record. previous is the record of a forcibly ended meeting being replaced.
func (m *Manager) create(ctx context.Context, item types.ContentItem, cfg types.TypeConfig, explicit *types.MeetingParams, previous *types.SessionRecord) (*types.SessionRecord, bool, error) {
	generation := 0
	if previous != nil {
		generation = previous.Generation + 1
	}

	hc := types.HookContext{Op: types.OpCreate, Item: item, Config: cfg}
	p, err := m.resolver.Resolve(ctx, hc, explicit, generation)
	if err != nil {
		return nil, false, err
	}
	// Dial-in users keep their PIN across generations
	if previous != nil && (explicit == nil || explicit.VoiceBridge == nil) {
		p.VoiceBridge = previous.Params.VoiceBridge
	}

	result, err := m.remote.CreateMeeting(ctx, p)
	if err != nil {
		log.Printf("WARNING: meeting creation failed: item=%s meeting=%s: %v", item.ID, p.MeetingID, err)
		return nil, false, fmt.Errorf("failed to create meeting: %w", err)
	}

	rec := types.SessionRecord{
		MeetingID:  p.MeetingID,
		Params:     merge(p, result),
		Generation: generation,
		CreatedAt:  m.now().UTC(),
	}

	var stored bool
	if previous == nil {
		stored, err = m.records.Create(ctx, item.ID, rec)
	} else {
		stored, err = m.records.Replace(ctx, item.ID, *previous, rec)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to store meeting record: %w", err)
	}
	m.cache.Invalidate(item.ID)

	if !stored {
		winner, found, err := m.records.Get(ctx, item.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load meeting record: %w", err)
		}
		if !found {
			return nil, false, ErrConcurrentUpdate
		}
		log.Printf("Meeting record written concurrently, using stored one: item=%s meeting=%s", item.ID, winner.MeetingID)
		return winner, false, nil
	}

	if result.DuplicateWarning {
		log.Printf("Meeting already existed on the server: item=%s meeting=%s", item.ID, rec.MeetingID)
	}
	log.Printf("Created meeting: item=%s meeting=%s generation=%d", item.ID, rec.MeetingID, rec.Generation)
	return &rec, true, nil
}

// merge applies the credentials the server answered with
func merge(p types.CreationParameters, result *types.CreateResult) types.CreationParameters {
	if result == nil {
		return p
	}
	if result.AttendeePassword != "" {
		p.AttendeePassword = result.AttendeePassword
	}
	if result.ModeratorPassword != "" {
		p.ModeratorPassword = result.ModeratorPassword
	}
	if result.VoiceBridge != 0 {
		p.VoiceBridge = result.VoiceBridge
	}
	if p.DialNumber == "" && result.DialNumber != "" {
		p.DialNumber = result.DialNumber
	}
	return p
}

// Update re-resolves the creation parameters and overwrites the record. The
// meeting ID and generation are kept; so are the stored passwords and voice
// bridge unless explicitly replaced, because a running meeting keeps them.
// Updating an item without a record stores one without contacting the
// server; the meeting is created on the first join.
func (m *Manager) Update(ctx context.Context, item types.ContentItem, explicit *types.MeetingParams) (*types.SessionRecord, error) {
	cfg, err := m.typeConfig(item)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(item.ID)
	defer unlock()

	previous, found, err := m.records.Get(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting record: %w", err)
	}
	if explicit == nil {
		explicit = &types.MeetingParams{}
	}

	generation := 0
	if found {
		generation = previous.Generation
	}

	hc := types.HookContext{Op: types.OpUpdate, Item: item, Config: cfg}
	p, err := m.resolver.Resolve(ctx, hc, explicit, generation)
	if err != nil {
		return nil, err
	}

	rec := types.SessionRecord{
		Generation: generation,
		CreatedAt:  m.now().UTC(),
	}
	if found {
		p.MeetingID = previous.MeetingID
		if explicit.ModeratorPassword == nil {
			p.ModeratorPassword = previous.Params.ModeratorPassword
		}
		if explicit.AttendeePassword == nil {
			p.AttendeePassword = previous.Params.AttendeePassword
		}
		if explicit.VoiceBridge == nil {
			p.VoiceBridge = previous.Params.VoiceBridge
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("updated parameters for %s: %w", item.ID, err)
		}
		rec.CreatedAt = previous.CreatedAt
	}
	rec.MeetingID = p.MeetingID
	rec.Params = p

	var stored bool
	if found {
		stored, err = m.records.Replace(ctx, item.ID, *previous, rec)
	} else {
		stored, err = m.records.Create(ctx, item.ID, rec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store meeting record: %w", err)
	}
	m.cache.Invalidate(item.ID)
	if !stored {
		return nil, ErrConcurrentUpdate
	}

	log.Printf("Updated meeting parameters: item=%s meeting=%s", item.ID, rec.MeetingID)
	return &rec, nil
}

// QueryStatus reports the lifecycle state of item's meeting
func (m *Manager) QueryStatus(ctx context.Context, item types.ContentItem, requester types.Account, forceRefresh bool) (*types.StatusReport, error) {
	cfg, err := m.typeConfig(item)
	if err != nil {
		return nil, err
	}

	resolved, err := m.cache.Get(ctx, item, cfg, requester, forceRefresh)
	if err != nil {
		return nil, err
	}

	report := &types.StatusReport{
		ItemID: item.ID,
		State:  resolved.State(),
		Info:   resolved.Info,
	}
	if resolved.Info != nil {
		report.Running = resolved.Info.Running
		report.ForciblyEnded = resolved.Info.HasBeenForciblyEnded
	}
	if report.State == types.StateEnded {
		return report, types.ErrAlreadyEnded
	}
	return report, nil
}

// Terminate ends the remote meeting and removes the local record. The record
// is removed even when the server cannot be reached; the remote error is
// returned alongside the result for reporting.
func (m *Manager) Terminate(ctx context.Context, item types.ContentItem) (*types.TerminateResult, error) {
	if _, err := m.typeConfig(item); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(item.ID)
	defer unlock()

	result := &types.TerminateResult{ItemID: item.ID}

	rec, found, err := m.records.Get(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting record: %w", err)
	}
	if !found {
		log.Printf("WARNING: Meeting not found during removal: item=%s was removed before or never existed", item.ID)
		m.cache.Invalidate(item.ID)
		return result, nil
	}
	result.Existed = true

	remoteErr := m.remote.EndMeeting(ctx, rec.MeetingID, rec.Params.ModeratorPassword)
	switch {
	case remoteErr == nil:
		result.RemoteEnded = true
	case errors.Is(remoteErr, types.ErrNotFound):
		log.Printf("WARNING: Meeting unknown to the server during removal: item=%s meeting=%s", item.ID, rec.MeetingID)
		remoteErr = nil
	default:
		log.Printf("WARNING: Failed to end meeting on the server: item=%s meeting=%s: %v", item.ID, rec.MeetingID, remoteErr)
	}

	if _, err := m.records.Delete(ctx, item.ID); err != nil {
		return result, fmt.Errorf("failed to delete meeting record: %w", err)
	}
	m.cache.Invalidate(item.ID)

	log.Printf("Terminated meeting: item=%s meeting=%s remote_ended=%v", item.ID, rec.MeetingID, result.RemoteEnded)
	if remoteErr != nil {
		return result, fmt.Errorf("meeting record removed but the server did not end it: %w", remoteErr)
	}
	return result, nil
}

// ResolveForDisplay returns what a page needs to render the meeting
func (m *Manager) ResolveForDisplay(ctx context.Context, item types.ContentItem, requester types.Account, forceRefresh bool) (*types.Display, error) {
	cfg, err := m.typeConfig(item)
	if err != nil {
		return nil, err
	}

	resolved, err := m.cache.Get(ctx, item, cfg, requester, forceRefresh)
	if err != nil {
		return nil, err
	}

	display := &types.Display{
		ItemID:     item.ID,
		State:      resolved.State(),
		ShowLinks:  cfg.ShowLinks,
		ShowStatus: cfg.ShowStatus,
	}
	if resolved.Record != nil {
		display.JoinURLs = resolved.JoinURLs
		display.WelcomeMessage = resolved.Record.Params.WelcomeMessage
		display.DialNumber = resolved.Record.Params.DialNumber
		display.Record = resolved.Record.Params.Record
	}
	if resolved.Info != nil {
		display.Running = resolved.Info.Running
		display.ForciblyEnded = resolved.Info.HasBeenForciblyEnded
	}
	return display, nil
}

// Attend returns an attendee join URL or tells the requester to wait
func (m *Manager) Attend(ctx context.Context, item types.ContentItem, requester types.Account) (*types.JoinDecision, error) {
	return m.join(ctx, item, requester, types.ModeAttend)
}

// Moderate returns a moderator join URL, creating the meeting if needed
func (m *Manager) Moderate(ctx context.Context, item types.ContentItem, requester types.Account) (*types.JoinDecision, error) {
	return m.join(ctx, item, requester, types.ModeModerate)
}

// join drives both join modes
// FUNCTIONAL DISCOVERY: Attendees of a type that requires a moderator wait
// until the meeting runs; everyone else implicitly creates the meeting, and a
// meeting the server has forgotten is re-sent with its stored parameters
func (m *Manager) join(ctx context.Context, item types.ContentItem, requester types.Account, mode string) (*types.JoinDecision, error) {
	if mode != types.ModeAttend && mode != types.ModeModerate {
		return nil, ErrUnknownMode
	}
	cfg, err := m.typeConfig(item)
	if err != nil {
		return nil, err
	}

	current, err := m.cache.Get(ctx, item, cfg, requester, true)
	if err != nil {
		return nil, err
	}
	if current.State() == types.StateEnded {
		return nil, types.ErrAlreadyEnded
	}

	decision := &types.JoinDecision{ItemID: item.ID, Mode: mode}
	running := current.Info != nil && current.Info.Running
	if mode == types.ModeAttend && !running && cfg.ModeratorRequired {
		decision.Wait = true
		return decision, nil
	}

	unlock := m.locks.Lock(item.ID)
	rec, created, err := m.ensureCreated(ctx, item, cfg, nil, requester)
	if err == nil && !created && current.Info == nil {
		err = m.revive(ctx, item, rec)
	}
	unlock()
	if err != nil {
		return nil, err
	}
	decision.Created = created

	resolved, err := m.cache.Get(ctx, item, cfg, requester, false)
	if err != nil {
		return nil, err
	}
	if resolved.JoinURLs != nil {
		if mode == types.ModeAttend {
			decision.URL = resolved.JoinURLs.Attend
		} else {
			decision.URL = resolved.JoinURLs.Moderate
		}
	}
	if decision.URL == "" {
		return nil, ErrNoJoinURL
	}

	log.Printf("Join: item=%s meeting=%s mode=%s requester=%s created=%v", item.ID, rec.MeetingID, mode, requester.ID, created)
	return decision, nil
}

// revive re-sends the stored parameters when the server no longer knows a
// meeting that is not running. Must run under the item lock.
func (m *Manager) revive(ctx context.Context, item types.ContentItem, rec *types.SessionRecord) error {
	running, err := m.remote.IsMeetingRunning(ctx, rec.MeetingID)
	if err != nil {
		return fmt.Errorf("failed to probe meeting: %w", err)
	}
	if running {
		return nil
	}

	result, err := m.remote.CreateMeeting(ctx, rec.Params)
	if err != nil {
		log.Printf("WARNING: meeting recreation failed: item=%s meeting=%s: %v", item.ID, rec.MeetingID, err)
		return fmt.Errorf("failed to recreate meeting: %w", err)
	}
	m.cache.Invalidate(item.ID)

	updated := *rec
	updated.Params = merge(rec.Params, result)
	if updated.Params != rec.Params {
		stored, err := m.records.Replace(ctx, item.ID, *rec, updated)
		if err != nil {
			return fmt.Errorf("failed to store meeting record: %w", err)
		}
		if !stored {
			return ErrConcurrentUpdate
		}
		*rec = updated
	}

	log.Printf("Recreated meeting from stored parameters: item=%s meeting=%s", item.ID, rec.MeetingID)
	return nil
}

// IsRunning asks the server whether item's meeting is running. An item
// without a record is not running.
func (m *Manager) IsRunning(ctx context.Context, item types.ContentItem) (bool, error) {
	if _, err := m.typeConfig(item); err != nil {
		return false, err
	}

	rec, found, err := m.records.Get(ctx, item.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load meeting record: %w", err)
	}
	if !found {
		return false, nil
	}
	return m.remote.IsMeetingRunning(ctx, rec.MeetingID)
}
