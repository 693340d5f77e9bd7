package cache

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"meetingbridge/internal/i18n"
	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// RecordSource is the read side of the session store the cache needs
type RecordSource interface {
	Get(ctx context.Context, key string) (*types.SessionRecord, bool, error)
}

// Options configure a Cache
type Options struct {
	// TTL bounds how long an entry is served; 0 keeps entries until they are
	// invalidated
	TTL time.Duration

	// Now overrides the clock in tests
	Now func() time.Time
}

type entry struct {
	session *types.ResolvedSession
	expires time.Time
}

// Cache memoizes resolved sessions per content item
// ARCHITECTURAL DISCOVERY: Entries hold the record and the remote info that
// are shared by every requester; join URLs and hook output are personal, so a
// hit for another requester re-signs the URLs and re-runs the session hooks
// without asking the conferencing server again
type Cache struct {
	records    RecordSource
	remote     interfaces.RemoteClient
	alterer    interfaces.SessionAlterer
	translator *i18n.Translator
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	epochs  map[string]uint64 // bumped on invalidate; stale fills are dropped
	purges  uint64
}

type epoch struct {
	item   uint64
	purges uint64
}

// New creates a cache. alterer may be nil.
func New(records RecordSource, remote interfaces.RemoteClient, alterer interfaces.SessionAlterer, translator *i18n.Translator, opts Options) *Cache {
	if translator == nil {
		translator = i18n.New(i18n.Default())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		records:    records,
		remote:     remote,
		alterer:    alterer,
		translator: translator,
		ttl:        opts.TTL,
		now:        now,
		entries:    make(map[string]*entry),
		epochs:     make(map[string]uint64),
	}
}

// Get returns the resolved session of item for requester. An item without a
// session record yields an empty session which is never cached.
func (c *Cache) Get(ctx context.Context, item types.ContentItem, cfg types.TypeConfig, requester types.Account, forceRefresh bool) (*types.ResolvedSession, error) {
	hc := types.HookContext{Op: types.OpResolve, Item: item, Config: cfg, Requester: requester}
	who := requesterKey(requester)

	c.mu.Lock()
	e, ok := c.entries[item.ID]
	if ok && c.ttl > 0 && !c.now().Before(e.expires) {
		delete(c.entries, item.ID)
		ok = false
	}
	at := epoch{item: c.epochs[item.ID], purges: c.purges}
	c.mu.Unlock()

	if ok && !forceRefresh {
		if e.session.Requester == who {
			return clone(e.session), nil
		}
		return c.personalize(ctx, hc, e.session)
	}

	return c.fill(ctx, hc, at)
}

// fill resolves item from the store and the conferencing server
func (c *Cache) fill(ctx context.Context, hc types.HookContext, at epoch) (*types.ResolvedSession, error) {
	itemID := hc.Item.ID

	record, found, err := c.records.Get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session record for %s: %w", itemID, err)
	}
	if !found {
		c.Invalidate(itemID)
		return &types.ResolvedSession{ResolvedAt: c.now()}, nil
	}

	info, err := c.remote.GetMeetingInfo(ctx, record.MeetingID, record.Params.ModeratorPassword)
	if err != nil {
		log.Printf("WARNING: meeting info unavailable for item=%s meeting=%s: %v", itemID, record.MeetingID, err)
		info = nil
	}

	session := &types.ResolvedSession{
		Record:     record,
		Info:       info,
		ResolvedAt: c.now(),
	}
	resolved, err := c.personalize(ctx, hc, session)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.epochs[itemID] == at.item && c.purges == at.purges {
		c.entries[itemID] = &entry{
			session: clone(resolved),
			expires: resolved.ResolvedAt.Add(c.ttl),
		}
	}
	c.mu.Unlock()

	return resolved, nil
}

// personalize builds the requester's copy of base: fresh join URLs, then the
// session hooks
func (c *Cache) personalize(ctx context.Context, hc types.HookContext, base *types.ResolvedSession) (*types.ResolvedSession, error) {
	session := clone(base)
	session.Requester = requesterKey(hc.Requester)
	session.JoinURLs = nil

	if session.Record != nil {
		name := strings.TrimSpace(hc.Requester.DisplayName)
		if name == "" {
			name = c.translator.Anonymous()
		}
		rec := session.Record
		session.JoinURLs = &types.JoinURLs{
			Attend:   c.remote.JoinURL(rec.MeetingID, name, rec.Params.AttendeePassword),
			Moderate: c.remote.JoinURL(rec.MeetingID, name, rec.Params.ModeratorPassword),
		}
	}

	if c.alterer != nil {
		if err := c.alterer.AlterSession(ctx, hc, session); err != nil {
			return nil, fmt.Errorf("session hook vetoed %s: %w", hc.Item.ID, err)
		}
	}
	return session, nil
}

// Invalidate drops the entry of one item
func (c *Cache) Invalidate(itemID string) {
	c.mu.Lock()
	delete(c.entries, itemID)
	c.epochs[itemID]++
	c.mu.Unlock()
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.mu.Lock()
	c.purges++
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the number of cached items
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// requesterKey identifies everything the personal part of an entry depends on
func requesterKey(a types.Account) string {
	perms := append([]string(nil), a.Permissions...)
	sort.Strings(perms)
	return a.ID + "\x00" + a.DisplayName + "\x00" + strings.Join(perms, ",")
}

// clone copies a session deep enough that hooks cannot reach into the cache
func clone(s *types.ResolvedSession) *types.ResolvedSession {
	out := *s
	if s.Record != nil {
		rec := *s.Record
		out.Record = &rec
	}
	if s.Info != nil {
		info := *s.Info
		info.Attendees = append([]types.Attendee(nil), s.Info.Attendees...)
		out.Info = &info
	}
	if s.JoinURLs != nil {
		urls := *s.JoinURLs
		out.JoinURLs = &urls
	}
	return &out
}
