package interfaces

import (
	"context"

	"meetingbridge/pkg/types"
)

// MeetingService is the lifecycle surface exposed to transports (HTTP API,
// WebSocket status feed, CLI)
// ARCHITECTURAL DISCOVERY: Context-first design; every operation checks the
// content type configuration before touching storage or the remote server
type MeetingService interface {
	// EnsureCreated creates the remote meeting when none exists (or when the
	// previous one was forcibly ended) and returns the stored record
	EnsureCreated(ctx context.Context, item types.ContentItem, explicit *types.MeetingParams) (*types.SessionRecord, error)

	// Update re-resolves the creation parameters and overwrites the record
	Update(ctx context.Context, item types.ContentItem, explicit *types.MeetingParams) (*types.SessionRecord, error)

	// QueryStatus reports the lifecycle state; a forcibly ended meeting is
	// reported with both a StateEnded report and ErrAlreadyEnded
	QueryStatus(ctx context.Context, item types.ContentItem, requester types.Account, forceRefresh bool) (*types.StatusReport, error)

	// Terminate ends the remote meeting and always removes the local record
	Terminate(ctx context.Context, item types.ContentItem) (*types.TerminateResult, error)

	// ResolveForDisplay returns what a page needs to render the meeting
	ResolveForDisplay(ctx context.Context, item types.ContentItem, requester types.Account, forceRefresh bool) (*types.Display, error)

	// Attend returns an attendee join URL or tells the requester to wait
	Attend(ctx context.Context, item types.ContentItem, requester types.Account) (*types.JoinDecision, error)

	// Moderate returns a moderator join URL, creating the meeting if needed
	Moderate(ctx context.Context, item types.ContentItem, requester types.Account) (*types.JoinDecision, error)

	// IsRunning asks the remote server whether the item's meeting is running
	IsRunning(ctx context.Context, item types.ContentItem) (bool, error)
}
