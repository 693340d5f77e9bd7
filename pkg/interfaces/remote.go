package interfaces

import (
	"context"

	"meetingbridge/pkg/types"
)

// RemoteClient is the conferencing server API
// FUNCTIONAL DISCOVERY: Failures come back as errors matching
// types.ErrRemoteUnavailable or types.ErrRemoteRejected; callers turn them
// into false/absent results instead of aborting the request
type RemoteClient interface {
	CreateMeeting(ctx context.Context, params types.CreationParameters) (*types.CreateResult, error)

	// GetMeetingInfo requires the moderator password; the server rejects the
	// attendee password for this call
	GetMeetingInfo(ctx context.Context, meetingID, moderatorPassword string) (*types.MeetingInfo, error)

	IsMeetingRunning(ctx context.Context, meetingID string) (bool, error)

	EndMeeting(ctx context.Context, meetingID, moderatorPassword string) error

	// JoinURL builds a signed join URL; the password decides the role
	JoinURL(meetingID, displayName, password string) string
}

// TypeConfigLoader returns the meeting settings of a content type
type TypeConfigLoader interface {
	Load(contentType string) (types.TypeConfig, bool)
}

// ParameterAlterer may adjust or veto creation parameters after resolution
// and before the remote create (or the record update)
type ParameterAlterer interface {
	AlterParameters(ctx context.Context, hc types.HookContext, params *types.MeetingParams) error
}

// SessionAlterer may adjust or veto a resolved session before it is cached
// and returned
type SessionAlterer interface {
	AlterSession(ctx context.Context, hc types.HookContext, session *types.ResolvedSession) error
}
