package hooks

import (
	"context"

	"meetingbridge/internal/access"
	"meetingbridge/pkg/types"
)

// TypeLimits caps participant count and duration site-wide. Type settings
// within the caps are left alone; missing or larger ones are replaced by the
// cap. Explicit request values still win over hooks.
type TypeLimits struct {
	MaxParticipants int
	MaxDuration     int
}

// AlterParameters applies the caps
func (l TypeLimits) AlterParameters(ctx context.Context, hc types.HookContext, params *types.MeetingParams) error {
	if l.MaxParticipants > 0 {
		params.MaxParticipants = capped(params.MaxParticipants, hc.Config.MaxParticipants, l.MaxParticipants)
	}
	if l.MaxDuration > 0 {
		params.Duration = capped(params.Duration, hc.Config.Duration, l.MaxDuration)
	}
	return nil
}

func capped(hooked, configured *int, ceiling int) *int {
	if within(hooked, ceiling) {
		return hooked
	}
	if within(configured, ceiling) {
		return nil
	}
	v := ceiling
	return &v
}

func within(v *int, ceiling int) bool {
	return v != nil && *v > 0 && *v <= ceiling
}

// ModeratorLinkPolicy removes the join links a requester may not use
type ModeratorLinkPolicy struct{}

// AlterSession clears the moderate link for non-moderators and the attend
// link for accounts that may neither attend nor moderate
func (ModeratorLinkPolicy) AlterSession(ctx context.Context, hc types.HookContext, session *types.ResolvedSession) error {
	if session.JoinURLs == nil {
		return nil
	}
	moderate := access.CanModerate(hc.Requester, hc.Item)
	if !moderate {
		session.JoinURLs.Moderate = ""
	}
	if !moderate && !access.CanAttend(hc.Requester, hc.Item) {
		session.JoinURLs.Attend = ""
	}
	return nil
}
