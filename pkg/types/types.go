package types

import (
	"time"
)

// State values for a content item's meeting lifecycle
// ARCHITECTURAL DISCOVERY: ENDED is only reachable through the remote side
// (forcible end); a local terminate removes the record and the item falls
// back to UNINITIALIZED
type State string

const (
	StateUninitialized State = "uninitialized"
	StateCreated       State = "created"
	StateRunning       State = "running"
	StateEnded         State = "ended"
)

// Join modes
const (
	ModeAttend   = "attend"
	ModeModerate = "moderate"
)

// Permissions understood by the access policy. They are defined and granted
// by the content-management system; this service only reads them.
const (
	PermissionAttend      = "attend meetings"
	PermissionModerate    = "moderate meetings"
	PermissionModerateOwn = "moderate own meetings"
	PermissionAdminister  = "administer big blue button"
)

// ContentItem is the content record a meeting is bound to
// FUNCTIONAL DISCOVERY: ID is the content item's UUID and doubles as the
// session key in the key-value store
type ContentItem struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	OwnerID string `json:"owner_id"`
}

// Account is the requester of an operation
type Account struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the account carries the named permission
func (a Account) HasPermission(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// TypeConfig holds the meeting settings of one content type
type TypeConfig struct {
	Type              string  `json:"type" toml:"-"`
	Label             string  `json:"label,omitempty" toml:"label"`
	Active            bool    `json:"active" toml:"active"`
	ShowLinks         bool    `json:"show_links" toml:"show_links"`
	ShowStatus        bool    `json:"show_status" toml:"show_status"`
	ModeratorRequired bool    `json:"moderator_required" toml:"moderator_required"`
	Welcome           *string `json:"welcome,omitempty" toml:"welcome"`
	DialNumber        *string `json:"dial_number,omitempty" toml:"dial_number"`
	ModeratorPassword *string `json:"-" toml:"moderator_password"`
	AttendeePassword  *string `json:"-" toml:"attendee_password"`
	LogoutURL         *string `json:"logout_url,omitempty" toml:"logout_url"`
	RecordByDefault   bool    `json:"record" toml:"record"`
	MaxParticipants   *int    `json:"max_participants,omitempty" toml:"max_participants"`
	Duration          *int    `json:"duration,omitempty" toml:"duration"`
}

// MeetingParams is a partial set of creation parameters supplied by a caller
// or by a parameter hook. A nil field means "not provided at this level".
// TECHNICAL DISCOVERY: Pointers keep legitimate zero values (record=false)
// distinct from absence
type MeetingParams struct {
	MeetingName       *string `json:"meeting_name,omitempty"`
	WelcomeMessage    *string `json:"welcome_message,omitempty"`
	DialNumber        *string `json:"dial_number,omitempty"`
	ModeratorPassword *string `json:"moderator_password,omitempty"`
	AttendeePassword  *string `json:"attendee_password,omitempty"`
	LogoutURL         *string `json:"logout_url,omitempty"`
	Record            *bool   `json:"record,omitempty"`
	VoiceBridge       *int    `json:"voice_bridge,omitempty"`
	MaxParticipants   *int    `json:"max_participants,omitempty"`
	Duration          *int    `json:"duration,omitempty"`
}

// CreationParameters is the fully resolved parameter set used to create or
// recreate a remote meeting
type CreationParameters struct {
	MeetingID         string `json:"meeting_id"`
	MeetingName       string `json:"meeting_name"`
	WelcomeMessage    string `json:"welcome_message"`
	DialNumber        string `json:"dial_number,omitempty"`
	ModeratorPassword string `json:"moderator_password"`
	AttendeePassword  string `json:"attendee_password"`
	LogoutURL         string `json:"logout_url,omitempty"`
	Record            bool   `json:"record"`
	VoiceBridge       int    `json:"voice_bridge"`
	MaxParticipants   int    `json:"max_participants,omitempty"`
	Duration          int    `json:"duration,omitempty"`
}

// SessionRecord is the persisted binding between a content item and a remote
// meeting
// FUNCTIONAL DISCOVERY: Generation increases each time a fresh meeting
// replaces one the remote side has forcibly ended, which yields a new
// meeting ID for the same content item
type SessionRecord struct {
	MeetingID  string             `json:"meeting_id"`
	Params     CreationParameters `json:"params"`
	Generation int                `json:"generation"`
	CreatedAt  time.Time          `json:"created_at"`
}

// CreateResult is what the conferencing server returns for a successful
// create call
// FUNCTIONAL DISCOVERY: Credentials in the response win over the requested
// ones because the server keeps the original passwords of a meeting that
// already exists under the same ID
type CreateResult struct {
	MeetingID         string `json:"meeting_id"`
	InternalMeetingID string `json:"internal_meeting_id,omitempty"`
	AttendeePassword  string `json:"-"`
	ModeratorPassword string `json:"-"`
	CreateTime        int64  `json:"create_time,omitempty"`
	VoiceBridge       int    `json:"voice_bridge,omitempty"`
	DialNumber        string `json:"dial_number,omitempty"`
	DuplicateWarning  bool   `json:"duplicate_warning"`
}

// Hook operations
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpResolve = "resolve"
)

// HookContext tells an extension hook what is being altered and for whom
type HookContext struct {
	Op        string
	Item      ContentItem
	Config    TypeConfig
	Requester Account
}

// Attendee is one participant listed in remote meeting info
type Attendee struct {
	UserID   string `json:"user_id" xml:"userID"`
	FullName string `json:"full_name" xml:"fullName"`
	Role     string `json:"role" xml:"role"`
}

// MeetingInfo is the live state reported by the conferencing server
type MeetingInfo struct {
	MeetingName           string     `json:"meeting_name"`
	MeetingID             string     `json:"meeting_id"`
	InternalMeetingID     string     `json:"internal_meeting_id,omitempty"`
	CreateTime            int64      `json:"create_time,omitempty"`
	VoiceBridge           int        `json:"voice_bridge,omitempty"`
	DialNumber            string     `json:"dial_number,omitempty"`
	Running               bool       `json:"running"`
	HasUserJoined         bool       `json:"has_user_joined"`
	Recording             bool       `json:"recording"`
	HasBeenForciblyEnded  bool       `json:"has_been_forcibly_ended"`
	StartTime             int64      `json:"start_time,omitempty"`
	EndTime               int64      `json:"end_time,omitempty"`
	ParticipantCount      int        `json:"participant_count"`
	ListenerCount         int        `json:"listener_count"`
	VoiceParticipantCount int        `json:"voice_participant_count"`
	VideoCount            int        `json:"video_count"`
	ModeratorCount        int        `json:"moderator_count"`
	MaxUsers              int        `json:"max_users,omitempty"`
	Attendees             []Attendee `json:"attendees,omitempty"`
}

// JoinURLs are the signed entry URLs for both roles
type JoinURLs struct {
	Attend   string `json:"attend"`
	Moderate string `json:"moderate,omitempty"`
}

// ResolvedSession is the merged view of a content item's meeting: the
// stored record, live remote info and join URLs for the requester
// ARCHITECTURAL DISCOVERY: Info == nil with Record != nil means the remote
// side was unreachable or no longer knows the meeting; Record == nil means
// no session was ever created
type ResolvedSession struct {
	Record     *SessionRecord `json:"record,omitempty"`
	Info       *MeetingInfo   `json:"info,omitempty"`
	JoinURLs   *JoinURLs      `json:"join_urls,omitempty"`
	Requester  string         `json:"-"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// Empty reports whether no session record backs this entry
func (r *ResolvedSession) Empty() bool {
	return r == nil || r.Record == nil
}

// State derives the lifecycle state from the merged view
func (r *ResolvedSession) State() State {
	switch {
	case r.Empty():
		return StateUninitialized
	case r.Info == nil:
		return StateCreated
	case r.Info.HasBeenForciblyEnded:
		return StateEnded
	case r.Info.Running:
		return StateRunning
	default:
		return StateCreated
	}
}

// StatusReport is the result of a status query
type StatusReport struct {
	ItemID        string       `json:"item_id"`
	State         State        `json:"state"`
	Running       bool         `json:"running"`
	ForciblyEnded bool         `json:"forcibly_ended"`
	Info          *MeetingInfo `json:"info,omitempty"`
}

// Display is what a page rendering a meeting-enabled item needs
type Display struct {
	ItemID         string    `json:"item_id"`
	State          State     `json:"state"`
	Running        bool      `json:"running"`
	ForciblyEnded  bool      `json:"forcibly_ended"`
	JoinURLs       *JoinURLs `json:"join_urls,omitempty"`
	WelcomeMessage string    `json:"welcome_message,omitempty"`
	DialNumber     string    `json:"dial_number,omitempty"`
	Record         bool      `json:"record"`
	ShowLinks      bool      `json:"show_links"`
	ShowStatus     bool      `json:"show_status"`
}

// JoinDecision is the outcome of an attend or moderate request: either a
// URL to send the requester to, or an instruction to wait for a moderator
type JoinDecision struct {
	ItemID  string `json:"item_id"`
	Mode    string `json:"mode"`
	URL     string `json:"url,omitempty"`
	Wait    bool   `json:"wait"`
	Created bool   `json:"created"`
}

// TerminateResult reports what a terminate request did
type TerminateResult struct {
	ItemID      string `json:"item_id"`
	Existed     bool   `json:"existed"`
	RemoteEnded bool   `json:"remote_ended"`
}
