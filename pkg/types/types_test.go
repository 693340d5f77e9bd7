package types

import (
	"encoding/json"
	"strings"
	"testing"
)

const testItemID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

func validParams() CreationParameters {
	return CreationParameters{
		MeetingID:         "meeting-1",
		MeetingName:       "Weekly sync",
		WelcomeMessage:    "Welcome to Weekly sync",
		ModeratorPassword: "mod-secret",
		AttendeePassword:  "att-secret",
		VoiceBridge:       12345,
	}
}

// Functional Validation Tests - ContentItem

func TestContentItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    ContentItem
		wantErr error
	}{
		{
			name:    "valid item",
			item:    ContentItem{ID: testItemID, Type: "meeting_page", Title: "Standup"},
			wantErr: nil,
		},
		{
			name:    "non-uuid id",
			item:    ContentItem{ID: "42", Type: "meeting_page", Title: "Standup"},
			wantErr: ErrInvalidItemID,
		},
		{
			name:    "empty id",
			item:    ContentItem{ID: "", Type: "meeting_page", Title: "Standup"},
			wantErr: ErrInvalidItemID,
		},
		{
			name:    "bad type",
			item:    ContentItem{ID: testItemID, Type: "meeting page!", Title: "Standup"},
			wantErr: ErrInvalidItemType,
		},
		{
			name:    "type too long",
			item:    ContentItem{ID: testItemID, Type: strings.Repeat("a", 65), Title: "Standup"},
			wantErr: ErrInvalidItemType,
		},
		{
			name:    "blank title",
			item:    ContentItem{ID: testItemID, Type: "article", Title: "   "},
			wantErr: ErrEmptyTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Functional Validation Tests - CreationParameters

func TestCreationParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *CreationParameters)
		wantErr error
	}{
		{name: "valid", mutate: func(p *CreationParameters) {}, wantErr: nil},
		{name: "missing meeting id", mutate: func(p *CreationParameters) { p.MeetingID = "" }, wantErr: ErrEmptyMeetingID},
		{name: "blank name", mutate: func(p *CreationParameters) { p.MeetingName = " " }, wantErr: ErrEmptyMeetingName},
		{name: "missing moderator password", mutate: func(p *CreationParameters) { p.ModeratorPassword = "" }, wantErr: ErrEmptyPassword},
		{name: "missing attendee password", mutate: func(p *CreationParameters) { p.AttendeePassword = "" }, wantErr: ErrEmptyPassword},
		{name: "equal passwords", mutate: func(p *CreationParameters) { p.AttendeePassword = p.ModeratorPassword }, wantErr: ErrSamePasswords},
		{name: "voice bridge too small", mutate: func(p *CreationParameters) { p.VoiceBridge = 9999 }, wantErr: ErrInvalidVoiceBridge},
		{name: "voice bridge too large", mutate: func(p *CreationParameters) { p.VoiceBridge = 100000 }, wantErr: ErrInvalidVoiceBridge},
		{name: "negative duration", mutate: func(p *CreationParameters) { p.Duration = -1 }, wantErr: ErrInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			if err := p.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidVoiceBridge_Bounds(t *testing.T) {
	for _, v := range []int{VoiceBridgeMin, 55555, VoiceBridgeMax} {
		if !IsValidVoiceBridge(v) {
			t.Errorf("expected %d to be valid", v)
		}
	}
	for _, v := range []int{0, VoiceBridgeMin - 1, VoiceBridgeMax + 1} {
		if IsValidVoiceBridge(v) {
			t.Errorf("expected %d to be invalid", v)
		}
	}
}

// Functional Validation Tests - ResolvedSession state derivation

func TestResolvedSession_State(t *testing.T) {
	record := &SessionRecord{MeetingID: "m1"}

	tests := []struct {
		name     string
		resolved *ResolvedSession
		want     State
	}{
		{name: "nil entry", resolved: nil, want: StateUninitialized},
		{name: "no record", resolved: &ResolvedSession{}, want: StateUninitialized},
		{name: "record without info", resolved: &ResolvedSession{Record: record}, want: StateCreated},
		{name: "created not running", resolved: &ResolvedSession{Record: record, Info: &MeetingInfo{}}, want: StateCreated},
		{name: "running", resolved: &ResolvedSession{Record: record, Info: &MeetingInfo{Running: true}}, want: StateRunning},
		{name: "forcibly ended wins over running", resolved: &ResolvedSession{Record: record, Info: &MeetingInfo{Running: true, HasBeenForciblyEnded: true}}, want: StateEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resolved.State(); got != tt.want {
				t.Errorf("State() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAccount_HasPermission(t *testing.T) {
	acct := Account{ID: "7", Permissions: []string{PermissionAttend, PermissionModerateOwn}}
	if !acct.HasPermission(PermissionAttend) {
		t.Error("expected attend permission")
	}
	if acct.HasPermission(PermissionModerate) {
		t.Error("did not expect moderate permission")
	}
}

// Technical Validation Tests - sensitive fields stay out of JSON

func TestTypeConfig_PasswordsNotSerialized(t *testing.T) {
	secret := "top-secret"
	cfg := TypeConfig{Type: "article", Active: true, ModeratorPassword: &secret, AttendeePassword: &secret}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), secret) {
		t.Errorf("type config JSON leaks passwords: %s", data)
	}
}
