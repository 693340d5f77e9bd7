package types

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// FUNCTIONAL DISCOVERY: Regex compiled once at package initialization
var typeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Voice bridge bounds: the PIN a dial-in user enters is always 5 digits
const (
	VoiceBridgeMin = 10000
	VoiceBridgeMax = 99999
)

// Validate ensures the content item can be bound to a meeting
func (c *ContentItem) Validate() error {
	if !IsValidItemID(c.ID) {
		return ErrInvalidItemID
	}
	if !IsValidItemType(c.Type) {
		return ErrInvalidItemType
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Validate checks the invariant that nothing is left unresolved before the
// parameters reach the conferencing server
func (p *CreationParameters) Validate() error {
	if p.MeetingID == "" {
		return ErrEmptyMeetingID
	}
	if strings.TrimSpace(p.MeetingName) == "" {
		return ErrEmptyMeetingName
	}
	if p.ModeratorPassword == "" || p.AttendeePassword == "" {
		return ErrEmptyPassword
	}
	// TECHNICAL DISCOVERY: The server decides the role from the password, so
	// equal passwords would make every attendee a moderator
	if p.ModeratorPassword == p.AttendeePassword {
		return ErrSamePasswords
	}
	if !IsValidVoiceBridge(p.VoiceBridge) {
		return ErrInvalidVoiceBridge
	}
	if p.MaxParticipants < 0 || p.Duration < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// IsValidItemID checks that a content item ID is a UUID
func IsValidItemID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValidItemType checks the content type machine name
func IsValidItemType(t string) bool {
	if len(t) < 1 || len(t) > 64 {
		return false
	}
	return typeRegex.MatchString(t)
}

// IsValidVoiceBridge checks the 5-digit dial-in PIN range
func IsValidVoiceBridge(v int) bool {
	return v >= VoiceBridgeMin && v <= VoiceBridgeMax
}
