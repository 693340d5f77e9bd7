package bbb

import "meetingbridge/pkg/types"

// envelope carries the fields every API response shares
type envelope struct {
	ReturnCode string   `xml:"returncode"`
	MessageKey string   `xml:"messageKey"`
	Message    string   `xml:"message"`
}

func (e *envelope) ok() bool {
	return e.ReturnCode == "SUCCESS"
}

func (e *envelope) head() *envelope {
	return e
}

type versionResponse struct {
	envelope
	Version string `xml:"version"`
}

type createResponse struct {
	envelope
	MeetingID            string `xml:"meetingID"`
	InternalMeetingID    string `xml:"internalMeetingID"`
	AttendeePW           string `xml:"attendeePW"`
	ModeratorPW          string `xml:"moderatorPW"`
	CreateTime           int64  `xml:"createTime"`
	VoiceBridge          int    `xml:"voiceBridge"`
	DialNumber           string `xml:"dialNumber"`
	HasBeenForciblyEnded bool   `xml:"hasBeenForciblyEnded"`
}

func (r *createResponse) result() *types.CreateResult {
	return &types.CreateResult{
		MeetingID:         r.MeetingID,
		InternalMeetingID: r.InternalMeetingID,
		AttendeePassword:  r.AttendeePW,
		ModeratorPassword: r.ModeratorPW,
		CreateTime:        r.CreateTime,
		VoiceBridge:       r.VoiceBridge,
		DialNumber:        r.DialNumber,
		DuplicateWarning:  r.MessageKey == MessageKeyDuplicateWarning,
	}
}

type runningResponse struct {
	envelope
	Running bool `xml:"running"`
}

type endResponse struct {
	envelope
}

type meetingInfoResponse struct {
	envelope
	MeetingName           string           `xml:"meetingName"`
	MeetingID             string           `xml:"meetingID"`
	InternalMeetingID     string           `xml:"internalMeetingID"`
	CreateTime            int64            `xml:"createTime"`
	VoiceBridge           int              `xml:"voiceBridge"`
	DialNumber            string           `xml:"dialNumber"`
	Running               bool             `xml:"running"`
	HasUserJoined         bool             `xml:"hasUserJoined"`
	Recording             bool             `xml:"recording"`
	HasBeenForciblyEnded  bool             `xml:"hasBeenForciblyEnded"`
	StartTime             int64            `xml:"startTime"`
	EndTime               int64            `xml:"endTime"`
	ParticipantCount      int              `xml:"participantCount"`
	ListenerCount         int              `xml:"listenerCount"`
	VoiceParticipantCount int              `xml:"voiceParticipantCount"`
	VideoCount            int              `xml:"videoCount"`
	ModeratorCount        int              `xml:"moderatorCount"`
	MaxUsers              int              `xml:"maxUsers"`
	Attendees             []types.Attendee `xml:"attendees>attendee"`
}

func (r *meetingInfoResponse) info() *types.MeetingInfo {
	return &types.MeetingInfo{
		MeetingName:           r.MeetingName,
		MeetingID:             r.MeetingID,
		InternalMeetingID:     r.InternalMeetingID,
		CreateTime:            r.CreateTime,
		VoiceBridge:           r.VoiceBridge,
		DialNumber:            r.DialNumber,
		Running:               r.Running,
		HasUserJoined:         r.HasUserJoined,
		Recording:             r.Recording,
		HasBeenForciblyEnded:  r.HasBeenForciblyEnded,
		StartTime:             r.StartTime,
		EndTime:               r.EndTime,
		ParticipantCount:      r.ParticipantCount,
		ListenerCount:         r.ListenerCount,
		VoiceParticipantCount: r.VoiceParticipantCount,
		VideoCount:            r.VideoCount,
		ModeratorCount:        r.ModeratorCount,
		MaxUsers:              r.MaxUsers,
		Attendees:             r.Attendees,
	}
}
