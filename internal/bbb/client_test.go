package bbb

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

const testSecret = "8cd8ef52e8e101574e400365b55e11a6"

// fakeServer records requests and answers with canned XML per call
type fakeServer struct {
	t         *testing.T
	algorithm string
	mu        sync.Mutex
	requests  []*http.Request
	replies   map[string]string
	status    int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	call := strings.TrimPrefix(r.URL.Path, "/bigbluebutton/api")
	call = strings.TrimPrefix(call, "/")

	if call != "" {
		// Verify the checksum the way the server does
		raw := r.URL.RawQuery
		idx := strings.LastIndex(raw, "&checksum=")
		query, sum := "", ""
		if idx >= 0 {
			query, sum = raw[:idx], raw[idx+len("&checksum="):]
		} else {
			sum = strings.TrimPrefix(raw, "checksum=")
		}
		if sum != expectedChecksum(f.algorithm, call, query) {
			fmt.Fprint(w, `<response><returncode>FAILED</returncode><messageKey>checksumError</messageKey><message>bad checksum</message></response>`)
			return
		}
	}

	reply, ok := f.replies[call]
	if !ok {
		f.t.Errorf("unexpected call %q", call)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	fmt.Fprint(w, reply)
}

func (f *fakeServer) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func expectedChecksum(algorithm, call, query string) string {
	if algorithm == ChecksumSHA256 {
		sum := sha256.Sum256([]byte(call + query + testSecret))
		return hex.EncodeToString(sum[:])
	}
	sum := sha1.Sum([]byte(call + query + testSecret))
	return hex.EncodeToString(sum[:])
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:           srv.URL + "/bigbluebutton/",
		Secret:            testSecret,
		ChecksumAlgorithm: f.algorithm,
		Timeout:           2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func sampleParams() types.CreationParameters {
	return types.CreationParameters{
		MeetingID:         "m-1",
		MeetingName:       "Weekly sync",
		WelcomeMessage:    "Welcome to Weekly sync",
		ModeratorPassword: "mp",
		AttendeePassword:  "ap",
		LogoutURL:         "https://cms.example.org/node/1",
		Record:            true,
		VoiceBridge:       12345,
		MaxParticipants:   20,
	}
}

// Architectural Validation Tests

func TestClient_InterfaceCompliance(t *testing.T) {
	var _ interfaces.RemoteClient = &Client{}
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"missing base", Options{Secret: "s"}, ErrMissingBaseURL},
		{"missing secret", Options{BaseURL: "https://bbb.example.org/bigbluebutton"}, ErrMissingSecret},
		{"bad algorithm", Options{BaseURL: "https://bbb.example.org/bigbluebutton", Secret: "s", ChecksumAlgorithm: "md5"}, ErrUnknownChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := NewClient(Options{BaseURL: "bbb.example.org", Secret: "s"}); err == nil {
		t.Error("Relative base URL should be rejected")
	}
}

// Functional Validation Tests - API calls

func TestClient_CreateMeeting(t *testing.T) {
	for _, algorithm := range []string{ChecksumSHA1, ChecksumSHA256} {
		t.Run(algorithm, func(t *testing.T) {
			f := &fakeServer{algorithm: algorithm, replies: map[string]string{
				"create": `<response><returncode>SUCCESS</returncode><meetingID>m-1</meetingID>
					<internalMeetingID>abc-123</internalMeetingID><attendeePW>ap</attendeePW>
					<moderatorPW>mp</moderatorPW><createTime>1700000000000</createTime>
					<voiceBridge>12345</voiceBridge><dialNumber>613-555-1234</dialNumber>
					<hasBeenForciblyEnded>false</hasBeenForciblyEnded><messageKey></messageKey><message></message></response>`,
			}}
			c := newTestClient(t, f)

			res, err := c.CreateMeeting(context.Background(), sampleParams())
			if err != nil {
				t.Fatalf("CreateMeeting failed: %v", err)
			}
			if res.MeetingID != "m-1" || res.InternalMeetingID != "abc-123" || res.ModeratorPassword != "mp" || res.VoiceBridge != 12345 {
				t.Errorf("Unexpected result %+v", res)
			}
			if res.DuplicateWarning {
				t.Error("No duplicate warning expected")
			}

			q := f.last().URL.Query()
			checks := map[string]string{
				"name":            "Weekly sync",
				"meetingID":       "m-1",
				"attendeePW":      "ap",
				"moderatorPW":     "mp",
				"welcome":         "Welcome to Weekly sync",
				"voiceBridge":     "12345",
				"record":          "true",
				"logoutURL":       "https://cms.example.org/node/1",
				"maxParticipants": "20",
			}
			for k, want := range checks {
				if got := q.Get(k); got != want {
					t.Errorf("query %s = %q, want %q", k, got, want)
				}
			}
			if q.Has("dialNumber") || q.Has("duration") {
				t.Error("Absent optional parameters must not be sent")
			}
		})
	}
}

func TestClient_CreateDuplicateWarning(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"create": `<response><returncode>SUCCESS</returncode><meetingID>m-1</meetingID>
			<attendeePW>old-ap</attendeePW><moderatorPW>old-mp</moderatorPW>
			<messageKey>duplicateWarning</messageKey><message>already exists</message></response>`,
	}}
	c := newTestClient(t, f)

	res, err := c.CreateMeeting(context.Background(), sampleParams())
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	if !res.DuplicateWarning || res.ModeratorPassword != "old-mp" {
		t.Errorf("Expected duplicate warning with original credentials, got %+v", res)
	}
}

func TestClient_GetMeetingInfo(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"getMeetingInfo": `<response><returncode>SUCCESS</returncode>
			<meetingName>Weekly sync</meetingName><meetingID>m-1</meetingID>
			<running>true</running><hasUserJoined>true</hasUserJoined>
			<recording>false</recording><hasBeenForciblyEnded>false</hasBeenForciblyEnded>
			<startTime>1700000001000</startTime><endTime>0</endTime>
			<participantCount>2</participantCount><moderatorCount>1</moderatorCount><maxUsers></maxUsers>
			<attendees>
				<attendee><userID>u1</userID><fullName>Ada</fullName><role>MODERATOR</role></attendee>
				<attendee><userID>u2</userID><fullName>Bob</fullName><role>VIEWER</role></attendee>
			</attendees></response>`,
	}}
	c := newTestClient(t, f)

	info, err := c.GetMeetingInfo(context.Background(), "m-1", "mp")
	if err != nil {
		t.Fatalf("GetMeetingInfo failed: %v", err)
	}
	if !info.Running || !info.HasUserJoined || info.ParticipantCount != 2 || len(info.Attendees) != 2 {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.Attendees[0].FullName != "Ada" || info.Attendees[0].Role != "MODERATOR" {
		t.Errorf("Unexpected attendee %+v", info.Attendees[0])
	}
	if got := f.last().URL.Query().Get("password"); got != "mp" {
		t.Errorf("getMeetingInfo must use the moderator password, sent %q", got)
	}
}

func TestClient_IsMeetingRunningAndEnd(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"isMeetingRunning": `<response><returncode>SUCCESS</returncode><running>false</running></response>`,
		"end":              `<response><returncode>SUCCESS</returncode><messageKey>sentEndMeetingRequest</messageKey></response>`,
	}}
	c := newTestClient(t, f)

	running, err := c.IsMeetingRunning(context.Background(), "m-1")
	if err != nil || running {
		t.Errorf("Expected not running, got %v %v", running, err)
	}
	if err := c.EndMeeting(context.Background(), "m-1", "mp"); err != nil {
		t.Errorf("EndMeeting failed: %v", err)
	}
}

func TestClient_Version(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"": `<response><returncode>SUCCESS</returncode><version>2.0</version></response>`,
	}}
	c := newTestClient(t, f)

	v, err := c.Version(context.Background())
	if err != nil || v != "2.0" {
		t.Errorf("Expected version 2.0, got %q %v", v, err)
	}
}

// Functional Validation Tests - Failures

func TestClient_RejectedFailure(t *testing.T) {
	f := &fakeServer{replies: map[string]string{
		"getMeetingInfo": `<response><returncode>FAILED</returncode><messageKey>notFound</messageKey><message>We could not find a meeting with that meeting ID</message></response>`,
	}}
	c := newTestClient(t, f)

	_, err := c.GetMeetingInfo(context.Background(), "m-1", "mp")
	if !errors.Is(err, types.ErrRemoteRejected) {
		t.Fatalf("Expected ErrRemoteRejected, got %v", err)
	}
	if errors.Is(err, types.ErrRemoteUnavailable) {
		t.Error("A rejection is not an outage")
	}
	if !IsNotFound(err) || !errors.Is(err, types.ErrNotFound) {
		t.Error("Expected a notFound rejection")
	}

	var failure *Failure
	if !errors.As(err, &failure) || failure.Call != "getMeetingInfo" || failure.MessageKey != "notFound" {
		t.Errorf("Unexpected failure %+v", failure)
	}
}

func TestClient_UnavailableFailures(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		c := newTestClient(t, &fakeServer{status: http.StatusBadGateway})
		_, err := c.IsMeetingRunning(context.Background(), "m-1")
		if !errors.Is(err, types.ErrRemoteUnavailable) {
			t.Errorf("Expected ErrRemoteUnavailable, got %v", err)
		}
	})

	t.Run("unparsable body", func(t *testing.T) {
		c := newTestClient(t, &fakeServer{replies: map[string]string{"isMeetingRunning": "<html>oops"}})
		_, err := c.IsMeetingRunning(context.Background(), "m-1")
		if !errors.Is(err, types.ErrRemoteUnavailable) {
			t.Errorf("Expected ErrRemoteUnavailable, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		c, err := NewClient(Options{BaseURL: base + "/bigbluebutton", Secret: testSecret})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		err = c.EndMeeting(context.Background(), "m-1", "mp")
		if !errors.Is(err, types.ErrRemoteUnavailable) {
			t.Errorf("Expected ErrRemoteUnavailable, got %v", err)
		}
	})
}

func TestClient_WrongSecretIsRejected(t *testing.T) {
	f := &fakeServer{replies: map[string]string{}}
	f.t = t
	srv := httptest.NewServer(f)
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL + "/bigbluebutton", Secret: "wrong"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.IsMeetingRunning(context.Background(), "m-1")
	var failure *Failure
	if !errors.As(err, &failure) || failure.MessageKey != MessageKeyChecksumError {
		t.Errorf("Expected checksumError rejection, got %v", err)
	}
}

// Technical Validation Tests - URL signing

func TestClient_JoinURL(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "https://bbb.example.org/bigbluebutton/api/", Secret: testSecret})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	raw := c.JoinURL("m-1", "Ada Lovelace", "ap")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Join URL does not parse: %v", err)
	}
	if u.Path != "/bigbluebutton/api/join" {
		t.Errorf("Unexpected path %q", u.Path)
	}
	q := u.Query()
	if q.Get("fullName") != "Ada Lovelace" || q.Get("meetingID") != "m-1" || q.Get("password") != "ap" {
		t.Errorf("Unexpected join query %v", q)
	}

	idx := strings.LastIndex(u.RawQuery, "&checksum=")
	if got, want := u.RawQuery[idx+len("&checksum="):], expectedChecksum(ChecksumSHA1, "join", u.RawQuery[:idx]); got != want {
		t.Errorf("checksum = %s, want %s", got, want)
	}

	if c.JoinURL("m-1", "Ada Lovelace", "ap") != raw {
		t.Error("Join URLs must be deterministic")
	}
}
