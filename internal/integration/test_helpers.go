package integration

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeSecret is the shared secret FakeBBB expects
const FakeSecret = "integration-secret"

// fakeMeeting is one meeting held by FakeBBB
type fakeMeeting struct {
	name          string
	attendeePW    string
	moderatorPW   string
	voiceBridge   string
	running       bool
	forciblyEnded bool
	participants  int
	moderators    int
}

// FakeBBB is a stateful stand-in for a BigBlueButton server. It verifies
// sha1 checksums the way the real server does.
type FakeBBB struct {
	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	meetings map[string]*fakeMeeting
	calls    map[string]int
}

// NewFakeBBB starts a fake server that is closed with the test
func NewFakeBBB(t *testing.T) *FakeBBB {
	t.Helper()
	f := &FakeBBB{t: t, meetings: make(map[string]*fakeMeeting), calls: make(map[string]int)}
	f.server = httptest.NewServer(f)
	t.Cleanup(f.server.Close)
	return f
}

// BaseURL is the API base a client should be configured with
func (f *FakeBBB) BaseURL() string {
	return f.server.URL + "/bigbluebutton"
}

// Calls returns how often an API call was made
func (f *FakeBBB) Calls(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

// MeetingCount returns the number of meetings the server knows
func (f *FakeBBB) MeetingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.meetings)
}

// Start marks a meeting as running, as if a moderator had joined
func (f *FakeBBB) Start(meetingID string, participants int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.meetings[meetingID]; ok {
		m.running = true
		m.participants = participants
		m.moderators = 1
	}
}

// ForceEnd ends a meeting from the server side
func (f *FakeBBB) ForceEnd(meetingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.meetings[meetingID]; ok {
		m.running = false
		m.forciblyEnded = true
		m.participants = 0
		m.moderators = 0
	}
}

// Forget drops a meeting, as the server does some time after it emptied
func (f *FakeBBB) Forget(meetingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.meetings, meetingID)
}

func (f *FakeBBB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/bigbluebutton/api"), "/")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[call]++

	if call != "" && !f.validChecksum(call, r.URL.RawQuery) {
		fmt.Fprint(w, failed("checksumError", "Checksums do not match"))
		return
	}

	q := r.URL.Query()
	id := q.Get("meetingID")
	m := f.meetings[id]

	switch call {
	case "":
		fmt.Fprint(w, `<response><returncode>SUCCESS</returncode><version>2.0</version></response>`)
	case "create":
		if m == nil || m.forciblyEnded {
			m = &fakeMeeting{
				name:        q.Get("name"),
				attendeePW:  q.Get("attendeePW"),
				moderatorPW: q.Get("moderatorPW"),
				voiceBridge: q.Get("voiceBridge"),
			}
			f.meetings[id] = m
			fmt.Fprintf(w, `<response><returncode>SUCCESS</returncode><meetingID>%s</meetingID><attendeePW>%s</attendeePW><moderatorPW>%s</moderatorPW><voiceBridge>%s</voiceBridge><createTime>1700000000000</createTime></response>`,
				id, m.attendeePW, m.moderatorPW, m.voiceBridge)
			return
		}
		fmt.Fprintf(w, `<response><returncode>SUCCESS</returncode><meetingID>%s</meetingID><attendeePW>%s</attendeePW><moderatorPW>%s</moderatorPW><voiceBridge>%s</voiceBridge><messageKey>duplicateWarning</messageKey><message>already exists</message></response>`,
			id, m.attendeePW, m.moderatorPW, m.voiceBridge)
	case "getMeetingInfo":
		if m == nil {
			fmt.Fprint(w, failed("notFound", "We could not find a meeting with that meeting ID"))
			return
		}
		if q.Get("password") != m.moderatorPW {
			fmt.Fprint(w, failed("invalidPassword", "You must supply the moderator password for this call."))
			return
		}
		fmt.Fprintf(w, `<response><returncode>SUCCESS</returncode><meetingName>%s</meetingName><meetingID>%s</meetingID><voiceBridge>%s</voiceBridge><running>%t</running><hasBeenForciblyEnded>%t</hasBeenForciblyEnded><participantCount>%d</participantCount><moderatorCount>%d</moderatorCount></response>`,
			m.name, id, m.voiceBridge, m.running, m.forciblyEnded, m.participants, m.moderators)
	case "isMeetingRunning":
		running := m != nil && m.running
		fmt.Fprintf(w, `<response><returncode>SUCCESS</returncode><running>%t</running></response>`, running)
	case "end":
		if m == nil {
			fmt.Fprint(w, failed("notFound", "We could not find a meeting with that meeting ID"))
			return
		}
		delete(f.meetings, id)
		fmt.Fprint(w, `<response><returncode>SUCCESS</returncode><messageKey>sentEndMeetingRequest</messageKey></response>`)
	default:
		f.t.Errorf("unexpected BBB call %q", call)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *FakeBBB) validChecksum(call, raw string) bool {
	idx := strings.LastIndex(raw, "checksum=")
	if idx < 0 {
		return false
	}
	query := strings.TrimSuffix(raw[:idx], "&")
	sum := sha1.Sum([]byte(call + query + FakeSecret))
	return raw[idx+len("checksum="):] == hex.EncodeToString(sum[:])
}

func failed(key, message string) string {
	return fmt.Sprintf(`<response><returncode>FAILED</returncode><messageKey>%s</messageKey><message>%s</message></response>`, key, message)
}
