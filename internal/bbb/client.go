package bbb

import (
	"context"
	"encoding/xml"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"meetingbridge/pkg/types"
)

// API call names
const (
	callCreate      = "create"
	callJoin        = "join"
	callIsRunning   = "isMeetingRunning"
	callGetInfo     = "getMeetingInfo"
	callEnd         = "end"
	callVersion     = ""
	maxResponseSize = 1 << 20
)

// Options configure a Client
type Options struct {
	BaseURL           string
	Secret            string
	ChecksumAlgorithm string
	Timeout           time.Duration

	// HTTPClient overrides the transport; Timeout is ignored when set
	HTTPClient *http.Client
}

// Client talks to a BigBlueButton-compatible conferencing server
// ARCHITECTURAL DISCOVERY: The client never retries and never panics; every
// failure is returned as a *Failure so callers decide whether a dead
// server means "absent" or "error"
type Client struct {
	base   string
	secret string
	hash   func() hash.Hash
	http   *http.Client
	tracer trace.Tracer
}

// NewClient creates a client for the server at opts.BaseURL
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	if opts.Secret == "" {
		return nil, ErrMissingSecret
	}
	parsed, err := url.Parse(opts.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid conferencing server base URL %q", opts.BaseURL)
	}
	h, err := newHash(opts.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	// Accept both ".../bigbluebutton" and ".../bigbluebutton/api/"
	base := strings.TrimRight(parsed.String(), "/")
	base = strings.TrimSuffix(base, "/api")

	return &Client{
		base:   base,
		secret: opts.Secret,
		hash:   h,
		http:   httpClient,
		tracer: otel.Tracer("meetingbridge/internal/bbb"),
	}, nil
}

// URL builds the signed URL of an API call
func (c *Client) URL(call string, query url.Values) string {
	encoded := query.Encode()
	checksum := sign(c.hash, call, encoded, c.secret)
	if encoded == "" {
		return c.base + "/api/" + call + "?checksum=" + checksum
	}
	return c.base + "/api/" + call + "?" + encoded + "&checksum=" + checksum
}

// CreateMeeting creates the meeting or, when it already exists under the same
// ID, returns the existing meeting's credentials
func (c *Client) CreateMeeting(ctx context.Context, p types.CreationParameters) (*types.CreateResult, error) {
	q := url.Values{}
	q.Set("name", p.MeetingName)
	q.Set("meetingID", p.MeetingID)
	q.Set("attendeePW", p.AttendeePassword)
	q.Set("moderatorPW", p.ModeratorPassword)
	q.Set("welcome", p.WelcomeMessage)
	q.Set("voiceBridge", strconv.Itoa(p.VoiceBridge))
	q.Set("record", strconv.FormatBool(p.Record))
	if p.DialNumber != "" {
		q.Set("dialNumber", p.DialNumber)
	}
	if p.LogoutURL != "" {
		q.Set("logoutURL", p.LogoutURL)
	}
	if p.MaxParticipants > 0 {
		q.Set("maxParticipants", strconv.Itoa(p.MaxParticipants))
	}
	if p.Duration > 0 {
		q.Set("duration", strconv.Itoa(p.Duration))
	}

	var resp createResponse
	if err := c.do(ctx, callCreate, p.MeetingID, q, &resp); err != nil {
		return nil, err
	}
	return resp.result(), nil
}

// GetMeetingInfo returns the live state of a meeting
func (c *Client) GetMeetingInfo(ctx context.Context, meetingID, moderatorPassword string) (*types.MeetingInfo, error) {
	q := url.Values{}
	q.Set("meetingID", meetingID)
	q.Set("password", moderatorPassword)

	var resp meetingInfoResponse
	if err := c.do(ctx, callGetInfo, meetingID, q, &resp); err != nil {
		return nil, err
	}
	return resp.info(), nil
}

// IsMeetingRunning reports whether anyone is in the meeting
func (c *Client) IsMeetingRunning(ctx context.Context, meetingID string) (bool, error) {
	q := url.Values{}
	q.Set("meetingID", meetingID)

	var resp runningResponse
	if err := c.do(ctx, callIsRunning, meetingID, q, &resp); err != nil {
		return false, err
	}
	return resp.Running, nil
}

// EndMeeting forcibly ends a meeting
func (c *Client) EndMeeting(ctx context.Context, meetingID, moderatorPassword string) error {
	q := url.Values{}
	q.Set("meetingID", meetingID)
	q.Set("password", moderatorPassword)

	var resp endResponse
	return c.do(ctx, callEnd, meetingID, q, &resp)
}

// JoinURL builds a signed join URL. The password decides the role.
func (c *Client) JoinURL(meetingID, displayName, password string) string {
	q := url.Values{}
	q.Set("fullName", displayName)
	q.Set("meetingID", meetingID)
	q.Set("password", password)
	return c.URL(callJoin, q)
}

// Version probes the API root; used by health checks
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp versionResponse
	if err := c.do(ctx, callVersion, "", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

type response interface {
	head() *envelope
}

func (c *Client) do(ctx context.Context, call, meetingID string, query url.Values, out response) (err error) {
	name := call
	if name == "" {
		name = "version"
	}
	ctx, span := c.tracer.Start(ctx, "bbb."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("bbb.call", name)),
	)
	if meetingID != "" {
		span.SetAttributes(attribute.String("bbb.meeting_id", meetingID))
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	endpoint := c.base + "/api"
	if call != "" {
		endpoint = c.URL(call, query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return unavailable(name, err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return unavailable(name, err)
	}
	defer func() { _ = res.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return unavailable(name, fmt.Errorf("unexpected HTTP status %d", res.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return unavailable(name, err)
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return unavailable(name, fmt.Errorf("unparsable response: %w", err))
	}

	head := out.head()
	if head.ReturnCode == "" {
		return unavailable(name, fmt.Errorf("response without returncode"))
	}
	if !head.ok() {
		return rejected(name, head)
	}
	if head.MessageKey != "" {
		span.SetAttributes(attribute.String("bbb.message_key", head.MessageKey))
	}
	return nil
}
