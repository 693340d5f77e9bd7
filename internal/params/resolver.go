package params

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"meetingbridge/internal/i18n"
	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// PasswordLength is the length of generated meeting passwords
const PasswordLength = 10

// meetingNamespace scopes name-based meeting IDs to this service
var meetingNamespace = uuid.MustParse("3f0c5a4e-8a43-4d8e-9f61-6b1f2f8c7d10")

// Options configure a Resolver
type Options struct {
	// SiteBaseURL makes relative logout paths absolute
	SiteBaseURL string

	// MeetingSalt keeps meeting IDs of different sites apart on a shared
	// conferencing server
	MeetingSalt string
}

// Resolver turns partial parameters into a complete CreationParameters set
// ARCHITECTURAL DISCOVERY: Every field is resolved from an explicit ordered
// list of sources (explicit request, parameter hooks, type configuration,
// generated default); the first present source wins
type Resolver struct {
	siteBase   *url.URL
	salt       string
	entropy    Entropy
	alterer    interfaces.ParameterAlterer
	translator *i18n.Translator
}

// NewResolver creates a resolver. alterer may be nil when no parameter hooks
// are registered.
func NewResolver(opts Options, entropy Entropy, alterer interfaces.ParameterAlterer, translator *i18n.Translator) (*Resolver, error) {
	var base *url.URL
	if opts.SiteBaseURL != "" {
		parsed, err := url.Parse(opts.SiteBaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSiteBaseURL, opts.SiteBaseURL)
		}
		base = parsed
	}
	if entropy == nil {
		entropy = CryptoEntropy()
	}
	if translator == nil {
		translator = i18n.New(i18n.Default())
	}

	return &Resolver{
		siteBase:   base,
		salt:       opts.MeetingSalt,
		entropy:    entropy,
		alterer:    alterer,
		translator: translator,
	}, nil
}

// MeetingID derives the remote meeting ID of a content item
// FUNCTIONAL DISCOVERY: The same item, salt and generation always give the
// same ID, so a retried create lands on the same remote meeting
func (r *Resolver) MeetingID(itemID string, generation int) string {
	name := itemID + "\x00" + r.salt + "\x00" + strconv.Itoa(generation)
	return uuid.NewSHA1(meetingNamespace, []byte(name)).String()
}

// Resolve builds the creation parameters for hc.Item. hc.Op and hc.Config
// are passed through to the parameter hooks.
func (r *Resolver) Resolve(ctx context.Context, hc types.HookContext, explicit *types.MeetingParams, generation int) (types.CreationParameters, error) {
	if explicit == nil {
		explicit = &types.MeetingParams{}
	}
	cfg := hc.Config
	item := hc.Item

	// Hooks see an empty layer of their own; explicit values still win
	hooked := &types.MeetingParams{}
	if r.alterer != nil {
		if err := r.alterer.AlterParameters(ctx, hc, hooked); err != nil {
			return types.CreationParameters{}, fmt.Errorf("parameter hook vetoed %s of %s: %w", hc.Op, item.ID, err)
		}
	}

	p := types.CreationParameters{
		MeetingID: r.MeetingID(item.ID, generation),
	}

	if v, ok := firstString(explicit.MeetingName, hooked.MeetingName); ok {
		p.MeetingName = v
	} else {
		p.MeetingName = item.Title
	}

	if v, ok := firstString(explicit.WelcomeMessage, hooked.WelcomeMessage, cfg.Welcome); ok {
		p.WelcomeMessage = v
	} else {
		p.WelcomeMessage = r.translator.Welcome(item.Title)
	}

	p.DialNumber, _ = firstString(explicit.DialNumber, hooked.DialNumber, cfg.DialNumber)

	var err error
	p.ModeratorPassword, err = r.password(explicit.ModeratorPassword, hooked.ModeratorPassword, cfg.ModeratorPassword)
	if err != nil {
		return types.CreationParameters{}, err
	}
	p.AttendeePassword, err = r.password(explicit.AttendeePassword, hooked.AttendeePassword, cfg.AttendeePassword)
	if err != nil {
		return types.CreationParameters{}, err
	}
	// A generated attendee password must never equal the moderator password
	for p.AttendeePassword == p.ModeratorPassword && explicit.AttendeePassword == nil && hooked.AttendeePassword == nil && cfg.AttendeePassword == nil {
		if p.AttendeePassword, err = r.entropy.Token(PasswordLength); err != nil {
			return types.CreationParameters{}, err
		}
	}

	if tmpl, ok := firstString(explicit.LogoutURL, hooked.LogoutURL, cfg.LogoutURL); ok {
		p.LogoutURL, err = r.logoutURL(tmpl, item)
		if err != nil {
			return types.CreationParameters{}, err
		}
	}

	p.Record, _ = firstBool(explicit.Record, hooked.Record, &cfg.RecordByDefault)

	if v, ok := firstInt(explicit.VoiceBridge, hooked.VoiceBridge); ok {
		p.VoiceBridge = v
	} else {
		// Drawn fresh on every resolution
		p.VoiceBridge, err = r.entropy.IntRange(types.VoiceBridgeMin, types.VoiceBridgeMax)
		if err != nil {
			return types.CreationParameters{}, err
		}
	}

	p.MaxParticipants, _ = firstInt(explicit.MaxParticipants, hooked.MaxParticipants, cfg.MaxParticipants)
	p.Duration, _ = firstInt(explicit.Duration, hooked.Duration, cfg.Duration)

	if err := p.Validate(); err != nil {
		return types.CreationParameters{}, fmt.Errorf("resolved parameters for %s: %w", item.ID, err)
	}
	return p, nil
}

func (r *Resolver) password(sources ...*string) (string, error) {
	if v, ok := firstString(sources...); ok {
		return v, nil
	}
	return r.entropy.Token(PasswordLength)
}

// logoutURL substitutes {id} and {type} and makes the result absolute
// against the site base URL. An empty template means no logout URL.
func (r *Resolver) logoutURL(tmpl string, item types.ContentItem) (string, error) {
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		return "", nil
	}
	replaced := strings.NewReplacer(
		"{id}", url.PathEscape(item.ID),
		"{type}", url.PathEscape(item.Type),
	).Replace(tmpl)

	ref, err := url.Parse(replaced)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLogoutURL, tmpl)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if r.siteBase == nil {
		return "", fmt.Errorf("%w: relative logout URL %q needs a site base URL", ErrInvalidLogoutURL, tmpl)
	}
	return r.siteBase.ResolveReference(ref).String(), nil
}
