package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys
const (
	KeyWelcome         = "meeting.welcome"
	KeyAnonymous       = "meeting.anonymous"
	KeyTerminated      = "meeting.terminated"
	KeyWaitModerator   = "meeting.wait_moderator"
	KeyNotEnabled      = "meeting.not_enabled"
	KeyNotFound        = "meeting.not_found"
	KeyRemoteDown      = "meeting.remote_unavailable"
	KeyRemoteRejected  = "meeting.remote_rejected"
	KeyAccessDenied    = "meeting.access_denied"
	KeyTerminateFailed = "meeting.terminate_failed"
)

var supportedTags = []language.Tag{
	language.English,
	language.German,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Supported returns the list of supported language tags
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the default language tag
func Default() language.Tag {
	return language.English
}

// Match returns the supported tag closest to the given locale string,
// falling back to the default for empty or unparsable input
func Match(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return Default()
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return Default()
	}
	_, index, _ := tagMatcher.Match(tag)
	return supportedTags[index]
}

// ResolveTag picks the language for a request from Accept-Language, or the
// fallback tag when the header is missing or unusable
func ResolveTag(r *http.Request, fallback language.Tag) language.Tag {
	if r == nil {
		return fallback
	}
	accept := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if accept == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, index, confidence := tagMatcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return supportedTags[index]
}

// Translator renders user-facing text in one language
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New creates a translator for the given tag
func New(tag language.Tag) *Translator {
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// Tag returns the translator's language
func (t *Translator) Tag() language.Tag {
	return t.tag
}

// Sprintf formats a message key with arguments
func (t *Translator) Sprintf(key string, args ...interface{}) string {
	return t.printer.Sprintf(key, args...)
}

// Welcome returns the generated welcome text for a meeting titled title
func (t *Translator) Welcome(title string) string {
	return t.printer.Sprintf(KeyWelcome, title)
}

// Anonymous returns the placeholder name for requesters without one
func (t *Translator) Anonymous() string {
	return t.printer.Sprintf(KeyAnonymous)
}
