package bbb

import (
	"errors"
	"fmt"

	"meetingbridge/pkg/types"
)

// Failure kinds
const (
	KindUnavailable = "unavailable"
	KindRejected    = "rejected"
)

// Message keys the server uses for well-known rejections
const (
	MessageKeyNotFound         = "notFound"
	MessageKeyDuplicateWarning = "duplicateWarning"
	MessageKeyChecksumError    = "checksumError"
)

var (
	ErrMissingBaseURL  = errors.New("conferencing server base URL is required")
	ErrMissingSecret   = errors.New("conferencing server shared secret is required")
	ErrUnknownChecksum = errors.New("checksum algorithm must be sha1 or sha256")
)

// Failure describes a failed API call
// FUNCTIONAL DISCOVERY: Kind decides which sentinel the failure matches:
// transport problems, non-2xx statuses and unreadable bodies are
// "unavailable"; a well-formed FAILED response is "rejected"
type Failure struct {
	Kind       string
	Call       string
	MessageKey string
	Message    string
	Err        error
}

func (f *Failure) Error() string {
	switch {
	case f.Err != nil:
		return fmt.Sprintf("bbb %s %s: %v", f.Call, f.Kind, f.Err)
	case f.MessageKey != "":
		return fmt.Sprintf("bbb %s %s: %s: %s", f.Call, f.Kind, f.MessageKey, f.Message)
	default:
		return fmt.Sprintf("bbb %s %s", f.Call, f.Kind)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the remote failure sentinels. A notFound rejection also
// matches types.ErrNotFound.
func (f *Failure) Is(target error) bool {
	switch target {
	case types.ErrRemoteUnavailable:
		return f.Kind == KindUnavailable
	case types.ErrRemoteRejected:
		return f.Kind == KindRejected
	case types.ErrNotFound:
		return f.Kind == KindRejected && f.MessageKey == MessageKeyNotFound
	}
	return false
}

// IsNotFound reports whether err is the server saying it does not know the
// meeting
func IsNotFound(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == KindRejected && f.MessageKey == MessageKeyNotFound
}

func unavailable(call string, err error) *Failure {
	return &Failure{Kind: KindUnavailable, Call: call, Err: err}
}

func rejected(call string, r *envelope) *Failure {
	return &Failure{Kind: KindRejected, Call: call, MessageKey: r.MessageKey, Message: r.Message}
}
