package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, KeyWelcome, "Welcome to %s")
	message.SetString(lang, KeyAnonymous, "Anonymous")
	message.SetString(lang, KeyTerminated, "The meeting has been terminated and is not available for attending.")
	message.SetString(lang, KeyWaitModerator, "The meeting has not started yet. You will be redirected once a moderator has joined.")
	message.SetString(lang, KeyNotEnabled, "Meetings are not enabled for this content type.")
	message.SetString(lang, KeyNotFound, "There is no meeting for this content.")
	message.SetString(lang, KeyRemoteDown, "The conferencing server could not be reached.")
	message.SetString(lang, KeyRemoteRejected, "The conferencing server rejected the request.")
	message.SetString(lang, KeyAccessDenied, "You are not allowed to join this meeting.")
	message.SetString(lang, KeyTerminateFailed, "The meeting was removed locally but the conferencing server could not end it.")
}
