package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.German

	message.SetString(lang, KeyWelcome, "Willkommen bei %s")
	message.SetString(lang, KeyAnonymous, "Anonym")
	message.SetString(lang, KeyTerminated, "Die Besprechung wurde beendet und steht nicht mehr zur Verfügung.")
	message.SetString(lang, KeyWaitModerator, "Die Besprechung hat noch nicht begonnen. Sie werden weitergeleitet, sobald ein Moderator beigetreten ist.")
	message.SetString(lang, KeyNotEnabled, "Besprechungen sind für diesen Inhaltstyp nicht aktiviert.")
	message.SetString(lang, KeyNotFound, "Für diesen Inhalt gibt es keine Besprechung.")
	message.SetString(lang, KeyRemoteDown, "Der Konferenzserver ist nicht erreichbar.")
	message.SetString(lang, KeyRemoteRejected, "Der Konferenzserver hat die Anfrage abgelehnt.")
	message.SetString(lang, KeyAccessDenied, "Sie dürfen dieser Besprechung nicht beitreten.")
	message.SetString(lang, KeyTerminateFailed, "Die Besprechung wurde lokal entfernt, konnte auf dem Konferenzserver aber nicht beendet werden.")
}
