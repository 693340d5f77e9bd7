package access

import (
	"net/http"
	"strings"

	"meetingbridge/pkg/types"
)

// Headers set by the content-management system on every proxied request
const (
	HeaderAccountID          = "X-Account-ID"
	HeaderAccountName        = "X-Account-Name"
	HeaderAccountPermissions = "X-Account-Permissions"
)

// FromRequest reads the requester from the trusted account headers. A
// request without headers is an anonymous account without permissions.
func FromRequest(r *http.Request) types.Account {
	account := types.Account{
		ID:          strings.TrimSpace(r.Header.Get(HeaderAccountID)),
		DisplayName: strings.TrimSpace(r.Header.Get(HeaderAccountName)),
	}
	for _, p := range strings.Split(r.Header.Get(HeaderAccountPermissions), ",") {
		if p = strings.TrimSpace(p); p != "" {
			account.Permissions = append(account.Permissions, p)
		}
	}
	return account
}

// SetHeaders writes account onto an outgoing request
func SetHeaders(r *http.Request, account types.Account) {
	if account.ID != "" {
		r.Header.Set(HeaderAccountID, account.ID)
	}
	if account.DisplayName != "" {
		r.Header.Set(HeaderAccountName, account.DisplayName)
	}
	if len(account.Permissions) > 0 {
		r.Header.Set(HeaderAccountPermissions, strings.Join(account.Permissions, ","))
	}
}
