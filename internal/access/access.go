package access

import "meetingbridge/pkg/types"

// CanAttend reports whether the account may join a meeting as attendee
func CanAttend(account types.Account, item types.ContentItem) bool {
	return account.HasPermission(types.PermissionAttend) ||
		account.HasPermission(types.PermissionAdminister)
}

// CanModerate reports whether the account may join a meeting as moderator
// FUNCTIONAL DISCOVERY: "moderate own meetings" only applies to items the
// account owns; anonymous accounts never own anything
func CanModerate(account types.Account, item types.ContentItem) bool {
	if account.HasPermission(types.PermissionModerate) || account.HasPermission(types.PermissionAdminister) {
		return true
	}
	return account.ID != "" &&
		account.ID == item.OwnerID &&
		account.HasPermission(types.PermissionModerateOwn)
}

// CanTerminate reports whether the account may end a meeting for everyone
func CanTerminate(account types.Account, item types.ContentItem) bool {
	return CanModerate(account, item)
}

// CanAdminister reports whether the account may manage meeting settings and
// content items
func CanAdminister(account types.Account) bool {
	return account.HasPermission(types.PermissionAdminister)
}
