package models

// Permission predicates. Both the page that shows a button and the handler
// that accepts the submission call the same function. A nil account is an
// anonymous visitor.

// CanInteract reports whether the account may comment, react or chat.
func CanInteract(a *Account) bool {
	return a != nil && !a.IsBanned
}

// CanPost reports whether the account may open a thread in the category.
func CanPost(a *Account, c *Category) bool {
	if !CanInteract(a) || c == nil {
		return false
	}
	if !c.IsAdminOnly {
		return true
	}
	if c.IsFeedback {
		return true
	}
	return a.IsStaff()
}

// CanReply reports whether the account may add a post to the thread.
// Closed threads accept no replies from anyone, and c must be the thread's
// own category.
func CanReply(a *Account, t *Thread, c *Category) bool {
	if t == nil || t.IsClosed {
		return false
	}
	if c == nil || c.ID != t.CategoryID {
		return false
	}
	return CanPost(a, c)
}

// CanCreateNews reports whether the account may publish news.
func CanCreateNews(a *Account) bool {
	return CanInteract(a) && a.IsStaff()
}

// CanModerate gates the staff pages, ban toggling and content removal.
func CanModerate(a *Account) bool {
	return CanInteract(a) && a.IsStaff()
}

// CanManageModerators gates changes to the Moderators group.
func CanManageModerators(a *Account) bool {
	return CanInteract(a) && a.Role() == RoleSuperuser
}

// CanBeBanned reports whether a ban toggle may touch the target.
// Staff accounts are never banned through the toggle.
func CanBeBanned(target *Account) bool {
	return target != nil && !target.IsStaff()
}
