// Package access decides who may perform which action on posts and follows.
package access

import (
	"inkwell/internal/models"
)

// Identity is the authenticated requester. A nil *Identity is an anonymous
// visitor.
type Identity struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
}

// Decision is the outcome of a guard check.
type Decision int

const (
	// Allow lets the action proceed.
	Allow Decision = iota
	// RedirectLogin sends an anonymous visitor to the login page.
	RedirectLogin
	// RedirectDetail sends a non-owner back to the post page without changes.
	RedirectDetail
	// Absorb silently skips the action; the caller continues as if it succeeded.
	Absorb
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDetail:
		return "redirect_detail"
	case Absorb:
		return "absorb"
	default:
		return "unknown"
	}
}

// Guard holds the authorization rules. It carries no state; the zero value
// is ready to use.
type Guard struct{}

// NewGuard returns a Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// RequireAuthenticated gates create, comment and the following feed.
func (g *Guard) RequireAuthenticated(id *Identity) Decision {
	if id == nil {
		return RedirectLogin
	}
	return Allow
}

// CanEditPost allows only the current author of post.
func (g *Guard) CanEditPost(id *Identity, post *models.Post) Decision {
	if id == nil {
		return RedirectLogin
	}
	if post == nil || post.AuthorID != id.UserID {
		return RedirectDetail
	}
	return Allow
}

// CanDeletePost follows the same rule as editing.
func (g *Guard) CanDeletePost(id *Identity, post *models.Post) Decision {
	return g.CanEditPost(id, post)
}

// CanFollow rejects anonymous visitors and absorbs self-follows.
func (g *Guard) CanFollow(id *Identity, author *models.User) Decision {
	if id == nil {
		return RedirectLogin
	}
	if author != nil && author.ID == id.UserID {
		return Absorb
	}
	return Allow
}
