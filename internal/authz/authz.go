// Package authz decides whether a user may perform an action on a resource.
package authz

import (
	"errors"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
)

var (
	ErrUnauthenticated = errors.New("login required")
	ErrForbidden       = errors.New("forbidden")
	ErrSelfDemotion    = errors.New("admins cannot remove their own admin role")
)

type Action int

const (
	Read Action = iota
	Create
	Update
	Delete
	Transition
	Publish
	ChangeRole
	Administer
)

// RoleChange is the resource for ChangeRole checks.
type RoleChange struct {
	Target  *models.User
	NewRole string
}

// AdminArea is the resource for admin-only pages.
type AdminArea struct{}

// Check returns nil when actor may perform action on resource. A nil actor is
// anonymous.
func Check(actor *models.User, action Action, resource any) error {
	switch r := resource.(type) {
	case *models.Notice:
		if action == Read && r.IsPublished {
			return nil
		}
		return requireAdmin(actor)

	case *models.Post:
		switch action {
		case Read:
			return nil
		case Create:
			return requireLogin(actor)
		default:
			return ownerOrAdmin(actor, r.UserID)
		}

	case *models.Attachment:
		// Attachments inherit their post's rules; the caller checks the post.
		if action == Read {
			return nil
		}
		return requireLogin(actor)

	case *models.Complaint:
		switch action {
		case Create:
			return requireLogin(actor)
		case Read:
			return ownerOrAdmin(actor, r.UserID)
		default:
			return requireAdmin(actor)
		}

	case RoleChange:
		if err := requireAdmin(actor); err != nil {
			return err
		}
		if r.Target != nil && r.Target.ID == actor.ID && r.NewRole != config.RoleAdmin {
			return ErrSelfDemotion
		}
		return nil

	case *models.User:
		// Profiles are private to their owner and admins.
		return ownerOrAdmin(actor, r.ID)

	default:
		return requireAdmin(actor)
	}
}

func requireLogin(actor *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(actor *models.User) error {
	if err := requireLogin(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func ownerOrAdmin(actor *models.User, ownerID uint) error {
	if err := requireLogin(actor); err != nil {
		return err
	}
	if actor.ID != ownerID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
