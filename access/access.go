// Package access holds the capability gate consulted by every operation.
package access

import (
	"restaurant-api/apperrors"
	"restaurant-api/models"
)

// Requirement declares who may invoke an operation.
type Requirement int

const (
	Public Requirement = iota
	Authenticated
	OwnerOrAdmin
	AdminOnly
)

func (r Requirement) String() string {
	switch r {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case OwnerOrAdmin:
		return "owner-or-admin"
	case AdminOnly:
		return "admin-only"
	}
	return "unknown"
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID string
	Role   models.UserRole
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == models.RoleAdmin
}

// Check enforces req for caller. ownerID is only consulted for OwnerOrAdmin.
func Check(req Requirement, caller *Caller, ownerID string) error {
	if req == Public {
		return nil
	}
	if caller == nil || caller.UserID == "" {
		return apperrors.Unauthenticated("authentication required")
	}
	switch req {
	case Authenticated:
		return nil
	case OwnerOrAdmin:
		if caller.IsAdmin() || caller.UserID == ownerID {
			return nil
		}
		return apperrors.Forbidden("not authorized to access this resource")
	case AdminOnly:
		if caller.IsAdmin() {
			return nil
		}
		return apperrors.Forbidden("user role %s is not authorized to access this route", caller.Role)
	}
	return apperrors.Forbidden("unknown requirement")
}
