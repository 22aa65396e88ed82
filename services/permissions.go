package services

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/models"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Principal is the authenticated caller of a service operation.
type Principal struct {
	UserID   string
	ClientID primitive.ObjectID
	Role     string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Actor maps the caller onto the state machine's actors.
func (p Principal) Actor() models.Actor {
	if p.IsAdmin() {
		return models.ActorOperator
	}
	return models.ActorUser
}

// Scope returns the client filter for listings: nil for admins.
func (p Principal) Scope() *primitive.ObjectID {
	if p.IsAdmin() {
		return nil
	}
	id := p.ClientID
	return &id
}

// Authorize checks that the caller may act on a resource owned by clientID.
func (p Principal) Authorize(clientID primitive.ObjectID) error {
	if p.IsAdmin() || (!p.ClientID.IsZero() && p.ClientID == clientID) {
		return nil
	}
	return fmt.Errorf("%w: resource belongs to another client", ErrForbidden)
}
