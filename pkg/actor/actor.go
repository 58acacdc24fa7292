// Package actor identifies the staff member performing an action.
// Every mutating operation stamps the acting user onto audit fields
// (deleted_by, recorded_by, administered_by), so the actor is threaded
// through the request context rather than read from a process-wide global.
package actor

import (
	"context"
	"fmt"
)

// Actor is the authenticated staff member behind a request.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// Email is the actor's email address
	Email string `json:"email"`

	// Role is the actor's role (school_nurse, health_manager, admin)
	Role string `json:"role,omitempty"`

	// Permissions are the actor's granted permissions
	Permissions []string `json:"permissions,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Email)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// ID returns the acting user's ID, or the system ID when no actor is present.
func ID(ctx context.Context) string {
	a := FromContext(ctx)
	if a == nil {
		return systemID
	}
	return a.ID
}

const systemID = "00000000-0000-0000-0000-000000000000"

// System returns an Actor representing the service itself.
// Used by schedulers and other background work.
func System() *Actor {
	return &Actor{
		ID:    systemID,
		Name:  "System",
		Email: "system@schoolmed.local",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == systemID
}
