package statemachine

import (
	"strings"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/models"
)

// Actor names who may perform a transition.
type Actor string

const (
	ActorAdmin Actor = "admin"
	ActorOwner Actor = "owner"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor Actor              `json:"actor"`
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Kitchen flow, admin only
	{From: models.StatusReceived, To: models.StatusPreparing, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusDelivered, Actor: ActorAdmin},
	// Owner or admin can cancel before the order is ready
	{From: models.StatusReceived, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusReceived, To: models.StatusCancelled, Actor: ActorOwner},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorOwner},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// CanTransition checks if an order may move from one state to another.
func CanTransition(from, to models.OrderStatus) error {
	if transitionMap[transitionKey{From: from, To: to}] {
		return nil
	}
	return apperrors.InvalidTransition(
		"cannot move order from %s to %s; valid transitions from %s are: %s",
		from, to, from, describeValidFrom(from),
	)
}

// RequiredCapability is the gate a caller must pass to move an order into
// status to: owner-or-admin when any transition into to lists the owner,
// admin-only otherwise.
func RequiredCapability(to models.OrderStatus) access.Requirement {
	for _, t := range validTransitions {
		if t.To == to && t.Actor == ActorOwner {
			return access.OwnerOrAdmin
		}
	}
	return access.AdminOnly
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
