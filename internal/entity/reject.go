// Package entity owns the live game records — units, buildings, players —
// and the id and position indexes that address them.
package entity

import "fmt"

// Reason codes for rejected commands and placements.
type Reason string

const (
	ReasonOutOfBounds           Reason = "out_of_bounds"
	ReasonImpassableTerrain     Reason = "impassable_terrain"
	ReasonOccupied              Reason = "occupied"
	ReasonInsufficientResources Reason = "insufficient_resources"
	ReasonAlreadyActed          Reason = "already_acted"
	ReasonPrereqsUnmet          Reason = "prerequisites_unmet"
	ReasonOutOfRange            Reason = "out_of_range"
	ReasonSamePlayer            Reason = "same_player"
	ReasonNotFound              Reason = "not_found"
	ReasonAlreadyResearched     Reason = "already_researched"
	ReasonInvalidTarget         Reason = "invalid_target"
	ReasonNotYourTurn           Reason = "not_your_turn"
	ReasonUnavailable           Reason = "unavailable"
)

// Rejection is a typed refusal of a command or placement: normal,
// recoverable control flow, never a fault. A nil *Rejection means the
// operation was accepted.
type Rejection struct {
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Error lets rejections flow through logging call sites.
func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}

// Reject builds a rejection with a formatted detail message.
func Reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
