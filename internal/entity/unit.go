package entity

import "github.com/gurulost/IsometricEmpires-sub000/internal/world"

// UnitID is a unique identifier for a unit.
type UnitID = uint64

// UnitState tracks a unit's lifecycle.
type UnitState uint8

const (
	UnitIdle      UnitState = iota // Awaiting orders
	UnitMoving                     // Spent movement this turn
	UnitAttacking                  // Committed an attack this turn
	UnitDead                       // Health reached zero, awaiting removal
)

// Unit is a live unit on the map. Static stats live in the gamedata
// definition referenced by TypeID and are never copied or mutated here.
type Unit struct {
	ID       UnitID     `json:"id"`
	PlayerID PlayerID   `json:"player_id"`
	TypeID   string     `json:"type_id"`
	Position world.Cell `json:"position"`

	Health       int       `json:"health"`
	MovementLeft int       `json:"movement_left"`
	HasActed     bool      `json:"has_acted"`
	State        UnitState `json:"state"`
}

// Alive reports whether the unit still participates in the game.
func (u *Unit) Alive() bool {
	return u.Health > 0 && u.State != UnitDead
}

// UnitStateName returns a human-readable name for a unit state.
func UnitStateName(s UnitState) string {
	switch s {
	case UnitIdle:
		return "idle"
	case UnitMoving:
		return "moving"
	case UnitAttacking:
		return "attacking"
	case UnitDead:
		return "dead"
	default:
		return "unknown"
	}
}
