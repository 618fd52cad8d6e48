package entity

import "github.com/gurulost/IsometricEmpires-sub000/internal/world"

// PlayerID is a unique identifier for a player.
type PlayerID = uint64

// Player is a participant in the game, human or scripted.
type Player struct {
	ID        PlayerID `json:"id"`
	Name      string   `json:"name"`
	FactionID string   `json:"faction_id"`

	// Shared reserves. Faith funds research; food and production
	// aggregate settlement surpluses for reporting.
	Food       int `json:"food"`
	Production int `json:"production"`
	Faith      int `json:"faith"`

	// Per-turn income, recomputed by each economy pass.
	Income world.Yield `json:"income"`

	ResearchedTechs  map[string]bool `json:"researched_techs"`
	ActiveResearch   string          `json:"active_research,omitempty"`
	ResearchProgress int             `json:"research_progress"`

	Eliminated bool `json:"eliminated"`
}

// HasResearched reports whether the player owns a completed technology.
func (p *Player) HasResearched(techID string) bool {
	return p.ResearchedTechs[techID]
}
