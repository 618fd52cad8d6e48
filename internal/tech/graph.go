// Package tech drives research: prerequisite checks, faith spending and
// progress toward completion. The tech definitions themselves live in the
// gamedata catalog; this package owns the per-player research state.
package tech

import (
	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
)

// ResearchThreshold is the progress a started tech needs to complete.
const ResearchThreshold = 100

// PerTurnProgress is added to the active research each turn.
const PerTurnProgress = 20

// Graph answers research questions against the live store.
type Graph struct {
	store *entity.Store
}

// NewGraph creates a graph over the store's catalog and players.
func NewGraph(store *entity.Store) *Graph {
	return &Graph{store: store}
}

// Completion describes a finished tech and what it made available.
type Completion struct {
	TechID            string
	UnlockedUnits     []string
	UnlockedBuildings []string
	UnlockedAbilities []string
}

// CanResearch reports whether a tech is open to the player: not yet
// researched, with every prerequisite already in the researched set.
func (g *Graph) CanResearch(p *entity.Player, techID string) bool {
	def := g.store.Catalog.Techs.GetByID(techID)
	if def == nil || p.HasResearched(techID) {
		return false
	}
	for _, pre := range def.Prereqs {
		if !p.HasResearched(pre) {
			return false
		}
	}
	return true
}

// Available lists the techs the player could start now, in catalog order.
func (g *Graph) Available(p *entity.Player) []*gamedata.TechDef {
	var out []*gamedata.TechDef
	for _, def := range g.store.Catalog.Techs.All() {
		if g.CanResearch(p, def.ID) {
			out = append(out, g.store.Catalog.Techs.GetByID(def.ID))
		}
	}
	return out
}

// StartResearch deducts the faction-discounted faith cost and sets the
// player's active research slot. One tech researches at a time.
func (g *Graph) StartResearch(p *entity.Player, techID string) *entity.Rejection {
	def := g.store.Catalog.Techs.GetByID(techID)
	if def == nil {
		return entity.Reject(entity.ReasonNotFound, "tech %s", techID)
	}
	if p.HasResearched(techID) {
		return entity.Reject(entity.ReasonAlreadyResearched, "tech %s", techID)
	}
	for _, pre := range def.Prereqs {
		if !p.HasResearched(pre) {
			return entity.Reject(entity.ReasonPrereqsUnmet, "tech %s requires %s", techID, pre)
		}
	}
	if p.ActiveResearch != "" {
		return entity.Reject(entity.ReasonUnavailable, "already researching %s", p.ActiveResearch)
	}

	cost := def.Cost
	if f := g.store.Catalog.Factions.GetByID(p.FactionID); f != nil {
		cost = f.DiscountedTechCost(cost)
	}
	if p.Faith < cost {
		return entity.Reject(entity.ReasonInsufficientResources, "need %d faith, have %d", cost, p.Faith)
	}

	p.Faith -= cost
	p.ActiveResearch = techID
	p.ResearchProgress = 0
	return nil
}

// Progress adds research points to the player's active slot. When the
// threshold is reached the tech joins the researched set and its unlock
// set is returned; surplus progress is discarded. Returns nil while
// research is still running or no slot is active.
func (g *Graph) Progress(p *entity.Player, amount int) *Completion {
	if p.ActiveResearch == "" {
		return nil
	}
	p.ResearchProgress += amount
	if p.ResearchProgress < ResearchThreshold {
		return nil
	}

	def := g.store.Catalog.Techs.GetByID(p.ActiveResearch)
	if def == nil {
		panic("BUG: active research " + p.ActiveResearch + " missing from catalog")
	}
	p.ResearchedTechs[def.ID] = true
	p.ActiveResearch = ""
	p.ResearchProgress = 0
	return &Completion{
		TechID:            def.ID,
		UnlockedUnits:     def.UnlocksUnits,
		UnlockedBuildings: def.UnlocksBuildings,
		UnlockedAbilities: def.UnlocksAbilities,
	}
}

// HasUnlockedUnit reports whether a player can build a unit type: either
// no tech gates it, or a researched tech lists it.
func (g *Graph) HasUnlockedUnit(p *entity.Player, unitID string) bool {
	return g.unlocked(p, unitID, func(def gamedata.TechDef) []string { return def.UnlocksUnits })
}

// HasUnlockedBuilding reports whether a player can build a building type.
func (g *Graph) HasUnlockedBuilding(p *entity.Player, buildingID string) bool {
	return g.unlocked(p, buildingID, func(def gamedata.TechDef) []string { return def.UnlocksBuildings })
}

func (g *Graph) unlocked(p *entity.Player, id string, pick func(gamedata.TechDef) []string) bool {
	gated := false
	for _, def := range g.store.Catalog.Techs.All() {
		for _, unlocked := range pick(def) {
			if unlocked != id {
				continue
			}
			gated = true
			if p.HasResearched(def.ID) {
				return true
			}
		}
	}
	return !gated
}
