// Package economy runs the per-settlement turn sequence: yields, food
// and growth, worker assignment, production, faith and territory
// expansion. Step order matters — later steps read values the earlier
// ones produce — so the sequence is fixed and never reordered.
package economy

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/tech"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// FoodPerPop is consumed by each population point every turn.
const FoodPerPop = 1

// GrowthPerPop sets the growth threshold: population * GrowthPerPop
// food banked grows the settlement by one.
const GrowthPerPop = 15

// ExpandChance is the per-turn probability that a settlement claims one
// adjacent tile.
const ExpandChance = 0.20

// Engine advances settlement economies against the live store.
type Engine struct {
	store *entity.Store
	graph *tech.Graph
	rng   *rand.Rand
}

// NewEngine creates an engine drawing expansion rolls from rng.
func NewEngine(store *entity.Store, rng *rand.Rand) *Engine {
	return &Engine{store: store, graph: tech.NewGraph(store), rng: rng}
}

// CompletedItem records one production completion.
type CompletedItem struct {
	Kind       entity.ProductionKind
	TypeID     string
	UnitID     entity.UnitID
	BuildingID entity.BuildingID
}

// SettlementReport summarizes one settlement's economy pass.
type SettlementReport struct {
	SettlementID entity.BuildingID
	Name         string
	Income       world.Yield
	Grew         bool
	Population   int
	Completed    []CompletedItem
	Expanded     *world.Cell
	Depleted     []world.Cell
}

// RunTurn advances every settlement the player owns, in founding order,
// and refreshes the player's cached income.
func (e *Engine) RunTurn(p *entity.Player) []*SettlementReport {
	var reports []*SettlementReport
	var income world.Yield
	for _, city := range e.store.Settlements(p.ID) {
		if !city.Standing() {
			continue
		}
		rep := e.settlementTurn(p, city)
		income = income.Add(rep.Income)
		reports = append(reports, rep)
	}
	p.Income = income
	return reports
}

func (e *Engine) settlementTurn(p *entity.Player, city *entity.Building) *SettlementReport {
	rep := &SettlementReport{SettlementID: city.ID, Name: city.Name}

	// 1. Yields from worked tiles and operational buildings.
	rep.Income = e.Income(city)
	rep.Depleted = e.depleteWorked(city)

	// 2. Food and growth.
	city.FoodStock += rep.Income.Food - city.Population*FoodPerPop
	if city.FoodStock < 0 {
		city.FoodStock = 0
	}
	if threshold := city.GrowthThreshold(); city.FoodStock >= threshold && city.Population < city.MaxPopulation {
		city.Population++
		city.FoodStock -= threshold
		rep.Grew = true
	}
	rep.Population = city.Population

	// 3. Worker assignment follows every population change.
	e.AssignWorkers(city)

	// 4. Production.
	rep.Completed = e.advanceProduction(p, city, rep.Income.Production)

	// 5. Faith accrues to the player; research spends it later.
	p.Faith += rep.Income.Faith

	// 6. Territory expansion.
	if cell, ok := e.tryExpand(city); ok {
		rep.Expanded = &cell
		e.AssignWorkers(city)
	}
	return rep
}

// Income totals a settlement's yields: worked tiles, flat building
// yields, then percentage production effects summed and applied once to
// the additive total. Faction production bonuses come last.
func (e *Engine) Income(city *entity.Building) world.Yield {
	var total world.Yield
	for _, c := range city.WorkedTiles {
		if t := e.store.Map.Tile(c); t != nil {
			total = total.Add(t.Yields())
		}
	}

	pctSum := 0
	for _, b := range e.store.SettlementMembers(city.ID) {
		if b.State != entity.BuildingOperational {
			continue
		}
		def := e.store.BuildingDef(b)
		total = total.Add(def.Yields)
		pctSum += def.ProductionPct
	}
	total.Production += total.Production * pctSum / 100

	if f := e.store.Faction(city.PlayerID); f != nil && f.ProductionBonusPct > 0 {
		total.Production += total.Production * f.ProductionBonusPct / 100
	}
	return total
}

// AssignWorkers greedily fills the settlement's worked set with its
// highest-scoring claimed tiles, capped at min(population, claimed).
// Ties keep claim order.
func (e *Engine) AssignWorkers(city *entity.Building) {
	limit := city.Population
	if n := len(city.ClaimedTiles); n < limit {
		limit = n
	}

	type scoredTile struct {
		cell  world.Cell
		score float64
	}
	tiles := make([]scoredTile, 0, len(city.ClaimedTiles))
	for _, c := range city.ClaimedTiles {
		t := e.store.Map.Tile(c)
		if t == nil {
			panic(fmt.Sprintf("BUG: settlement %d claims out-of-bounds tile (%d,%d)", city.ID, c.X, c.Y))
		}
		tiles = append(tiles, scoredTile{cell: c, score: t.Yields().Score()})
	}
	sort.SliceStable(tiles, func(i, j int) bool { return tiles[i].score > tiles[j].score })

	city.WorkedTiles = city.WorkedTiles[:0]
	for i := 0; i < limit; i++ {
		city.WorkedTiles = append(city.WorkedTiles, tiles[i].cell)
	}
}

// QueueProduction validates and appends an item to a settlement's queue.
// Banked player production seeds the item's progress, so stockpiled
// hammers shorten the build.
func (e *Engine) QueueProduction(p *entity.Player, city *entity.Building, kind entity.ProductionKind, typeID string) *entity.Rejection {
	if city == nil || !city.IsCity || !city.Standing() {
		return entity.Reject(entity.ReasonNotFound, "settlement")
	}
	if city.PlayerID != p.ID {
		return entity.Reject(entity.ReasonInvalidTarget, "settlement %d belongs to player %d", city.ID, city.PlayerID)
	}

	f := e.store.Faction(p.ID)
	var cost int
	switch kind {
	case entity.ProduceUnit:
		def := e.store.Catalog.Units.GetByID(typeID)
		if def == nil {
			return entity.Reject(entity.ReasonNotFound, "unit type %s", typeID)
		}
		if def.Faction != "" && def.Faction != p.FactionID {
			return entity.Reject(entity.ReasonUnavailable, "%s is unique to %s", typeID, def.Faction)
		}
		if !e.graph.HasUnlockedUnit(p, typeID) {
			return entity.Reject(entity.ReasonPrereqsUnmet, "unit %s is not yet unlocked", typeID)
		}
		cost = def.Cost
		if f != nil {
			cost = f.DiscountedUnitCost(cost)
		}
	case entity.ProduceBuilding:
		if typeID == entity.CityCenterType {
			return entity.Reject(entity.ReasonInvalidTarget, "city centers are founded, not built")
		}
		def := e.store.Catalog.Buildings.GetByID(typeID)
		if def == nil {
			return entity.Reject(entity.ReasonNotFound, "building type %s", typeID)
		}
		if def.Faction != "" && def.Faction != p.FactionID {
			return entity.Reject(entity.ReasonUnavailable, "%s is unique to %s", typeID, def.Faction)
		}
		if !e.graph.HasUnlockedBuilding(p, typeID) {
			return entity.Reject(entity.ReasonPrereqsUnmet, "building %s is not yet unlocked", typeID)
		}
		cost = def.Cost
		if f != nil {
			cost = f.DiscountedBuildingCost(cost)
		}
	default:
		panic(fmt.Sprintf("BUG: unknown production kind %d", kind))
	}

	seed := p.Production
	if seed > cost {
		seed = cost
	}
	p.Production -= seed

	city.Queue = append(city.Queue, entity.ProductionItem{
		Kind:     kind,
		TypeID:   typeID,
		Progress: seed,
		Cost:     cost,
	})
	return nil
}

// advanceProduction feeds production income into the queue head. With an
// empty queue income banks on the player instead. Progress past the cost
// is discarded; a finished item only leaves the queue once it can be
// realized on the map.
func (e *Engine) advanceProduction(p *entity.Player, city *entity.Building, income int) []CompletedItem {
	if len(city.Queue) == 0 {
		p.Production += income
		return nil
	}

	head := &city.Queue[0]
	head.Progress += income
	if head.Progress > head.Cost {
		head.Progress = head.Cost
	}
	if head.Progress < head.Cost {
		return nil
	}

	switch head.Kind {
	case entity.ProduceUnit:
		cell, ok := e.store.FindSpawnCell(city)
		if !ok {
			return nil
		}
		u, rej := e.store.PlaceUnit(city.PlayerID, head.TypeID, cell)
		if rej != nil {
			return nil
		}
		city.Queue = city.Queue[1:]
		return []CompletedItem{{Kind: entity.ProduceUnit, TypeID: u.TypeID, UnitID: u.ID}}
	case entity.ProduceBuilding:
		def := e.store.Catalog.Buildings.GetByID(head.TypeID)
		if def == nil {
			panic(fmt.Sprintf("BUG: queued building type %s missing from catalog", head.TypeID))
		}
		base, ok := e.buildingSite(city, def)
		if !ok {
			return nil
		}
		b, rej := e.store.PlaceBuilding(city.PlayerID, head.TypeID, base)
		if rej != nil {
			return nil
		}
		cid := city.ID
		b.SettlementOf = &cid
		city.Queue = city.Queue[1:]
		return []CompletedItem{{Kind: entity.ProduceBuilding, TypeID: b.TypeID, BuildingID: b.ID}}
	}
	panic(fmt.Sprintf("BUG: unknown production kind %d in queue", head.Kind))
}

// buildingSite picks the first claimed tile that can anchor the
// footprint, in claim order.
func (e *Engine) buildingSite(city *entity.Building, def *gamedata.BuildingDef) (world.Cell, bool) {
	for _, c := range city.ClaimedTiles {
		if e.store.ValidateBuildingPlacement(def, c) == nil {
			return c, true
		}
	}
	return world.Cell{}, false
}

// depleteWorked ticks down resources on worked tiles and reports the
// ones that ran out this turn.
func (e *Engine) depleteWorked(city *entity.Building) []world.Cell {
	var exhausted []world.Cell
	for _, c := range city.WorkedTiles {
		t := e.store.Map.Tile(c)
		if t == nil || !t.HasResource() {
			continue
		}
		t.Deplete()
		if !t.HasResource() {
			exhausted = append(exhausted, c)
		}
	}
	return exhausted
}

// tryExpand rolls the expansion chance and, on success, claims the
// highest-scoring unclaimed tile bordering the settlement's territory.
func (e *Engine) tryExpand(city *entity.Building) (world.Cell, bool) {
	if e.rng.Float64() >= ExpandChance {
		return world.Cell{}, false
	}

	seen := make(map[world.Cell]bool)
	var best world.Cell
	bestScore := -1.0
	found := false
	for _, c := range city.ClaimedTiles {
		for _, n := range c.Neighbors() {
			if seen[n] {
				continue
			}
			seen[n] = true
			t := e.store.Map.Tile(n)
			if t == nil || t.Claimed() {
				continue
			}
			if score := t.Yields().Score(); score > bestScore {
				best, bestScore, found = n, score, true
			}
		}
	}
	if !found {
		return world.Cell{}, false
	}
	if !e.store.ClaimTile(city, best) {
		panic(fmt.Sprintf("BUG: expansion target (%d,%d) was claimable a moment ago", best.X, best.Y))
	}
	return best, true
}
