package game

import (
	"sort"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/pathfind"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// The scripted AI is a greedy ladder, not a planner: settlements queue
// from a fixed build order, units act by type, research starts on the
// first affordable tech. Every choice iterates in a deterministic order
// and draws randomness only from the game's seeded stream.
const (
	aiWorkerTarget     = 2
	aiWarriorTarget    = 3
	aiSettlementTarget = 3

	aiResourceSearchRadius = 8

	aiSettleResourceRadius = 2
	aiSettleResourceCount  = 2
	aiSettleMinCityDist    = 6 // strictly more than this from any city
)

// RunAITurn plays out the active player's whole turn: settlements,
// units, research, then end of turn.
func (g *Game) RunAITurn(pid entity.PlayerID) *entity.Rejection {
	if rej := g.checkCommand(pid); rej != nil {
		return rej
	}
	p := g.Store.Player(pid)

	g.aiSettlements(p)
	g.aiUnits(p)
	g.aiResearch(p)
	return g.EndTurn(pid)
}

// aiSettlements queues one item per idle settlement, walking the build
// ladder against current unit counts (queued units included).
func (g *Game) aiSettlements(p *entity.Player) {
	workers, warriors, settlers := g.countRoles(p.ID)
	for _, city := range g.Store.Settlements(p.ID) {
		if len(city.Queue) > 0 {
			continue
		}

		var want string
		switch {
		case workers < aiWorkerTarget:
			want = "worker"
		case warriors < aiWarriorTarget:
			want = "warrior"
		case settlers == 0 && len(g.Store.Settlements(p.ID)) < aiSettlementTarget:
			want = "settler"
		default:
			want = "warrior"
		}

		if g.QueueProduction(city.ID, entity.ProduceUnit, want) != nil {
			continue
		}
		switch want {
		case "worker":
			workers++
		case "settler":
			settlers++
		default:
			warriors++
		}
	}
}

// countRoles tallies a player's units by role, counting queued unit
// orders as well so two settlements never double-order.
func (g *Game) countRoles(pid entity.PlayerID) (workers, warriors, settlers int) {
	tally := func(def *gamedata.UnitDef) {
		switch {
		case def.HasAbility(gamedata.AbilityFoundCity):
			settlers++
		case def.HasAbility(gamedata.AbilityBuildImprovement):
			workers++
		case def.IsCombatant():
			warriors++
		}
	}
	for _, u := range g.Store.PlayerUnits(pid) {
		tally(g.Store.UnitDef(u))
	}
	for _, city := range g.Store.Settlements(pid) {
		for _, item := range city.Queue {
			if item.Kind != entity.ProduceUnit {
				continue
			}
			if def := g.Store.Catalog.Units.GetByID(item.TypeID); def != nil {
				tally(def)
			}
		}
	}
	return workers, warriors, settlers
}

// aiUnits dispatches every live unit once, by role. The loop walks a
// snapshot; units killed or consumed during the pass are skipped.
func (g *Game) aiUnits(p *entity.Player) {
	for _, u := range g.Store.PlayerUnits(p.ID) {
		if !u.Alive() {
			continue
		}
		def := g.Store.UnitDef(u)
		switch {
		case def.HasAbility(gamedata.AbilityFoundCity):
			g.aiSettler(p, u)
		case def.HasAbility(gamedata.AbilityBuildImprovement):
			g.aiWorker(p, u)
		case def.IsCombatant():
			g.aiMilitary(p, u)
		default:
			g.aiWander(u)
		}
	}
}

// aiWorker improves the resource tile it stands on, or walks toward the
// nearest one still needing work.
func (g *Game) aiWorker(p *entity.Player, u *entity.Unit) {
	if t := g.Store.Map.Tile(u.Position); g.workerSiteReady(p, t) {
		if g.BuildImprovement(u.ID) == nil {
			return
		}
	}

	target, ok := g.nearestWorkSite(p, u.Position)
	if !ok {
		g.aiWander(u)
		return
	}
	if !g.moveAlong(u, target) {
		g.aiWander(u)
	}
}

func (g *Game) workerSiteReady(p *entity.Player, t *world.Tile) bool {
	return t != nil &&
		t.OwnerID != nil && *t.OwnerID == p.ID &&
		t.HasResource() &&
		t.Improvement == world.ImprovementNone &&
		world.ImprovementFor(t.Terrain) != world.ImprovementNone
}

// nearestWorkSite scans outward for the closest own-territory resource
// tile without an improvement. Ties resolve in row-major order.
func (g *Game) nearestWorkSite(p *entity.Player, from world.Cell) (world.Cell, bool) {
	best := world.Cell{}
	bestDist := aiResourceSearchRadius + 1
	for _, t := range g.Store.Map.Tiles {
		if !g.workerSiteReady(p, t) {
			continue
		}
		if d := world.Manhattan(from, t.Cell); d < bestDist {
			best, bestDist = t.Cell, d
		}
	}
	return best, bestDist <= aiResourceSearchRadius
}

// aiSettler founds on the spot when it qualifies, otherwise walks
// toward the nearest qualifying site.
func (g *Game) aiSettler(p *entity.Player, u *entity.Unit) {
	if g.settleSiteOK(u.Position) {
		if g.FoundCity(u.ID) == nil {
			return
		}
	}

	best := world.Cell{}
	bestDist := -1
	for _, t := range g.Store.Map.Tiles {
		if !g.settleSiteOK(t.Cell) {
			continue
		}
		if d := world.Manhattan(u.Position, t.Cell); bestDist < 0 || d < bestDist {
			best, bestDist = t.Cell, d
		}
	}
	if bestDist < 0 || !g.moveAlong(u, best) {
		g.aiWander(u)
	}
}

// settleSiteOK checks the founding heuristic: free walkable land with
// at least aiSettleResourceCount unclaimed resource deposits within
// reach, farther than aiSettleMinCityDist from every existing city.
func (g *Game) settleSiteOK(c world.Cell) bool {
	t := g.Store.Map.Tile(c)
	if t == nil || !g.Store.Map.Walkable(c) || t.Claimed() || g.Store.BuildingAt(c) != nil {
		return false
	}

	resources := 0
	for dy := -aiSettleResourceRadius; dy <= aiSettleResourceRadius; dy++ {
		for dx := -aiSettleResourceRadius; dx <= aiSettleResourceRadius; dx++ {
			if world.Abs(dx)+world.Abs(dy) > aiSettleResourceRadius {
				continue
			}
			nt := g.Store.Map.TileAt(c.X+dx, c.Y+dy)
			if nt != nil && nt.HasResource() && !nt.Claimed() {
				resources++
			}
		}
	}
	if resources < aiSettleResourceCount {
		return false
	}

	for _, b := range g.Store.Buildings() {
		if b.IsCity && world.Manhattan(c, b.Base) <= aiSettleMinCityDist {
			return false
		}
	}
	return true
}

// aiMilitary attacks the nearest enemy in range, or closes the distance.
func (g *Game) aiMilitary(p *entity.Player, u *entity.Unit) {
	targetUnit, targetBuilding := g.nearestEnemy(p.ID, u.Position)

	switch {
	case targetUnit != nil:
		if g.AttackUnit(u.ID, targetUnit.ID) == nil {
			return
		}
		if !g.moveAlong(u, targetUnit.Position) {
			g.aiWander(u)
		}
	case targetBuilding != nil:
		if g.AttackBuilding(u.ID, targetBuilding.ID) == nil {
			return
		}
		if !g.moveAlong(u, targetBuilding.Base) {
			g.aiWander(u)
		}
	default:
		g.aiWander(u)
	}
}

// nearestEnemy returns the closest hostile unit, or failing that the
// closest hostile building. Ties resolve by creation order.
func (g *Game) nearestEnemy(pid entity.PlayerID, from world.Cell) (*entity.Unit, *entity.Building) {
	var bestUnit *entity.Unit
	bestUnitDist := -1
	for _, other := range g.Store.Units() {
		if other.PlayerID == pid || !other.Alive() {
			continue
		}
		if owner := g.Store.Player(other.PlayerID); owner == nil || owner.Eliminated {
			continue
		}
		if d := world.Manhattan(from, other.Position); bestUnitDist < 0 || d < bestUnitDist {
			bestUnit, bestUnitDist = other, d
		}
	}
	if bestUnit != nil {
		return bestUnit, nil
	}

	var bestBuilding *entity.Building
	bestBuildingDist := -1
	for _, b := range g.Store.Buildings() {
		if b.PlayerID == pid || !b.Standing() {
			continue
		}
		if owner := g.Store.Player(b.PlayerID); owner == nil || owner.Eliminated {
			continue
		}
		if d := world.Manhattan(from, b.Base); bestBuildingDist < 0 || d < bestBuildingDist {
			bestBuilding, bestBuildingDist = b, d
		}
	}
	return nil, bestBuilding
}

// aiWander moves to a random reachable cell, or stays put when boxed in.
func (g *Game) aiWander(u *entity.Unit) {
	if u.MovementLeft <= 0 {
		return
	}
	walk, cost := g.moverFuncs(u)
	reachable := pathfind.ReachableSet(u.Position, u.MovementLeft, walk, cost)
	delete(reachable, u.Position)
	if len(reachable) == 0 {
		return
	}

	cells := make([]world.Cell, 0, len(reachable))
	for c := range reachable {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	g.MoveUnit(u.ID, cells[g.aiRNG.Intn(len(cells))])
}

// moveAlong walks the unit as far down the path toward goal as its
// movement allows. The goal cell itself may be blocked (an enemy, a
// city); the walk then aims for the nearest approachable neighbor.
func (g *Game) moveAlong(u *entity.Unit, goal world.Cell) bool {
	if u.MovementLeft <= 0 {
		return false
	}
	walk, cost := g.moverFuncs(u)

	goals := []world.Cell{goal}
	if !walk(goal) {
		n := goal.Neighbors()
		goals = n[:]
	}

	for _, gc := range goals {
		path := pathfind.FindPath(u.Position, gc, walk, cost, pathfind.NoLimit)
		if path == nil {
			continue
		}
		// Furthest cell on the path the budget reaches.
		spent := 0
		last := 0
		for i := 1; i < len(path); i++ {
			spent += cost(path[i])
			if spent > u.MovementLeft {
				break
			}
			last = i
		}
		if last == 0 {
			return false
		}
		return g.MoveUnit(u.ID, path[last]) == nil
	}
	return false
}

// aiResearch starts the first affordable open tech, in catalog order.
func (g *Game) aiResearch(p *entity.Player) {
	if p.ActiveResearch != "" {
		return
	}
	for _, def := range g.Research.Available(p) {
		if g.StartResearch(p.ID, def.ID) == nil {
			return
		}
	}
}
