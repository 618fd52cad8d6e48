package game

import (
	"fmt"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/pathfind"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// MoveUnit walks a unit to the target cell along the cheapest path its
// remaining movement affords.
func (g *Game) MoveUnit(unitID entity.UnitID, target world.Cell) *entity.Rejection {
	u := g.Store.Unit(unitID)
	if u == nil {
		return entity.Reject(entity.ReasonNotFound, "unit %d", unitID)
	}
	if rej := g.checkCommand(u.PlayerID); rej != nil {
		return rej
	}
	if target == u.Position {
		return entity.Reject(entity.ReasonInvalidTarget, "unit %d is already at (%d,%d)", unitID, target.X, target.Y)
	}
	if rej := g.Store.ValidateUnitPlacement(u.PlayerID, target); rej != nil {
		return rej
	}

	walk, cost := g.moverFuncs(u)
	path := pathfind.FindPath(u.Position, target, walk, cost, u.MovementLeft)
	if path == nil {
		return entity.Reject(entity.ReasonOutOfRange, "no path to (%d,%d) within %d movement", target.X, target.Y, u.MovementLeft)
	}
	spent := pathfind.PathCost(path, cost)

	from := u.Position
	if rej := g.Store.MoveUnit(u.ID, target); rej != nil {
		panic(fmt.Sprintf("BUG: validated move rejected: %s", rej.Error()))
	}
	u.MovementLeft -= spent
	u.State = entity.UnitMoving

	g.Phase = PhaseUnitsActing
	g.RecomputeVisibility(u.PlayerID)
	g.emit(UnitMoved{UnitID: u.ID, PlayerID: u.PlayerID, From: from, To: target, Path: path, Cost: spent})
	return nil
}

// moverFuncs builds the pathfinding closures for one unit: terrain must
// be walkable, other units block, hostile buildings block, and the
// mover's own cell stays open.
func (g *Game) moverFuncs(u *entity.Unit) (pathfind.WalkableFunc, pathfind.CostFunc) {
	walk := func(c world.Cell) bool {
		if !g.Store.Map.InBounds(c.X, c.Y) || !g.Store.Map.Walkable(c) {
			return false
		}
		if c == u.Position {
			return true
		}
		if g.Store.UnitAt(c) != nil {
			return false
		}
		if b := g.Store.BuildingAt(c); b != nil && b.PlayerID != u.PlayerID {
			return false
		}
		return true
	}
	cost := func(c world.Cell) int { return g.Store.Map.MoveCost(c) }
	return walk, cost
}

// AttackUnit resolves an attack between two units and reports the
// exchange.
func (g *Game) AttackUnit(attackerID, defenderID entity.UnitID) *entity.Rejection {
	atk := g.Store.Unit(attackerID)
	if atk == nil {
		return entity.Reject(entity.ReasonNotFound, "unit %d", attackerID)
	}
	if rej := g.checkCommand(atk.PlayerID); rej != nil {
		return rej
	}
	defOwner := entity.PlayerID(0)
	if def := g.Store.Unit(defenderID); def != nil {
		defOwner = def.PlayerID
	}

	report, rej := g.Combat.AttackUnit(attackerID, defenderID)
	if rej != nil {
		return rej
	}

	g.Phase = PhaseUnitsActing
	g.RecomputeVisibility(atk.PlayerID)
	if defOwner != 0 {
		g.RecomputeVisibility(defOwner)
	}
	g.emit(UnitAttacked{
		AttackerID:     report.AttackerID,
		DefenderID:     report.DefenderID,
		Damage:         report.Damage,
		CounterDamage:  report.CounterDamage,
		AttackerKilled: report.AttackerKilled,
		DefenderKilled: report.DefenderKilled,
	})
	return nil
}

// AttackBuilding resolves an attack on a building.
func (g *Game) AttackBuilding(attackerID entity.UnitID, buildingID entity.BuildingID) *entity.Rejection {
	atk := g.Store.Unit(attackerID)
	if atk == nil {
		return entity.Reject(entity.ReasonNotFound, "unit %d", attackerID)
	}
	if rej := g.checkCommand(atk.PlayerID); rej != nil {
		return rej
	}
	targetOwner := entity.PlayerID(0)
	if b := g.Store.Building(buildingID); b != nil {
		targetOwner = b.PlayerID
	}

	report, rej := g.Combat.AttackBuilding(attackerID, buildingID)
	if rej != nil {
		return rej
	}

	g.Phase = PhaseUnitsActing
	if targetOwner != 0 {
		g.RecomputeVisibility(targetOwner)
	}
	g.emit(BuildingAttacked{
		AttackerID: report.AttackerID,
		BuildingID: report.BuildingID,
		Damage:     report.Damage,
		State:      report.State,
		Destroyed:  report.Destroyed,
	})
	return nil
}

// FoundCity consumes a settler into a new settlement on its cell.
func (g *Game) FoundCity(settlerID entity.UnitID) *entity.Rejection {
	u := g.Store.Unit(settlerID)
	if u == nil {
		return entity.Reject(entity.ReasonNotFound, "unit %d", settlerID)
	}
	if rej := g.checkCommand(u.PlayerID); rej != nil {
		return rej
	}
	def := g.Store.UnitDef(u)
	if !def.HasAbility(gamedata.AbilityFoundCity) {
		return entity.Reject(entity.ReasonInvalidTarget, "%s cannot found cities", def.ID)
	}
	if u.HasActed {
		return entity.Reject(entity.ReasonAlreadyActed, "unit %d", u.ID)
	}

	p := g.Store.Player(u.PlayerID)

	// Units never block building placement, so found first and consume
	// the settler only once the city stands.
	at := u.Position
	city, rej := g.Store.FoundCity(p.ID, at, g.namer.Next())
	if rej != nil {
		return rej
	}
	g.Store.RemoveUnit(u.ID)
	g.Economy.AssignWorkers(city)

	g.Phase = PhaseUnitsActing
	g.RecomputeVisibility(p.ID)
	g.emit(CityFounded{SettlementID: city.ID, PlayerID: p.ID, Name: city.Name, At: at})
	return nil
}

// BuildImprovement has a worker improve the tile it stands on. The tile
// must lie in the worker's own territory and carry no improvement yet.
func (g *Game) BuildImprovement(unitID entity.UnitID) *entity.Rejection {
	u := g.Store.Unit(unitID)
	if u == nil {
		return entity.Reject(entity.ReasonNotFound, "unit %d", unitID)
	}
	if rej := g.checkCommand(u.PlayerID); rej != nil {
		return rej
	}
	def := g.Store.UnitDef(u)
	if !def.HasAbility(gamedata.AbilityBuildImprovement) {
		return entity.Reject(entity.ReasonInvalidTarget, "%s cannot build improvements", def.ID)
	}
	if u.HasActed {
		return entity.Reject(entity.ReasonAlreadyActed, "unit %d", u.ID)
	}

	t := g.Store.Map.Tile(u.Position)
	if t.OwnerID == nil || *t.OwnerID != u.PlayerID {
		return entity.Reject(entity.ReasonInvalidTarget, "tile (%d,%d) is not own territory", u.Position.X, u.Position.Y)
	}
	if t.Improvement != world.ImprovementNone {
		return entity.Reject(entity.ReasonOccupied, "tile (%d,%d) is already improved", u.Position.X, u.Position.Y)
	}
	kind := world.ImprovementFor(t.Terrain)
	if kind == world.ImprovementNone {
		return entity.Reject(entity.ReasonInvalidTarget, "%s supports no improvement", world.TerrainName(t.Terrain))
	}

	t.Improvement = kind
	u.HasActed = true
	u.MovementLeft = 0

	g.Phase = PhaseUnitsActing
	g.emit(ImprovementBuilt{UnitID: u.ID, Cell: u.Position, Improvement: kind})
	return nil
}

// QueueProduction appends a unit or building order to a settlement's
// queue.
func (g *Game) QueueProduction(settlementID entity.BuildingID, kind entity.ProductionKind, typeID string) *entity.Rejection {
	city := g.Store.Building(settlementID)
	if city == nil || !city.IsCity {
		return entity.Reject(entity.ReasonNotFound, "settlement %d", settlementID)
	}
	if rej := g.checkCommand(city.PlayerID); rej != nil {
		return rej
	}
	p := g.Store.Player(city.PlayerID)
	if rej := g.Economy.QueueProduction(p, city, kind, typeID); rej != nil {
		return rej
	}

	head := city.Queue[len(city.Queue)-1]
	g.Phase = PhaseUnitsActing
	g.emit(ProductionQueued{SettlementID: city.ID, ItemKind: kind, TypeID: typeID, Cost: head.Cost})
	return nil
}

// StartResearch spends faith to open the player's research slot.
func (g *Game) StartResearch(pid entity.PlayerID, techID string) *entity.Rejection {
	if rej := g.checkCommand(pid); rej != nil {
		return rej
	}
	p := g.Store.Player(pid)
	if rej := g.Research.StartResearch(p, techID); rej != nil {
		return rej
	}

	g.Phase = PhaseUnitsActing
	g.emit(ResearchStarted{PlayerID: pid, TechID: techID})
	g.emit(ResourcesUpdated{PlayerID: pid, Food: p.Food, Production: p.Production, Faith: p.Faith, Income: p.Income})
	return nil
}
