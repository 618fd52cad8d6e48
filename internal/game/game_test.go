package game

import (
	"testing"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// newSession builds a two-player game on an open 12x12 plain and opens
// the first turn. Tests lay out cities and units themselves.
func newSession(t *testing.T, seed int64) (*Game, *entity.Player, *entity.Player) {
	t.Helper()
	store := entity.NewStore(world.NewMap(12, 12), gamedata.MustLoadCatalog())
	alice, err := store.AddPlayer("alice", "solari")
	if err != nil {
		t.Fatalf("add alice: %v", err)
	}
	bob, err := store.AddPlayer("bob", "korrath")
	if err != nil {
		t.Fatalf("add bob: %v", err)
	}
	g := NewGame(store, seed, 0)
	g.Begin()
	return g, alice, bob
}

func foundFor(t *testing.T, g *Game, pid entity.PlayerID, at world.Cell, name string) *entity.Building {
	t.Helper()
	city, rej := g.Store.FoundCity(pid, at, name)
	if rej != nil {
		t.Fatalf("found %s at (%d,%d): %v", name, at.X, at.Y, rej)
	}
	g.Economy.AssignWorkers(city)
	return city
}

func mustUnit(t *testing.T, g *Game, pid entity.PlayerID, typeID string, at world.Cell) *entity.Unit {
	t.Helper()
	u, rej := g.Store.PlaceUnit(pid, typeID, at)
	if rej != nil {
		t.Fatalf("place %s at (%d,%d): %v", typeID, at.X, at.Y, rej)
	}
	return u
}

// eventsOf filters the buffered events down to one concrete type.
func eventsOf[T Event](evs []Event) []T {
	var out []T
	for _, ev := range evs {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

func TestBegin_OpensFirstPlayersTurn(t *testing.T) {
	g, alice, _ := newSession(t, 1)

	if g.Phase != PhaseUnitsReady {
		t.Fatalf("phase = %s, want units_ready", PhaseName(g.Phase))
	}
	if got := g.ActivePlayer().ID; got != alice.ID {
		t.Fatalf("active player = %d, want %d", got, alice.ID)
	}
	opened := eventsOf[TurnAdvanced](g.Events)
	if len(opened) != 1 || opened[0].Turn != 1 || opened[0].ActivePlayerID != alice.ID {
		t.Fatalf("turn_advanced events = %+v, want one for turn 1 player %d", opened, alice.ID)
	}
}

func TestMoveUnit_SpendsMovementAndEmitsPath(t *testing.T) {
	g, alice, _ := newSession(t, 1)
	u := mustUnit(t, g, alice.ID, "warrior", world.Cell{X: 2, Y: 2})
	g.DrainEvents()

	if rej := g.MoveUnit(u.ID, world.Cell{X: 2, Y: 4}); rej != nil {
		t.Fatalf("move rejected: %v", rej)
	}

	if u.Position != (world.Cell{X: 2, Y: 4}) {
		t.Fatalf("position = %+v, want (2,4)", u.Position)
	}
	if u.MovementLeft != 0 {
		t.Fatalf("movement left = %d, want 0", u.MovementLeft)
	}
	if u.State != entity.UnitMoving {
		t.Fatalf("state = %s, want moving", entity.UnitStateName(u.State))
	}
	if g.Phase != PhaseUnitsActing {
		t.Fatalf("phase = %s, want units_acting", PhaseName(g.Phase))
	}

	moved := eventsOf[UnitMoved](g.Events)
	if len(moved) != 1 {
		t.Fatalf("unit_moved events = %d, want 1", len(moved))
	}
	ev := moved[0]
	if ev.Cost != 2 || len(ev.Path) != 3 {
		t.Fatalf("move event cost %d path %v, want cost 2 over 3 cells", ev.Cost, ev.Path)
	}
	if ev.From != (world.Cell{X: 2, Y: 2}) || ev.To != (world.Cell{X: 2, Y: 4}) {
		t.Fatalf("move event from %+v to %+v", ev.From, ev.To)
	}
}

func TestMoveUnit_Rejections(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	u1 := mustUnit(t, g, alice.ID, "warrior", world.Cell{X: 2, Y: 2})
	u2 := mustUnit(t, g, alice.ID, "warrior", world.Cell{X: 2, Y: 3})
	enemy := mustUnit(t, g, bob.ID, "warrior", world.Cell{X: 8, Y: 8})

	if rej := g.MoveUnit(enemy.ID, world.Cell{X: 8, Y: 7}); rej == nil || rej.Reason != entity.ReasonNotYourTurn {
		t.Fatalf("moving out of turn = %v, want not_your_turn", rej)
	}
	if rej := g.MoveUnit(u1.ID, u1.Position); rej == nil || rej.Reason != entity.ReasonInvalidTarget {
		t.Fatalf("moving in place = %v, want invalid_target", rej)
	}
	if rej := g.MoveUnit(u1.ID, u2.Position); rej == nil || rej.Reason != entity.ReasonOccupied {
		t.Fatalf("moving onto a unit = %v, want occupied", rej)
	}
	if rej := g.MoveUnit(u1.ID, world.Cell{X: 2, Y: 8}); rej == nil || rej.Reason != entity.ReasonOutOfRange {
		t.Fatalf("moving beyond budget = %v, want out_of_range", rej)
	}
	if u1.MovementLeft != 2 || u1.State != entity.UnitIdle {
		t.Fatalf("rejected moves mutated the unit: movement %d state %s", u1.MovementLeft, entity.UnitStateName(u1.State))
	}
}

func TestEndTurn_RoundRobinAdvances(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	foundFor(t, g, bob.ID, world.Cell{X: 9, Y: 9}, "bobton")

	if rej := g.EndTurn(bob.ID); rej == nil || rej.Reason != entity.ReasonNotYourTurn {
		t.Fatalf("ending another player's turn = %v, want not_your_turn", rej)
	}

	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("alice end turn: %v", rej)
	}
	if got := g.ActivePlayer().ID; got != bob.ID {
		t.Fatalf("active after alice = %d, want %d", got, bob.ID)
	}
	if g.Turn != 1 {
		t.Fatalf("turn = %d, want 1 until the rotation wraps", g.Turn)
	}

	if rej := g.EndTurn(bob.ID); rej != nil {
		t.Fatalf("bob end turn: %v", rej)
	}
	if got := g.ActivePlayer().ID; got != alice.ID {
		t.Fatalf("active after bob = %d, want %d", got, alice.ID)
	}
	if g.Turn != 2 {
		t.Fatalf("turn = %d, want 2 after a full rotation", g.Turn)
	}
	if g.Phase != PhaseUnitsReady {
		t.Fatalf("phase = %s, want units_ready at turn open", PhaseName(g.Phase))
	}
}

func TestEndTurn_HealsRestedAndResetsFlags(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	foundFor(t, g, bob.ID, world.Cell{X: 9, Y: 9}, "bobton")

	rested := mustUnit(t, g, alice.ID, "warrior", world.Cell{X: 5, Y: 5})
	rested.Health = 10
	marched := mustUnit(t, g, alice.ID, "warrior", world.Cell{X: 6, Y: 6})
	marched.Health = 10
	marched.MovementLeft = 1
	marched.State = entity.UnitMoving

	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("end turn: %v", rej)
	}

	if rested.Health != 10+HealPerTurn {
		t.Fatalf("rested health = %d, want %d", rested.Health, 10+HealPerTurn)
	}
	if marched.Health != 10 {
		t.Fatalf("marched health = %d, want 10: moving forfeits the heal", marched.Health)
	}
	for _, u := range []*entity.Unit{rested, marched} {
		if u.MovementLeft != 2 || u.HasActed || u.State != entity.UnitIdle {
			t.Fatalf("unit %d not reset: movement %d acted %v state %s",
				u.ID, u.MovementLeft, u.HasActed, entity.UnitStateName(u.State))
		}
	}
}

func TestEndTurn_RunsEconomy(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	city := foundFor(t, g, alice.ID, world.Cell{X: 3, Y: 3}, "alicetown")
	foundFor(t, g, bob.ID, world.Cell{X: 9, Y: 9}, "bobton")
	g.DrainEvents()

	faithBefore := alice.Faith
	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("end turn: %v", rej)
	}

	// One worked plain plus the city center: 4 food, 3 production, 1 faith.
	if alice.Income != (world.Yield{Food: 4, Production: 3, Faith: 1}) {
		t.Fatalf("income = %+v", alice.Income)
	}
	if city.FoodStock != 3 {
		t.Fatalf("food stock = %d, want 4 income - 1 consumed", city.FoodStock)
	}
	if alice.Faith != faithBefore+1 {
		t.Fatalf("faith = %d, want %d", alice.Faith, faithBefore+1)
	}

	updated := eventsOf[ResourcesUpdated](g.Events)
	if len(updated) != 1 || updated[0].PlayerID != alice.ID || updated[0].Faith != alice.Faith {
		t.Fatalf("resources_updated events = %+v", updated)
	}
}

func TestResearch_CompletesOverTurns(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	foundFor(t, g, bob.ID, world.Cell{X: 9, Y: 9}, "bobton")
	g.DrainEvents()

	if rej := g.StartResearch(alice.ID, "agriculture"); rej != nil {
		t.Fatalf("start research: %v", rej)
	}
	if alice.Faith != 4 {
		t.Fatalf("faith after paying = %d, want 20 - 16 discounted", alice.Faith)
	}
	if len(eventsOf[ResearchStarted](g.Events)) != 1 {
		t.Fatalf("want a research_started event")
	}

	// 20 progress per turn against a threshold of 100.
	for i := 0; i < 5; i++ {
		if alice.HasResearched("agriculture") {
			t.Fatalf("agriculture done after %d turns, want 5", i)
		}
		if rej := g.EndTurn(alice.ID); rej != nil {
			t.Fatalf("alice end turn %d: %v", i, rej)
		}
		if rej := g.EndTurn(bob.ID); rej != nil {
			t.Fatalf("bob end turn %d: %v", i, rej)
		}
	}

	if !alice.HasResearched("agriculture") || alice.ActiveResearch != "" {
		t.Fatalf("agriculture unresearched after 5 turns, active %q", alice.ActiveResearch)
	}
	done := eventsOf[TechResearched](g.Events)
	if len(done) != 1 || done[0].TechID != "agriculture" {
		t.Fatalf("tech_researched events = %+v", done)
	}
	if len(done[0].UnlockedBuildings) != 1 || done[0].UnlockedBuildings[0] != "granary" {
		t.Fatalf("unlocked buildings = %v, want [granary]", done[0].UnlockedBuildings)
	}
}

func TestFoundCity_CommandConsumesSettler(t *testing.T) {
	g, alice, _ := newSession(t, 1)
	settler := mustUnit(t, g, alice.ID, "settler", world.Cell{X: 4, Y: 4})
	g.DrainEvents()

	if rej := g.FoundCity(settler.ID); rej != nil {
		t.Fatalf("found city: %v", rej)
	}

	if g.Store.Unit(settler.ID) != nil {
		t.Fatalf("settler survived founding")
	}
	cities := g.Store.Settlements(alice.ID)
	if len(cities) != 1 {
		t.Fatalf("settlements = %d, want 1", len(cities))
	}
	city := cities[0]
	if city.Name == "" {
		t.Fatalf("city has no generated name")
	}
	if len(city.ClaimedTiles) != 5 {
		t.Fatalf("claimed tiles = %d, want base plus four neighbors", len(city.ClaimedTiles))
	}
	if len(city.WorkedTiles) != 1 {
		t.Fatalf("worked tiles = %d, want population of 1 working", len(city.WorkedTiles))
	}
	founded := eventsOf[CityFounded](g.Events)
	if len(founded) != 1 || founded[0].At != (world.Cell{X: 4, Y: 4}) || founded[0].Name != city.Name {
		t.Fatalf("city_founded events = %+v", founded)
	}
}

func TestFoundCity_RequiresAbility(t *testing.T) {
	g, alice, _ := newSession(t, 1)
	w := mustUnit(t, g, alice.ID, "warrior", world.Cell{X: 4, Y: 4})

	if rej := g.FoundCity(w.ID); rej == nil || rej.Reason != entity.ReasonInvalidTarget {
		t.Fatalf("warrior founding = %v, want invalid_target", rej)
	}
}

func TestBuildImprovement_Command(t *testing.T) {
	g, alice, _ := newSession(t, 1)
	g.Store.Map.TileAt(4, 5).Terrain = world.TerrainDesert
	foundFor(t, g, alice.ID, world.Cell{X: 4, Y: 4}, "alicetown")

	worker := mustUnit(t, g, alice.ID, "worker", world.Cell{X: 5, Y: 4})
	g.DrainEvents()
	if rej := g.BuildImprovement(worker.ID); rej != nil {
		t.Fatalf("improve claimed plain: %v", rej)
	}
	tile := g.Store.Map.TileAt(5, 4)
	if tile.Improvement != world.ImprovementFarm {
		t.Fatalf("improvement = %d, want farm", tile.Improvement)
	}
	if !worker.HasActed || worker.MovementLeft != 0 {
		t.Fatalf("improving must consume the worker's turn")
	}
	if len(eventsOf[ImprovementBuilt](g.Events)) != 1 {
		t.Fatalf("want an improvement_built event")
	}

	// Improving twice on the same tile.
	worker.HasActed = false
	if rej := g.BuildImprovement(worker.ID); rej == nil || rej.Reason != entity.ReasonOccupied {
		t.Fatalf("improving an improved tile = %v, want occupied", rej)
	}

	// Desert supports no improvement even inside territory.
	desertHand := mustUnit(t, g, alice.ID, "worker", world.Cell{X: 4, Y: 5})
	if rej := g.BuildImprovement(desertHand.ID); rej == nil || rej.Reason != entity.ReasonInvalidTarget {
		t.Fatalf("improving desert = %v, want invalid_target", rej)
	}

	// Outside own territory.
	roamer := mustUnit(t, g, alice.ID, "worker", world.Cell{X: 8, Y: 8})
	if rej := g.BuildImprovement(roamer.ID); rej == nil || rej.Reason != entity.ReasonInvalidTarget {
		t.Fatalf("improving unclaimed land = %v, want invalid_target", rej)
	}
}

func TestQueueProduction_CommandEmits(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	city := foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	foundFor(t, g, bob.ID, world.Cell{X: 9, Y: 9}, "bobton")
	g.DrainEvents()

	if rej := g.QueueProduction(city.ID, entity.ProduceUnit, "warrior"); rej != nil {
		t.Fatalf("queue warrior: %v", rej)
	}
	queued := eventsOf[ProductionQueued](g.Events)
	if len(queued) != 1 || queued[0].TypeID != "warrior" || queued[0].Cost != 25 {
		t.Fatalf("production_queued events = %+v", queued)
	}

	// A settlement only takes orders on its owner's turn.
	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("end turn: %v", rej)
	}
	if rej := g.QueueProduction(city.ID, entity.ProduceUnit, "warrior"); rej == nil || rej.Reason != entity.ReasonNotYourTurn {
		t.Fatalf("queueing on bob's turn = %v, want not_your_turn", rej)
	}
}

func TestElimination_LastPlayerStandingWins(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	lone := mustUnit(t, g, bob.ID, "warrior", world.Cell{X: 8, Y: 8})
	g.DrainEvents()

	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("end turn: %v", rej)
	}

	if !bob.Eliminated {
		t.Fatalf("bob holds no settlement and no settler, want eliminated")
	}
	if g.Store.Unit(lone.ID) != nil {
		t.Fatalf("eliminated player's units must leave the map")
	}
	if !g.Over || g.WinnerID == nil || *g.WinnerID != alice.ID {
		t.Fatalf("over %v winner %v, want alice the winner", g.Over, g.WinnerID)
	}
	if len(eventsOf[PlayerEliminated](g.Events)) != 1 {
		t.Fatalf("want a player_eliminated event")
	}
	overs := eventsOf[GameOver](g.Events)
	if len(overs) != 1 || overs[0].WinnerID == nil || *overs[0].WinnerID != alice.ID {
		t.Fatalf("game_over events = %+v", overs)
	}

	// A finished game takes no further commands.
	if rej := g.EndTurn(alice.ID); rej == nil || rej.Reason != entity.ReasonUnavailable {
		t.Fatalf("command after game over = %v, want unavailable", rej)
	}
}

func TestEndTurn_SettlerKeepsPlayerAlive(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	mustUnit(t, g, bob.ID, "settler", world.Cell{X: 8, Y: 8})

	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("end turn: %v", rej)
	}
	if bob.Eliminated || g.Over {
		t.Fatalf("a cityless player with a settler stays in the game")
	}
}

func TestAdvance_SkipsEliminatedPlayers(t *testing.T) {
	g, alice, bob := newSession(t, 1)
	carol, err := g.Store.AddPlayer("carol", "veldt")
	if err != nil {
		t.Fatalf("add carol: %v", err)
	}
	foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	foundFor(t, g, carol.ID, world.Cell{X: 9, Y: 2}, "carolberg")
	mustUnit(t, g, bob.ID, "warrior", world.Cell{X: 6, Y: 9})

	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("end turn: %v", rej)
	}

	if !bob.Eliminated || g.Over {
		t.Fatalf("bob eliminated %v over %v, want bob out and the game running", bob.Eliminated, g.Over)
	}
	if got := g.ActivePlayer().ID; got != carol.ID {
		t.Fatalf("active = %d, want the rotation to skip bob to carol", got)
	}
}

func TestTurnCap_EndsInDraw(t *testing.T) {
	store := entity.NewStore(world.NewMap(12, 12), gamedata.MustLoadCatalog())
	alice, _ := store.AddPlayer("alice", "solari")
	bob, _ := store.AddPlayer("bob", "korrath")
	g := NewGame(store, 1, 1)
	g.Begin()
	foundFor(t, g, alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	foundFor(t, g, bob.ID, world.Cell{X: 9, Y: 9}, "bobton")

	if rej := g.EndTurn(alice.ID); rej != nil {
		t.Fatalf("alice end turn: %v", rej)
	}
	if rej := g.EndTurn(bob.ID); rej != nil {
		t.Fatalf("bob end turn: %v", rej)
	}

	if !g.Over || !g.Draw || g.WinnerID != nil {
		t.Fatalf("over %v draw %v winner %v, want a draw at the cap", g.Over, g.Draw, g.WinnerID)
	}
}

func TestVisibility_FogLifecycle(t *testing.T) {
	g, alice, _ := newSession(t, 1)
	u := mustUnit(t, g, alice.ID, "warrior", world.Cell{X: 2, Y: 2})
	g.RecomputeVisibility(alice.ID)

	m := g.Store.Map
	if !m.TileAt(2, 4).VisibleTo(alice.ID) || !m.TileAt(0, 2).VisibleTo(alice.ID) {
		t.Fatalf("cells at sight range 2 must be visible")
	}
	if m.TileAt(2, 5).VisibleTo(alice.ID) {
		t.Fatalf("cell beyond sight range must stay hidden")
	}

	if rej := g.MoveUnit(u.ID, world.Cell{X: 3, Y: 3}); rej != nil {
		t.Fatalf("move: %v", rej)
	}
	edge := m.TileAt(0, 2)
	if edge.VisibleTo(alice.ID) {
		t.Fatalf("cell left behind must drop out of sight")
	}
	if !edge.ExploredBy(alice.ID) {
		t.Fatalf("explored state must survive losing sight")
	}
}
