package persistence

import (
	"path/filepath"
	"testing"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/game"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "save.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// buildSession assembles a small two-player game with enough variety to
// exercise every persisted column: mixed terrain, a part-worked
// resource, a founded city with a queue, and a wounded unit.
func buildSession(t *testing.T) (*game.Game, *gamedata.Catalog) {
	t.Helper()
	catalog := gamedata.MustLoadCatalog()
	m := world.NewMap(10, 10)
	store := entity.NewStore(m, catalog)

	hill := m.TileAt(5, 5)
	hill.Terrain = world.TerrainHill
	hill.Elevation = 0.7
	grain := m.TileAt(3, 2)
	grain.Resource = world.ResourceGrain
	grain.ResourceAmount = 5
	grain.Improvement = world.ImprovementFarm

	alice, err := store.AddPlayer("alice", "solari")
	if err != nil {
		t.Fatalf("add alice: %v", err)
	}
	bob, err := store.AddPlayer("bob", "korrath")
	if err != nil {
		t.Fatalf("add bob: %v", err)
	}

	g := game.NewGame(store, 42, 0)

	city, rej := store.FoundCity(alice.ID, world.Cell{X: 2, Y: 2}, "alicetown")
	if rej != nil {
		t.Fatalf("found alicetown: %v", rej)
	}
	g.Economy.AssignWorkers(city)
	city.Queue = append(city.Queue, entity.ProductionItem{
		Kind: entity.ProduceUnit, TypeID: "warrior", Progress: 7, Cost: 25,
	})
	city.FoodStock = 11

	if _, rej := store.FoundCity(bob.ID, world.Cell{X: 7, Y: 7}, "bobton"); rej != nil {
		t.Fatalf("found bobton: %v", rej)
	}

	w, rej := store.PlaceUnit(bob.ID, "warrior", world.Cell{X: 7, Y: 5})
	if rej != nil {
		t.Fatalf("place warrior: %v", rej)
	}
	w.Health = 13
	w.MovementLeft = 1
	w.HasActed = true
	w.State = entity.UnitAttacking

	alice.Faith = 33
	alice.ActiveResearch = "agriculture"
	alice.ResearchProgress = 40

	g.Begin()
	return g, catalog
}

func TestHasSave_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	has, err := db.HasSave()
	if err != nil {
		t.Fatalf("has save: %v", err)
	}
	if has {
		t.Fatal("fresh database reports a save")
	}
}

func TestSaveID_StableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first, err := db.SaveID()
	if err != nil {
		t.Fatalf("mint save id: %v", err)
	}
	if first == "" {
		t.Fatal("minted empty save id")
	}
	again, err := db.SaveID()
	if err != nil {
		t.Fatalf("reread save id: %v", err)
	}
	if again != first {
		t.Fatalf("save id changed in place: %s then %s", first, again)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	reopened, err := db.SaveID()
	if err != nil {
		t.Fatalf("save id after reopen: %v", err)
	}
	if reopened != first {
		t.Fatalf("save id changed across reopen: %s then %s", first, reopened)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	g, catalog := buildSession(t)

	if err := db.SaveGame(g); err != nil {
		t.Fatalf("save: %v", err)
	}
	has, err := db.HasSave()
	if err != nil || !has {
		t.Fatalf("has save after saving = %v, %v", has, err)
	}

	loaded, err := db.LoadGame(catalog)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Seed != g.Seed || loaded.Turn != g.Turn || loaded.Phase != g.Phase || loaded.MaxTurns != g.MaxTurns {
		t.Fatalf("cursor mismatch: seed %d/%d turn %d/%d phase %d/%d max %d/%d",
			loaded.Seed, g.Seed, loaded.Turn, g.Turn, loaded.Phase, g.Phase, loaded.MaxTurns, g.MaxTurns)
	}
	if loaded.ActivePlayer().ID != g.ActivePlayer().ID {
		t.Fatalf("active player = %d, want %d", loaded.ActivePlayer().ID, g.ActivePlayer().ID)
	}

	hill := loaded.Store.Map.TileAt(5, 5)
	if hill.Terrain != world.TerrainHill || hill.Elevation != 0.7 {
		t.Fatalf("hill tile = %+v", hill)
	}
	grain := loaded.Store.Map.TileAt(3, 2)
	if grain.Resource != world.ResourceGrain || grain.ResourceAmount != 5 || grain.Improvement != world.ImprovementFarm {
		t.Fatalf("grain tile = %+v", grain)
	}

	claimed := loaded.Store.Map.TileAt(2, 2)
	if claimed.OwnerID == nil || claimed.SettlementID == nil {
		t.Fatal("city tile lost its claim")
	}
	want := g.Store.Map.TileAt(2, 2)
	if *claimed.OwnerID != *want.OwnerID || *claimed.SettlementID != *want.SettlementID {
		t.Fatalf("claim ids = %d/%d, want %d/%d",
			*claimed.OwnerID, *claimed.SettlementID, *want.OwnerID, *want.SettlementID)
	}
	if claimed.Visible != want.Visible || claimed.Explored != want.Explored {
		t.Fatalf("fog bits = %b/%b, want %b/%b",
			claimed.Visible, claimed.Explored, want.Visible, want.Explored)
	}

	players := loaded.Store.Players()
	if len(players) != 2 {
		t.Fatalf("players = %d, want 2", len(players))
	}
	alice := players[0]
	if alice.Name != "alice" || alice.FactionID != "solari" {
		t.Fatalf("first player = %s/%s", alice.Name, alice.FactionID)
	}
	if alice.Faith != 33 || alice.ActiveResearch != "agriculture" || alice.ResearchProgress != 40 {
		t.Fatalf("alice research state = %d faith, %q at %d",
			alice.Faith, alice.ActiveResearch, alice.ResearchProgress)
	}
	if !alice.HasResearched("mysticism") {
		t.Fatal("alice lost her faction's starting technology")
	}

	units := loaded.Store.Units()
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	w := units[0]
	orig := g.Store.Units()[0]
	if w.ID != orig.ID || w.TypeID != "warrior" || w.Position != orig.Position {
		t.Fatalf("unit identity = %d %s at %v", w.ID, w.TypeID, w.Position)
	}
	if w.Health != 13 || w.MovementLeft != 1 || !w.HasActed || w.State != entity.UnitAttacking {
		t.Fatalf("unit turn state = %+v", w)
	}
	if got := loaded.Store.UnitAt(orig.Position); got == nil || got.ID != w.ID {
		t.Fatal("unit missing from cell index after load")
	}

	cities := loaded.Store.Settlements(alice.ID)
	if len(cities) != 1 {
		t.Fatalf("alice settlements = %d, want 1", len(cities))
	}
	city := cities[0]
	srcCity := g.Store.Settlements(alice.ID)[0]
	if city.Name != "alicetown" || city.Population != srcCity.Population || city.FoodStock != 11 {
		t.Fatalf("city block = %s pop %d stock %d", city.Name, city.Population, city.FoodStock)
	}
	if len(city.Queue) != 1 || city.Queue[0].TypeID != "warrior" || city.Queue[0].Progress != 7 {
		t.Fatalf("queue = %+v", city.Queue)
	}
	if len(city.ClaimedTiles) != len(srcCity.ClaimedTiles) || len(city.WorkedTiles) != len(srcCity.WorkedTiles) {
		t.Fatalf("territory = %d claimed %d worked, want %d/%d",
			len(city.ClaimedTiles), len(city.WorkedTiles),
			len(srcCity.ClaimedTiles), len(srcCity.WorkedTiles))
	}
	if got := loaded.Store.BuildingAt(city.Base); got == nil || got.ID != city.ID {
		t.Fatal("city missing from cell index after load")
	}

	// Fresh ids must continue above the restored ones.
	u, rej := loaded.Store.PlaceUnit(alice.ID, "warrior", world.Cell{X: 0, Y: 0})
	if rej != nil {
		t.Fatalf("place after load: %v", rej)
	}
	if u.ID <= orig.ID {
		t.Fatalf("new unit id %d not above restored %d", u.ID, orig.ID)
	}
}

func TestSaveLoad_GameOverVerdict(t *testing.T) {
	db := openTestDB(t)
	g, catalog := buildSession(t)

	winner := g.Store.Players()[0].ID
	g.Over = true
	g.WinnerID = &winner

	if err := db.SaveGame(g); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := db.LoadGame(catalog)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !loaded.Over || loaded.Draw {
		t.Fatalf("verdict = over %v draw %v, want a decided game", loaded.Over, loaded.Draw)
	}
	if loaded.WinnerID == nil || *loaded.WinnerID != winner {
		t.Fatalf("winner = %v, want %d", loaded.WinnerID, winner)
	}
}

func TestSaveGame_SecondSaveReplaces(t *testing.T) {
	db := openTestDB(t)
	g, catalog := buildSession(t)

	if err := db.SaveGame(g); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := db.SaveGame(g); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := db.LoadGame(catalog)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, want := len(loaded.Store.Units()), len(g.Store.Units()); got != want {
		t.Fatalf("units after resave = %d, want %d", got, want)
	}
	if got, want := len(loaded.Store.Buildings()), len(g.Store.Buildings()); got != want {
		t.Fatalf("buildings after resave = %d, want %d", got, want)
	}
}

func TestAppendEvents_NewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)

	if err := db.AppendEvents(1, []game.Event{
		game.TurnAdvanced{Turn: 1, ActivePlayerID: 1},
		game.UnitMoved{UnitID: 3, PlayerID: 1},
	}); err != nil {
		t.Fatalf("append turn 1: %v", err)
	}
	if err := db.AppendEvents(2, []game.Event{
		game.TurnAdvanced{Turn: 2, ActivePlayerID: 2},
	}); err != nil {
		t.Fatalf("append turn 2: %v", err)
	}

	events, err := db.RecentEvents(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("recent = %d rows, want 2", len(events))
	}
	if events[0].Turn != 2 || events[0].Kind != "turn_advanced" {
		t.Fatalf("newest = turn %d kind %s", events[0].Turn, events[0].Kind)
	}
	if events[1].Turn != 1 || events[1].Kind != "unit_moved" {
		t.Fatalf("second = turn %d kind %s", events[1].Turn, events[1].Kind)
	}
}
