// Package persistence provides SQLite-based save games. A database
// holds exactly one save: state tables are replaced wholesale on each
// save, the event journal only ever appends.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/game"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// DB wraps a SQLite connection for save game storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a save database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tiles (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		terrain INTEGER NOT NULL,
		elevation REAL NOT NULL,
		resource INTEGER NOT NULL,
		resource_amount INTEGER NOT NULL,
		improvement INTEGER NOT NULL,
		owner_id INTEGER,
		settlement_id INTEGER,
		explored INTEGER NOT NULL,
		visible INTEGER NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		faction_id TEXT NOT NULL,
		food INTEGER NOT NULL,
		production INTEGER NOT NULL,
		faith INTEGER NOT NULL,
		income_json TEXT NOT NULL,
		researched_json TEXT NOT NULL,
		active_research TEXT NOT NULL,
		research_progress INTEGER NOT NULL,
		eliminated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		id INTEGER PRIMARY KEY,
		player_id INTEGER NOT NULL,
		type_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		health INTEGER NOT NULL,
		movement_left INTEGER NOT NULL,
		has_acted INTEGER NOT NULL,
		state INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id INTEGER PRIMARY KEY,
		player_id INTEGER NOT NULL,
		type_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		state INTEGER NOT NULL,
		health INTEGER NOT NULL,
		progress INTEGER NOT NULL,
		settlement_of INTEGER,
		is_city INTEGER NOT NULL,
		name TEXT NOT NULL,
		population INTEGER NOT NULL,
		max_population INTEGER NOT NULL,
		food_stock INTEGER NOT NULL,
		queue_json TEXT NOT NULL,
		claimed_json TEXT NOT NULL,
		worked_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_units_player ON units(player_id);
	CREATE INDEX IF NOT EXISTS idx_buildings_player ON buildings(player_id);
	CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveTiles writes the whole map to the database (full replace).
func (db *DB) SaveTiles(m *world.Map) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tiles"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO tiles
		(x, y, terrain, elevation, resource, resource_amount, improvement,
		 owner_id, settlement_id, explored, visible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range m.Tiles {
		_, err := stmt.Exec(
			t.Cell.X, t.Cell.Y, t.Terrain, t.Elevation,
			t.Resource, t.ResourceAmount, t.Improvement,
			t.OwnerID, t.SettlementID, t.Explored, t.Visible,
		)
		if err != nil {
			return fmt.Errorf("insert tile (%d,%d): %w", t.Cell.X, t.Cell.Y, err)
		}
	}

	return tx.Commit()
}

// SavePlayers writes all players to the database (full replace).
func (db *DB) SavePlayers(players []*entity.Player) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM players"); err != nil {
		return err
	}

	for _, p := range players {
		incomeJSON, _ := json.Marshal(p.Income)
		researchedJSON, _ := json.Marshal(p.ResearchedTechs)

		_, err := tx.Exec(`INSERT INTO players
			(id, name, faction_id, food, production, faith,
			 income_json, researched_json, active_research, research_progress, eliminated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.FactionID, p.Food, p.Production, p.Faith,
			string(incomeJSON), string(researchedJSON),
			p.ActiveResearch, p.ResearchProgress, boolInt(p.Eliminated),
		)
		if err != nil {
			return fmt.Errorf("insert player %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// SaveUnits writes all units to the database (full replace).
func (db *DB) SaveUnits(units []*entity.Unit) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM units"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO units
		(id, player_id, type_id, x, y, health, movement_left, has_acted, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range units {
		_, err := stmt.Exec(
			u.ID, u.PlayerID, u.TypeID, u.Position.X, u.Position.Y,
			u.Health, u.MovementLeft, boolInt(u.HasActed), u.State,
		)
		if err != nil {
			return fmt.Errorf("insert unit %d: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// SaveBuildings writes all buildings to the database (full replace).
func (db *DB) SaveBuildings(buildings []*entity.Building) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM buildings"); err != nil {
		return err
	}

	for _, b := range buildings {
		queueJSON, _ := json.Marshal(b.Queue)
		claimedJSON, _ := json.Marshal(b.ClaimedTiles)
		workedJSON, _ := json.Marshal(b.WorkedTiles)

		_, err := tx.Exec(`INSERT INTO buildings
			(id, player_id, type_id, x, y, width, height, state, health, progress,
			 settlement_of, is_city, name, population, max_population, food_stock,
			 queue_json, claimed_json, worked_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.PlayerID, b.TypeID, b.Base.X, b.Base.Y, b.Width, b.Height,
			b.State, b.Health, b.Progress, b.SettlementOf,
			boolInt(b.IsCity), b.Name, b.Population, b.MaxPopulation, b.FoodStock,
			string(queueJSON), string(claimedJSON), string(workedJSON),
		)
		if err != nil {
			return fmt.Errorf("insert building %d: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// AppendEvents journals drained events under the turn they fired on.
func (db *DB) AppendEvents(turn int, events []game.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ev := range events {
		payload, _ := json.Marshal(ev)
		_, err := tx.Exec(
			"INSERT INTO events (turn, kind, payload) VALUES (?, ?, ?)",
			turn, ev.Kind(), string(payload),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in save metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// SaveID returns the save's stable identity, minting one on first use.
func (db *DB) SaveID() (string, error) {
	id, err := db.GetMeta("save_id")
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	if err := db.SaveMeta("save_id", id); err != nil {
		return "", err
	}
	return id, nil
}

// HasSave reports whether the database holds a saved game.
func (db *DB) HasSave() (bool, error) {
	_, err := db.GetMeta("seed")
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// SaveGame performs a full save of the session.
func (db *DB) SaveGame(g *game.Game) error {
	id, err := db.SaveID()
	if err != nil {
		return fmt.Errorf("save id: %w", err)
	}
	slog.Info("saving game",
		"save", id,
		"turn", g.Turn,
		"units", len(g.Store.Units()),
		"buildings", len(g.Store.Buildings()),
	)

	if err := db.SaveTiles(g.Store.Map); err != nil {
		return fmt.Errorf("save tiles: %w", err)
	}
	if err := db.SavePlayers(g.Store.Players()); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	if err := db.SaveUnits(g.Store.Units()); err != nil {
		return fmt.Errorf("save units: %w", err)
	}
	if err := db.SaveBuildings(g.Store.Buildings()); err != nil {
		return fmt.Errorf("save buildings: %w", err)
	}

	meta := map[string]string{
		"seed":          strconv.FormatInt(g.Seed, 10),
		"turn":          strconv.Itoa(g.Turn),
		"active_player": strconv.FormatUint(g.ActivePlayer().ID, 10),
		"phase":         strconv.Itoa(int(g.Phase)),
		"max_turns":     strconv.Itoa(g.MaxTurns),
		"over":          strconv.FormatBool(g.Over),
		"draw":          strconv.FormatBool(g.Draw),
		"map_width":     strconv.Itoa(g.Store.Map.Width),
		"map_height":    strconv.Itoa(g.Store.Map.Height),
	}
	if g.WinnerID != nil {
		meta["winner"] = strconv.FormatUint(*g.WinnerID, 10)
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	slog.Info("game saved", "save", id)
	return nil
}

type tileRow struct {
	X              int     `db:"x"`
	Y              int     `db:"y"`
	Terrain        uint8   `db:"terrain"`
	Elevation      float64 `db:"elevation"`
	Resource       uint8   `db:"resource"`
	ResourceAmount int     `db:"resource_amount"`
	Improvement    uint8   `db:"improvement"`
	OwnerID        *uint64 `db:"owner_id"`
	SettlementID   *uint64 `db:"settlement_id"`
	Explored       uint32  `db:"explored"`
	Visible        uint32  `db:"visible"`
}

type playerRow struct {
	ID               uint64 `db:"id"`
	Name             string `db:"name"`
	FactionID        string `db:"faction_id"`
	Food             int    `db:"food"`
	Production       int    `db:"production"`
	Faith            int    `db:"faith"`
	IncomeJSON       string `db:"income_json"`
	ResearchedJSON   string `db:"researched_json"`
	ActiveResearch   string `db:"active_research"`
	ResearchProgress int    `db:"research_progress"`
	Eliminated       int    `db:"eliminated"`
}

type unitRow struct {
	ID           uint64 `db:"id"`
	PlayerID     uint64 `db:"player_id"`
	TypeID       string `db:"type_id"`
	X            int    `db:"x"`
	Y            int    `db:"y"`
	Health       int    `db:"health"`
	MovementLeft int    `db:"movement_left"`
	HasActed     int    `db:"has_acted"`
	State        uint8  `db:"state"`
}

type buildingRow struct {
	ID            uint64  `db:"id"`
	PlayerID      uint64  `db:"player_id"`
	TypeID        string  `db:"type_id"`
	X             int     `db:"x"`
	Y             int     `db:"y"`
	Width         int     `db:"width"`
	Height        int     `db:"height"`
	State         uint8   `db:"state"`
	Health        int     `db:"health"`
	Progress      int     `db:"progress"`
	SettlementOf  *uint64 `db:"settlement_of"`
	IsCity        int     `db:"is_city"`
	Name          string  `db:"name"`
	Population    int     `db:"population"`
	MaxPopulation int     `db:"max_population"`
	FoodStock     int     `db:"food_stock"`
	QueueJSON     string  `db:"queue_json"`
	ClaimedJSON   string  `db:"claimed_json"`
	WorkedJSON    string  `db:"worked_json"`
}

// LoadGame reconstructs the saved session. The random streams restart
// from the saved master seed; determinism holds within a process run,
// not across a save boundary.
func (db *DB) LoadGame(catalog *gamedata.Catalog) (*game.Game, error) {
	seed, err := db.metaInt64("seed")
	if err != nil {
		return nil, fmt.Errorf("load meta seed: %w", err)
	}
	width, err := db.metaInt("map_width")
	if err != nil {
		return nil, err
	}
	height, err := db.metaInt("map_height")
	if err != nil {
		return nil, err
	}

	m := world.NewMap(width, height)
	var tiles []tileRow
	if err := db.conn.Select(&tiles, "SELECT * FROM tiles ORDER BY y, x"); err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	for _, r := range tiles {
		t := m.TileAt(r.X, r.Y)
		if t == nil {
			return nil, fmt.Errorf("saved tile (%d,%d) outside %dx%d map", r.X, r.Y, width, height)
		}
		t.Terrain = world.Terrain(r.Terrain)
		t.Elevation = r.Elevation
		t.Resource = world.ResourceKind(r.Resource)
		t.ResourceAmount = r.ResourceAmount
		t.Improvement = world.ImprovementKind(r.Improvement)
		t.OwnerID = r.OwnerID
		t.SettlementID = r.SettlementID
		t.Explored = r.Explored
		t.Visible = r.Visible
	}

	store := entity.NewStore(m, catalog)

	var players []playerRow
	if err := db.conn.Select(&players, "SELECT * FROM players ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	for _, r := range players {
		p := &entity.Player{
			ID:               r.ID,
			Name:             r.Name,
			FactionID:        r.FactionID,
			Food:             r.Food,
			Production:       r.Production,
			Faith:            r.Faith,
			ActiveResearch:   r.ActiveResearch,
			ResearchProgress: r.ResearchProgress,
			Eliminated:       r.Eliminated != 0,
		}
		if err := json.Unmarshal([]byte(r.IncomeJSON), &p.Income); err != nil {
			return nil, fmt.Errorf("player %d income: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.ResearchedJSON), &p.ResearchedTechs); err != nil {
			return nil, fmt.Errorf("player %d researched techs: %w", r.ID, err)
		}
		if p.ResearchedTechs == nil {
			p.ResearchedTechs = make(map[string]bool)
		}
		store.RestorePlayer(p)
	}

	var units []unitRow
	if err := db.conn.Select(&units, "SELECT * FROM units ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	for _, r := range units {
		store.RestoreUnit(&entity.Unit{
			ID:           r.ID,
			PlayerID:     r.PlayerID,
			TypeID:       r.TypeID,
			Position:     world.Cell{X: r.X, Y: r.Y},
			Health:       r.Health,
			MovementLeft: r.MovementLeft,
			HasActed:     r.HasActed != 0,
			State:        entity.UnitState(r.State),
		})
	}

	var buildings []buildingRow
	if err := db.conn.Select(&buildings, "SELECT * FROM buildings ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load buildings: %w", err)
	}
	for _, r := range buildings {
		b := &entity.Building{
			ID:            r.ID,
			PlayerID:      r.PlayerID,
			TypeID:        r.TypeID,
			Base:          world.Cell{X: r.X, Y: r.Y},
			Width:         r.Width,
			Height:        r.Height,
			State:         entity.BuildingState(r.State),
			Health:        r.Health,
			Progress:      r.Progress,
			SettlementOf:  r.SettlementOf,
			IsCity:        r.IsCity != 0,
			Name:          r.Name,
			Population:    r.Population,
			MaxPopulation: r.MaxPopulation,
			FoodStock:     r.FoodStock,
		}
		if err := json.Unmarshal([]byte(r.QueueJSON), &b.Queue); err != nil {
			return nil, fmt.Errorf("building %d queue: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.ClaimedJSON), &b.ClaimedTiles); err != nil {
			return nil, fmt.Errorf("building %d claimed tiles: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.WorkedJSON), &b.WorkedTiles); err != nil {
			return nil, fmt.Errorf("building %d worked tiles: %w", r.ID, err)
		}
		store.RestoreBuilding(b)
	}

	turn, err := db.metaInt("turn")
	if err != nil {
		return nil, err
	}
	active, err := db.metaInt64("active_player")
	if err != nil {
		return nil, err
	}
	phase, err := db.metaInt("phase")
	if err != nil {
		return nil, err
	}
	maxTurns, err := db.metaInt("max_turns")
	if err != nil {
		return nil, err
	}

	g := game.NewGame(store, seed, maxTurns)
	g.RestoreCursor(turn, entity.PlayerID(active), game.Phase(phase))

	if over, err := db.GetMeta("over"); err == nil && over == "true" {
		g.Over = true
	}
	if draw, err := db.GetMeta("draw"); err == nil && draw == "true" {
		g.Draw = true
	}
	if winner, err := db.metaInt64("winner"); err == nil {
		id := entity.PlayerID(winner)
		g.WinnerID = &id
	}

	slog.Info("game loaded", "turn", g.Turn, "players", len(store.Players()))
	return g, nil
}

// EventRow is one journaled event.
type EventRow struct {
	ID      int64  `db:"id"`
	Turn    int    `db:"turn"`
	Kind    string `db:"kind"`
	Payload string `db:"payload"`
}

// RecentEvents returns the most recent N journaled events, newest
// first.
func (db *DB) RecentEvents(limit int) ([]EventRow, error) {
	var events []EventRow
	err := db.conn.Select(&events,
		"SELECT id, turn, kind, payload FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

func (db *DB) metaInt(key string) (int, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, fmt.Errorf("load meta %s: %w", key, err)
	}
	return strconv.Atoi(v)
}

func (db *DB) metaInt64(key string) (int64, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, fmt.Errorf("load meta %s: %w", key, err)
	}
	return strconv.ParseInt(v, 10, 64)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
