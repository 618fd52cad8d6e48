// Command empires runs an autonomous four-faction match: generates a
// world, hands every faction to the scripted AI, serves the game over
// HTTP, and journals each turn to the save database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gurulost/IsometricEmpires-sub000/internal/api"
	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/game"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/persistence"
	"github.com/gurulost/IsometricEmpires-sub000/internal/telemetry"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

const saveEvery = 10 // full save cadence in turns

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env not loaded", "error", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := game.DefaultConfig()
	cfg.Seed = envInt64("EMPIRES_SEED", cfg.Seed)
	cfg.MaxTurns = envInt("EMPIRES_MAX_TURNS", cfg.MaxTurns)
	dbPath := envStr("EMPIRES_DB", "data/empires.db")
	apiPort := envInt("EMPIRES_PORT", 8080)
	turnDelay := time.Duration(envInt("EMPIRES_TURN_DELAY_MS", 0)) * time.Millisecond

	slog.Info("Isometric Empires — autonomous match", "seed", cfg.Seed)

	ctx := context.Background()

	// ── Telemetry ─────────────────────────────────────────────────────
	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		slog.Warn("telemetry setup failed, running without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				slog.Error("telemetry shutdown failed", "error", err)
			}
		}()
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	catalog, err := gamedata.LoadCatalog()
	if err != nil {
		slog.Error("failed to load game data", "error", err)
		os.Exit(1)
	}

	// ── Load or Generate ──────────────────────────────────────────────
	var g *game.Game

	hasSave, err := db.HasSave()
	if err != nil {
		slog.Error("failed to probe save", "error", err)
		os.Exit(1)
	}

	if hasSave {
		slog.Info("found saved game, loading...")
		g, err = db.LoadGame(catalog)
		if err != nil {
			slog.Error("failed to load game", "error", err)
			os.Exit(1)
		}
		slog.Info("game restored",
			"turn", g.Turn,
			"players", len(g.Store.Players()),
			"units", len(g.Store.Units()),
		)
	} else {
		slog.Info("no saved game, generating new world...")
		g = newMatch(cfg, catalog)
		if err := db.SaveGame(g); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("EMPIRES_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("EMPIRES_ADMIN_KEY not set — admin POST endpoints disabled")
	}

	var mu sync.RWMutex
	apiServer := &api.Server{
		Game:     g,
		DB:       db,
		Port:     apiPort,
		AdminKey: adminKey,
		Mu:       &mu,
	}
	apiServer.Start()

	// ── Autoplay ──────────────────────────────────────────────────────
	runCtx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	fmt.Printf("\n%d factions contest a %dx%d world.\n",
		len(g.Store.Players()), g.Store.Map.Width, g.Store.Map.Height)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Playing... (Ctrl+C to stop)")

	totalEvents := autoplay(runCtx, g, db, &mu, turnDelay)

	// ── Final save and report ─────────────────────────────────────────
	mu.RLock()
	if err := db.SaveGame(g); err != nil {
		slog.Error("final save failed", "error", err)
	}
	verdict := "interrupted"
	if g.Over {
		verdict = "draw at the turn cap"
		if g.WinnerID != nil {
			verdict = g.Store.Player(*g.WinnerID).Name + " wins"
		}
	}
	turn := g.Turn
	mu.RUnlock()

	fmt.Printf("\nMatch %s on the %s turn. %s events journaled.\n",
		verdict, humanize.Ordinal(turn), humanize.Comma(int64(totalEvents)))
}

// newMatch generates a world and seats every catalog faction with a
// capital and an escort warrior on a scored starting position.
func newMatch(cfg game.Config, catalog *gamedata.Catalog) *game.Game {
	gen := world.DefaultGenConfig()
	gen.Seed = cfg.Seed
	m := world.Generate(gen)

	land := 0
	for t, c := range world.TerrainCounts(m) {
		if t.Record().Walkable {
			land += c
		}
		slog.Info("terrain", "type", world.TerrainName(t), "count", c)
	}
	slog.Info("world generated", "size", fmt.Sprintf("%dx%d", m.Width, m.Height), "land_tiles", land)

	factions := catalog.Factions.All()
	starts := world.PlaceStartingPositions(m, len(factions), 12)
	if len(starts) < len(factions) {
		slog.Error("not enough starting positions", "found", len(starts), "need", len(factions))
		os.Exit(1)
	}

	store := entity.NewStore(m, catalog)
	g := game.NewGame(store, cfg.Seed, cfg.MaxTurns)
	namer := world.NewNameGenerator(cfg.Seed + 400)

	for i, f := range factions {
		p, err := store.AddPlayer(f.Name, f.ID)
		if err != nil {
			slog.Error("failed to add player", "faction", f.ID, "error", err)
			os.Exit(1)
		}

		capital, rej := store.FoundCity(p.ID, starts[i], namer.Next())
		if rej != nil {
			slog.Error("failed to found capital", "faction", f.ID, "error", rej)
			os.Exit(1)
		}
		g.Economy.AssignWorkers(capital)

		if c, ok := store.FindSpawnCell(capital); ok {
			if _, rej := store.PlaceUnit(p.ID, "warrior", c); rej != nil {
				slog.Warn("no escort warrior", "faction", f.ID, "error", rej)
			}
		}

		slog.Info("faction seated",
			"faction", f.Name,
			"capital", capital.Name,
			"at", fmt.Sprintf("(%d,%d)", starts[i].X, starts[i].Y),
		)
	}

	g.Begin()
	return g
}

// autoplay drives AI turns until the game ends or the context is
// cancelled. Returns the number of events journaled.
func autoplay(ctx context.Context, g *game.Game, db *persistence.DB, mu *sync.RWMutex, delay time.Duration) int {
	tracer := telemetry.Tracer("autoplay")
	totalEvents := 0
	lastSaved := -1

	for {
		select {
		case <-ctx.Done():
			return totalEvents
		default:
		}

		mu.Lock()
		if g.Over {
			mu.Unlock()
			return totalEvents
		}
		turn := g.Turn
		p := g.ActivePlayer()

		_, span := tracer.Start(ctx, "turn.play")
		rej := g.RunAITurn(p.ID)
		events := g.DrainEvents()
		newTurn := g.Turn
		mu.Unlock()

		span.SetAttributes(
			attribute.Int("turn", turn),
			attribute.String("player", p.Name),
			attribute.Int("events", len(events)),
		)
		span.End()

		if rej != nil {
			slog.Error("ai turn rejected", "player", p.Name, "error", rej)
			return totalEvents
		}

		totalEvents += len(events)
		if err := db.AppendEvents(turn, events); err != nil {
			slog.Error("journal append failed", "error", err)
		}

		if newTurn != turn && newTurn%saveEvery == 0 && newTurn != lastSaved {
			mu.RLock()
			err := db.SaveGame(g)
			mu.RUnlock()
			if err != nil {
				slog.Error("periodic save failed", "turn", newTurn, "error", err)
			}
			lastSaved = newTurn
		}

		if delay > 0 {
			time.Sleep(delay)
		}
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
