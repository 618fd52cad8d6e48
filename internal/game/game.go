// Package game ties the store, combat, economy and research systems
// into a turn-synchronous controller. Exactly one player's turn is open
// for mutation at a time; every command either mutates state and emits
// events, or returns a typed rejection and emits nothing.
package game

import (
	"log/slog"
	"math/rand"

	"github.com/gurulost/IsometricEmpires-sub000/internal/combat"
	"github.com/gurulost/IsometricEmpires-sub000/internal/economy"
	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/tech"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// Phase tracks where the active player's turn stands.
type Phase uint8

const (
	PhaseUnitsReady      Phase = iota // movement and action flags fresh
	PhaseUnitsActing                  // at least one command accepted
	PhaseEconomyResolved              // settlement passes have run
	PhaseTurnComplete                 // control about to pass on
)

// PhaseName returns a phase's display name.
func PhaseName(p Phase) string {
	switch p {
	case PhaseUnitsReady:
		return "units_ready"
	case PhaseUnitsActing:
		return "units_acting"
	case PhaseEconomyResolved:
		return "economy_resolved"
	case PhaseTurnComplete:
		return "turn_complete"
	}
	return "unknown"
}

// HealPerTurn is restored to a unit that neither moved nor acted.
const HealPerTurn = 5

// DefaultMaxTurns caps a game that no one wins outright.
const DefaultMaxTurns = 500

// maxEventBuffer bounds the retained event history.
const maxEventBuffer = 1000

// Seed offsets keep each subsystem on its own deterministic stream.
const (
	seedOffsetCombat  = 10
	seedOffsetEconomy = 20
	seedOffsetAI      = 30
	seedOffsetNames   = 40
)

// Game owns the complete session state and the systems that mutate it.
type Game struct {
	Store    *entity.Store
	Combat   *combat.Resolver
	Economy  *economy.Engine
	Research *tech.Graph

	Seed     int64
	Turn     int
	Phase    Phase
	Events   []Event
	Over     bool
	Draw     bool
	WinnerID *entity.PlayerID
	MaxTurns int

	activeIdx int
	aiRNG     *rand.Rand
	namer     *world.NameGenerator
}

// NewGame wires the systems over a populated store. The master seed fans
// out to per-system streams so replays with the same seed are identical.
func NewGame(store *entity.Store, seed int64, maxTurns int) *Game {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Game{
		Store:    store,
		Combat:   combat.NewResolver(store, rand.New(rand.NewSource(seed+seedOffsetCombat))),
		Economy:  economy.NewEngine(store, rand.New(rand.NewSource(seed+seedOffsetEconomy))),
		Research: tech.NewGraph(store),
		Seed:     seed,
		Turn:     1,
		MaxTurns: maxTurns,
		aiRNG:    rand.New(rand.NewSource(seed + seedOffsetAI)),
		namer:    world.NewNameGenerator(seed + seedOffsetNames),
	}
}

// Begin opens the first player's turn.
func (g *Game) Begin() {
	for _, p := range g.Store.Players() {
		g.RecomputeVisibility(p.ID)
	}
	g.startTurn()
}

// ActivePlayer returns the player whose turn is open.
func (g *Game) ActivePlayer() *entity.Player {
	players := g.Store.Players()
	if len(players) == 0 {
		panic("BUG: game has no players")
	}
	return players[g.activeIdx]
}

// DrainEvents returns the buffered events and clears the buffer.
func (g *Game) DrainEvents() []Event {
	out := g.Events
	g.Events = nil
	return out
}

func (g *Game) emit(ev Event) {
	g.Events = append(g.Events, ev)
	if len(g.Events) > maxEventBuffer {
		g.Events = g.Events[len(g.Events)-maxEventBuffer:]
	}
	slog.Debug("event", "kind", ev.Kind())
}

// checkCommand gates every inbound command: the game must be running and
// the acting player must hold the open turn.
func (g *Game) checkCommand(pid entity.PlayerID) *entity.Rejection {
	if g.Over {
		return entity.Reject(entity.ReasonUnavailable, "game is over")
	}
	if active := g.ActivePlayer(); active.ID != pid {
		return entity.Reject(entity.ReasonNotYourTurn, "player %d acting on player %d's turn", pid, active.ID)
	}
	return nil
}
