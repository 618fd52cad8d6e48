package game

import (
	"log/slog"

	"github.com/gurulost/IsometricEmpires-sub000/internal/economy"
	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/tech"
)

// EndTurn closes the active player's turn: idle units heal, flags reset
// for their next turn, the economy and research advance, and control
// passes to the next player still in the game. A full cycle through all
// players increments the global turn counter.
func (g *Game) EndTurn(pid entity.PlayerID) *entity.Rejection {
	if rej := g.checkCommand(pid); rej != nil {
		return rej
	}
	p := g.Store.Player(pid)

	g.healRestedUnits(p)
	g.resetUnits(p)

	for _, rep := range g.Economy.RunTurn(p) {
		g.emitEconomy(rep)
	}
	g.Phase = PhaseEconomyResolved

	if done := g.Research.Progress(p, tech.PerTurnProgress); done != nil {
		g.emit(TechResearched{
			PlayerID:          p.ID,
			TechID:            done.TechID,
			UnlockedUnits:     done.UnlockedUnits,
			UnlockedBuildings: done.UnlockedBuildings,
			UnlockedAbilities: done.UnlockedAbilities,
		})
		slog.Info("research completed", "player", p.Name, "tech", done.TechID)
	}

	g.emit(ResourcesUpdated{
		PlayerID:   p.ID,
		Food:       p.Food,
		Production: p.Production,
		Faith:      p.Faith,
		Income:     p.Income,
	})

	g.sweepEliminated()
	g.Phase = PhaseTurnComplete
	if g.resolveGameOver() {
		return nil
	}
	g.advance()
	return nil
}

func (g *Game) emitEconomy(rep *economy.SettlementReport) {
	if rep.Grew {
		g.emit(CityGrew{SettlementID: rep.SettlementID, Population: rep.Population})
	}
	for _, done := range rep.Completed {
		g.emit(ProductionCompleted{
			SettlementID: rep.SettlementID,
			ItemKind:     done.Kind,
			TypeID:       done.TypeID,
			UnitID:       done.UnitID,
			BuildingID:   done.BuildingID,
		})
		if done.Kind == entity.ProduceUnit {
			if u := g.Store.Unit(done.UnitID); u != nil {
				g.emit(UnitCreated{UnitID: u.ID, PlayerID: u.PlayerID, TypeID: u.TypeID, At: u.Position})
			}
		}
	}
	if rep.Expanded != nil {
		g.emit(TerritoryExpanded{SettlementID: rep.SettlementID, Cell: *rep.Expanded})
	}
	for _, c := range rep.Depleted {
		g.emit(ResourceDepleted{SettlementID: rep.SettlementID, Cell: c})
	}
}

// healRestedUnits restores health to units that spent the whole turn
// idle: full movement left and no action taken.
func (g *Game) healRestedUnits(p *entity.Player) {
	for _, u := range g.Store.PlayerUnits(p.ID) {
		def := g.Store.UnitDef(u)
		if u.HasActed || u.MovementLeft != def.Movement || u.Health >= def.MaxHealth {
			continue
		}
		u.Health += HealPerTurn
		if u.Health > def.MaxHealth {
			u.Health = def.MaxHealth
		}
	}
}

func (g *Game) resetUnits(p *entity.Player) {
	for _, u := range g.Store.PlayerUnits(p.ID) {
		def := g.Store.UnitDef(u)
		u.MovementLeft = def.Movement
		u.HasActed = false
		u.State = entity.UnitIdle
	}
}

// sweepEliminated drops players with no settlements and no unit able to
// found one. Their remaining units leave the map.
func (g *Game) sweepEliminated() {
	for _, p := range g.Store.Players() {
		if p.Eliminated {
			continue
		}
		if len(g.Store.Settlements(p.ID)) > 0 || g.hasFounder(p.ID) {
			continue
		}
		p.Eliminated = true
		for _, u := range g.Store.PlayerUnits(p.ID) {
			g.Store.RemoveUnit(u.ID)
		}
		g.emit(PlayerEliminated{PlayerID: p.ID})
		slog.Info("player eliminated", "player", p.Name, "turn", g.Turn)
	}
}

func (g *Game) hasFounder(pid entity.PlayerID) bool {
	for _, u := range g.Store.PlayerUnits(pid) {
		if g.Store.UnitDef(u).HasAbility(gamedata.AbilityFoundCity) {
			return true
		}
	}
	return false
}

// resolveGameOver ends the game when a single player remains.
func (g *Game) resolveGameOver() bool {
	if g.Over {
		return true
	}
	var alive []*entity.Player
	for _, p := range g.Store.Players() {
		if !p.Eliminated {
			alive = append(alive, p)
		}
	}
	switch len(alive) {
	case 0:
		g.Over, g.Draw = true, true
		g.emit(GameOver{Draw: true})
		slog.Info("game over", "result", "draw", "turn", g.Turn)
		return true
	case 1:
		id := alive[0].ID
		g.Over, g.WinnerID = true, &id
		g.emit(GameOver{WinnerID: &id})
		slog.Info("game over", "winner", alive[0].Name, "turn", g.Turn)
		return true
	}
	return false
}

// advance hands the turn to the next surviving player, incrementing the
// global turn counter when the rotation wraps. Hitting the turn cap ends
// the game in a draw.
func (g *Game) advance() {
	players := g.Store.Players()
	for i := 0; i < len(players); i++ {
		g.activeIdx++
		if g.activeIdx >= len(players) {
			g.activeIdx = 0
			g.Turn++
			if g.Turn > g.MaxTurns {
				g.Over, g.Draw = true, true
				g.emit(GameOver{Draw: true})
				slog.Info("game over", "result", "draw at turn cap", "turn", g.Turn-1)
				return
			}
		}
		if !players[g.activeIdx].Eliminated {
			break
		}
	}
	g.startTurn()
}

func (g *Game) startTurn() {
	p := g.ActivePlayer()
	g.Phase = PhaseUnitsReady
	g.RecomputeVisibility(p.ID)
	g.emit(TurnAdvanced{Turn: g.Turn, ActivePlayerID: p.ID})
	slog.Debug("turn opened",
		"turn", g.Turn,
		"player", p.Name,
		"units", len(g.Store.PlayerUnits(p.ID)),
		"settlements", len(g.Store.Settlements(p.ID)),
	)
}
