package game

import (
	"fmt"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
)

// RestoreCursor repositions the turn loop after loading a saved game.
// The active player must exist in the store.
func (g *Game) RestoreCursor(turn int, active entity.PlayerID, phase Phase) {
	g.Turn = turn
	g.Phase = phase
	for i, p := range g.Store.Players() {
		if p.ID == active {
			g.activeIdx = i
			return
		}
	}
	panic(fmt.Sprintf("BUG: active player %d missing from restored store", active))
}
