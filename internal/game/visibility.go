package game

import (
	"fmt"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// BuildingSight is the sight radius around every building footprint cell.
const BuildingSight = 2

// RecomputeVisibility rebuilds one player's fog of war from scratch:
// clear the visible bit everywhere, then re-reveal around units,
// buildings and claimed territory. Explored bits only ever accumulate.
func (g *Game) RecomputeVisibility(pid entity.PlayerID) {
	bit := playerBit(pid)
	m := g.Store.Map
	for _, t := range m.Tiles {
		t.Visible &^= bit
	}

	for _, u := range g.Store.PlayerUnits(pid) {
		g.reveal(u.Position, g.Store.UnitDef(u).Sight, bit)
	}
	for _, b := range g.Store.PlayerBuildings(pid) {
		for _, c := range b.Footprint() {
			g.reveal(c, BuildingSight, bit)
		}
		if b.IsCity {
			for _, c := range b.ClaimedTiles {
				g.reveal(c, 0, bit)
			}
		}
	}
}

// reveal marks every cell within Manhattan radius of center as visible
// and explored.
func (g *Game) reveal(center world.Cell, radius int, bit uint32) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if world.Abs(dx)+world.Abs(dy) > radius {
				continue
			}
			if t := g.Store.Map.TileAt(center.X+dx, center.Y+dy); t != nil {
				t.Visible |= bit
				t.Explored |= bit
			}
		}
	}
}

// Bit 0 stays unused; player ids start at 1.
func playerBit(pid entity.PlayerID) uint32 {
	if pid == 0 || pid >= 32 {
		panic(fmt.Sprintf("BUG: player id %d outside visibility bitfield range", pid))
	}
	return uint32(1) << pid
}
