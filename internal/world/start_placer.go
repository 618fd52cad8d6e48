// Start placement — scores cells and picks well-separated starting
// positions for players.
package world

import (
	"math/rand"
	"sort"
)

// StartScore evaluates how desirable a cell is as a starting position.
// Fertile land scores highest; varied neighbors and nearby resources
// add to it. Water and mountains score zero.
func StartScore(m *Map, c Cell) float64 {
	t := m.Tile(c)
	if t == nil {
		return 0
	}

	score := 0.0
	switch t.Terrain {
	case TerrainPlain:
		score += 3.0
	case TerrainRiver:
		score += 3.5 // freshwater and fertile banks
	case TerrainForest:
		score += 1.5
	case TerrainHill:
		score += 1.0
	case TerrainDesert:
		score += 0.5
	default:
		return 0
	}

	// Bonus for nearby terrain diversity.
	kinds := make(map[Terrain]bool)
	for _, nc := range c.Neighbors() {
		if nt := m.Tile(nc); nt != nil && nt.Terrain != TerrainWater {
			kinds[nt.Terrain] = true
		}
	}
	score += float64(len(kinds)) * 0.3

	// Bonus for each resource deposit within working reach.
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if Abs(dx)+Abs(dy) > 2 {
				continue
			}
			if nt := m.TileAt(c.X+dx, c.Y+dy); nt != nil && nt.HasResource() {
				score += 0.8
			}
		}
	}
	return score
}

// PlaceStartingPositions picks count cells for player starts: highest
// scoring first, each at least minDist apart. The distance relaxes when
// the map cannot hold count positions that far apart.
func PlaceStartingPositions(m *Map, count, minDist int) []Cell {
	type scored struct {
		cell  Cell
		score float64
	}
	var candidates []scored
	for _, t := range m.Tiles {
		if s := StartScore(m, t.Cell); s > 0 {
			candidates = append(candidates, scored{t.Cell, s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	for ; minDist >= 0; minDist-- {
		out := make([]Cell, 0, count)
		for _, c := range candidates {
			if len(out) >= count {
				break
			}
			ok := true
			for _, placed := range out {
				if Manhattan(c.cell, placed) < minDist {
					ok = false
					break
				}
			}
			if ok {
				out = append(out, c.cell)
			}
		}
		if len(out) >= count {
			return out
		}
	}
	return nil
}

// NameGenerator produces procedural settlement names by combining
// syllables, never repeating one.
type NameGenerator struct {
	rng  *rand.Rand
	used map[string]bool
}

// NewNameGenerator creates a generator with its own seeded stream.
func NewNameGenerator(seed int64) *NameGenerator {
	return &NameGenerator{
		rng:  rand.New(rand.NewSource(seed)),
		used: make(map[string]bool),
	}
}

var namePrefixes = []string{
	"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
	"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
	"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
	"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
}

var nameSuffixes = []string{
	"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
	"stead", "wood", "field", "dale", "crest", "vale", "port",
	"town", "bury", "marsh", "well", "brook", "cliff", "moor",
	"ridge", "watch", "fall", "rest", "point", "reach", "helm",
}

// Next returns a fresh settlement name.
func (n *NameGenerator) Next() string {
	for {
		name := namePrefixes[n.rng.Intn(len(namePrefixes))] + nameSuffixes[n.rng.Intn(len(nameSuffixes))]
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}
