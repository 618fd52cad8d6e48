// World generation using layered simplex noise.
// Generates elevation, rainfall, and temperature maps, then derives terrain
// and places resource deposits.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width       int
	Height      int
	Seed        int64   // Random seed (0 = random)
	SeaLevel    float64 // Elevation threshold for water (0.0–1.0)
	HillLevel   float64 // Elevation threshold for hills
	MountainLvl float64 // Elevation threshold for mountains
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:       48,
		Height:      48,
		Seed:        0,
		SeaLevel:    0.22,
		HillLevel:   0.62,
		MountainLvl: 0.78,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:       16,
		Height:      16,
		Seed:        42,
		SeaLevel:    0.18,
		HillLevel:   0.65,
		MountainLvl: 0.82,
	}
}

// Generate creates a complete world map with terrain and resources.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Three noise generators for independent layers.
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	m := NewMap(cfg.Width, cfg.Height)
	cx := float64(cfg.Width) / 2
	cy := float64(cfg.Height) / 2

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx := float64(x)
			fy := float64(y)

			// Multi-octave noise for natural-looking terrain.
			elev := octaveNoise(elevNoise, fx, fy, 4, 0.08, 0.5)
			rain := octaveNoise(rainNoise, fx, fy, 3, 0.06, 0.5)
			temp := octaveNoise(tempNoise, fx, fy, 3, 0.05, 0.5)

			// Continental shaping: reduce elevation near edges to create
			// a water border.
			dx := (fx - cx) / cx
			dy := (fy - cy) / cy
			distFromCenter := math.Sqrt(dx*dx + dy*dy)
			edgeFalloff := 1.0 - math.Pow(distFromCenter, 3.5)
			if edgeFalloff < 0 {
				edgeFalloff = 0
			}
			elev *= edgeFalloff

			// Temperature decreases with elevation and distance from the
			// map's equator row.
			temp = temp*0.6 + (1.0-math.Abs(fy-cy)/cy)*0.3 + (1.0-elev)*0.1

			tile := m.TileAt(x, y)
			tile.Terrain = deriveTerrain(elev, rain, temp, cfg)
			tile.Elevation = elev
		}
	}

	// Post-pass: trace rivers from high ground down to water.
	placeRivers(m, seed)

	// Post-pass: scatter resource deposits by terrain.
	placeResources(m, seed)

	return m
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, rain, temp float64, cfg GenConfig) Terrain {
	if elev < cfg.SeaLevel {
		return TerrainWater
	}
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if elev > cfg.HillLevel {
		return TerrainHill
	}
	if rain < 0.25 && temp > 0.5 {
		return TerrainDesert
	}
	if rain > 0.45 {
		return TerrainForest
	}
	return TerrainPlain
}

// placeRivers traces paths from high elevation down to water, marking tiles
// as river along the way.
func placeRivers(m *Map, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))

	// High tiles are candidate sources.
	var sources []Cell
	for _, tile := range m.Tiles {
		if tile.Elevation > 0.6 && tile.Terrain != TerrainWater {
			sources = append(sources, tile.Cell)
		}
	}

	// Only a handful of rivers — not every peak needs one.
	numRivers := len(sources) / 8
	if numRivers < 2 {
		numRivers = 2
	}
	if numRivers > 10 {
		numRivers = 10
	}

	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})
	if len(sources) > numRivers {
		sources = sources[:numRivers]
	}

	for _, start := range sources {
		traceRiver(m, start)
	}
}

// traceRiver follows the steepest descent from a source cell until reaching
// water or running out of downhill path.
func traceRiver(m *Map, start Cell) {
	current := start
	visited := make(map[Cell]bool)
	maxSteps := 50

	for step := 0; step < maxSteps; step++ {
		visited[current] = true
		tile := m.Tile(current)
		if tile == nil {
			break
		}

		// Stop at water.
		if tile.Terrain == TerrainWater {
			break
		}

		// Mark as river (mountain peaks stay mountains).
		if tile.Terrain != TerrainMountain {
			tile.Terrain = TerrainRiver
		}

		// Find the lowest neighbor.
		var bestNeighbor *Cell
		bestElev := tile.Elevation

		for _, nc := range current.Neighbors() {
			if visited[nc] {
				continue
			}
			nt := m.Tile(nc)
			if nt == nil {
				continue
			}
			if nt.Elevation < bestElev {
				bestElev = nt.Elevation
				c := nc // capture
				bestNeighbor = &c
			}
		}

		if bestNeighbor == nil {
			break // No downhill path — river ends
		}
		current = *bestNeighbor
	}
}

// placeResources scatters resource deposits across the map, each kind tied
// to the terrain that carries it.
func placeResources(m *Map, seed int64) {
	rng := rand.New(rand.NewSource(seed + 200))

	for _, tile := range m.Tiles {
		kind := ResourceNone
		switch tile.Terrain {
		case TerrainPlain:
			if rng.Float64() < 0.12 {
				kind = ResourceGrain
			}
		case TerrainRiver:
			if rng.Float64() < 0.20 {
				kind = ResourceGrain
			}
		case TerrainForest:
			if rng.Float64() < 0.15 {
				kind = ResourceTimber
			}
		case TerrainHill:
			if rng.Float64() < 0.18 {
				kind = ResourceOre
			}
		case TerrainWater:
			if rng.Float64() < 0.10 {
				kind = ResourceFish
			}
		case TerrainDesert:
			if rng.Float64() < 0.06 {
				kind = ResourceRelic
			}
		}
		if kind != ResourceNone {
			tile.Resource = kind
			tile.ResourceAmount = 20 + rng.Intn(21)
		}
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, tile := range m.Tiles {
		counts[tile.Terrain]++
	}
	return counts
}
