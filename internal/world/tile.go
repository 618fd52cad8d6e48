// Package world provides the square grid, terrain, and tile data structures.
// Uses integer cell coordinates (x, y) with 4-directional adjacency.
package world

// Cell represents a position on the grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CellNeighborDirections defines the four von Neumann neighbor offsets,
// clockwise from north.
var CellNeighborDirections = [4]Cell{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// Neighbors returns the four adjacent cell coordinates.
func (c Cell) Neighbors() [4]Cell {
	var result [4]Cell
	for i, dir := range CellNeighborDirections {
		result[i] = Cell{X: c.X + dir.X, Y: c.Y + dir.Y}
	}
	return result
}

// Manhattan returns the Manhattan distance between two cells.
func Manhattan(a, b Cell) int {
	return Abs(a.X-b.X) + Abs(a.Y-b.Y)
}

// Terrain kinds for grid tiles.
type Terrain uint8

const (
	TerrainPlain    Terrain = iota // Open grassland — strong food yield
	TerrainForest                  // Timber and game, slows movement
	TerrainHill                    // Defensible high ground, ore-bearing
	TerrainMountain                // Impassable peaks
	TerrainDesert                  // Harsh, sparse yields
	TerrainWater                   // Impassable open water
	TerrainRiver                   // Fertile lowland along watercourses
)

// Yield is the per-turn resource output attributed to a worked tile or a
// building: food, production, faith.
type Yield struct {
	Food       int `json:"food"`
	Production int `json:"production"`
	Faith      int `json:"faith"`
}

// Add returns the component-wise sum of two yields.
func (y Yield) Add(o Yield) Yield {
	return Yield{
		Food:       y.Food + o.Food,
		Production: y.Production + o.Production,
		Faith:      y.Faith + o.Faith,
	}
}

// Score rates a yield for worker assignment and territory expansion.
// Food is weighted heaviest, faith lightest.
func (y Yield) Score() float64 {
	return 1.5*float64(y.Food) + 1.0*float64(y.Production) + 0.5*float64(y.Faith)
}

// TerrainRecord describes the static properties of a terrain kind.
type TerrainRecord struct {
	MoveCost     int     // Movement points consumed entering a cell
	Walkable     bool    // False blocks both movement and placement
	DefenseBonus float64 // Fraction added to a defender's base defense
	Yields       Yield   // Base yields when the tile is worked
}

// OutOfBoundsRecord is the sentinel returned for queries outside the map:
// unwalkable and zero-yield, so callers never bounds-check before querying.
var OutOfBoundsRecord = TerrainRecord{}

// terrainTable holds one record per terrain kind, indexed by Terrain value.
var terrainTable = [...]TerrainRecord{
	TerrainPlain:    {MoveCost: 1, Walkable: true, DefenseBonus: 0, Yields: Yield{Food: 2, Production: 1}},
	TerrainForest:   {MoveCost: 2, Walkable: true, DefenseBonus: 0.25, Yields: Yield{Food: 1, Production: 2}},
	TerrainHill:     {MoveCost: 2, Walkable: true, DefenseBonus: 0.5, Yields: Yield{Production: 2, Faith: 1}},
	TerrainMountain: {MoveCost: 0, Walkable: false, DefenseBonus: 0, Yields: Yield{}},
	TerrainDesert:   {MoveCost: 1, Walkable: true, DefenseBonus: 0, Yields: Yield{Production: 1, Faith: 1}},
	TerrainWater:    {MoveCost: 0, Walkable: false, DefenseBonus: 0, Yields: Yield{Food: 1}},
	TerrainRiver:    {MoveCost: 1, Walkable: true, DefenseBonus: 0, Yields: Yield{Food: 2, Production: 1, Faith: 1}},
}

// Record returns the static terrain record for this kind.
func (t Terrain) Record() TerrainRecord {
	return terrainTable[t]
}

// ResourceKind enumerates special resources a tile may carry.
type ResourceKind uint8

const (
	ResourceNone   ResourceKind = iota
	ResourceGrain               // Plains and river bottoms
	ResourceTimber              // Dense forest stands
	ResourceOre                 // Hill deposits
	ResourceFish                // Shallow water
	ResourceRelic               // Desert ruins
)

// resourceBonus is the yield a resource adds while any amount remains.
var resourceBonus = [...]Yield{
	ResourceNone:   {},
	ResourceGrain:  {Food: 2},
	ResourceTimber: {Production: 2},
	ResourceOre:    {Production: 2},
	ResourceFish:   {Food: 2},
	ResourceRelic:  {Faith: 2},
}

// ImprovementKind enumerates worker-built tile improvements.
type ImprovementKind uint8

const (
	ImprovementNone ImprovementKind = iota
	ImprovementFarm                 // Plains and river
	ImprovementMine                 // Hills
	ImprovementCamp                 // Forest
)

// improvementBonus is the flat yield an improvement adds.
var improvementBonus = [...]Yield{
	ImprovementNone: {},
	ImprovementFarm: {Food: 1},
	ImprovementMine: {Production: 1},
	ImprovementCamp: {Production: 1},
}

// ImprovementFor returns the improvement matching a terrain kind, or
// ImprovementNone when the terrain supports no improvement.
func ImprovementFor(t Terrain) ImprovementKind {
	switch t {
	case TerrainPlain, TerrainRiver:
		return ImprovementFarm
	case TerrainHill:
		return ImprovementMine
	case TerrainForest:
		return ImprovementCamp
	default:
		return ImprovementNone
	}
}

// Tile aggregates everything the engine tracks per grid cell.
type Tile struct {
	Cell      Cell    `json:"cell"`
	Terrain   Terrain `json:"terrain"`
	Elevation float64 `json:"elevation"` // 0.0 (sea level) to 1.0 (peak)

	// Resource deposit, if any. Amount counts down as the tile is worked
	// and clamps at zero: exhausted, not removed.
	Resource       ResourceKind `json:"resource,omitempty"`
	ResourceAmount int          `json:"resource_amount,omitempty"`

	Improvement ImprovementKind `json:"improvement,omitempty"`

	// Claim state, set when a settlement's territory expands over the tile.
	OwnerID      *uint64 `json:"owner_id,omitempty"`
	SettlementID *uint64 `json:"settlement_id,omitempty"`

	// Per-player fog of war bitfields: bit n covers player id n.
	Explored uint32 `json:"explored"`
	Visible  uint32 `json:"visible"`
}

// Yields returns the tile's worked yield: terrain base, plus the resource
// bonus while unexhausted, plus the improvement bonus.
func (t *Tile) Yields() Yield {
	y := t.Terrain.Record().Yields
	if t.HasResource() {
		y = y.Add(resourceBonus[t.Resource])
	}
	y = y.Add(improvementBonus[t.Improvement])
	return y
}

// HasResource reports whether the tile carries an unexhausted resource.
func (t *Tile) HasResource() bool {
	return t.Resource != ResourceNone && t.ResourceAmount > 0
}

// Deplete consumes one unit of the tile's resource, clamped at zero.
func (t *Tile) Deplete() {
	if t.ResourceAmount > 0 {
		t.ResourceAmount--
	}
}

// Claimed reports whether any settlement has claimed the tile.
func (t *Tile) Claimed() bool {
	return t.SettlementID != nil
}

// VisibleTo reports whether the tile is currently in a player's sight.
func (t *Tile) VisibleTo(player uint64) bool {
	return t.Visible&(uint32(1)<<player) != 0
}

// ExploredBy reports whether a player has ever seen the tile.
func (t *Tile) ExploredBy(player uint64) bool {
	return t.Explored&(uint32(1)<<player) != 0
}

// TerrainName returns a human-readable name for a terrain kind.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainPlain:
		return "Plain"
	case TerrainForest:
		return "Forest"
	case TerrainHill:
		return "Hill"
	case TerrainMountain:
		return "Mountain"
	case TerrainDesert:
		return "Desert"
	case TerrainWater:
		return "Water"
	case TerrainRiver:
		return "River"
	default:
		return "Unknown"
	}
}
