package world

import "fmt"

// Map holds the complete grid world state, tiles in row-major order.
type Map struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Tiles  []*Tile `json:"-"`
}

// NewMap creates a map of the given dimensions with every tile initialized
// to plain terrain.
func NewMap(width, height int) *Map {
	m := &Map{
		Width:  width,
		Height: height,
		Tiles:  make([]*Tile, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Tiles[y*width+x] = &Tile{Cell: Cell{X: x, Y: y}, Terrain: TerrainPlain}
		}
	}
	return m
}

// Idx converts cell coordinates to a row-major slice index.
func (m *Map) Idx(x, y int) int {
	return y*m.Width + x
}

// InBounds reports whether the coordinates fall inside the map.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// TileAt returns the tile at (x, y), or nil when out of bounds.
func (m *Map) TileAt(x, y int) *Tile {
	if !m.InBounds(x, y) {
		return nil
	}
	return m.Tiles[m.Idx(x, y)]
}

// Tile returns the tile at a cell, or nil when out of bounds.
func (m *Map) Tile(c Cell) *Tile {
	return m.TileAt(c.X, c.Y)
}

// TerrainOf returns the terrain record at (x, y). Out-of-bounds queries
// return the unwalkable zero-yield sentinel instead of erroring.
func (m *Map) TerrainOf(x, y int) TerrainRecord {
	t := m.TileAt(x, y)
	if t == nil {
		return OutOfBoundsRecord
	}
	return t.Terrain.Record()
}

// Walkable reports whether a cell is in bounds and on walkable terrain.
func (m *Map) Walkable(c Cell) bool {
	return m.TerrainOf(c.X, c.Y).Walkable
}

// MoveCost returns the movement points consumed entering a cell. Zero for
// unwalkable or out-of-bounds cells; callers gate on Walkable first.
func (m *Map) MoveCost(c Cell) int {
	return m.TerrainOf(c.X, c.Y).MoveCost
}

// TileCount returns the total number of tiles in the map.
func (m *Map) TileCount() int {
	return len(m.Tiles)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d)", m.Width, m.Height)
}
