package gamedata

import "github.com/gurulost/IsometricEmpires-sub000/internal/world"

// BuildingDef defines a building type loaded from JSON.
type BuildingDef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Cost   int    `json:"cost"`   // Production cost
	Width  int    `json:"width"`  // Footprint width in cells
	Height int    `json:"height"` // Footprint height in cells

	// Flat per-turn yields the building adds to its settlement once
	// constructed.
	Yields world.Yield `json:"yields"`

	// Percentage boost to the settlement's production income. All
	// percentage effects in a settlement sum before applying.
	ProductionPct int `json:"productionPct,omitempty"`

	Faction string `json:"faction,omitempty"` // Empty = available to all factions
}

// FootprintCells returns the cells a footprint anchored at base covers.
func (d *BuildingDef) FootprintCells(base world.Cell) []world.Cell {
	cells := make([]world.Cell, 0, d.Width*d.Height)
	for dy := 0; dy < d.Height; dy++ {
		for dx := 0; dx < d.Width; dx++ {
			cells = append(cells, world.Cell{X: base.X + dx, Y: base.Y + dy})
		}
	}
	return cells
}

// BuildingsFile represents the structure of buildings.json.
type BuildingsFile struct {
	Buildings []BuildingDef `json:"buildings"`
}

// LoadBuildings loads building definitions from the embedded buildings.json.
func LoadBuildings() ([]BuildingDef, error) {
	file, err := Load[BuildingsFile]("buildings.json")
	if err != nil {
		return nil, err
	}
	return file.Buildings, nil
}
