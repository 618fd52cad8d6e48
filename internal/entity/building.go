package entity

import "github.com/gurulost/IsometricEmpires-sub000/internal/world"

// BuildingID is a unique identifier for a building.
type BuildingID = uint64

// CityCenterType is the building type every settlement is founded as.
// City centers are never queued for production.
const CityCenterType = "city_center"

// DefaultMaxPopulation caps settlement growth.
const DefaultMaxPopulation = 10

// BuildingState tracks a building's lifecycle.
type BuildingState uint8

const (
	BuildingConstruction BuildingState = iota // Queued progress below 100
	BuildingOperational                      // Health above 50
	BuildingDamaged                          // Health 1–50
	BuildingDestroyed                        // Health 0, awaiting removal
)

// ProductionKind discriminates production queue entries.
type ProductionKind uint8

const (
	ProduceUnit ProductionKind = iota
	ProduceBuilding
)

// ProductionItem is one FIFO entry in a settlement's production queue.
// Cost captures the faction-discounted price at queue time.
type ProductionItem struct {
	Kind     ProductionKind `json:"kind"`
	TypeID   string         `json:"type_id"`
	Progress int            `json:"progress"`
	Cost     int            `json:"cost"`
}

// Building is a live structure occupying a footprint of cells. Settlements
// (city centers) carry the settlement block; other buildings belong to the
// settlement recorded in SettlementOf.
type Building struct {
	ID       BuildingID `json:"id"`
	PlayerID PlayerID   `json:"player_id"`
	TypeID   string     `json:"type_id"`
	Base     world.Cell `json:"base"` // Anchor cell of the footprint
	Width    int        `json:"width"`
	Height   int        `json:"height"`

	State    BuildingState `json:"state"`
	Health   int           `json:"health"`   // 0–100 scale
	Progress int           `json:"progress"` // Construction 0–100

	// Settlement membership for non-city buildings.
	SettlementOf *BuildingID `json:"settlement_of,omitempty"`

	// Settlement block, populated when IsCity.
	IsCity        bool             `json:"is_city"`
	Name          string           `json:"name,omitempty"`
	Population    int              `json:"population,omitempty"`
	MaxPopulation int              `json:"max_population,omitempty"`
	FoodStock     int              `json:"food_stock,omitempty"`
	Queue         []ProductionItem `json:"queue,omitempty"`
	ClaimedTiles  []world.Cell     `json:"claimed_tiles,omitempty"`
	WorkedTiles   []world.Cell     `json:"worked_tiles,omitempty"`
}

// Footprint returns every cell the building covers.
func (b *Building) Footprint() []world.Cell {
	cells := make([]world.Cell, 0, b.Width*b.Height)
	for dy := 0; dy < b.Height; dy++ {
		for dx := 0; dx < b.Width; dx++ {
			cells = append(cells, world.Cell{X: b.Base.X + dx, Y: b.Base.Y + dy})
		}
	}
	return cells
}

// Standing reports whether the building still occupies the map.
func (b *Building) Standing() bool {
	return b.Health > 0 && b.State != BuildingDestroyed
}

// ApplyDamage subtracts health on the 0–100 scale and moves the building
// through the operational, damaged, destroyed states.
func (b *Building) ApplyDamage(dmg int) {
	b.Health = world.Clamp(b.Health-dmg, 0, 100)
	switch {
	case b.Health <= 0:
		b.State = BuildingDestroyed
	case b.Health <= 50:
		b.State = BuildingDamaged
	default:
		b.State = BuildingOperational
	}
}

// GrowthThreshold returns the food required for the settlement's next
// population point.
func (b *Building) GrowthThreshold() int {
	return b.Population * 15
}

// BuildingStateName returns a human-readable name for a building state.
func BuildingStateName(s BuildingState) string {
	switch s {
	case BuildingConstruction:
		return "construction"
	case BuildingOperational:
		return "operational"
	case BuildingDamaged:
		return "damaged"
	case BuildingDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
