package game

import (
	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// Event is a notable state change emitted by a command or a turn pass.
// The presentation layer consumes these; the engine never reads them
// back.
type Event interface {
	Kind() string
}

// UnitMoved reports a completed move with the path taken.
type UnitMoved struct {
	UnitID   entity.UnitID   `json:"unit_id"`
	PlayerID entity.PlayerID `json:"player_id"`
	From     world.Cell      `json:"from"`
	To       world.Cell      `json:"to"`
	Path     []world.Cell    `json:"path"`
	Cost     int             `json:"cost"`
}

func (UnitMoved) Kind() string { return "unit_moved" }

// UnitAttacked reports a resolved unit attack, counter included.
type UnitAttacked struct {
	AttackerID     entity.UnitID `json:"attacker_id"`
	DefenderID     entity.UnitID `json:"defender_id"`
	Damage         int           `json:"damage"`
	CounterDamage  int           `json:"counter_damage"`
	AttackerKilled bool          `json:"attacker_killed"`
	DefenderKilled bool          `json:"defender_killed"`
}

func (UnitAttacked) Kind() string { return "unit_attacked" }

// BuildingAttacked reports damage to a building, destruction included.
type BuildingAttacked struct {
	AttackerID entity.UnitID        `json:"attacker_id"`
	BuildingID entity.BuildingID    `json:"building_id"`
	Damage     int                  `json:"damage"`
	State      entity.BuildingState `json:"state"`
	Destroyed  bool                 `json:"destroyed"`
}

func (BuildingAttacked) Kind() string { return "building_attacked" }

// UnitCreated reports a new unit entering play.
type UnitCreated struct {
	UnitID   entity.UnitID   `json:"unit_id"`
	PlayerID entity.PlayerID `json:"player_id"`
	TypeID   string          `json:"type_id"`
	At       world.Cell      `json:"at"`
}

func (UnitCreated) Kind() string { return "unit_created" }

// CityFounded reports a settler consuming itself into a new settlement.
type CityFounded struct {
	SettlementID entity.BuildingID `json:"settlement_id"`
	PlayerID     entity.PlayerID   `json:"player_id"`
	Name         string            `json:"name"`
	At           world.Cell        `json:"at"`
}

func (CityFounded) Kind() string { return "city_founded" }

// CityGrew reports a settlement crossing its growth threshold.
type CityGrew struct {
	SettlementID entity.BuildingID `json:"settlement_id"`
	Population   int               `json:"population"`
}

func (CityGrew) Kind() string { return "city_grew" }

// ProductionCompleted reports a queue head finishing.
type ProductionCompleted struct {
	SettlementID entity.BuildingID     `json:"settlement_id"`
	ItemKind     entity.ProductionKind `json:"item_kind"`
	TypeID       string                `json:"type_id"`
	UnitID       entity.UnitID         `json:"unit_id,omitempty"`
	BuildingID   entity.BuildingID     `json:"building_id,omitempty"`
}

func (ProductionCompleted) Kind() string { return "production_completed" }

// TerritoryExpanded reports a settlement claiming an adjacent tile.
type TerritoryExpanded struct {
	SettlementID entity.BuildingID `json:"settlement_id"`
	Cell         world.Cell        `json:"cell"`
}

func (TerritoryExpanded) Kind() string { return "territory_expanded" }

// ResourceDepleted reports a worked tile running out of its resource.
type ResourceDepleted struct {
	SettlementID entity.BuildingID `json:"settlement_id"`
	Cell         world.Cell        `json:"cell"`
}

func (ResourceDepleted) Kind() string { return "resource_depleted" }

// ImprovementBuilt reports a worker finishing a tile improvement.
type ImprovementBuilt struct {
	UnitID      entity.UnitID         `json:"unit_id"`
	Cell        world.Cell            `json:"cell"`
	Improvement world.ImprovementKind `json:"improvement"`
}

func (ImprovementBuilt) Kind() string { return "improvement_built" }

// ProductionQueued reports an item joining a settlement's queue.
type ProductionQueued struct {
	SettlementID entity.BuildingID     `json:"settlement_id"`
	ItemKind     entity.ProductionKind `json:"item_kind"`
	TypeID       string                `json:"type_id"`
	Cost         int                   `json:"cost"`
}

func (ProductionQueued) Kind() string { return "production_queued" }

// ResearchStarted reports faith spent on a new research slot.
type ResearchStarted struct {
	PlayerID entity.PlayerID `json:"player_id"`
	TechID   string          `json:"tech_id"`
}

func (ResearchStarted) Kind() string { return "research_started" }

// TechResearched reports a completed research with its unlock set.
type TechResearched struct {
	PlayerID          entity.PlayerID `json:"player_id"`
	TechID            string          `json:"tech_id"`
	UnlockedUnits     []string        `json:"unlocked_units,omitempty"`
	UnlockedBuildings []string        `json:"unlocked_buildings,omitempty"`
	UnlockedAbilities []string        `json:"unlocked_abilities,omitempty"`
}

func (TechResearched) Kind() string { return "tech_researched" }

// ResourcesUpdated reports a player's stockpiles after a change.
type ResourcesUpdated struct {
	PlayerID   entity.PlayerID `json:"player_id"`
	Food       int             `json:"food"`
	Production int             `json:"production"`
	Faith      int             `json:"faith"`
	Income     world.Yield     `json:"income"`
}

func (ResourcesUpdated) Kind() string { return "resources_updated" }

// PlayerEliminated reports a player dropping out of the game.
type PlayerEliminated struct {
	PlayerID entity.PlayerID `json:"player_id"`
}

func (PlayerEliminated) Kind() string { return "player_eliminated" }

// TurnAdvanced reports control passing to the next player.
type TurnAdvanced struct {
	Turn           int             `json:"turn"`
	ActivePlayerID entity.PlayerID `json:"active_player_id"`
}

func (TurnAdvanced) Kind() string { return "turn_advanced" }

// GameOver reports the end of the game: a winner, or a draw at the
// turn cap.
type GameOver struct {
	WinnerID *entity.PlayerID `json:"winner_id,omitempty"`
	Draw     bool             `json:"draw"`
}

func (GameOver) Kind() string { return "game_over" }
