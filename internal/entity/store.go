package entity

import (
	"fmt"

	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// Store is the sole owner of live game records. Every lookup goes through
// its id and position indexes; other components receive ids or references
// and never cache copies across a turn boundary.
type Store struct {
	Map     *world.Map
	Catalog *gamedata.Catalog

	units     map[UnitID]*Unit
	buildings map[BuildingID]*Building
	players   map[PlayerID]*Player

	unitByCell     map[world.Cell]UnitID
	buildingByCell map[world.Cell]BuildingID

	// Insertion-order id slices keep enumeration deterministic; Go map
	// iteration order is not.
	unitOrder     []UnitID
	buildingOrder []BuildingID
	playerOrder   []PlayerID

	nextUnitID     UnitID
	nextBuildingID BuildingID
	nextPlayerID   PlayerID
}

// NewStore creates an empty store over a generated map and loaded catalog.
func NewStore(m *world.Map, catalog *gamedata.Catalog) *Store {
	return &Store{
		Map:            m,
		Catalog:        catalog,
		units:          make(map[UnitID]*Unit),
		buildings:      make(map[BuildingID]*Building),
		players:        make(map[PlayerID]*Player),
		unitByCell:     make(map[world.Cell]UnitID),
		buildingByCell: make(map[world.Cell]BuildingID),
	}
}

// AddPlayer registers a player with faction starting resources and the
// faction's starting technology already researched.
func (s *Store) AddPlayer(name, factionID string) (*Player, error) {
	f := s.Catalog.Factions.GetByID(factionID)
	if f == nil {
		return nil, fmt.Errorf("unknown faction %s", factionID)
	}

	s.nextPlayerID++
	p := &Player{
		ID:              s.nextPlayerID,
		Name:            name,
		FactionID:       factionID,
		Food:            f.StartingFood,
		Production:      f.StartingProduction,
		Faith:           f.StartingFaith,
		ResearchedTechs: make(map[string]bool),
	}
	if f.StartingTech != "" {
		p.ResearchedTechs[f.StartingTech] = true
	}
	s.players[p.ID] = p
	s.playerOrder = append(s.playerOrder, p.ID)
	return p, nil
}

// Player returns the player with the given id, or nil.
func (s *Store) Player(id PlayerID) *Player {
	return s.players[id]
}

// Players returns all players in join order.
func (s *Store) Players() []*Player {
	out := make([]*Player, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		out = append(out, s.players[id])
	}
	return out
}

// Faction returns the faction definition for a player.
func (s *Store) Faction(id PlayerID) *gamedata.FactionDef {
	p := s.players[id]
	if p == nil {
		return nil
	}
	return s.Catalog.Factions.GetByID(p.FactionID)
}

// Unit returns the unit with the given id, or nil.
func (s *Store) Unit(id UnitID) *Unit {
	return s.units[id]
}

// UnitAt returns the unit occupying a cell, or nil.
func (s *Store) UnitAt(c world.Cell) *Unit {
	id, ok := s.unitByCell[c]
	if !ok {
		return nil
	}
	return s.units[id]
}

// Units returns all units in creation order.
func (s *Store) Units() []*Unit {
	out := make([]*Unit, 0, len(s.unitOrder))
	for _, id := range s.unitOrder {
		out = append(out, s.units[id])
	}
	return out
}

// PlayerUnits returns a player's units in creation order.
func (s *Store) PlayerUnits(pid PlayerID) []*Unit {
	var out []*Unit
	for _, id := range s.unitOrder {
		if u := s.units[id]; u.PlayerID == pid {
			out = append(out, u)
		}
	}
	return out
}

// UnitDef resolves a unit's static definition.
func (s *Store) UnitDef(u *Unit) *gamedata.UnitDef {
	d := s.Catalog.Units.GetByID(u.TypeID)
	if d == nil {
		panic(fmt.Sprintf("BUG: unit %d has unknown type %s", u.ID, u.TypeID))
	}
	return d
}

// Building returns the building with the given id, or nil.
func (s *Store) Building(id BuildingID) *Building {
	return s.buildings[id]
}

// BuildingAt returns the building whose footprint covers a cell, or nil.
func (s *Store) BuildingAt(c world.Cell) *Building {
	id, ok := s.buildingByCell[c]
	if !ok {
		return nil
	}
	return s.buildings[id]
}

// Buildings returns all buildings in creation order.
func (s *Store) Buildings() []*Building {
	out := make([]*Building, 0, len(s.buildingOrder))
	for _, id := range s.buildingOrder {
		out = append(out, s.buildings[id])
	}
	return out
}

// PlayerBuildings returns a player's buildings in creation order.
func (s *Store) PlayerBuildings(pid PlayerID) []*Building {
	var out []*Building
	for _, id := range s.buildingOrder {
		if b := s.buildings[id]; b.PlayerID == pid {
			out = append(out, b)
		}
	}
	return out
}

// Settlements returns a player's city centers in founding order.
func (s *Store) Settlements(pid PlayerID) []*Building {
	var out []*Building
	for _, id := range s.buildingOrder {
		if b := s.buildings[id]; b.PlayerID == pid && b.IsCity {
			out = append(out, b)
		}
	}
	return out
}

// SettlementMembers returns a city and the buildings attached to it, the
// city first, the rest in creation order.
func (s *Store) SettlementMembers(cityID BuildingID) []*Building {
	city := s.buildings[cityID]
	if city == nil || !city.IsCity {
		panic(fmt.Sprintf("BUG: building %d is not a settlement", cityID))
	}
	out := []*Building{city}
	for _, id := range s.buildingOrder {
		if b := s.buildings[id]; b.SettlementOf != nil && *b.SettlementOf == cityID {
			out = append(out, b)
		}
	}
	return out
}

// BuildingDef resolves a building's static definition.
func (s *Store) BuildingDef(b *Building) *gamedata.BuildingDef {
	d := s.Catalog.Buildings.GetByID(b.TypeID)
	if d == nil {
		panic(fmt.Sprintf("BUG: building %d has unknown type %s", b.ID, b.TypeID))
	}
	return d
}

// ValidateUnitPlacement checks that a single cell can take a new unit:
// in bounds, walkable terrain, no unit present, no hostile building.
// Friendly building cells stay open so units can garrison their own
// settlements.
func (s *Store) ValidateUnitPlacement(pid PlayerID, c world.Cell) *Rejection {
	if !s.Map.InBounds(c.X, c.Y) {
		return Reject(ReasonOutOfBounds, "cell (%d,%d)", c.X, c.Y)
	}
	if !s.Map.Walkable(c) {
		return Reject(ReasonImpassableTerrain, "cell (%d,%d)", c.X, c.Y)
	}
	if s.UnitAt(c) != nil {
		return Reject(ReasonOccupied, "unit at (%d,%d)", c.X, c.Y)
	}
	if b := s.BuildingAt(c); b != nil && b.PlayerID != pid {
		return Reject(ReasonOccupied, "hostile building at (%d,%d)", c.X, c.Y)
	}
	return nil
}

// PlaceUnit creates a unit of the given type at a cell. On rejection
// nothing is mutated.
func (s *Store) PlaceUnit(pid PlayerID, typeID string, at world.Cell) (*Unit, *Rejection) {
	def := s.Catalog.Units.GetByID(typeID)
	if def == nil {
		return nil, Reject(ReasonNotFound, "unit type %s", typeID)
	}
	if rej := s.ValidateUnitPlacement(pid, at); rej != nil {
		return nil, rej
	}

	s.nextUnitID++
	u := &Unit{
		ID:           s.nextUnitID,
		PlayerID:     pid,
		TypeID:       typeID,
		Position:     at,
		Health:       def.MaxHealth,
		MovementLeft: def.Movement,
		State:        UnitIdle,
	}
	s.units[u.ID] = u
	s.unitOrder = append(s.unitOrder, u.ID)
	s.unitByCell[at] = u.ID
	return u, nil
}

// MoveUnit reindexes a unit to a new cell. Path legality is the caller's
// concern; the destination must still be placeable.
func (s *Store) MoveUnit(id UnitID, to world.Cell) *Rejection {
	u := s.units[id]
	if u == nil {
		return Reject(ReasonNotFound, "unit %d", id)
	}
	if to == u.Position {
		return nil
	}
	if rej := s.ValidateUnitPlacement(u.PlayerID, to); rej != nil {
		return rej
	}
	s.unindexUnit(u)
	u.Position = to
	s.unitByCell[to] = u.ID
	return nil
}

// RemoveUnit deletes a unit and frees its cell. Calling it twice for the
// same id is an engine defect.
func (s *Store) RemoveUnit(id UnitID) {
	u := s.units[id]
	if u == nil {
		panic(fmt.Sprintf("BUG: removing unknown unit %d", id))
	}
	s.unindexUnit(u)
	delete(s.units, id)
	s.unitOrder = removeID(s.unitOrder, id)
}

func (s *Store) unindexUnit(u *Unit) {
	cur, ok := s.unitByCell[u.Position]
	if !ok || cur != u.ID {
		panic(fmt.Sprintf("BUG: unit %d not indexed at (%d,%d)", u.ID, u.Position.X, u.Position.Y))
	}
	delete(s.unitByCell, u.Position)
}

// ValidateBuildingPlacement checks a building footprint cell by cell:
// every cell in bounds, walkable, and free of other buildings. Units do
// not block placement; they end up garrisoned.
func (s *Store) ValidateBuildingPlacement(def *gamedata.BuildingDef, base world.Cell) *Rejection {
	for _, c := range def.FootprintCells(base) {
		if !s.Map.InBounds(c.X, c.Y) {
			return Reject(ReasonOutOfBounds, "footprint cell (%d,%d)", c.X, c.Y)
		}
		if !s.Map.Walkable(c) {
			return Reject(ReasonImpassableTerrain, "footprint cell (%d,%d)", c.X, c.Y)
		}
		if s.BuildingAt(c) != nil {
			return Reject(ReasonOccupied, "footprint cell (%d,%d)", c.X, c.Y)
		}
	}
	return nil
}

// PlaceBuilding creates a completed building anchored at base. On
// rejection nothing is mutated.
func (s *Store) PlaceBuilding(pid PlayerID, typeID string, base world.Cell) (*Building, *Rejection) {
	def := s.Catalog.Buildings.GetByID(typeID)
	if def == nil {
		return nil, Reject(ReasonNotFound, "building type %s", typeID)
	}
	if rej := s.ValidateBuildingPlacement(def, base); rej != nil {
		return nil, rej
	}

	s.nextBuildingID++
	b := &Building{
		ID:       s.nextBuildingID,
		PlayerID: pid,
		TypeID:   typeID,
		Base:     base,
		Width:    def.Width,
		Height:   def.Height,
		State:    BuildingOperational,
		Health:   100,
		Progress: 100,
	}
	s.indexBuilding(b)
	return b, nil
}

// FoundCity creates a settlement at base and claims its starting
// territory: the center tile plus unclaimed orthogonal neighbors.
func (s *Store) FoundCity(pid PlayerID, base world.Cell, name string) (*Building, *Rejection) {
	def := s.Catalog.Buildings.GetByID(CityCenterType)
	if def == nil {
		panic("BUG: catalog has no city_center building")
	}
	if rej := s.ValidateBuildingPlacement(def, base); rej != nil {
		return nil, rej
	}
	if t := s.Map.Tile(base); t.Claimed() {
		return nil, Reject(ReasonOccupied, "tile (%d,%d) is claimed territory", base.X, base.Y)
	}

	s.nextBuildingID++
	city := &Building{
		ID:            s.nextBuildingID,
		PlayerID:      pid,
		TypeID:        CityCenterType,
		Base:          base,
		Width:         def.Width,
		Height:        def.Height,
		State:         BuildingOperational,
		Health:        100,
		Progress:      100,
		IsCity:        true,
		Name:          name,
		Population:    1,
		MaxPopulation: DefaultMaxPopulation,
	}
	s.indexBuilding(city)

	s.ClaimTile(city, base)
	for _, nc := range base.Neighbors() {
		s.ClaimTile(city, nc)
	}
	return city, nil
}

func (s *Store) indexBuilding(b *Building) {
	s.buildings[b.ID] = b
	s.buildingOrder = append(s.buildingOrder, b.ID)
	for _, c := range b.Footprint() {
		if prev, ok := s.buildingByCell[c]; ok {
			panic(fmt.Sprintf("BUG: cell (%d,%d) already indexed to building %d", c.X, c.Y, prev))
		}
		s.buildingByCell[c] = b.ID
	}
}

// RemoveBuilding deletes a building and frees its footprint. Destroying a
// city also removes its member buildings and releases its territory.
func (s *Store) RemoveBuilding(id BuildingID) {
	b := s.buildings[id]
	if b == nil {
		panic(fmt.Sprintf("BUG: removing unknown building %d", id))
	}

	if b.IsCity {
		for _, other := range s.Buildings() {
			if other.SettlementOf != nil && *other.SettlementOf == id {
				s.RemoveBuilding(other.ID)
			}
		}
		for _, c := range b.ClaimedTiles {
			if t := s.Map.Tile(c); t != nil {
				t.OwnerID = nil
				t.SettlementID = nil
			}
		}
	}

	for _, c := range b.Footprint() {
		cur, ok := s.buildingByCell[c]
		if !ok || cur != b.ID {
			panic(fmt.Sprintf("BUG: building %d not indexed at (%d,%d)", b.ID, c.X, c.Y))
		}
		delete(s.buildingByCell, c)
	}
	delete(s.buildings, id)
	s.buildingOrder = removeID(s.buildingOrder, id)
}

// ClaimTile assigns an unclaimed tile to a settlement's territory.
// Returns false when the tile is out of bounds or already claimed.
func (s *Store) ClaimTile(city *Building, c world.Cell) bool {
	t := s.Map.Tile(c)
	if t == nil || t.Claimed() {
		return false
	}
	pid := city.PlayerID
	cid := city.ID
	t.OwnerID = &pid
	t.SettlementID = &cid
	city.ClaimedTiles = append(city.ClaimedTiles, c)
	return true
}

// FindSpawnCell returns the nearest free placeable cell to a settlement,
// scanning rings of increasing Manhattan distance in a fixed order so
// spawning stays deterministic.
func (s *Store) FindSpawnCell(city *Building) (world.Cell, bool) {
	if s.ValidateUnitPlacement(city.PlayerID, city.Base) == nil {
		return city.Base, true
	}
	for r := 1; r <= 3; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if world.Abs(dx)+world.Abs(dy) != r {
					continue
				}
				c := world.Cell{X: city.Base.X + dx, Y: city.Base.Y + dy}
				if s.ValidateUnitPlacement(city.PlayerID, c) == nil {
					return c, true
				}
			}
		}
	}
	return world.Cell{}, false
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	panic(fmt.Sprintf("BUG: id %d missing from order slice", id))
}
