package gamedata

import (
	"errors"
	"fmt"
)

// UnitRegistry holds loaded unit definitions keyed by ID.
type UnitRegistry struct {
	byID map[string]*UnitDef
	all  []UnitDef
}

// NewUnitRegistry creates a registry from loaded unit definitions.
func NewUnitRegistry(units []UnitDef) *UnitRegistry {
	r := &UnitRegistry{byID: make(map[string]*UnitDef, len(units)), all: units}
	for i := range r.all {
		r.byID[r.all[i].ID] = &r.all[i]
	}
	return r
}

// GetByID returns the unit definition with the given ID, or nil.
func (r *UnitRegistry) GetByID(id string) *UnitDef { return r.byID[id] }

// All returns all unit definitions in file order.
func (r *UnitRegistry) All() []UnitDef { return r.all }

// Count returns the number of unit types in the registry.
func (r *UnitRegistry) Count() int { return len(r.all) }

// BuildingRegistry holds loaded building definitions keyed by ID.
type BuildingRegistry struct {
	byID map[string]*BuildingDef
	all  []BuildingDef
}

// NewBuildingRegistry creates a registry from loaded building definitions.
func NewBuildingRegistry(buildings []BuildingDef) *BuildingRegistry {
	r := &BuildingRegistry{byID: make(map[string]*BuildingDef, len(buildings)), all: buildings}
	for i := range r.all {
		r.byID[r.all[i].ID] = &r.all[i]
	}
	return r
}

// GetByID returns the building definition with the given ID, or nil.
func (r *BuildingRegistry) GetByID(id string) *BuildingDef { return r.byID[id] }

// All returns all building definitions in file order.
func (r *BuildingRegistry) All() []BuildingDef { return r.all }

// Count returns the number of building types in the registry.
func (r *BuildingRegistry) Count() int { return len(r.all) }

// TechRegistry holds loaded technology definitions keyed by ID.
type TechRegistry struct {
	byID map[string]*TechDef
	all  []TechDef
}

// NewTechRegistry creates a registry and validates the prerequisite graph:
// every prerequisite must exist and the graph must be acyclic.
func NewTechRegistry(techs []TechDef) (*TechRegistry, error) {
	r := &TechRegistry{byID: make(map[string]*TechDef, len(techs)), all: techs}
	for i := range r.all {
		r.byID[r.all[i].ID] = &r.all[i]
	}

	for _, t := range r.all {
		for _, p := range t.Prereqs {
			if r.byID[p] == nil {
				return nil, fmt.Errorf("tech %s requires unknown tech %s", t.ID, p)
			}
		}
	}
	if err := r.checkAcyclic(); err != nil {
		return nil, err
	}
	return r, nil
}

// checkAcyclic walks the prerequisite graph depth-first looking for cycles.
func (r *TechRegistry) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(r.all))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("tech prerequisite cycle through %s", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, p := range r.byID[id].Prereqs {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, t := range r.all {
		if err := visit(t.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns the technology definition with the given ID, or nil.
func (r *TechRegistry) GetByID(id string) *TechDef { return r.byID[id] }

// All returns all technology definitions in file order.
func (r *TechRegistry) All() []TechDef { return r.all }

// Count returns the number of technologies in the registry.
func (r *TechRegistry) Count() int { return len(r.all) }

// FactionRegistry holds loaded faction definitions keyed by ID.
type FactionRegistry struct {
	byID map[string]*FactionDef
	all  []FactionDef
}

// NewFactionRegistry creates a registry from loaded faction definitions.
func NewFactionRegistry(factions []FactionDef) *FactionRegistry {
	r := &FactionRegistry{byID: make(map[string]*FactionDef, len(factions)), all: factions}
	for i := range r.all {
		r.byID[r.all[i].ID] = &r.all[i]
	}
	return r
}

// GetByID returns the faction definition with the given ID, or nil.
func (r *FactionRegistry) GetByID(id string) *FactionDef { return r.byID[id] }

// All returns all faction definitions in file order.
func (r *FactionRegistry) All() []FactionDef { return r.all }

// Count returns the number of factions in the registry.
func (r *FactionRegistry) Count() int { return len(r.all) }

// Catalog bundles the four registries and guarantees the references
// between them resolve.
type Catalog struct {
	Units     *UnitRegistry
	Buildings *BuildingRegistry
	Techs     *TechRegistry
	Factions  *FactionRegistry
}

// LoadCatalog loads all embedded game data and cross-validates it.
func LoadCatalog() (*Catalog, error) {
	units, err := LoadUnits()
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, errors.New("no units loaded from units.json")
	}
	buildings, err := LoadBuildings()
	if err != nil {
		return nil, err
	}
	techs, err := LoadTechs()
	if err != nil {
		return nil, err
	}
	factions, err := LoadFactions()
	if err != nil {
		return nil, err
	}
	if len(factions) == 0 {
		return nil, errors.New("no factions loaded from factions.json")
	}

	techReg, err := NewTechRegistry(techs)
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		Units:     NewUnitRegistry(units),
		Buildings: NewBuildingRegistry(buildings),
		Techs:     techReg,
		Factions:  NewFactionRegistry(factions),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustLoadCatalog loads the catalog, panicking on error.
func MustLoadCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// validate checks that every cross-registry reference resolves.
func (c *Catalog) validate() error {
	for _, t := range c.Techs.All() {
		for _, id := range t.UnlocksUnits {
			if c.Units.GetByID(id) == nil {
				return fmt.Errorf("tech %s unlocks unknown unit %s", t.ID, id)
			}
		}
		for _, id := range t.UnlocksBuildings {
			if c.Buildings.GetByID(id) == nil {
				return fmt.Errorf("tech %s unlocks unknown building %s", t.ID, id)
			}
		}
	}
	for _, f := range c.Factions.All() {
		if f.StartingTech != "" && c.Techs.GetByID(f.StartingTech) == nil {
			return fmt.Errorf("faction %s starts with unknown tech %s", f.ID, f.StartingTech)
		}
		for _, id := range f.UniqueUnits {
			if c.Units.GetByID(id) == nil {
				return fmt.Errorf("faction %s lists unknown unique unit %s", f.ID, id)
			}
		}
		for _, id := range f.UniqueBuildings {
			if c.Buildings.GetByID(id) == nil {
				return fmt.Errorf("faction %s lists unknown unique building %s", f.ID, id)
			}
		}
	}
	return nil
}
