package gamedata

// FactionDef defines one of the playable factions loaded from JSON.
// Modifiers are percentages applied at the point of cost or yield
// computation, never baked into base stats.
type FactionDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	StartingFood       int    `json:"startingFood"`
	StartingProduction int    `json:"startingProduction"`
	StartingFaith      int    `json:"startingFaith"`
	StartingTech       string `json:"startingTech,omitempty"` // Granted researched, prereq-free

	ProductionBonusPct  int `json:"productionBonusPct,omitempty"`
	UnitDiscountPct     int `json:"unitDiscountPct,omitempty"`
	BuildingDiscountPct int `json:"buildingDiscountPct,omitempty"`
	TechDiscountPct     int `json:"techDiscountPct,omitempty"`

	UniqueUnits     []string `json:"uniqueUnits,omitempty"`
	UniqueBuildings []string `json:"uniqueBuildings,omitempty"`
}

// DiscountedUnitCost applies the faction's unit discount to a base cost.
func (f *FactionDef) DiscountedUnitCost(base int) int {
	return discounted(base, f.UnitDiscountPct)
}

// DiscountedBuildingCost applies the faction's building discount.
func (f *FactionDef) DiscountedBuildingCost(base int) int {
	return discounted(base, f.BuildingDiscountPct)
}

// DiscountedTechCost applies the faction's research discount.
func (f *FactionDef) DiscountedTechCost(base int) int {
	return discounted(base, f.TechDiscountPct)
}

func discounted(base, pct int) int {
	c := base * (100 - pct) / 100
	if c < 1 {
		c = 1
	}
	return c
}

// FactionsFile represents the structure of factions.json.
type FactionsFile struct {
	Factions []FactionDef `json:"factions"`
}

// LoadFactions loads faction definitions from the embedded factions.json.
func LoadFactions() ([]FactionDef, error) {
	file, err := Load[FactionsFile]("factions.json")
	if err != nil {
		return nil, err
	}
	return file.Factions, nil
}
