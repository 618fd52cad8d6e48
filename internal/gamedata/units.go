package gamedata

// Ability tags a unit definition may carry.
const (
	AbilityFoundCity        = "found_city"
	AbilityBuildImprovement = "build_improvement"
)

// UnitDef defines a unit type loaded from JSON. Definitions are static:
// live units reference them by ID and never mutate them.
type UnitDef struct {
	ID        string   `json:"id"`        // Unique identifier (e.g. "warrior")
	Name      string   `json:"name"`      // Display name
	Attack    int      `json:"attack"`    // Base attack strength
	Defense   int      `json:"defense"`   // Base defense strength
	Movement  int      `json:"movement"`  // Movement allowance per turn
	MaxHealth int      `json:"maxHealth"` // Hit points when freshly trained
	Range     int      `json:"range"`     // Attack range in cells; 0 = melee
	Cost      int      `json:"cost"`      // Production cost
	Sight     int      `json:"sight"`     // Fog-of-war reveal radius
	Abilities []string `json:"abilities,omitempty"`
	Faction   string   `json:"faction,omitempty"` // Empty = available to all factions
}

// HasAbility reports whether the definition carries an ability tag.
func (d *UnitDef) HasAbility(tag string) bool {
	for _, a := range d.Abilities {
		if a == tag {
			return true
		}
	}
	return false
}

// IsMelee reports whether the unit counterattacks when defending.
func (d *UnitDef) IsMelee() bool {
	return d.Range == 0
}

// IsCombatant reports whether the unit can initiate an attack.
func (d *UnitDef) IsCombatant() bool {
	return d.Attack > 0
}

// UnitsFile represents the structure of units.json.
type UnitsFile struct {
	Units []UnitDef `json:"units"`
}

// LoadUnits loads unit definitions from the embedded units.json file.
func LoadUnits() ([]UnitDef, error) {
	file, err := Load[UnitsFile]("units.json")
	if err != nil {
		return nil, err
	}
	return file.Units, nil
}
