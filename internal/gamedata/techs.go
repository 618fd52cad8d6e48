package gamedata

// TechDef defines a researchable technology loaded from JSON.
type TechDef struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Cost    int      `json:"cost"` // Faith cost to start research
	Era     string   `json:"era"`  // Grouping tier, not a gameplay gate
	Prereqs []string `json:"prereqs,omitempty"`

	// Unlock sets: what becomes available once researched.
	UnlocksUnits     []string `json:"unlocksUnits,omitempty"`
	UnlocksBuildings []string `json:"unlocksBuildings,omitempty"`
	UnlocksAbilities []string `json:"unlocksAbilities,omitempty"`
}

// TechsFile represents the structure of techs.json.
type TechsFile struct {
	Techs []TechDef `json:"techs"`
}

// LoadTechs loads technology definitions from the embedded techs.json.
func LoadTechs() ([]TechDef, error) {
	file, err := Load[TechsFile]("techs.json")
	if err != nil {
		return nil, err
	}
	return file.Techs, nil
}
