package gamedata

import (
	"testing"

	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	if c.Units.Count() == 0 {
		t.Fatal("no units loaded")
	}
	if c.Factions.Count() != 4 {
		t.Fatalf("expected 4 factions, got %d", c.Factions.Count())
	}

	// Every faction's references must resolve (validate already enforces
	// this; spot-check the shape of what came back).
	warrior := c.Units.GetByID("warrior")
	if warrior == nil {
		t.Fatal("warrior not found by ID")
	}
	if warrior.Attack != 10 || warrior.Defense != 10 {
		t.Fatalf("warrior stats wrong: %+v", warrior)
	}
	if !warrior.IsMelee() {
		t.Fatal("warrior should be melee")
	}

	archer := c.Units.GetByID("archer")
	if archer == nil || archer.IsMelee() {
		t.Fatal("archer should have range > 0")
	}
}

func TestUnitAbilities(t *testing.T) {
	c := MustLoadCatalog()
	settler := c.Units.GetByID("settler")
	if settler == nil || !settler.HasAbility(AbilityFoundCity) {
		t.Fatal("settler should carry found_city")
	}
	if settler.IsCombatant() {
		t.Fatal("settler should not be a combatant")
	}
	worker := c.Units.GetByID("worker")
	if worker == nil || !worker.HasAbility(AbilityBuildImprovement) {
		t.Fatal("worker should carry build_improvement")
	}
}

func TestTechGraphValid(t *testing.T) {
	c := MustLoadCatalog()
	bw := c.Techs.GetByID("bronze_working")
	if bw == nil {
		t.Fatal("bronze_working not found")
	}
	if len(bw.Prereqs) != 1 || bw.Prereqs[0] != "agriculture" {
		t.Fatalf("bronze_working prereqs wrong: %v", bw.Prereqs)
	}
}

func TestTechRegistry_RejectsCycle(t *testing.T) {
	techs := []TechDef{
		{ID: "a", Prereqs: []string{"b"}},
		{ID: "b", Prereqs: []string{"a"}},
	}
	if _, err := NewTechRegistry(techs); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestTechRegistry_RejectsUnknownPrereq(t *testing.T) {
	techs := []TechDef{{ID: "a", Prereqs: []string{"missing"}}}
	if _, err := NewTechRegistry(techs); err == nil {
		t.Fatal("expected unknown prereq error")
	}
}

func TestFactionDiscounts(t *testing.T) {
	f := &FactionDef{UnitDiscountPct: 20, TechDiscountPct: 50}
	// 20% off 25 = 20.
	if got := f.DiscountedUnitCost(25); got != 20 {
		t.Fatalf("unit cost = %d, want 20", got)
	}
	// 50% off 30 = 15.
	if got := f.DiscountedTechCost(30); got != 15 {
		t.Fatalf("tech cost = %d, want 15", got)
	}
	// No discount passes through.
	if got := f.DiscountedBuildingCost(40); got != 40 {
		t.Fatalf("building cost = %d, want 40", got)
	}
	// Discounts never push a cost below 1.
	steep := &FactionDef{UnitDiscountPct: 100}
	if got := steep.DiscountedUnitCost(10); got != 1 {
		t.Fatalf("floored cost = %d, want 1", got)
	}
}

func TestFootprintCells(t *testing.T) {
	d := &BuildingDef{ID: "temple", Width: 2, Height: 2}
	cells := d.FootprintCells(world.Cell{X: 3, Y: 4})
	if len(cells) != 4 {
		t.Fatalf("expected 4 footprint cells, got %d", len(cells))
	}
	want := map[[2]int]bool{{3, 4}: true, {4, 4}: true, {3, 5}: true, {4, 5}: true}
	for _, c := range cells {
		if !want[[2]int{c.X, c.Y}] {
			t.Fatalf("unexpected footprint cell %v", c)
		}
	}
}
