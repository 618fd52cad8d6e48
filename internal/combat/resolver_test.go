package combat

import (
	"math/rand"
	"testing"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

func newBattlefield(t *testing.T, seed int64) (*Resolver, *entity.Store, *entity.Player, *entity.Player) {
	t.Helper()
	s := entity.NewStore(world.NewMap(10, 10), gamedata.MustLoadCatalog())
	p1, err := s.AddPlayer("alice", "solari")
	if err != nil {
		t.Fatalf("failed to add player: %v", err)
	}
	p2, err := s.AddPlayer("bob", "korrath")
	if err != nil {
		t.Fatalf("failed to add player: %v", err)
	}
	return NewResolver(s, rand.New(rand.NewSource(seed))), s, p1, p2
}

func TestAttackUnit_DamageWithinFormulaBounds(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 1)

	// warrior vs warrior on plains: attack 10 vs effective defense 10,
	// so damage = round(5 * f) for f in [0.8, 1.2), i.e. 4..6.
	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
	def, _ := s.PlaceUnit(p2.ID, "warrior", world.Cell{X: 2, Y: 3})

	for i := 0; i < 50; i++ {
		report, rej := r.AttackUnit(atk.ID, def.ID)
		if rej != nil {
			t.Fatalf("attack %d rejected: %v", i, rej)
		}
		if report.Damage < 4 || report.Damage > 6 {
			t.Fatalf("attack %d damage %d outside [4,6]", i, report.Damage)
		}
		// The surviving melee defender counters at 70% strength with no
		// terrain on the attacker: round(3.5 * f) = 3..4.
		if report.CounterDamage < 3 || report.CounterDamage > 4 {
			t.Fatalf("attack %d counter %d outside [3,4]", i, report.CounterDamage)
		}
		atk.Health, def.Health = 20, 20
		atk.HasActed = false
		atk.State = entity.UnitIdle
	}
}

func TestAttackUnit_RangedDefenderNeverCounters(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 2)

	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
	def, _ := s.PlaceUnit(p2.ID, "archer", world.Cell{X: 2, Y: 3})

	report, rej := r.AttackUnit(atk.ID, def.ID)
	if rej != nil {
		t.Fatalf("attack rejected: %v", rej)
	}
	if report.CounterDamage != 0 {
		t.Fatalf("ranged defender countered for %d", report.CounterDamage)
	}
	if atk.Health != 20 {
		t.Fatalf("attacker took damage without a counter: %d", atk.Health)
	}
}

func TestAttackUnit_DeadDefenderNeverCounters(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 3)

	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
	def, _ := s.PlaceUnit(p2.ID, "warrior", world.Cell{X: 2, Y: 3})
	def.Health = 1

	report, rej := r.AttackUnit(atk.ID, def.ID)
	if rej != nil {
		t.Fatalf("attack rejected: %v", rej)
	}
	if !report.DefenderKilled {
		t.Fatal("defender at 1 health survived")
	}
	if report.CounterDamage != 0 {
		t.Fatal("dead defender countered")
	}
	if s.Unit(def.ID) != nil {
		t.Fatal("killed unit still in store")
	}
	if s.UnitAt(world.Cell{X: 2, Y: 3}) != nil {
		t.Fatal("killed unit's cell still indexed")
	}
}

func TestAttackUnit_TerrainRaisesEffectiveDefense(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 4)
	s.Map.TileAt(2, 3).Terrain = world.TerrainHill

	// Hill grants +50% defense: effective defense 15, so damage =
	// round(4 * f) = 3..5.
	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
	def, _ := s.PlaceUnit(p2.ID, "warrior", world.Cell{X: 2, Y: 3})

	for i := 0; i < 50; i++ {
		report, rej := r.AttackUnit(atk.ID, def.ID)
		if rej != nil {
			t.Fatalf("attack %d rejected: %v", i, rej)
		}
		if report.Damage < 3 || report.Damage > 5 {
			t.Fatalf("attack %d damage %d outside [3,5]", i, report.Damage)
		}
		atk.Health, def.Health = 20, 20
		atk.HasActed = false
		atk.State = entity.UnitIdle
	}
}

func TestAttackUnit_CounterCanKillAttacker(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 5)

	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
	if _, rej := s.PlaceUnit(p2.ID, "spearman", world.Cell{X: 2, Y: 3}); rej != nil {
		t.Fatalf("placement rejected: %v", rej)
	}
	atk.Health = 1

	def := s.UnitAt(world.Cell{X: 2, Y: 3})
	report, rej := r.AttackUnit(atk.ID, def.ID)
	if rej != nil {
		t.Fatalf("attack rejected: %v", rej)
	}
	if report.DefenderKilled {
		t.Fatal("spearman at full health died to one blow")
	}
	if !report.AttackerKilled {
		t.Fatalf("attacker at 1 health survived counter of %d", report.CounterDamage)
	}
	if s.Unit(atk.ID) != nil {
		t.Fatal("killed attacker still in store")
	}
}

func TestAttackUnit_Preconditions(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 6)

	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
	ally, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 3})
	far, _ := s.PlaceUnit(p2.ID, "warrior", world.Cell{X: 5, Y: 5})
	worker, _ := s.PlaceUnit(p1.ID, "worker", world.Cell{X: 3, Y: 2})
	near, _ := s.PlaceUnit(p2.ID, "warrior", world.Cell{X: 1, Y: 2})

	if _, rej := r.AttackUnit(atk.ID, ally.ID); rej == nil || rej.Reason != entity.ReasonSamePlayer {
		t.Fatalf("expected same_player, got %v", rej)
	}
	if _, rej := r.AttackUnit(atk.ID, far.ID); rej == nil || rej.Reason != entity.ReasonOutOfRange {
		t.Fatalf("expected out_of_range, got %v", rej)
	}
	if _, rej := r.AttackUnit(worker.ID, near.ID); rej == nil || rej.Reason != entity.ReasonInvalidTarget {
		t.Fatalf("expected invalid_target for worker, got %v", rej)
	}

	atk.HasActed = true
	if _, rej := r.AttackUnit(atk.ID, near.ID); rej == nil || rej.Reason != entity.ReasonAlreadyActed {
		t.Fatalf("expected already_acted, got %v", rej)
	}
}

func TestAttackUnit_RangedReachesAcrossGap(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 7)

	archer, _ := s.PlaceUnit(p1.ID, "archer", world.Cell{X: 2, Y: 2})
	def, _ := s.PlaceUnit(p2.ID, "warrior", world.Cell{X: 2, Y: 4})

	report, rej := r.AttackUnit(archer.ID, def.ID)
	if rej != nil {
		t.Fatalf("ranged attack at distance 2 rejected: %v", rej)
	}
	if report.CounterDamage != 0 {
		t.Fatal("defender countered outside melee reach")
	}
}

func TestAttackBuilding_StateTransitions(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 8)

	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
	b, rej := s.PlaceBuilding(p2.ID, "granary", world.Cell{X: 2, Y: 3})
	if rej != nil {
		t.Fatalf("placement rejected: %v", rej)
	}

	// warrior vs building: round(10 * 1.5 * f) = 12..18.
	report, rej := r.AttackBuilding(atk.ID, b.ID)
	if rej != nil {
		t.Fatalf("attack rejected: %v", rej)
	}
	if report.Damage < 12 || report.Damage > 18 {
		t.Fatalf("building damage %d outside [12,18]", report.Damage)
	}
	if b.Health != 100-report.Damage {
		t.Fatalf("health %d after %d damage", b.Health, report.Damage)
	}
	if b.State != entity.BuildingOperational {
		t.Fatalf("expected operational above 50 health, got %s", entity.BuildingStateName(b.State))
	}
	if atk.Health != 20 {
		t.Fatal("building countered")
	}

	b.Health = 51
	atk.HasActed = false
	if report, _ = r.AttackBuilding(atk.ID, b.ID); b.State != entity.BuildingDamaged {
		t.Fatalf("expected damaged at %d health, got %s", b.Health, entity.BuildingStateName(b.State))
	}

	b.Health = 10
	atk.HasActed = false
	report, rej = r.AttackBuilding(atk.ID, b.ID)
	if rej != nil {
		t.Fatalf("final attack rejected: %v", rej)
	}
	if !report.Destroyed || report.State != entity.BuildingDestroyed {
		t.Fatalf("expected destruction at 10 health, report %+v", report)
	}
	if s.Building(b.ID) != nil {
		t.Fatal("destroyed building still in store")
	}
	if s.BuildingAt(world.Cell{X: 2, Y: 3}) != nil {
		t.Fatal("destroyed building's footprint still indexed")
	}
}

func TestAttackBuilding_FootprintDistance(t *testing.T) {
	r, s, p1, p2 := newBattlefield(t, 9)

	// temple covers (5,5)..(6,6); a melee unit at (4,5) touches the
	// near edge even though the anchor is 1 away and the far corner 3.
	atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 4, Y: 5})
	b, rej := s.PlaceBuilding(p2.ID, "temple", world.Cell{X: 5, Y: 5})
	if rej != nil {
		t.Fatalf("placement rejected: %v", rej)
	}

	if _, rej := r.AttackBuilding(atk.ID, b.ID); rej != nil {
		t.Fatalf("edge attack rejected: %v", rej)
	}
}

func TestRollDamage_FlooredAtOne(t *testing.T) {
	r, _, _, _ := newBattlefield(t, 10)

	for i := 0; i < 20; i++ {
		if dmg := r.rollDamage(1, 100); dmg != 1 {
			t.Fatalf("expected floor of 1, got %d", dmg)
		}
	}
}

func TestAttackUnit_DeterministicUnderFixedSeed(t *testing.T) {
	run := func() []int {
		r, s, p1, p2 := newBattlefield(t, 99)
		atk, _ := s.PlaceUnit(p1.ID, "warrior", world.Cell{X: 2, Y: 2})
		def, _ := s.PlaceUnit(p2.ID, "warrior", world.Cell{X: 2, Y: 3})
		var out []int
		for i := 0; i < 10; i++ {
			report, rej := r.AttackUnit(atk.ID, def.ID)
			if rej != nil {
				t.Fatalf("attack rejected: %v", rej)
			}
			out = append(out, report.Damage, report.CounterDamage)
			atk.Health, def.Health = 20, 20
			atk.HasActed = false
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("roll %d diverged under identical seed: %d vs %d", i, a[i], b[i])
		}
	}
}
