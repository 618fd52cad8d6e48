// Package combat resolves unit-versus-unit and unit-versus-building
// attacks. Resolution is randomized within fixed bounds; all randomness
// flows through the rng handed to the resolver so battles replay
// identically under a fixed seed.
package combat

import (
	"math"
	"math/rand"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/gamedata"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// counterStrength scales a surviving melee defender's return blow.
const counterStrength = 0.7

// buildingDamageScale converts unit attack onto the 0-100 building
// health scale.
const buildingDamageScale = 1.5

// Resolver applies combat against the live store.
type Resolver struct {
	store *entity.Store
	rng   *rand.Rand
}

// NewResolver creates a resolver drawing random factors from rng.
func NewResolver(store *entity.Store, rng *rand.Rand) *Resolver {
	return &Resolver{store: store, rng: rng}
}

// UnitReport describes one resolved unit attack.
type UnitReport struct {
	AttackerID     entity.UnitID
	DefenderID     entity.UnitID
	Damage         int
	CounterDamage  int
	AttackerKilled bool
	DefenderKilled bool
}

// BuildingReport describes one resolved building attack.
type BuildingReport struct {
	AttackerID entity.UnitID
	BuildingID entity.BuildingID
	Damage     int
	State      entity.BuildingState
	Destroyed  bool
}

// AttackUnit validates and resolves an attack by one unit on another.
// On success the attacker is marked as having acted and any killed unit
// is removed from the store.
func (r *Resolver) AttackUnit(attackerID, defenderID entity.UnitID) (*UnitReport, *entity.Rejection) {
	atk := r.store.Unit(attackerID)
	if atk == nil || !atk.Alive() {
		return nil, entity.Reject(entity.ReasonNotFound, "attacker %d", attackerID)
	}
	def := r.store.Unit(defenderID)
	if def == nil || !def.Alive() {
		return nil, entity.Reject(entity.ReasonNotFound, "defender %d", defenderID)
	}
	atkDef := r.store.UnitDef(atk)
	defDef := r.store.UnitDef(def)

	dist := world.Manhattan(atk.Position, def.Position)
	if rej := r.checkAttack(atk, atkDef, def.PlayerID, dist); rej != nil {
		return nil, rej
	}

	report := &UnitReport{AttackerID: attackerID, DefenderID: defenderID}

	// Terrain shields the defender: effective defense scales with the
	// defense bonus of the tile it stands on.
	effDef := float64(defDef.Defense) * (1 + r.terrainBonus(def.Position))
	report.Damage = r.rollDamage(float64(atkDef.Attack), effDef)
	def.Health -= report.Damage

	// A surviving melee defender strikes back, but only at an attacker
	// it can reach.
	if def.Health > 0 && defDef.IsMelee() && defDef.IsCombatant() && dist == 1 {
		counterAtk := float64(defDef.Attack) * counterStrength
		// Counter rolls against the attacker's raw defense, no terrain.
		report.CounterDamage = r.rollDamage(counterAtk, float64(atkDef.Defense))
		atk.Health -= report.CounterDamage
	}

	atk.HasActed = true
	atk.State = entity.UnitAttacking

	if def.Health <= 0 {
		report.DefenderKilled = true
		def.State = entity.UnitDead
		r.store.RemoveUnit(def.ID)
	}
	if atk.Health <= 0 {
		report.AttackerKilled = true
		atk.State = entity.UnitDead
		r.store.RemoveUnit(atk.ID)
	}
	return report, nil
}

// AttackBuilding validates and resolves an attack on a building.
// Buildings never counter-attack; a destroyed building is removed and
// its footprint freed.
func (r *Resolver) AttackBuilding(attackerID entity.UnitID, buildingID entity.BuildingID) (*BuildingReport, *entity.Rejection) {
	atk := r.store.Unit(attackerID)
	if atk == nil || !atk.Alive() {
		return nil, entity.Reject(entity.ReasonNotFound, "attacker %d", attackerID)
	}
	b := r.store.Building(buildingID)
	if b == nil || !b.Standing() {
		return nil, entity.Reject(entity.ReasonNotFound, "building %d", buildingID)
	}
	atkDef := r.store.UnitDef(atk)

	if rej := r.checkAttack(atk, atkDef, b.PlayerID, distanceToFootprint(atk.Position, b)); rej != nil {
		return nil, rej
	}

	report := &BuildingReport{AttackerID: attackerID, BuildingID: buildingID}
	report.Damage = r.rollDamage(float64(atkDef.Attack)*buildingDamageScale, 0)
	b.ApplyDamage(report.Damage)
	report.State = b.State

	atk.HasActed = true
	atk.State = entity.UnitAttacking

	if b.State == entity.BuildingDestroyed {
		report.Destroyed = true
		r.store.RemoveBuilding(b.ID)
	}
	return report, nil
}

func (r *Resolver) checkAttack(atk *entity.Unit, atkDef *gamedata.UnitDef, targetOwner entity.PlayerID, dist int) *entity.Rejection {
	if !atkDef.IsCombatant() {
		return entity.Reject(entity.ReasonInvalidTarget, "%s cannot attack", atkDef.ID)
	}
	if atk.HasActed {
		return entity.Reject(entity.ReasonAlreadyActed, "unit %d", atk.ID)
	}
	if atk.PlayerID == targetOwner {
		return entity.Reject(entity.ReasonSamePlayer, "unit %d", atk.ID)
	}
	if dist > attackRange(atkDef) {
		return entity.Reject(entity.ReasonOutOfRange, "distance %d exceeds range %d", dist, attackRange(atkDef))
	}
	return nil
}

// rollDamage computes round(attack * 10/(10+defense) * f) for a random
// factor f in [0.8, 1.2), floored at 1.
func (r *Resolver) rollDamage(attack, defense float64) int {
	factor := 0.8 + r.rng.Float64()*0.4
	dmg := int(math.Round(attack * 10 / (10 + defense) * factor))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

func (r *Resolver) terrainBonus(c world.Cell) float64 {
	return r.store.Map.TerrainOf(c.X, c.Y).DefenseBonus
}

// attackRange is the maximum Manhattan distance a unit can strike at.
// Melee units (range 0) reach adjacent cells only.
func attackRange(def *gamedata.UnitDef) int {
	if def.Range <= 0 {
		return 1
	}
	return def.Range
}

func distanceToFootprint(from world.Cell, b *entity.Building) int {
	best := math.MaxInt
	for _, c := range b.Footprint() {
		if d := world.Manhattan(from, c); d < best {
			best = d
		}
	}
	return best
}
