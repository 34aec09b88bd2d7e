// sim/projectile.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/mmp/talon/math"
	"github.com/mmp/talon/rand"
	"github.com/mmp/talon/util"
)

// Projectile is a single gun round. Its owner reference is weak and is
// never re-resolved for guidance; it only exempts the firer from its own
// rounds and attributes damage.
type Projectile struct {
	Position [3]float32
	Velocity [3]float32
	Owner    AircraftID
	Age      float32
	Lifetime float32
	Damage   float32
	// Tracer marks every Nth round for the renderer. It has no gameplay
	// effect; hit detection is identical for all rounds.
	Tracer bool
}

// fireGun spawns rounds for an aircraft holding the trigger this tick. The
// gun is rate-limited by rounds-per-minute; the cooldown is run as a timer
// that can go negative within a tick so that high fire rates survive low
// frame rates.
func (s *Sim) fireGun(id AircraftID, ac *Aircraft, dt float32) {
	interval := 60 / s.params.GunRPM
	ac.GunCooldown -= dt
	for ac.GunCooldown <= 0 {
		ac.GunCooldown += interval
		ac.RoundsFired++

		dir := sampleSpreadCone(ac.Forward(), s.params.GunSpread, s.gunRand)
		round := Projectile{
			Position: ac.Position,
			Velocity: math.Add3f(ac.Velocity, math.Scale3f(dir, s.params.GunMuzzleVelocity)),
			Owner:    id,
			Lifetime: s.params.GunRoundLifetime,
			Damage:   s.params.GunDamage,
			Tracer:   s.params.TracerInterval > 0 && ac.RoundsFired%s.params.TracerInterval == 0,
		}
		s.projectiles = appendBounded(s.projectiles, round, s.params.MaxProjectiles)
	}
}

// updateProjectiles advances all gun rounds and resolves their hits. A
// round is destroyed on lifetime expiry, terrain impact, or the first
// target found within the hit radius.
func (s *Sim) updateProjectiles(dt float32) {
	s.projectiles = util.FilterSliceInPlace(s.projectiles, func(pr *Projectile) bool {
		pr.Age += dt
		if pr.Age > pr.Lifetime {
			return false
		}
		pr.Position = math.Add3f(pr.Position, math.Scale3f(pr.Velocity, dt))

		if s.terrain.Collides(pr.Position) {
			return false
		}

		for targetID, target := range s.registry.All() {
			if !target.Alive || targetID == pr.Owner {
				continue
			}
			if math.Distance3f(pr.Position, target.Position) < s.params.GunHitRadius {
				s.eventStream.Post(Event{
					Type:     HitEvent,
					Aircraft: targetID,
					Source:   pr.Owner,
					Position: pr.Position,
					Weapon:   WeaponGun,
				})
				if target.ApplyDamage(pr.Damage, pr.Owner) {
					s.reportDestroyed(targetID, target, pr.Owner, CauseGunfire)
				}
				return false
			}
		}
		return true
	})
}

// sampleSpreadCone perturbs dir by a uniformly sampled offset within the
// given spread half-angle (in radians, small-angle treatment).
func sampleSpreadCone(dir [3]float32, spread float32, r *rand.Rand) [3]float32 {
	u := math.SafeNormalize3f(math.Cross3f(dir, worldUp), [3]float32{1, 0, 0})
	v := math.Cross3f(dir, u)

	phi := r.Float32In(0, 2*math.Pi())
	mag := spread * math.Sqrt(r.Float32())
	offset := math.Add3f(
		math.Scale3f(u, mag*math.Cos(phi)),
		math.Scale3f(v, mag*math.Sin(phi)))
	return math.SafeNormalize3f(math.Add3f(dir, offset), dir)
}
