// sim/missile.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/mmp/talon/math"
	"github.com/mmp/talon/util"
)

// Missile is a guided munition. Its velocity magnitude is held at the
// design speed once guidance begins; with no target it coasts at the last
// commanded heading until lifetime expiry.
type Missile struct {
	Position [3]float32
	Velocity [3]float32
	Owner    AircraftID
	Target   AircraftID
	Age      float32
	Armed    bool // true after the minimum travel distance
	Travel   float32

	// Each flare may defeat a given missile at most once; serials that
	// have already been rolled are recorded here and skipped thereafter.
	rolledFlares map[int32]struct{}

	prevAccelDir    [3]float32
	hasPrevAccelDir bool
	jinkCooldown    float32
}

// LockOn tracks the player's lock acquisition. A target is promoted to
// locked only after it has been continuously the best candidate for the
// full lock duration.
type LockOn struct {
	LockingTarget AircraftID
	LockedTarget  AircraftID
	Timer         float32
}

// Progress reports lock acquisition in [0, 1]. A locked target is always
// 1, regardless of accumulated float error in the timer.
func (l LockOn) Progress(p *Params) float32 {
	if l.LockedTarget.IsValid() {
		return 1
	}
	return math.Clamp(l.Timer/p.LockTime, 0, 1)
}

// updateLock runs the player's lock-on scan for one tick: qualify targets
// by range and forward cone, track the best-aligned candidate, and promote
// it once it has held best-candidacy for the full lock time.
func (s *Sim) updateLock(dt float32) {
	player, ok := s.registry.Get(s.player)
	if !ok || !player.Alive {
		s.clearLock()
		return
	}
	forward := player.Forward()
	minDot := math.Cos(s.params.LockConeAngle)

	best := NoAircraft
	bestDot := float32(-1)
	for id, ac := range s.registry.All() {
		if id == s.player || !ac.Alive {
			continue
		}
		to := math.Sub3f(ac.Position, player.Position)
		if math.Length3f(to) > s.params.LockRange {
			continue
		}
		dot := math.Dot3f(forward, math.SafeNormalize3f(to, forward))
		if dot >= minDot && dot > bestDot {
			best, bestDot = id, dot
		}
	}

	if !best.IsValid() {
		s.clearLock()
		return
	}

	if best != s.lock.LockingTarget {
		// Any change of best candidate resets progress to zero.
		s.lock.LockingTarget = best
		s.lock.Timer = 0
	}
	// The tick that acquires the candidate counts toward the lock, so a
	// 1.5 s lock completes after exactly 90 ticks at 60 Hz.
	s.lock.Timer += dt

	// A previously locked target that no longer qualifies is dropped even
	// though other qualifiers remain.
	if s.lock.LockedTarget.IsValid() && s.lock.LockedTarget != best {
		if !s.targetQualifies(player, s.lock.LockedTarget) {
			s.eventStream.Post(Event{Type: LockLostEvent, Aircraft: s.lock.LockedTarget, Source: s.player})
			s.lock.LockedTarget = NoAircraft
		}
	}

	// Tolerate float accumulation: 90 ticks of 1/60 s must reach a 1.5 s
	// lock time exactly.
	if s.lock.Timer+1e-4 >= s.params.LockTime && s.lock.LockedTarget != best {
		if s.lock.LockedTarget.IsValid() {
			// Handing the lock to a new target releases the old one.
			s.eventStream.Post(Event{Type: LockLostEvent, Aircraft: s.lock.LockedTarget, Source: s.player})
		}
		s.lock.LockedTarget = best
		s.eventStream.Post(Event{Type: LockAcquiredEvent, Aircraft: best, Source: s.player})
	}
}

func (s *Sim) targetQualifies(player *Aircraft, id AircraftID) bool {
	ac, ok := s.registry.Get(id)
	if !ok || !ac.Alive {
		return false
	}
	to := math.Sub3f(ac.Position, player.Position)
	if math.Length3f(to) > s.params.LockRange {
		return false
	}
	forward := player.Forward()
	return math.Dot3f(forward, math.SafeNormalize3f(to, forward)) >= math.Cos(s.params.LockConeAngle)
}

func (s *Sim) clearLock() {
	if s.lock.LockedTarget.IsValid() {
		s.eventStream.Post(Event{Type: LockLostEvent, Aircraft: s.lock.LockedTarget, Source: s.player})
	}
	s.lock = LockOn{}
}

// launchMissile spawns a missile from the given aircraft at the target.
func (s *Sim) launchMissile(owner AircraftID, ac *Aircraft, target AircraftID) {
	ac.MissilesRemaining--
	ac.MissileCooldown = s.params.MissileRefire

	m := Missile{
		Position:     ac.Position,
		Velocity:     math.Scale3f(ac.Forward(), s.params.MissileSpeed),
		Owner:        owner,
		Target:       target,
		rolledFlares: make(map[int32]struct{}),
	}
	s.missiles = appendBounded(s.missiles, m, s.params.MaxMissiles)

	s.eventStream.Post(Event{
		Type:     MissileLaunchedEvent,
		Aircraft: owner,
		Source:   target,
		Position: ac.Position,
	})
}

// updateMissiles runs one guidance tick for every missile: aging, arming,
// countermeasure and jink resolution, proportional navigation, and the
// proximity fuse.
func (s *Sim) updateMissiles(dt float32) {
	s.missiles = util.FilterSliceInPlace(s.missiles, func(m *Missile) bool {
		m.Age += dt
		if m.Age > s.params.MissileLifetime {
			return false
		}

		m.Position = math.Add3f(m.Position, math.Scale3f(m.Velocity, dt))
		m.Travel += math.Length3f(m.Velocity) * dt
		if m.Travel >= s.params.MissileArmDistance {
			m.Armed = true
		}
		m.jinkCooldown = math.Max(m.jinkCooldown-dt, 0)

		// A destroyed or stale target is simply absent, not a fault.
		target, ok := s.registry.Get(m.Target)
		if !ok || !target.Alive {
			m.Target = NoAircraft
			return true // coast at last heading until lifetime expiry
		}

		if s.checkFlares(m, target) {
			return true
		}
		if s.checkJink(m, target, dt) {
			return true
		}

		// Proportional navigation: rotate the heading toward the line of
		// sight, proportional to the angular error, capped by the maximum
		// turn rate.
		heading := math.SafeNormalize3f(m.Velocity, [3]float32{0, 0, 1})
		los := math.SafeNormalize3f(math.Sub3f(target.Position, m.Position), heading)
		angle := math.AngleBetween3f(heading, los)
		turn := math.Min(s.params.PNGain*angle, s.params.MissileTurnRate) * dt
		axis := math.Cross3f(heading, los)
		if l := math.Length3f(axis); l > 1e-6 {
			dq := math.AxisAngleQuaternion(math.Scale3f(axis, 1/l), math.Min(turn, angle))
			heading = dq.Rotate(heading)
		}
		m.Velocity = math.Scale3f(heading, s.params.MissileSpeed)

		if m.Armed {
			if dist := math.Distance3f(m.Position, target.Position); dist < s.params.FuseRadius {
				s.detonateMissile(m, target, dist)
				return false
			}
		}
		return true
	})
}

// checkFlares rolls active decoys against the missile. Each flare is
// evaluated against a given missile at most once, ever; the first
// successful roll drops the lock and ends flare checks for the tick.
// Reports whether the lock was dropped.
func (s *Sim) checkFlares(m *Missile, target *Aircraft) bool {
	targetDist := math.Distance3f(m.Position, target.Position)
	owner, ownerOk := s.registry.Get(m.Owner)

	for i := range s.flares {
		f := &s.flares[i]
		if _, rolled := m.rolledFlares[f.Serial]; rolled {
			continue
		}

		// Only flares roughly between missile and target matter.
		if math.Distance3f(m.Position, f.Position) > 1.5*targetDist {
			continue
		}
		// A flare closer to the missile's owner than to its target is the
		// owner's own; it never decoys the owner's missile.
		if ownerOk && math.Distance3f(f.Position, owner.Position) < math.Distance3f(f.Position, target.Position) {
			continue
		}

		m.rolledFlares[f.Serial] = struct{}{}
		if s.guidanceRand.Bool(s.params.FlareDecoyProbability) {
			s.eventStream.Post(Event{
				Type:     MissileDecoyedEvent,
				Aircraft: m.Target,
				Source:   m.Owner,
				Position: f.Position,
			})
			m.Target = NoAircraft
			return true
		}
	}
	return false
}

// checkJink detects hard defensive maneuvers: a sharp reversal of the
// target's acceleration direction under sustained high load factor gives
// the target a chance to break the lock, scaled by reversal sharpness. A
// successful roll starts a long cooldown so the same maneuver can't re-roll
// every tick; a failed roll imposes a shorter one. Reports whether the
// lock was dropped.
func (s *Sim) checkJink(m *Missile, target *Aircraft, dt float32) bool {
	accel := math.Scale3f(math.Sub3f(target.Velocity, target.PrevVelocity), 1/dt)
	if math.Length3f(accel) < 1 {
		return false
	}
	dir := math.Normalize3f(accel)

	dropped := false
	if m.hasPrevAccelDir && m.jinkCooldown <= 0 {
		d := math.Dot3f(dir, m.prevAccelDir)
		if d < s.params.JinkDotThreshold && math.Abs(target.GForce) > s.params.JinkGThreshold {
			sharpness := -d
			if s.guidanceRand.Bool(s.params.JinkEvadeProbability * sharpness) {
				s.eventStream.Post(Event{
					Type:     MissileEvadedEvent,
					Aircraft: m.Target,
					Source:   m.Owner,
					Position: target.Position,
				})
				m.Target = NoAircraft
				m.jinkCooldown = s.params.JinkCooldown
				dropped = true
			} else {
				m.jinkCooldown = s.params.JinkRetryCooldown
			}
		}
	}

	m.prevAccelDir = dir
	m.hasPrevAccelDir = true
	return dropped
}

// detonateMissile applies proximity-fused damage with linear falloff
// across the fuse radius and reports the detonation.
func (s *Sim) detonateMissile(m *Missile, target *Aircraft, dist float32) {
	s.eventStream.Post(Event{
		Type:     DetonationEvent,
		Aircraft: m.Target,
		Source:   m.Owner,
		Position: m.Position,
	})
	s.eventStream.Post(Event{
		Type:     HitEvent,
		Aircraft: m.Target,
		Source:   m.Owner,
		Position: m.Position,
		Weapon:   WeaponMissile,
	})

	damage := s.params.MissileDamage * (1 - dist/s.params.FuseRadius)
	if target.ApplyDamage(damage, m.Owner) {
		s.reportDestroyed(m.Target, target, m.Owner, CauseMissile)
	}
}
