// sim/missile_test.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	"github.com/mmp/talon/math"
)

// testSim builds a sim with a player at the origin (at altitude) and one
// registry-only target dead ahead, bypassing the AI so positions hold still
// unless the test moves them.
func testSim(t *testing.T, targetPos [3]float32) (*Sim, AircraftID) {
	t.Helper()
	s := New(DefaultParams(), FlatTerrain{}, 1, nil)
	t.Cleanup(s.Destroy)

	s.SpawnPlayer([3]float32{0, 500, 0})
	target := s.registry.Add(newAircraft(targetPos, 0, 0, false, &s.params))
	return s, target
}

func eventsOfType(events []Event, ty EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == ty {
			out = append(out, e)
		}
	}
	return out
}

// A target that stays the best candidate must be locked after exactly the
// lock time: 90 ticks at 60 Hz for a 1.5 s lock, not 91.
func TestLockExactTickCount(t *testing.T) {
	s, target := testSim(t, [3]float32{0, 500, 1000})
	sub := s.Subscribe()

	const dt = 1.0 / 60
	for i := range 90 {
		if s.lock.LockedTarget.IsValid() {
			t.Fatalf("locked after %d ticks; want 90", i)
		}
		s.updateLock(dt)
	}
	if s.lock.LockedTarget != target {
		t.Fatalf("not locked after 90 ticks; timer %v", s.lock.Timer)
	}
	if got := eventsOfType(sub.Get(), LockAcquiredEvent); len(got) != 1 {
		t.Errorf("got %d lock events, want 1", len(got))
	}
	if p := s.lock.Progress(&s.params); p != 1 {
		t.Errorf("progress %v, want 1", p)
	}
}

// A change of best candidate resets lock progress to zero.
func TestLockProgressResetsOnCandidateChange(t *testing.T) {
	s, first := testSim(t, [3]float32{0, 500, 1000})

	const dt = 1.0 / 60
	for range 45 {
		s.updateLock(dt)
	}
	if s.lock.LockingTarget != first || s.lock.Timer <= 0 {
		t.Fatalf("expected partial progress on first target, got %+v", s.lock)
	}

	// A second target appears much better aligned; the first moves off
	// boresight but stays within the cone.
	firstAC, _ := s.registry.Get(first)
	firstAC.Position = [3]float32{150, 500, 1000}
	second := s.registry.Add(newAircraft([3]float32{0, 500, 800}, 0, 0, false, &s.params))

	s.updateLock(dt)
	if s.lock.LockingTarget != second {
		t.Fatalf("best candidate did not switch: %+v", s.lock)
	}
	if s.lock.Timer > dt {
		t.Errorf("timer %v not reset on candidate change", s.lock.Timer)
	}
}

// Handing the lock to a newly best-aligned target releases the old one:
// one LockLost for the displaced target, one LockAcquired for the new.
func TestLockHandoffReleasesOldTarget(t *testing.T) {
	s, first := testSim(t, [3]float32{0, 500, 1000})

	const dt = 1.0 / 60
	for range 90 {
		s.updateLock(dt)
	}
	if s.lock.LockedTarget != first {
		t.Fatal("precondition: first target should be locked")
	}

	sub := s.Subscribe()
	// The first target slides off boresight but stays within the cone; a
	// better-aligned one appears and completes its own lock.
	firstAC, _ := s.registry.Get(first)
	firstAC.Position = [3]float32{150, 500, 1000}
	second := s.registry.Add(newAircraft([3]float32{0, 500, 800}, 0, 0, false, &s.params))

	for range 90 {
		s.updateLock(dt)
	}
	if s.lock.LockedTarget != second {
		t.Fatalf("lock did not hand off: %+v", s.lock)
	}

	events := sub.Get()
	lost := eventsOfType(events, LockLostEvent)
	if len(lost) != 1 || lost[0].Aircraft != first {
		t.Errorf("lock-lost events %+v, want exactly one for the displaced target", lost)
	}
	acquired := eventsOfType(events, LockAcquiredEvent)
	if len(acquired) != 1 || acquired[0].Aircraft != second {
		t.Errorf("lock-acquired events %+v, want exactly one for the new target", acquired)
	}
}

// Losing all candidates mid-acquisition clears the lock state.
func TestLockClearedWhenTargetDies(t *testing.T) {
	s, target := testSim(t, [3]float32{0, 500, 1000})

	const dt = 1.0 / 60
	for range 120 {
		s.updateLock(dt)
	}
	if s.lock.LockedTarget != target {
		t.Fatal("precondition: target should be locked")
	}

	sub := s.Subscribe()
	ac, _ := s.registry.Get(target)
	ac.Alive = false
	s.updateLock(dt)

	if s.lock.LockedTarget.IsValid() || s.lock.LockingTarget.IsValid() {
		t.Errorf("lock not cleared: %+v", s.lock)
	}
	if got := eventsOfType(sub.Get(), LockLostEvent); len(got) != 1 {
		t.Errorf("got %d lock-lost events, want 1", len(got))
	}
}

// Lock, fire, kill: a missile fired through the full lock-on path at a
// stationary target 500 units out detonates exactly once before its
// lifetime runs out.
func TestMissileDetonatesOnStationaryTarget(t *testing.T) {
	s, target := testSim(t, [3]float32{0, 500, 500})
	sub := s.Subscribe()

	const dt = 1.0 / 60
	for range 90 {
		s.updateLock(dt)
	}
	if s.lock.LockedTarget != target {
		t.Fatal("precondition: lock not acquired")
	}
	if err := s.FireMissile(); err != nil {
		t.Fatalf("launch: %v", err)
	}
	player, _ := s.registry.Get(s.player)
	if player.MissilesRemaining != s.params.MissileInventory-1 {
		t.Errorf("inventory %d after launch", player.MissilesRemaining)
	}

	for range 60 * 8 {
		s.updateMissiles(dt)
	}

	events := sub.Get()
	if got := eventsOfType(events, DetonationEvent); len(got) != 1 {
		t.Fatalf("got %d detonations, want 1", len(got))
	}
	if len(s.missiles) != 0 {
		t.Errorf("%d missiles still alive after detonation", len(s.missiles))
	}
	ac, _ := s.registry.Get(target)
	if ac.Health >= s.params.HealthMax {
		t.Errorf("target health %v unchanged by detonation", ac.Health)
	}
}

// Proportional navigation: the angle between missile heading and the line
// of sight must shrink monotonically (within tolerance) against a
// non-maneuvering crossing target, all the way to detonation.
func TestMissileGuidanceConverges(t *testing.T) {
	s, target := testSim(t, [3]float32{600, 500, 1500})

	player, _ := s.registry.Get(s.player)
	s.launchMissile(s.player, player, target)

	const dt = 1.0 / 60
	prevAngle := math.Pi()
	for range 60 * 8 {
		s.updateMissiles(dt)
		if len(s.missiles) == 0 {
			return // detonated; converged all the way
		}
		m := &s.missiles[0]
		ac, _ := s.registry.Get(target)
		heading := math.Normalize3f(m.Velocity)
		los := math.Normalize3f(math.Sub3f(ac.Position, m.Position))
		angle := math.AngleBetween3f(heading, los)
		if angle > prevAngle+0.02 {
			t.Fatalf("guidance diverging: %v -> %v", prevAngle, angle)
		}
		prevAngle = angle
	}
	t.Fatalf("missile never reached its target; final error %v", prevAngle)
}

// Each flare gets exactly one decoy roll against a given missile,
// regardless of how many ticks it stays nearby.
func TestFlareSingleRoll(t *testing.T) {
	s, target := testSim(t, [3]float32{0, 500, 1000})
	s.params.FlareDecoyProbability = 0 // every roll fails

	player, _ := s.registry.Get(s.player)
	s.launchMissile(s.player, player, target)
	m := &s.missiles[0]
	m.Position = [3]float32{0, 500, 800} // close in

	s.flares = append(s.flares, Flare{
		Serial:   7,
		Position: [3]float32{0, 500, 900},
		Duration: 10,
	})

	ac, _ := s.registry.Get(target)
	for range 30 {
		if s.checkFlares(m, ac) {
			t.Fatal("flare decoyed with zero probability")
		}
	}
	if _, ok := m.rolledFlares[7]; !ok {
		t.Error("flare roll not recorded")
	}
	if len(m.rolledFlares) != 1 {
		t.Errorf("%d rolls recorded, want 1", len(m.rolledFlares))
	}
	if !m.Target.IsValid() {
		t.Error("target dropped despite failed rolls")
	}
}

func TestFlareDecoysWithCertainty(t *testing.T) {
	s, target := testSim(t, [3]float32{0, 500, 1000})
	s.params.FlareDecoyProbability = 1
	sub := s.Subscribe()

	player, _ := s.registry.Get(s.player)
	s.launchMissile(s.player, player, target)
	m := &s.missiles[0]
	m.Position = [3]float32{0, 500, 800}

	s.flares = append(s.flares, Flare{
		Serial:   1,
		Position: [3]float32{0, 500, 900},
		Duration: 10,
	})

	ac, _ := s.registry.Get(target)
	if !s.checkFlares(m, ac) {
		t.Fatal("flare failed to decoy with probability 1")
	}
	if m.Target.IsValid() {
		t.Error("missile still tracking after decoy")
	}
	if got := eventsOfType(sub.Get(), MissileDecoyedEvent); len(got) != 1 {
		t.Errorf("got %d decoy events, want 1", len(got))
	}
}

// The owner's own flares never decoy the owner's missile.
func TestOwnFlaresIgnored(t *testing.T) {
	s, target := testSim(t, [3]float32{0, 500, 1000})
	s.params.FlareDecoyProbability = 1

	player, _ := s.registry.Get(s.player)
	s.launchMissile(s.player, player, target)
	m := &s.missiles[0]
	m.Position = [3]float32{0, 500, 300}

	// A flare right behind the player, far from the target.
	s.flares = append(s.flares, Flare{
		Serial:   1,
		Position: [3]float32{0, 500, 10},
		Duration: 10,
	})

	ac, _ := s.registry.Get(target)
	if s.checkFlares(m, ac) {
		t.Error("missile decoyed by its owner's flare")
	}
}

// Jink detection: a hard acceleration reversal under load gives the target
// an evasion roll, and cooldowns prevent immediate re-rolls.
func TestJinkDetection(t *testing.T) {
	run := func(t *testing.T, prob float32) (*Sim, *Missile, bool) {
		s, target := testSim(t, [3]float32{0, 500, 1000})
		s.params.JinkEvadeProbability = prob

		player, _ := s.registry.Get(s.player)
		s.launchMissile(s.player, player, target)
		m := &s.missiles[0]

		ac, _ := s.registry.Get(target)
		ac.GForce = 8
		const dt = 1.0 / 60

		// Tick 1 establishes the acceleration direction; tick 2 reverses it.
		ac.PrevVelocity = [3]float32{0, 0, 0}
		ac.Velocity = [3]float32{50, 0, 0}
		if s.checkJink(m, ac, dt) {
			t.Fatal("evaded before any reversal")
		}
		ac.PrevVelocity = ac.Velocity
		ac.Velocity = [3]float32{0, 0, 0} // accel now -x: full reversal
		return s, m, s.checkJink(m, ac, dt)
	}

	t.Run("certain evade", func(t *testing.T) {
		s, m, evaded := run(t, 1)
		if !evaded {
			t.Fatal("no evasion with probability 1")
		}
		if m.Target.IsValid() {
			t.Error("missile still tracking after evasion")
		}
		if m.jinkCooldown != s.params.JinkCooldown {
			t.Errorf("cooldown %v, want %v", m.jinkCooldown, s.params.JinkCooldown)
		}
	})

	t.Run("failed roll backs off", func(t *testing.T) {
		s, m, evaded := run(t, 0)
		if evaded {
			t.Fatal("evaded with probability 0")
		}
		if !m.Target.IsValid() {
			t.Error("target dropped on failed roll")
		}
		if m.jinkCooldown != s.params.JinkRetryCooldown {
			t.Errorf("retry cooldown %v, want %v", m.jinkCooldown, s.params.JinkRetryCooldown)
		}
	})
}

// A missile whose target dies keeps flying on its last heading until
// lifetime expiry rather than detonating or vanishing.
func TestMissileCoastsAfterTargetDeath(t *testing.T) {
	s, target := testSim(t, [3]float32{0, 500, 1500})

	player, _ := s.registry.Get(s.player)
	s.launchMissile(s.player, player, target)

	ac, _ := s.registry.Get(target)
	ac.Alive = false

	const dt = 1.0 / 60
	s.updateMissiles(dt)
	if len(s.missiles) != 1 {
		t.Fatal("missile gone immediately after target death")
	}
	if s.missiles[0].Target.IsValid() {
		t.Error("missile still holds a dead target")
	}

	for range int(s.params.MissileLifetime/dt) + 10 {
		s.updateMissiles(dt)
	}
	if len(s.missiles) != 0 {
		t.Error("missile survived past its lifetime")
	}
}
