// sim/ai_test.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	"github.com/mmp/talon/rand"
)

func testAI(t *testing.T, p *Params) (*AI, Aircraft, AircraftID, Aircraft, AircraftID) {
	t.Helper()
	own := newAircraft([3]float32{0, 600, 0}, 0, 150, false, p)
	ownID := AircraftID{Index: 1, Gen: 1}
	player := newAircraft([3]float32{0, 600, 1000}, 0, 150, true, p)
	playerID := AircraftID{Index: 0, Gen: 1}

	ai := MakeAI(own.Position, rand.MakeWithSeed(7), p)
	return ai, own, ownID, player, playerID
}

// An enemy in patrol engages a detected player only after its reaction
// delay has elapsed, not instantly.
func TestAIPatrolToEngage(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)

	const dt = 1.0 / 60
	ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
	if ai.Mode != AIPatrol {
		t.Fatalf("engaged on the first tick; reaction delay ignored")
	}

	// The longest possible delay is AIReactionMax * 1.2.
	engaged := false
	for range int(p.AIReactionMax*1.2/dt) + 2 {
		ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
		if ai.Mode == AIEngage {
			engaged = true
			break
		}
	}
	if !engaged {
		t.Fatal("never engaged a player inside detection range")
	}
	if ai.Target != playerID {
		t.Errorf("target %v, want %v", ai.Target, playerID)
	}
}

// A player outside detection range is ignored.
func TestAIIgnoresDistantPlayer(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)
	player.Position = [3]float32{0, 600, p.DetectRange + 500}

	const dt = 1.0 / 60
	for range 60 * 5 {
		ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
	}
	if ai.Mode != AIPatrol {
		t.Errorf("mode %v, want Patrol", ai.Mode)
	}
}

// An incoming missile interrupts any mode, and the evading aircraft keeps
// its flare dispenser busy.
func TestAIEvadesIncomingMissile(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)

	missiles := []Missile{{
		Position: [3]float32{0, 600, 800},
		Velocity: [3]float32{0, 0, -p.MissileSpeed},
		Target:   ownID,
	}}

	intent := ai.Update(&own, ownID, &player, playerID, missiles, FlatTerrain{}, 1.0/60, &p)
	if ai.Mode != AIEvade {
		t.Fatalf("mode %v, want Evade", ai.Mode)
	}
	if !intent.DropFlares {
		t.Error("not deploying flares while evading")
	}
	if intent.Throttle != 1 {
		t.Errorf("throttle %v while evading, want full", intent.Throttle)
	}

	// A missile tracking someone else is not a threat.
	ai2, own2, ownID2, player2, playerID2 := testAI(t, &p)
	missiles[0].Target = playerID2
	ai2.Update(&own2, ownID2, &player2, playerID2, missiles, FlatTerrain{}, 1.0/60, &p)
	if ai2.Mode == AIEvade {
		t.Error("evading a missile aimed at someone else")
	}
}

// With several inbound missiles, the evade break is computed against the
// nearest one; missiles tracking other aircraft are ignored.
func TestNearestThreatSelected(t *testing.T) {
	ownID := AircraftID{Index: 1, Gen: 1}
	otherID := AircraftID{Index: 2, Gen: 1}
	missiles := []Missile{
		{Position: [3]float32{2000, 600, 0}, Target: ownID},
		{Position: [3]float32{50, 600, 0}, Target: ownID},
		{Position: [3]float32{10, 600, 0}, Target: otherID},
	}

	found, pos := incomingMissile(missiles, ownID, [3]float32{0, 600, 0})
	if !found {
		t.Fatal("tracked aircraft reported no threat")
	}
	if pos != [3]float32{50, 600, 0} {
		t.Errorf("threat position %v, want the nearest tracking missile at [50 600 0]", pos)
	}

	if found, _ := incomingMissile(missiles, AircraftID{Index: 3, Gen: 1}, [3]float32{}); found {
		t.Error("untracked aircraft reported a threat")
	}
}

// Once the threat is gone and the evade period has run out, the enemy
// re-engages a nearby player.
func TestAIEvadeRecovery(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)
	ai.setMode(AIEvade)

	const dt = 1.0 / 60
	for range int(p.EvadeDuration/dt) + 10 {
		ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
	}
	if ai.Mode != AIEngage {
		t.Errorf("mode %v after evade with player nearby, want Engage", ai.Mode)
	}
}

// With the player dead, an engaged enemy breaks off and returns to its
// patrol area, then resumes patrolling once it arrives.
func TestAIReturnsWhenPlayerDies(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)
	ai.setMode(AIEngage)
	ai.Target = playerID
	player.Alive = false

	const dt = 1.0 / 60
	ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
	if ai.Mode != AIReturn {
		t.Fatalf("mode %v with dead player, want Return", ai.Mode)
	}

	// Already within half the patrol radius of home, so the next tick
	// flips back to patrol.
	ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
	if ai.Mode != AIPatrol {
		t.Errorf("mode %v at patrol center, want Patrol", ai.Mode)
	}
}

// An engaged enemy far from a fleeing player gives up at the disengage
// range.
func TestAIDisengagesAtRange(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)
	ai.setMode(AIEngage)
	ai.Target = playerID
	player.Position = [3]float32{0, 600, p.DisengageRange + 200}

	ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, 1.0/60, &p)
	if ai.Mode != AIReturn {
		t.Errorf("mode %v beyond disengage range, want Return", ai.Mode)
	}
}

// The terrain-avoidance pass overrides whatever the state behavior wanted:
// near the ground the intent is a full-throttle pull-up.
func TestAITerrainAvoidanceOverrides(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)
	own.Position[1] = p.AIPullUpAltitude / 2

	intent := ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, 1.0/60, &p)
	if intent.Pitch != 1 {
		t.Errorf("pitch %v near ground, want full pull-up", intent.Pitch)
	}
	if intent.Throttle != 1 {
		t.Errorf("throttle %v near ground, want full", intent.Throttle)
	}
	if intent.AimDir != nil {
		t.Error("aim-dir control still set during pull-up")
	}
}

// Sink-rate lookahead triggers the pull-up well above the hard altitude
// floor when descending fast.
func TestAISinkRateLookahead(t *testing.T) {
	p := DefaultParams()
	ai, own, ownID, player, playerID := testAI(t, &p)
	own.Position[1] = p.AIPullUpAltitude * 2
	own.Velocity = [3]float32{0, -150, 50}

	intent := ai.Update(&own, ownID, &player, playerID, nil, FlatTerrain{}, 1.0/60, &p)
	if intent.Pitch != 1 {
		t.Errorf("pitch %v in a steep descent, want full pull-up", intent.Pitch)
	}
}

// AI personalities come from their own RNG stream: two agents built from
// identically seeded generators behave identically.
func TestAIDeterminism(t *testing.T) {
	p := DefaultParams()
	a := MakeAI([3]float32{0, 600, 0}, rand.MakeWithSeed(3), &p)
	b := MakeAI([3]float32{0, 600, 0}, rand.MakeWithSeed(3), &p)

	if a.Aggression != b.Aggression || a.Skill != b.Skill {
		t.Fatalf("identical seeds, different personalities: %+v vs %+v", a, b)
	}

	ownA := newAircraft([3]float32{0, 600, 0}, 0, 150, false, &p)
	ownB := ownA
	player := newAircraft([3]float32{0, 600, 900}, 0, 150, true, &p)
	ownID := AircraftID{Index: 1, Gen: 1}
	playerID := AircraftID{Index: 0, Gen: 1}

	const dt = 1.0 / 60
	for i := range 600 {
		ia := a.Update(&ownA, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
		ib := b.Update(&ownB, ownID, &player, playerID, nil, FlatTerrain{}, dt, &p)
		if ia.Pitch != ib.Pitch || ia.Roll != ib.Roll || ia.Fire != ib.Fire {
			t.Fatalf("tick %d: intents diverged: %+v vs %+v", i, ia, ib)
		}
		UpdateFlight(&ownA, ia, dt, &p)
		UpdateFlight(&ownB, ib, dt, &p)
	}
}
