// sim/ai.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	"github.com/mmp/talon/math"
	"github.com/mmp/talon/rand"
)

type AIMode int

const (
	AIPatrol AIMode = iota
	AIEngage
	AIEvade
	AIReturn
)

func (m AIMode) String() string {
	return []string{"Patrol", "Engage", "Evade", "Return"}[m]
}

// AI drives one non-player aircraft through a four-state tactical model.
// It reads world state and emits the same ControlIntent record the player
// produces, so AI and player aircraft share one physics path.
type AI struct {
	Mode          AIMode
	ModeTime      float32
	ReactionTimer float32
	Target        AircraftID

	// Personality, fixed at spawn.
	Aggression float32
	Skill      float32

	// Committed maneuver: rather than re-aiming every tick, Engage and
	// Evade hold a chosen pitch/roll (or lead error) for a while.
	maneuverPitch float32
	maneuverRoll  float32
	maneuverTime  float32
	leadJitter    [3]float32

	burstTime    float32
	burstPause   float32
	missileTimer float32
	missileFired bool // one missile per engagement

	PatrolCenter [3]float32

	r *rand.Rand
}

func MakeAI(patrolCenter [3]float32, r *rand.Rand, p *Params) *AI {
	ai := &AI{
		Mode:         AIPatrol,
		PatrolCenter: patrolCenter,
		Aggression:   r.Float32In(0.4, 1),
		Skill:        r.Float32In(0.3, 1),
		r:            r,
	}
	ai.ReactionTimer = ai.reactionDelay(p)
	return ai
}

// Quicker pilots react sooner.
func (ai *AI) reactionDelay(p *Params) float32 {
	return math.Lerp(ai.Skill, p.AIReactionMax, p.AIReactionMin) * ai.r.Float32In(0.8, 1.2)
}

func (ai *AI) setMode(m AIMode) {
	ai.Mode = m
	ai.ModeTime = 0
	ai.maneuverTime = 0
}

func (ai *AI) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", ai.Mode.String()),
		slog.Float64("aggression", float64(ai.Aggression)),
		slog.Float64("skill", float64(ai.Skill)))
}

// Update advances the state machine one tick and returns the control
// intent for the aircraft's next integration step. player is nil when the
// player is dead or absent.
func (ai *AI) Update(own *Aircraft, ownID AircraftID, player *Aircraft, playerID AircraftID,
	missiles []Missile, terrain Terrain, dt float32, p *Params) ControlIntent {
	ai.ModeTime += dt
	ai.maneuverTime -= dt
	ai.missileTimer = math.Max(ai.missileTimer-dt, 0)

	playerAlive := player != nil && player.Alive
	var playerDist float32
	if playerAlive {
		playerDist = math.Distance3f(own.Position, player.Position)
	}

	threatened, threatPos := incomingMissile(missiles, ownID, own.Position)

	// An inbound missile interrupts anything.
	if threatened && ai.Mode != AIEvade {
		ai.setMode(AIEvade)
	}

	switch ai.Mode {
	case AIPatrol:
		if playerAlive && playerDist < p.DetectRange {
			ai.ReactionTimer -= dt
			if ai.ReactionTimer <= 0 {
				ai.Target = playerID
				ai.missileFired = false
				ai.setMode(AIEngage)
			}
		}
	case AIEngage:
		if !playerAlive || playerDist > p.DisengageRange {
			ai.setMode(AIReturn)
		}
	case AIEvade:
		if !threatened || ai.ModeTime > p.EvadeDuration {
			if playerAlive && playerDist < p.DisengageRange {
				ai.setMode(AIEngage)
			} else {
				ai.setMode(AIReturn)
			}
		}
	case AIReturn:
		toCenter := math.Distance3f(own.Position, ai.PatrolCenter)
		if toCenter < p.PatrolRadius/2 {
			ai.ReactionTimer = ai.reactionDelay(p)
			ai.setMode(AIPatrol)
		} else if playerAlive && playerDist < p.ReturnDetectRange {
			ai.Target = playerID
			ai.missileFired = false
			ai.setMode(AIEngage)
		}
	}

	var intent ControlIntent
	switch ai.Mode {
	case AIPatrol:
		intent = ai.patrol(own)
	case AIEngage:
		intent = ai.engage(own, player, playerDist, dt, p)
	case AIEvade:
		intent = ai.evade(own, threatPos, p)
	case AIReturn:
		intent = ai.returnHome(own)
	}

	// The avoidance pass has final authority over the state behavior; it
	// is a safety system.
	ai.avoidTerrainAndBoundary(own, terrain, &intent, p)

	return intent
}

// incomingMissile reports whether any missile is tracking the aircraft and
// the position of the nearest one.
func incomingMissile(missiles []Missile, id AircraftID, pos [3]float32) (bool, [3]float32) {
	found := false
	var nearest [3]float32
	var nearestDist float32
	for i := range missiles {
		if missiles[i].Target != id {
			continue
		}
		d := math.Distance3f(missiles[i].Position, pos)
		if !found || d < nearestDist {
			nearest, nearestDist = missiles[i].Position, d
			found = true
		}
	}
	return found, nearest
}

// patrol flies a slow circle around the patrol center.
func (ai *AI) patrol(own *Aircraft) ControlIntent {
	rel := math.Sub3f(own.Position, ai.PatrolCenter)
	angle := math.Atan2(rel[2], rel[0]) + 0.5 // a bit ahead along the circle
	waypoint := math.Add3f(ai.PatrolCenter, [3]float32{
		800 * math.Cos(angle),
		math.Max(rel[1], 150),
		800 * math.Sin(angle),
	})
	aim := math.SafeNormalize3f(math.Sub3f(waypoint, own.Position), own.Forward())
	return ControlIntent{AimDir: &aim, Throttle: 0.5}
}

// engage pursues the target with maneuvers committed for a randomized
// 1-2.5 s hold; far, medium, and close range brackets behave differently.
func (ai *AI) engage(own *Aircraft, player *Aircraft, dist float32, dt float32, p *Params) ControlIntent {
	if player == nil {
		return ControlIntent{Throttle: 0.7}
	}

	if ai.maneuverTime <= 0 {
		ai.maneuverTime = ai.r.Float32In(p.AIManeuverHoldMin, p.AIManeuverHoldMax)
		ai.maneuverPitch = ai.r.Float32In(0.3, 1) * ai.Aggression
		ai.maneuverRoll = ai.r.SignedFloat32() * ai.Aggression
		// Less skilled pilots commit to a worse lead estimate.
		jitter := (1 - ai.Skill) * 60
		ai.leadJitter = [3]float32{
			ai.r.SignedFloat32() * jitter,
			ai.r.SignedFloat32() * jitter,
			ai.r.SignedFloat32() * jitter,
		}
	}

	lead := math.Add3f(player.Position,
		math.Scale3f(player.Velocity, dist/p.GunMuzzleVelocity*ai.Skill))
	lead = math.Add3f(lead, ai.leadJitter)
	aim := math.SafeNormalize3f(math.Sub3f(lead, own.Position), own.Forward())

	var intent ControlIntent
	switch {
	case dist > 0.66*p.DetectRange: // far: straight pursuit
		intent = ControlIntent{AimDir: &aim, Throttle: 1}
	case dist > p.AIGunRange: // medium: pursue with committed lead error
		intent = ControlIntent{AimDir: &aim, Throttle: 0.8}
	default: // close: committed maneuver instead of chasing the tail
		intent = ControlIntent{
			Pitch:    ai.maneuverPitch,
			Roll:     ai.maneuverRoll,
			Throttle: 0.9,
		}
	}

	aimed := math.Dot3f(own.Forward(), aim) > p.AIGunConeDot
	if dist < p.AIGunRange && aimed {
		// Burst/cooldown pairs rather than continuous fire.
		if ai.burstTime > 0 {
			intent.Fire = true
			ai.burstTime -= dt
		} else if ai.burstPause > 0 {
			ai.burstPause -= dt
		} else {
			ai.burstTime = ai.r.Float32In(0.3, 0.8)
			ai.burstPause = ai.r.Float32In(1, 2.5)
		}
	}

	if !ai.missileFired && ai.missileTimer <= 0 && dist < p.AIMissileRange &&
		math.Dot3f(own.Forward(), aim) > 0.9 {
		intent.FireMissile = true
		ai.missileFired = true
		ai.missileTimer = p.AIMissileCooldown
	}

	return intent
}

// evade commits to a perpendicular break from the nearest threat and keeps
// the flare dispenser busy; the dispenser cooldown paces actual deploys.
func (ai *AI) evade(own *Aircraft, threatPos [3]float32, p *Params) ControlIntent {
	if ai.maneuverTime <= 0 {
		ai.maneuverTime = ai.r.Float32In(0.8, 1.5)
		ai.maneuverPitch = 0.7 + 0.3*ai.Aggression
		ai.maneuverRoll = math.Sign(ai.r.SignedFloat32())

		// Break perpendicular to the threat bearing when it's resolvable.
		threatDir := math.SafeNormalize3f(math.Sub3f(threatPos, own.Position), own.Forward())
		perp := math.Cross3f(threatDir, worldUp)
		if math.Length3f(perp) > 1e-6 && math.Dot3f(perp, own.Right()) < 0 {
			ai.maneuverRoll = -ai.maneuverRoll
		}
	}

	return ControlIntent{
		Pitch:      ai.maneuverPitch,
		Roll:       ai.maneuverRoll,
		Throttle:   1,
		DropFlares: true,
	}
}

func (ai *AI) returnHome(own *Aircraft) ControlIntent {
	target := ai.PatrolCenter
	target[1] = math.Max(target[1], 200)
	aim := math.SafeNormalize3f(math.Sub3f(target, own.Position), own.Forward())
	return ControlIntent{AimDir: &aim, Throttle: 0.7}
}

// avoidTerrainAndBoundary can override pitch and throttle unconditionally:
// pull up hard near the ground, steer toward the map center near the world
// boundary.
func (ai *AI) avoidTerrainAndBoundary(own *Aircraft, terrain Terrain, intent *ControlIntent, p *Params) {
	clearance := own.Position[1] - terrain.HeightAt(own.Position[0], own.Position[2])
	sink := -own.Velocity[1]
	pullUp := clearance < p.AIPullUpAltitude ||
		(sink > 1 && clearance/sink < p.AIPullUpLookahead)
	if pullUp {
		intent.AimDir = nil
		intent.Pitch = 1
		intent.Roll = math.Clamp(2*own.Right()[1], -1, 1) // wings level so the pull is upward
		intent.Throttle = 1
		intent.Airbrake = false
		return
	}

	if math.LengthXZ(own.Position) > p.WorldSoftRadius {
		aim := math.SafeNormalize3f(
			[3]float32{-own.Position[0], 0, -own.Position[2]}, own.Forward())
		intent.AimDir = &aim
		intent.Pitch, intent.Roll, intent.Yaw = 0, 0, 0
		intent.Throttle = math.Max(intent.Throttle, 0.8)
	}
}
