// sim/flight.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/mmp/talon/math"
	"github.com/mmp/talon/util"
)

var worldUp = [3]float32{0, 1, 0}

// UpdateFlight advances one aircraft's state by dt under the given control
// intent. It never fails: all inputs are clamped internally and degenerate
// numeric states fall back to safe axes. It silently no-ops for dead
// aircraft. Terrain collision is the caller's responsibility; this only
// enforces the y >= 0 emergency floor.
func UpdateFlight(ac *Aircraft, intent ControlIntent, dt float32, p *Params) {
	if !ac.Alive || dt <= 0 {
		return
	}
	intent = intent.Clamped()

	ac.PrevVelocity = ac.Velocity
	ac.Throttle = intent.Throttle

	forward, up, right := ac.Forward(), ac.Up(), ac.Right()

	pitch, roll, yaw := intent.Pitch, intent.Roll, intent.Yaw
	if intent.AimDir != nil {
		pitch, roll, yaw = aimAssist(*intent.AimDir, forward, up, right, p)
	}

	// Control authority ramps with airspeed below the minimum-control
	// speed; a slow aircraft mushes instead of snapping around.
	authority := math.Clamp(ac.Speed/p.MinControlSpeed, 0, 1)

	// Commanded angular rate in world space. Pitch up is rotation about
	// -right; roll right is rotation about -forward; yaw right about up.
	commanded := math.Add3f(
		math.Add3f(
			math.Scale3f(right, -pitch*p.PitchRate*authority),
			math.Scale3f(up, yaw*p.YawRate*authority)),
		math.Scale3f(forward, -roll*p.RollRate*authority))

	// Exponentially damp angular velocity toward the command.
	k := 1 - math.Exp(-p.AngularDamping*dt)
	ac.AngularVelocity = math.Lerp3f(k, ac.AngularVelocity, commanded)

	// Integrate orientation via an axis-angle delta; renormalize every
	// tick to counter drift.
	if w := math.Length3f(ac.AngularVelocity); w > 1e-6 {
		dq := math.AxisAngleQuaternion(math.Scale3f(ac.AngularVelocity, 1/w), w*dt)
		ac.Orientation = dq.Multiply(ac.Orientation)
	}
	ac.Orientation = ac.Orientation.Normalize()
	forward, up, right = ac.Forward(), ac.Up(), ac.Right()

	// Softly re-align velocity toward the nose so sideslip decays.
	speed := math.Length3f(ac.Velocity)
	if speed > 1e-3 {
		dir := math.Scale3f(ac.Velocity, 1/speed)
		dir = math.SafeNormalize3f(
			math.Lerp3f(math.Min(p.VelocityAlignRate*dt, 1), dir, forward), forward)
		ac.Velocity = math.Scale3f(dir, speed)
	}

	// Aerodynamic forces, recomputed after rotation.
	velDir := math.SafeNormalize3f(ac.Velocity, forward)
	aoa := math.Min(math.AngleBetween3f(forward, velDir), p.MaxAOA)
	cl := p.LiftSlope * aoa
	if aoa > p.StallAOA {
		// Soft stall: the coefficient decays toward a floor rather than
		// falling off a cliff.
		falloff := 1 - (aoa-p.StallAOA)/(p.MaxAOA-p.StallAOA)
		cl = math.Max(p.StallLiftFloor, cl*falloff)
	}
	if speed < p.MinFlySpeed {
		cl = 0
	}

	// Lift acts perpendicular to velocity, canonically along the
	// aircraft's up; fall back to world up when they're degenerate.
	liftAxis := math.SafeNormalize3f(
		math.Cross3f(math.Cross3f(velDir, up), velDir), worldUp)
	lift := math.Scale3f(liftAxis, cl*speed*speed*p.LiftScale)

	cd := p.ParasiticDrag + p.InducedDragK*cl*cl
	dragMag := cd * speed * speed * p.DragScale
	braking := intent.Airbrake && intent.Throttle == 0
	if braking {
		dragMag *= p.AirbrakeDrag
	}
	drag := math.Scale3f(velDir, -dragMag)

	var thrustMag float32
	if intent.Throttle > 0 {
		thrustMag = math.Lerp(intent.Throttle, p.IdleThrust, p.MaxThrust)
	}
	thrust := math.Scale3f(forward, thrustMag)

	gravity := [3]float32{0, -p.Gravity * p.Mass, 0}
	force := math.Add3f(math.Add3f(gravity, lift), math.Add3f(drag, thrust))
	accel := math.Scale3f(force, 1/p.Mass)

	// Semi-implicit Euler.
	ac.Velocity = math.Add3f(ac.Velocity, math.Scale3f(accel, dt))
	speed = math.Length3f(ac.Velocity)
	if speed > p.MaxSpeed {
		ac.Velocity = math.Scale3f(ac.Velocity, p.MaxSpeed/speed)
		speed = p.MaxSpeed
	}
	airborne := ac.Position[1] > 1
	floor := util.Select(braking, p.AirbrakeMinSpeed, p.MinSpeed)
	if airborne && speed > 1e-3 && speed < floor {
		ac.Velocity = math.Scale3f(ac.Velocity, floor/speed)
		speed = floor
	}
	ac.Position = math.Add3f(ac.Position, math.Scale3f(ac.Velocity, dt))

	applyWorldBoundary(ac, forward, dt, p)

	// Emergency ground clamp; normal ground contact is handled by the
	// caller via the terrain collision check.
	if ac.Position[1] < 0 {
		ac.Position[1] = 0
		if ac.Velocity[1] < 0 {
			ac.Velocity[1] = 0
		}
	}

	ac.Speed = math.Length3f(ac.Velocity)
	ac.GForce = math.Dot3f(math.Sub3f(accel, [3]float32{0, -p.Gravity, 0}), up) / p.Gravity
}

// aimAssist converts a desired look-direction into synthesized pitch, roll,
// and yaw so that pointing-based control feels like direct stick input:
// full authority far from the target, gentle wings-level handling near it.
func aimAssist(aim, forward, up, right [3]float32, p *Params) (pitch, roll, yaw float32) {
	dir := math.SafeNormalize3f(aim, forward)

	lateral := math.Dot3f(dir, right)
	vertical := math.Dot3f(dir, up)
	theta := math.SafeACos(math.Dot3f(dir, forward))

	// Bank toward the target, proportional to lateral error and saturating
	// as the error grows.
	roll = math.Clamp(p.AimRollGain*lateral, -1, 1)

	// Pull toward the target: blend a cross-product-derived turn command
	// with the direct vertical error.
	turn := math.Cross3f(forward, dir)
	pitchTurn := -math.Dot3f(turn, right)
	pitch = math.Clamp(p.AimPitchGain*0.5*(pitchTurn+vertical), -1, 1)

	// A little coordinated yaw.
	yaw = math.Clamp(p.AimYawGain*lateral, -1, 1)

	// Close to the target, stop chasing laterally and level the wings.
	if theta < p.AimLevelAngle {
		roll = math.Clamp(p.AimLevelGain*right[1], -1, 1)
	}
	return
}

// applyWorldBoundary blends velocity toward the map center and nudges the
// nose inward past the soft radius; past the hard radius, position is
// clamped back onto the hard-radius circle.
func applyWorldBoundary(ac *Aircraft, forward [3]float32, dt float32, p *Params) {
	d := math.LengthXZ(ac.Position)
	if d <= p.WorldSoftRadius {
		return
	}

	over := (d - p.WorldSoftRadius) / math.Max(p.WorldHardRadius-p.WorldSoftRadius, 1)
	toCenter := math.SafeNormalize3f([3]float32{-ac.Position[0], 0, -ac.Position[2]}, forward)

	speed := math.Length3f(ac.Velocity)
	if speed > 1e-3 {
		dir := math.Scale3f(ac.Velocity, 1/speed)
		blend := math.Clamp(over*p.BoundarySteer*dt, 0, 1)
		dir = math.SafeNormalize3f(math.Lerp3f(blend, dir, toCenter), dir)
		ac.Velocity = math.Scale3f(dir, speed)
	}

	axis := math.Cross3f(forward, toCenter)
	if l := math.Length3f(axis); l > 1e-6 {
		angle := math.Clamp(over, 0, 1) * p.BoundarySteer * dt
		dq := math.AxisAngleQuaternion(math.Scale3f(axis, 1/l), angle)
		ac.Orientation = dq.Multiply(ac.Orientation).Normalize()
	}

	if d > p.WorldHardRadius {
		scale := p.WorldHardRadius / d
		ac.Position[0] *= scale
		ac.Position[2] *= scale
	}
}
