// sim/flare.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/mmp/talon/math"
	"github.com/mmp/talon/util"
)

// Flare is a decoy countermeasure. Intensity decays linearly 1 -> 0 over
// the flare's duration for the benefit of renderers; the decoy probability
// a missile rolls against is constant and independent of flare age.
type Flare struct {
	Serial    int32 // unique per flare; missiles key their one-roll set on it
	Position  [3]float32
	Velocity  [3]float32
	Age       float32
	Duration  float32
	Intensity float32
}

// deployFlares spawns a salvo of decoys with velocity inherited from the
// dispensing aircraft plus random spread, subject to the dispenser
// cooldown.
func (s *Sim) deployFlares(id AircraftID, ac *Aircraft) {
	if ac.FlareCooldown > 0 {
		return
	}
	ac.FlareCooldown = s.params.FlareCooldown

	for range s.params.FlareSalvo {
		spread := [3]float32{
			s.flareRand.SignedFloat32(),
			s.flareRand.SignedFloat32(),
			s.flareRand.SignedFloat32(),
		}
		f := Flare{
			Serial:    s.nextFlareSerial,
			Position:  ac.Position,
			Velocity:  math.Add3f(ac.Velocity, math.Scale3f(spread, s.params.FlareSpread)),
			Duration:  s.params.FlareDuration,
			Intensity: 1,
		}
		s.nextFlareSerial++
		s.flares = appendBounded(s.flares, f, s.params.MaxFlares)
	}

	s.eventStream.Post(Event{
		Type:     FlareDeployedEvent,
		Aircraft: id,
		Position: ac.Position,
	})
}

func (s *Sim) updateFlares(dt float32) {
	s.flares = util.FilterSliceInPlace(s.flares, func(f *Flare) bool {
		f.Age += dt
		if f.Age >= f.Duration {
			return false
		}
		// Flares slow and fall away from the dispensing aircraft.
		f.Velocity[1] -= 0.5 * s.params.Gravity * dt
		f.Velocity = math.Scale3f(f.Velocity, math.Exp(-1.5*dt))
		f.Position = math.Add3f(f.Position, math.Scale3f(f.Velocity, dt))
		f.Intensity = math.Max(1-f.Age/f.Duration, 0)
		return true
	})
}
