// sim/intent.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "github.com/mmp/talon/math"

// ControlIntent is the normalized control record produced once per tick for
// each controllable aircraft, by exactly one source: player input or an AI
// controller. The flight integrator consumes it without caring which.
// Pointers are used for optional values; nil -> unset/unspecified.
type ControlIntent struct {
	Pitch    float32 // [-1, 1]; positive pulls the nose up
	Roll     float32 // [-1, 1]; positive rolls right
	Yaw      float32 // [-1, 1]; positive yaws right
	Throttle float32 // [0, 1]; zero is engine-off, not idle creep

	Fire        bool
	FireMissile bool
	DropFlares  bool
	Airbrake    bool

	// AimDir, when set, requests pointing-based control: the integrator's
	// aim-assist synthesizes pitch/roll/yaw so the nose follows it, and the
	// direct Pitch/Roll/Yaw values above are ignored.
	AimDir *[3]float32
}

// Clamped returns the intent with all axis values forced into their legal
// ranges. Out-of-range inputs are never rejected, only clamped.
func (ci ControlIntent) Clamped() ControlIntent {
	ci.Pitch = math.Clamp(ci.Pitch, -1, 1)
	ci.Roll = math.Clamp(ci.Roll, -1, 1)
	ci.Yaw = math.Clamp(ci.Yaw, -1, 1)
	ci.Throttle = math.Clamp(ci.Throttle, 0, 1)
	return ci
}
