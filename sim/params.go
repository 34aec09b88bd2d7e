// sim/params.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "github.com/mmp/talon/math"

// Params collects every tuning constant in the combat core. A Params value
// is supplied at Sim construction and treated as immutable for the duration
// of a run. Distances and speeds are in world units; angles are radians;
// times are seconds.
type Params struct {
	// Simulation. MaxTickSeconds caps a single tick's dt so that frame
	// hitches bound worst-case integration error; there is no sub-stepping.
	MaxTickSeconds float32

	// Flight model.
	Mass              float32
	Gravity           float32
	MaxThrust         float32
	IdleThrust        float32
	MaxSpeed          float32
	MinSpeed          float32 // arcade floor while airborne
	AirbrakeMinSpeed  float32 // much lower floor while airbraking
	MinControlSpeed   float32 // control authority ramps to full here
	MinFlySpeed       float32 // no lift below this airspeed
	PitchRate         float32
	RollRate          float32
	YawRate           float32
	AngularDamping    float32
	VelocityAlignRate float32
	MaxAOA            float32
	StallAOA          float32
	LiftSlope         float32
	StallLiftFloor    float32
	LiftScale         float32
	ParasiticDrag     float32
	InducedDragK      float32
	DragScale         float32
	AirbrakeDrag      float32 // drag multiplier with brake held at idle
	HealthMax         float32

	// Aim assist.
	AimRollGain   float32
	AimPitchGain  float32
	AimYawGain    float32
	AimLevelGain  float32
	AimLevelAngle float32 // wings-level override below this error

	// World boundary.
	WorldSoftRadius float32
	WorldHardRadius float32
	BoundarySteer   float32

	// Gun.
	GunRPM            float32
	GunSpread         float32
	GunMuzzleVelocity float32
	GunRoundLifetime  float32
	GunDamage         float32
	GunHitRadius      float32
	TracerInterval    int // every Nth round; rendering hint only
	MaxProjectiles    int

	// Missiles and lock-on.
	MissileSpeed          float32
	MissileLifetime       float32
	MissileArmDistance    float32
	MissileTurnRate       float32
	PNGain                float32
	FuseRadius            float32
	MissileDamage         float32
	MissileRefire         float32
	LockRange             float32
	LockConeAngle         float32 // half-angle
	LockTime              float32
	MissileInventory      int
	MaxMissiles           int
	FlareDecoyProbability float32 // constant, independent of flare age
	JinkDotThreshold      float32 // negative; acceleration reversal sharpness
	JinkGThreshold        float32
	JinkEvadeProbability  float32
	JinkCooldown          float32
	JinkRetryCooldown     float32

	// Flares.
	FlareSalvo    int
	FlareDuration float32
	FlareCooldown float32
	FlareSpread   float32
	MaxFlares     int

	// AI.
	DetectRange       float32
	DisengageRange    float32
	ReturnDetectRange float32
	PatrolRadius      float32
	EvadeDuration     float32
	AIGunRange        float32
	AIGunConeDot      float32
	AIMissileRange    float32
	AIMissileCooldown float32
	AIManeuverHoldMin float32
	AIManeuverHoldMax float32
	AIReactionMin     float32
	AIReactionMax     float32
	AIPullUpAltitude  float32
	AIPullUpLookahead float32
}

func DefaultParams() Params {
	return Params{
		MaxTickSeconds: 0.1,

		Mass:              1000,
		Gravity:           9.8,
		MaxThrust:         50000,
		IdleThrust:        5000,
		MaxSpeed:          250,
		MinSpeed:          60,
		AirbrakeMinSpeed:  25,
		MinControlSpeed:   50,
		MinFlySpeed:       40,
		PitchRate:         2.5,
		RollRate:          3.5,
		YawRate:           1.0,
		AngularDamping:    6,
		VelocityAlignRate: 2.5,
		MaxAOA:            0.35,
		StallAOA:          0.25,
		LiftSlope:         150,
		StallLiftFloor:    8,
		LiftScale:         0.02,
		ParasiticDrag:     0.02,
		InducedDragK:      0.002,
		DragScale:         0.02,
		AirbrakeDrag:      8,
		HealthMax:         100,

		AimRollGain:   3,
		AimPitchGain:  4,
		AimYawGain:    0.3,
		AimLevelGain:  1.5,
		AimLevelAngle: 0.15, // ~8.6 degrees

		WorldSoftRadius: 3500,
		WorldHardRadius: 4000,
		BoundarySteer:   1.2,

		GunRPM:            900,
		GunSpread:         0.015,
		GunMuzzleVelocity: 400,
		GunRoundLifetime:  1.5,
		GunDamage:         4,
		GunHitRadius:      8,
		TracerInterval:    4,
		MaxProjectiles:    256,

		MissileSpeed:          300,
		MissileLifetime:       10,
		MissileArmDistance:    150,
		MissileTurnRate:       1.8,
		PNGain:                4,
		FuseRadius:            25,
		MissileDamage:         60,
		MissileRefire:         0.75,
		LockRange:             1800,
		LockConeAngle:         math.Radians(12),
		LockTime:              1.5,
		MissileInventory:      6,
		MaxMissiles:           32,
		FlareDecoyProbability: 0.35,
		JinkDotThreshold:      -0.4,
		JinkGThreshold:        5,
		JinkEvadeProbability:  0.6,
		JinkCooldown:          2.0,
		JinkRetryCooldown:     0.5,

		FlareSalvo:    3,
		FlareDuration: 3.0,
		FlareCooldown: 2.5,
		FlareSpread:   30,
		MaxFlares:     64,

		DetectRange:       2500,
		DisengageRange:    3500,
		ReturnDetectRange: 1500,
		PatrolRadius:      800,
		EvadeDuration:     3.5,
		AIGunRange:        700,
		AIGunConeDot:      0.985,
		AIMissileRange:    1500,
		AIMissileCooldown: 8,
		AIManeuverHoldMin: 1.0,
		AIManeuverHoldMax: 2.5,
		AIReactionMin:     0.4,
		AIReactionMax:     1.5,
		AIPullUpAltitude:  120,
		AIPullUpLookahead: 3.0,
	}
}
