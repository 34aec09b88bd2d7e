// sim/errors.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "errors"

// Errors returned by the explicit weapon-control API. The intent-driven
// path never surfaces these; a fire request that can't be honored there is
// silently ignored.
var (
	ErrNoLockedTarget     = errors.New("No locked target")
	ErrNoMissilesLeft     = errors.New("Missile inventory is empty")
	ErrUnknownAircraft    = errors.New("Unknown or stale aircraft reference")
	ErrAircraftNotAlive   = errors.New("Aircraft is not alive")
	ErrMissileNotReloaded = errors.New("Missile launcher is still cycling")
)
