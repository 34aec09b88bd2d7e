// sim/state.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/brunoga/deep"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mmp/talon/math"
)

// AircraftSnapshot is the per-aircraft slice of a StateUpdate: everything a
// renderer or HUD needs, nothing it can mutate back into the core.
type AircraftSnapshot struct {
	ID          AircraftID      `msgpack:"id"`
	Player      bool            `msgpack:"player"`
	Position    [3]float32      `msgpack:"pos"`
	Velocity    [3]float32      `msgpack:"vel"`
	Orientation math.Quaternion `msgpack:"orient"`
	Speed       float32         `msgpack:"speed"`
	Health      float32         `msgpack:"health"`
	Alive       bool            `msgpack:"alive"`
	GForce      float32         `msgpack:"gforce"`
	Throttle    float32         `msgpack:"throttle"`

	MissilesRemaining int `msgpack:"missiles"`
}

// StateUpdate is a self-contained copy of the observable sim state at one
// tick. It shares no memory with the live sim, so consumers may hold it
// across any number of Advance calls.
type StateUpdate struct {
	SimTime  float32            `msgpack:"time"`
	Aircraft []AircraftSnapshot `msgpack:"aircraft"`

	Missiles    []Missile    `msgpack:"missiles"`
	Projectiles []Projectile `msgpack:"projectiles"`
	Flares      []Flare      `msgpack:"flares"`

	PlayerID     AircraftID `msgpack:"player_id"`
	LockTarget   AircraftID `msgpack:"lock_target"`
	LockProgress float32    `msgpack:"lock_progress"`
	Locked       bool       `msgpack:"locked"`
}

// GetStateUpdate fills a StateUpdate with deep copies of the current state.
func (s *Sim) GetStateUpdate(update *StateUpdate) {
	update.SimTime = s.SimTime
	update.PlayerID = s.player

	update.Aircraft = update.Aircraft[:0]
	for id, ac := range s.registry.All() {
		update.Aircraft = append(update.Aircraft, AircraftSnapshot{
			ID:                id,
			Player:            ac.Player,
			Position:          ac.Position,
			Velocity:          ac.Velocity,
			Orientation:       ac.Orientation,
			Speed:             ac.Speed,
			Health:            ac.Health,
			Alive:             ac.Alive,
			GForce:            ac.GForce,
			Throttle:          ac.Throttle,
			MissilesRemaining: ac.MissilesRemaining,
		})
	}

	update.Missiles = deep.MustCopy(s.missiles)
	update.Projectiles = deep.MustCopy(s.projectiles)
	update.Flares = deep.MustCopy(s.flares)

	if s.lock.LockedTarget.IsValid() {
		update.LockTarget = s.lock.LockedTarget
		update.Locked = true
		update.LockProgress = 1
	} else {
		update.LockTarget = s.lock.LockingTarget
		update.Locked = false
		update.LockProgress = s.lock.Progress(&s.params)
	}
}

// EncodeStateUpdate serializes an update for spectator streams or replay
// capture.
func EncodeStateUpdate(update *StateUpdate) ([]byte, error) {
	return msgpack.Marshal(update)
}

func DecodeStateUpdate(b []byte) (*StateUpdate, error) {
	var update StateUpdate
	if err := msgpack.Unmarshal(b, &update); err != nil {
		return nil, err
	}
	return &update, nil
}
