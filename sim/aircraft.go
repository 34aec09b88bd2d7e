// sim/aircraft.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"iter"
	"log/slog"

	"github.com/mmp/talon/math"
)

// AircraftID is a weak reference to an aircraft: an index into the registry
// plus a generation counter. A stale ID (its aircraft released and the slot
// reused) fails the generation check on lookup, so "reference no longer
// valid" is a checkable condition rather than an implicit nil. The zero
// value is the null reference.
type AircraftID struct {
	Index int32
	Gen   uint32
}

var NoAircraft AircraftID

func (id AircraftID) IsValid() bool { return id.Gen != 0 }

func (id AircraftID) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("index", int(id.Index)), slog.Uint64("gen", uint64(id.Gen)))
}

// Aircraft is the shared state record mutated by the integrator, the weapon
// subsystems, and damage events. Player and AI aircraft are the same type;
// what differs is the controller that produces their ControlIntent.
type Aircraft struct {
	Position        [3]float32
	Velocity        [3]float32
	Orientation     math.Quaternion // always unit length after each tick
	AngularVelocity [3]float32
	Throttle        float32
	Speed           float32 // |Velocity|, derived
	Health          float32
	Alive           bool
	GForce          float32    // vertical load factor, derived, for display
	PrevVelocity    [3]float32 // previous tick, for jink detection
	LastDamageFrom  AircraftID

	Player bool

	// Weapon-subsystem state, per aircraft.
	GunCooldown       float32
	RoundsFired       int
	MissilesRemaining int
	MissileCooldown   float32
	FlareCooldown     float32
}

func (ac *Aircraft) Forward() [3]float32 { return ac.Orientation.Forward() }
func (ac *Aircraft) Up() [3]float32      { return ac.Orientation.Up() }
func (ac *Aircraft) Right() [3]float32   { return ac.Orientation.Right() }

// ApplyDamage reduces health, records the damage source, and reports
// whether this damage killed the aircraft. Health never increases here;
// only an explicit reset does that.
func (ac *Aircraft) ApplyDamage(amount float32, from AircraftID) bool {
	if !ac.Alive || amount <= 0 {
		return false
	}
	ac.Health = math.Max(ac.Health-amount, 0)
	ac.LastDamageFrom = from
	if ac.Health == 0 {
		ac.Alive = false
		return true
	}
	return false
}

func (ac *Aircraft) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("player", ac.Player),
		slog.Bool("alive", ac.Alive),
		slog.Float64("health", float64(ac.Health)),
		slog.Float64("speed", float64(ac.Speed)),
		slog.Any("position", ac.Position))
}

///////////////////////////////////////////////////////////////////////////
// Registry

type aircraftSlot struct {
	gen  uint32
	live bool
	ac   Aircraft
}

// Registry owns aircraft storage. Slots are reused across spawns with a
// bumped generation so that weak references held by missiles, projectiles,
// and AI agents can never resolve to the wrong aircraft.
type Registry struct {
	slots []aircraftSlot
}

// Add stores the aircraft and returns its handle.
func (r *Registry) Add(ac Aircraft) AircraftID {
	for i := range r.slots {
		if !r.slots[i].live {
			r.slots[i].gen++
			r.slots[i].live = true
			r.slots[i].ac = ac
			return AircraftID{Index: int32(i), Gen: r.slots[i].gen}
		}
	}
	r.slots = append(r.slots, aircraftSlot{gen: 1, live: true, ac: ac})
	return AircraftID{Index: int32(len(r.slots) - 1), Gen: 1}
}

// Get resolves a handle; ok is false for the null reference, a released
// slot, or a stale generation.
func (r *Registry) Get(id AircraftID) (*Aircraft, bool) {
	if !id.IsValid() || int(id.Index) >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[id.Index]
	if !s.live || s.gen != id.Gen {
		return nil, false
	}
	return &s.ac, true
}

// Release frees the slot; outstanding handles to it become stale.
func (r *Registry) Release(id AircraftID) {
	if _, ok := r.Get(id); ok {
		r.slots[id.Index].live = false
	}
}

// All iterates over the live aircraft. Callers must not Add or Release
// while iterating; the tick loop marks deaths in place and defers slot
// release to housekeeping.
func (r *Registry) All() iter.Seq2[AircraftID, *Aircraft] {
	return func(yield func(AircraftID, *Aircraft) bool) {
		for i := range r.slots {
			if r.slots[i].live {
				if !yield(AircraftID{Index: int32(i), Gen: r.slots[i].gen}, &r.slots[i].ac) {
					return
				}
			}
		}
	}
}

func (r *Registry) Len() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].live {
			n++
		}
	}
	return n
}
