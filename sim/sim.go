// sim/sim.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"iter"
	"log/slog"

	"github.com/mmp/talon/log"
	"github.com/mmp/talon/math"
	"github.com/mmp/talon/rand"
)

// Sim is the combat core: all aircraft, weapons, and AI state, advanced by
// fixed control-intent ticks. It is deterministic for a given seed and
// intent sequence. Sim is not safe for concurrent use; callers serialize
// Advance against the accessors. Events leave the core only through the
// event stream.
type Sim struct {
	params Params
	lg     *log.Logger

	eventStream *EventStream
	terrain     Terrain

	registry Registry
	player   AircraftID

	ais []aiEntry

	lock        LockOn
	missiles    []Missile
	projectiles []Projectile
	flares      []Flare

	nextFlareSerial int32

	// Per-subsystem RNG streams so that, e.g., a different gun burst length
	// doesn't perturb missile decoy rolls on an otherwise identical run.
	guidanceRand *rand.Rand
	gunRand      *rand.Rand
	flareRand    *rand.Rand
	aiRand       *rand.Rand

	// Intents computed by the AI pass at the end of a tick and consumed by
	// the integration pass of the next one.
	aiIntents map[AircraftID]ControlIntent

	SimTime float32
	tick    int64
}

type aiEntry struct {
	id AircraftID
	ai *AI
}

func New(params Params, terrain Terrain, seed int64, lg *log.Logger) *Sim {
	if terrain == nil {
		terrain = FlatTerrain{}
	}
	s := &Sim{
		params:          params,
		lg:              lg,
		eventStream:     NewEventStream(lg),
		terrain:         terrain,
		nextFlareSerial: 1,
		guidanceRand:    rand.MakeWithSeed(seed),
		gunRand:         rand.MakeWithSeed(seed + 1),
		flareRand:       rand.MakeWithSeed(seed + 2),
		aiRand:          rand.MakeWithSeed(seed + 3),
		aiIntents:       make(map[AircraftID]ControlIntent),
	}
	lg.Info("sim created", slog.Int64("seed", seed))
	return s
}

func (s *Sim) Params() *Params { return &s.params }

func (s *Sim) Terrain() Terrain { return s.terrain }

// Subscribe returns a subscription to the sim's event stream.
func (s *Sim) Subscribe() *EventsSubscription { return s.eventStream.Subscribe() }

func (s *Sim) PostStatus(text string) {
	s.eventStream.Post(Event{Type: StatusMessageEvent, WrittenText: text})
}

func (s *Sim) Destroy() { s.eventStream.Destroy() }

func newAircraft(pos [3]float32, yaw float32, speed float32, player bool, p *Params) Aircraft {
	orient := math.AxisAngleQuaternion(worldUp, yaw)
	ac := Aircraft{
		Position:          pos,
		Orientation:       orient,
		Health:            p.HealthMax,
		Alive:             true,
		Player:            player,
		MissilesRemaining: p.MissileInventory,
	}
	ac.Velocity = math.Scale3f(ac.Forward(), speed)
	ac.PrevVelocity = ac.Velocity
	ac.Speed = speed
	return ac
}

// SpawnPlayer creates the player aircraft at the given position, flying
// level at cruise speed. There is at most one player; respawning replaces
// the previous one.
func (s *Sim) SpawnPlayer(pos [3]float32) AircraftID {
	if s.player.IsValid() {
		s.registry.Release(s.player)
	}
	cruise := 0.5 * (s.params.MinSpeed + s.params.MaxSpeed)
	s.player = s.registry.Add(newAircraft(pos, 0, cruise, true, &s.params))
	s.lock = LockOn{}
	s.lg.Info("player spawned", slog.Any("id", s.player), slog.Any("position", pos))
	return s.player
}

// SpawnEnemy creates an AI-controlled aircraft patrolling around its spawn
// position, with randomized heading and personality.
func (s *Sim) SpawnEnemy(pos [3]float32) AircraftID {
	cruise := 0.5 * (s.params.MinSpeed + s.params.MaxSpeed)
	yaw := s.aiRand.Float32In(0, 2*math.Pi())
	id := s.registry.Add(newAircraft(pos, yaw, cruise, false, &s.params))

	ai := MakeAI(pos, s.aiRand, &s.params)
	s.ais = append(s.ais, aiEntry{id: id, ai: ai})
	s.lg.Info("enemy spawned", slog.Any("id", id), slog.Any("ai", ai))
	return id
}

// ResetPlayer restores the player aircraft to full health and a level
// attitude at the given position, keeping its identity (and so any AI
// target references to it) intact.
func (s *Sim) ResetPlayer(pos [3]float32) error {
	ac, ok := s.registry.Get(s.player)
	if !ok {
		return ErrUnknownAircraft
	}
	cruise := 0.5 * (s.params.MinSpeed + s.params.MaxSpeed)
	*ac = newAircraft(pos, 0, cruise, true, &s.params)
	s.lock = LockOn{}
	s.lg.Info("player reset", slog.Any("id", s.player))
	return nil
}

func (s *Sim) Player() AircraftID { return s.player }

// Aircraft resolves an ID; ok is false for stale or null references.
func (s *Sim) Aircraft(id AircraftID) (*Aircraft, bool) { return s.registry.Get(id) }

// AllAircraft iterates over the live aircraft records. Callers must not
// mutate them; use ControlIntent and the explicit APIs instead.
func (s *Sim) AllAircraft() iter.Seq2[AircraftID, *Aircraft] { return s.registry.All() }

func (s *Sim) Lock() LockOn { return s.lock }

// Missiles, Projectiles, and Flares expose the live munition slices for
// rendering and tests. Callers must not retain them across Advance.
func (s *Sim) Missiles() []Missile       { return s.missiles }
func (s *Sim) Projectiles() []Projectile { return s.projectiles }
func (s *Sim) Flares() []Flare           { return s.flares }

// FireMissile launches at the player's locked target. Unlike the intent
// flag, which silently does nothing when a launch isn't possible, this
// reports why.
func (s *Sim) FireMissile() error {
	ac, ok := s.registry.Get(s.player)
	if !ok {
		return ErrUnknownAircraft
	}
	if !ac.Alive {
		return ErrAircraftNotAlive
	}
	if !s.lock.LockedTarget.IsValid() {
		return ErrNoLockedTarget
	}
	if ac.MissilesRemaining <= 0 {
		return ErrNoMissilesLeft
	}
	if ac.MissileCooldown > 0 {
		return ErrMissileNotReloaded
	}
	s.launchMissile(s.player, ac, s.lock.LockedTarget)
	return nil
}

// Advance runs one simulation tick: integration under this tick's intents,
// collision, weapons and guidance, then the AI pass that produces the next
// tick's intents. dt is capped rather than sub-stepped.
func (s *Sim) Advance(playerIntent ControlIntent, dt float32) {
	if dt <= 0 {
		return
	}
	dt = math.Min(dt, s.params.MaxTickSeconds)
	s.SimTime += dt
	s.tick++

	intents := make(map[AircraftID]ControlIntent, 1+len(s.ais))
	intents[s.player] = playerIntent.Clamped()
	for _, e := range s.ais {
		intents[e.id] = s.aiIntents[e.id]
	}

	// Integration.
	for id, ac := range s.registry.All() {
		UpdateFlight(ac, intents[id], dt, &s.params)
	}

	// Terrain collision.
	for id, ac := range s.registry.All() {
		if ac.Alive && s.terrain.Collides(ac.Position) {
			onGround := ac.Position[1] <= 1 && s.terrain.HeightAt(ac.Position[0], ac.Position[2]) <= 0
			if onGround && ac.Speed < s.params.MinFlySpeed {
				// Sitting on flat ground at taxi speed is not a crash.
				continue
			}
			ac.Health = 0
			ac.Alive = false
			s.reportDestroyed(id, ac, NoAircraft, CauseTerrain)
		}
	}

	// Weapons and guidance.
	for id, ac := range s.registry.All() {
		intent := intents[id]
		if !ac.Alive {
			continue
		}
		if intent.Fire {
			s.fireGun(id, ac, dt)
		} else if ac.GunCooldown > 0 {
			ac.GunCooldown = math.Max(ac.GunCooldown-dt, 0)
		}
		if intent.DropFlares {
			s.deployFlares(id, ac)
		}
		if intent.FireMissile && !ac.Player {
			// AI missiles launch at the AI's own target; the player's go
			// through the lock via FireMissile or the intent flag below.
			if e := s.aiFor(id); e != nil && ac.MissilesRemaining > 0 && ac.MissileCooldown <= 0 {
				if target, ok := s.registry.Get(e.Target); ok && target.Alive {
					s.launchMissile(id, ac, e.Target)
				}
			}
		}
	}
	if playerIntent.FireMissile {
		// Best-effort: failures (no lock, empty rails, reloading) are
		// silent here, matching trigger-hold semantics.
		_ = s.FireMissile()
	}

	s.updateProjectiles(dt)
	s.updateLock(dt)
	s.updateMissiles(dt)
	s.updateFlares(dt)

	// AI decisions for the next tick.
	player, _ := s.registry.Get(s.player) // nil when absent
	for _, e := range s.ais {
		ac, ok := s.registry.Get(e.id)
		if !ok || !ac.Alive {
			continue
		}
		s.aiIntents[e.id] = e.ai.Update(ac, e.id, player, s.player, s.missiles, s.terrain, dt, &s.params)
	}

	// Housekeeping: cooldowns and dead-AI cleanup.
	for _, ac := range s.registry.All() {
		ac.MissileCooldown = math.Max(ac.MissileCooldown-dt, 0)
		ac.FlareCooldown = math.Max(ac.FlareCooldown-dt, 0)
	}
	s.pruneDeadAIs()
}

// aiFor returns the controller for an AI aircraft, or nil.
func (s *Sim) aiFor(id AircraftID) *AI {
	for _, e := range s.ais {
		if e.id == id {
			return e.ai
		}
	}
	return nil
}

// pruneDeadAIs drops controllers whose aircraft are dead or gone. The
// aircraft record itself stays in the registry so wreck positions and
// stale-handle checks keep working.
func (s *Sim) pruneDeadAIs() {
	out := s.ais[:0]
	for _, e := range s.ais {
		if ac, ok := s.registry.Get(e.id); ok && ac.Alive {
			out = append(out, e)
		} else {
			delete(s.aiIntents, e.id)
		}
	}
	s.ais = out
}

// reportDestroyed posts the destruction event and logs it. The aircraft
// has already been marked dead by the caller.
func (s *Sim) reportDestroyed(id AircraftID, ac *Aircraft, from AircraftID, cause DestroyCause) {
	s.eventStream.Post(Event{
		Type:     DestroyedEvent,
		Aircraft: id,
		Source:   from,
		Position: ac.Position,
		Cause:    cause,
	})
	s.lg.Info("aircraft destroyed", slog.Any("id", id), slog.Any("aircraft", ac),
		slog.String("cause", cause.String()))

	if s.lock.LockingTarget == id || s.lock.LockedTarget == id {
		s.clearLock()
	}
}

// appendBounded appends v, evicting the oldest element when the slice is
// at its cap. Pool limits keep per-tick munition work bounded.
func appendBounded[T any](s []T, v T, max int) []T {
	if max > 0 && len(s) >= max {
		copy(s, s[1:])
		s[len(s)-1] = v
		return s
	}
	return append(s, v)
}
