// cmd/talon/main.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// talon runs the combat core headless: spawn a player and a handful of
// enemies, drive the player with a simple scripted pursuit controller, and
// print combat events as they happen. Useful for tuning parameters and for
// soak-testing the core without a renderer attached.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/mmp/talon/log"
	"github.com/mmp/talon/math"
	"github.com/mmp/talon/sim"
)

func main() {
	v := viper.New()
	v.SetDefault("seed", 1)
	v.SetDefault("enemies", 3)
	v.SetDefault("duration", 120.0) // seconds
	v.SetDefault("tick-rate", 60)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-dir", "")

	v.SetConfigName("talon")
	v.AddConfigPath(".")
	v.SetEnvPrefix("talon")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Fprintf(os.Stderr, "talon: config: %v\n", err)
			os.Exit(1)
		}
	}

	lg := log.New(v.GetString("log-level"), v.GetString("log-dir"))

	// Any field of sim.Params can be overridden from a "params" block in
	// the config file.
	params := sim.DefaultParams()
	if v.IsSet("params") {
		if err := v.UnmarshalKey("params", &params); err != nil {
			fmt.Fprintf(os.Stderr, "talon: params: %v\n", err)
			os.Exit(1)
		}
	}

	s := sim.New(params, sim.FlatTerrain{}, v.GetInt64("seed"), lg)
	defer s.Destroy()

	s.SpawnPlayer([3]float32{0, 500, 0})
	for i := range v.GetInt("enemies") {
		angle := 2 * math.Pi() * float32(i) / float32(v.GetInt("enemies"))
		s.SpawnEnemy([3]float32{1800 * math.Cos(angle), 600, 1800 * math.Sin(angle)})
	}

	events := s.Subscribe()
	defer events.Unsubscribe()

	dt := 1 / float32(v.GetInt("tick-rate"))
	steps := int(v.GetFloat64("duration") / float64(dt))
	for range steps {
		s.Advance(playerIntent(s), dt)

		for _, ev := range events.Get() {
			fmt.Printf("[%7.2f] %s\n", s.SimTime, ev.String())
		}
	}

	var update sim.StateUpdate
	s.GetStateUpdate(&update)
	alive := 0
	for _, ac := range update.Aircraft {
		if ac.Alive && !ac.Player {
			alive++
		}
	}
	fmt.Printf("done: t=%.1fs, %d enemies alive\n", update.SimTime, alive)
}

// playerIntent is a minimal stand-in pilot: chase the nearest enemy, hold
// the trigger when roughly aligned, launch on lock.
func playerIntent(s *sim.Sim) sim.ControlIntent {
	player, ok := s.Aircraft(s.Player())
	if !ok || !player.Alive {
		return sim.ControlIntent{}
	}

	var nearest *sim.Aircraft
	bestDist := float32(1e30)
	for _, ac := range s.AllAircraft() {
		if ac.Player || !ac.Alive {
			continue
		}
		if d := math.Distance3f(player.Position, ac.Position); d < bestDist {
			bestDist = d
			nearest = ac
		}
	}
	if nearest == nil {
		return sim.ControlIntent{Throttle: 0.5}
	}

	aim := math.SafeNormalize3f(math.Sub3f(nearest.Position, player.Position), player.Forward())
	intent := sim.ControlIntent{AimDir: &aim, Throttle: 1}
	if math.Dot3f(player.Forward(), aim) > 0.99 && bestDist < 800 {
		intent.Fire = true
	}
	intent.FireMissile = s.Lock().LockedTarget.IsValid()
	return intent
}
