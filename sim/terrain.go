// sim/terrain.go
// Copyright(c) 2024-2025 talon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mmp/talon/math"
)

// Terrain is the world-query surface the core consumes. Implementations
// must be pure queries, callable one or more times per aircraft per tick.
type Terrain interface {
	HeightAt(x, z float32) float32
	Collides(p [3]float32) bool
}

// FlatTerrain is a constant-elevation surface, mostly useful for tests.
type FlatTerrain struct {
	Elevation float32
}

func (t FlatTerrain) HeightAt(x, z float32) float32 { return t.Elevation }

func (t FlatTerrain) Collides(p [3]float32) bool { return p[1] <= t.Elevation }

// HeightFieldTerrain adapts a height function to the Terrain interface;
// a position collides when it is within Clearance of the surface.
type HeightFieldTerrain struct {
	Height    func(x, z float32) float32
	Clearance float32
}

func (t HeightFieldTerrain) HeightAt(x, z float32) float32 { return t.Height(x, z) }

func (t HeightFieldTerrain) Collides(p [3]float32) bool {
	return p[1] <= t.Height(p[0], p[2])+t.Clearance
}

// CachedTerrain memoizes height queries on a quantized grid for height
// fields that are expensive to evaluate. Collision checks go through the
// cached height rather than the inner Collides so that both queries agree.
type CachedTerrain struct {
	inner     Terrain
	cache     *lru.Cache[[2]int32, float32]
	cellSize  float32
	clearance float32
}

func NewCachedTerrain(inner Terrain, entries int, cellSize, clearance float32) (*CachedTerrain, error) {
	cache, err := lru.New[[2]int32, float32](entries)
	if err != nil {
		return nil, err
	}
	return &CachedTerrain{inner: inner, cache: cache, cellSize: cellSize, clearance: clearance}, nil
}

func (t *CachedTerrain) HeightAt(x, z float32) float32 {
	key := [2]int32{int32(math.Floor(x / t.cellSize)), int32(math.Floor(z / t.cellSize))}
	if h, ok := t.cache.Get(key); ok {
		return h
	}
	h := t.inner.HeightAt(x, z)
	t.cache.Add(key, h)
	return h
}

func (t *CachedTerrain) Collides(p [3]float32) bool {
	return p[1] <= t.HeightAt(p[0], p[2])+t.clearance
}
