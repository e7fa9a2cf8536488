package cache

import (
	"sync/atomic"
	"time"
)

type Level int

const (
	LevelMemory Level = 1
	LevelRedis  Level = 2
)

// CacheSnapshot is a point-in-time copy of the cache counters.
type CacheSnapshot struct {
	L1Hits        int64     `json:"l1_hits"`
	L2Hits        int64     `json:"l2_hits"`
	Misses        int64     `json:"misses"`
	Errors        int64     `json:"errors"`
	Sets          int64     `json:"sets"`
	Invalidations int64     `json:"invalidations"`
	Since         time.Time `json:"since"`
}

// HitRate is the share of lookups answered by either level, in percent.
func (s CacheSnapshot) HitRate() float64 {
	hits := s.L1Hits + s.L2Hits
	if hits+s.Misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+s.Misses) * 100
}

type cacheCounters struct {
	l1Hits        atomic.Int64
	l2Hits        atomic.Int64
	misses        atomic.Int64
	errors        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
	since         time.Time
}

func newCacheCounters() *cacheCounters {
	return &cacheCounters{since: time.Now().UTC()}
}

func (m *cacheCounters) hit(level Level) {
	if level == LevelMemory {
		m.l1Hits.Add(1)
	} else {
		m.l2Hits.Add(1)
	}
}

func (m *cacheCounters) snapshot() CacheSnapshot {
	return CacheSnapshot{
		L1Hits:        m.l1Hits.Load(),
		L2Hits:        m.l2Hits.Load(),
		Misses:        m.misses.Load(),
		Errors:        m.errors.Load(),
		Sets:          m.sets.Load(),
		Invalidations: m.invalidations.Load(),
		Since:         m.since,
	}
}
