package engine

import (
	"time"

	"buffwatch/internal/domain"
)

// autoSuppress holds per-module first-warning timestamps keyed by entity.
type autoSuppress struct {
	timers map[domain.ModuleKind]map[domain.EntityID]time.Time
}

func newAutoSuppress() *autoSuppress {
	return &autoSuppress{timers: make(map[domain.ModuleKind]map[domain.EntityID]time.Time)}
}

// Observe records one warned pair and reports whether it crossed the threshold.
// Params: module, entity, tick time, and threshold.
// Returns: true on the first tick where elapsed >= threshold; the timer is dropped.
func (a *autoSuppress) Observe(module domain.ModuleKind, entity domain.EntityID, now time.Time, threshold time.Duration) bool {
	timers, ok := a.timers[module]
	if !ok {
		timers = make(map[domain.EntityID]time.Time)
		a.timers[module] = timers
	}
	start, ok := timers[entity]
	if !ok {
		start = now
		timers[entity] = now
	}
	if now.Sub(start) < threshold {
		return false
	}
	delete(timers, entity)
	return true
}

// Retain drops timers of entities that were not warned this tick.
func (a *autoSuppress) Retain(module domain.ModuleKind, warned map[domain.EntityID]struct{}) {
	for entity := range a.timers[module] {
		if _, ok := warned[entity]; !ok {
			delete(a.timers[module], entity)
		}
	}
}

// Started returns first-warning time of one pair.
func (a *autoSuppress) Started(module domain.ModuleKind, entity domain.EntityID) (time.Time, bool) {
	start, ok := a.timers[module][entity]
	return start, ok
}

func (a *autoSuppress) Reset() {
	clear(a.timers)
}
