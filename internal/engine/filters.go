package engine

import "buffwatch/internal/domain"

// blockingStatus hides an entity from every module while active.
const blockingStatus = 1534

// deathTracker skips entities from their first dead sample until they were
// sampled alive on two consecutive ticks.
type deathTracker struct {
	// value reports whether one alive sample was already seen since death.
	dead map[domain.EntityID]bool
}

func newDeathTracker() *deathTracker {
	return &deathTracker{dead: make(map[domain.EntityID]bool)}
}

// IsDead updates edge state for entity and reports whether it must be skipped.
// Params: entity sampled this tick.
// Returns: true while dead flag is set or hp is 0, and for the first alive sample after that.
func (d *deathTracker) IsDead(e domain.Entity) bool {
	id := e.ID()
	if e.Dead() || e.HP() == 0 {
		d.dead[id] = false
		return true
	}
	reviving, ok := d.dead[id]
	if !ok {
		return false
	}
	if !reviving {
		d.dead[id] = true
		return true
	}
	delete(d.dead, id)
	return false
}

func (d *deathTracker) Reset() {
	clear(d.dead)
}

// entityFilter is the per-entity filter run before any module.
// Params: frame flags and death tracker.
// Returns: true when entity may be evaluated.
func (p *Pipeline) entityFilter(frame *domain.Frame, e domain.Entity) bool {
	if !e.ID().Valid() {
		return false
	}
	if frame.Transient {
		return false
	}
	if e.HasStatus(blockingStatus) {
		return false
	}
	return !p.deaths.IsDead(e)
}
