package session

import (
	"time"

	"buffwatch/internal/domain"
)

// SurfaceSuppressor is the suppression layer the tracker drives.
type SurfaceSuppressor interface {
	SuppressSurface(surface domain.Surface)
	UnsuppressSurface(surface domain.Surface)
}

// Policy is one surface suppression rule.
// Params: mode and delay applied to that surface.
// Returns: per-surface tracker input.
type Policy struct {
	Mode  domain.SuppressMode
	Delay time.Duration
}

// State is a detached copy of tracker timestamps.
type State struct {
	InCombat                bool       `json:"in_combat"`
	CombatStart             *time.Time `json:"combat_start,omitempty"`
	WarningsFirstSeen       *time.Time `json:"warnings_first_seen,omitempty"`
	HadWarningsBeforeCombat bool       `json:"had_warnings_before_combat"`
}

// Tracker follows combat edges and warning visibility windows.
// Params: suppression layer receiving surface transitions.
// Returns: time/combat driven surface suppression.
type Tracker struct {
	suppressor SurfaceSuppressor

	inCombat                bool
	combatStart             time.Time
	warningsFirstSeen       time.Time
	hadWarningsBeforeCombat bool
}

// NewTracker creates tracker in initial unset state.
func NewTracker(suppressor SurfaceSuppressor) *Tracker {
	return &Tracker{suppressor: suppressor}
}

// ObserveCombat applies combat edge transitions.
// Params: current combat flag, tick time, and warning count known before this tick.
// Returns: none.
func (t *Tracker) ObserveCombat(inCombat bool, now time.Time, warningCount int) {
	if inCombat == t.inCombat {
		return
	}
	t.inCombat = inCombat
	if inCombat {
		t.combatStart = now
		t.hadWarningsBeforeCombat = warningCount > 0
		return
	}
	for _, surface := range domain.Surfaces() {
		t.suppressor.UnsuppressSurface(surface)
	}
	t.warningsFirstSeen = time.Time{}
	t.combatStart = time.Time{}
}

// ObserveWarnings stamps or clears warnings-first-seen.
// Params: warning count of the current tick and tick time.
// Returns: none.
func (t *Tracker) ObserveWarnings(count int, now time.Time) {
	if count == 0 {
		t.warningsFirstSeen = time.Time{}
		return
	}
	if t.warningsFirstSeen.IsZero() {
		t.warningsFirstSeen = now
	}
}

// Apply evaluates configured mode of every surface.
// Params: per-surface policies and tick time; missing or unknown modes act as never.
// Returns: none.
func (t *Tracker) Apply(policies map[domain.Surface]Policy, now time.Time) {
	for _, surface := range domain.Surfaces() {
		policy := policies[surface]
		switch policy.Mode {
		case domain.SuppressAfterTime:
			if t.warningsFirstSeen.IsZero() {
				t.suppressor.UnsuppressSurface(surface)
				continue
			}
			if now.Sub(t.warningsFirstSeen) >= policy.Delay {
				t.suppressor.SuppressSurface(surface)
			}
		case domain.SuppressOnCombatStart:
			if t.inCombat && now.Sub(t.combatStart) >= policy.Delay {
				t.suppressor.SuppressSurface(surface)
			}
		default:
			t.suppressor.UnsuppressSurface(surface)
		}
	}
}

// Reset returns tracker to initial unset state.
func (t *Tracker) Reset() {
	t.inCombat = false
	t.combatStart = time.Time{}
	t.warningsFirstSeen = time.Time{}
	t.hadWarningsBeforeCombat = false
}

// InCombat reports last observed combat flag.
func (t *Tracker) InCombat() bool {
	return t.inCombat
}

// WarningsFirstSeen returns first-seen stamp; zero means unset.
func (t *Tracker) WarningsFirstSeen() time.Time {
	return t.warningsFirstSeen
}

// Snapshot copies tracker state for status output.
func (t *Tracker) Snapshot() State {
	state := State{
		InCombat:                t.inCombat,
		HadWarningsBeforeCombat: t.hadWarningsBeforeCombat,
	}
	if !t.combatStart.IsZero() {
		start := t.combatStart
		state.CombatStart = &start
	}
	if !t.warningsFirstSeen.IsZero() {
		seen := t.warningsFirstSeen
		state.WarningsFirstSeen = &seen
	}
	return state
}
