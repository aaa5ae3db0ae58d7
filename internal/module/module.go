package module

import (
	"context"
	"time"

	"buffwatch/internal/domain"
	"buffwatch/internal/store"
)

// Module is one independent condition checker.
// Params: per-tick view and entity accessor.
// Returns: warnings accumulated for the current tick.
type Module interface {
	Kind() domain.ModuleKind
	// Applicable is a pure gate, callable many times per tick.
	Applicable(t Tick, e domain.Entity) bool
	// Evaluate emits warnings into the module accumulator. Errors marked by
	// fault.Unavailable mean "no warning for this entity"; other errors and
	// panics are module faults.
	Evaluate(t Tick, e domain.Entity) error
	Warnings() []domain.Warning
	Reset()

	Enabled() bool
	SetEnabled(enabled bool)
	SelfOnly() bool
	RequiresGroup() bool
	TrackedActions() []uint32
	DisplaySettings(actionID uint32) *DisplaySettings

	SaveConfig(ctx context.Context, st store.Store) error
	LoadConfig(ctx context.Context, st store.Store) error
	MarshalConfig() ([]byte, error)
	PatchConfig(body []byte) error
}

// Tick is the read-only per-tick view handed to modules.
// Params: tick time, frame, local id, solo flag, roster, and alliance members.
// Returns: evaluation context valid for one tick.
type Tick struct {
	Now      time.Time
	Frame    *domain.Frame
	LocalID  domain.EntityID
	Solo     bool
	Roster   []domain.Entity
	Alliance []domain.Entity
}

// NewTick builds per-tick view from host frame.
// Params: frame pointer (not retained past the tick) and resolved tick time.
// Returns: tick view with roster ordered as supplied by host.
func NewTick(frame *domain.Frame, now time.Time) Tick {
	tick := Tick{
		Now:     now,
		Frame:   frame,
		LocalID: frame.Local.ID(),
		Solo:    frame.Solo(),
	}
	if tick.Solo {
		tick.Roster = []domain.Entity{frame.Local}
	} else {
		tick.Roster = make([]domain.Entity, 0, len(frame.Party))
		for _, member := range frame.Party {
			tick.Roster = append(tick.Roster, member)
		}
	}
	tick.Alliance = make([]domain.Entity, 0, len(frame.Alliance))
	for _, member := range frame.Alliance {
		tick.Alliance = append(tick.Alliance, member)
	}
	return tick
}

// IsLocal reports whether entity is the local subject.
func (t Tick) IsLocal(e domain.Entity) bool {
	return e.ID() == t.LocalID
}

// InCombat reports frame combat flag.
func (t Tick) InCombat() bool {
	return t.Frame != nil && t.Frame.InCombat
}

// DisplaySettings holds per-action surface visibility.
type DisplaySettings struct {
	ShowInSolo         bool `json:"show_in_solo"`
	ShowInGroupList    bool `json:"show_in_group_list"`
	ShowInGroupOverlay bool `json:"show_in_group_overlay"`
}

// DefaultDisplaySettings shows action on every surface.
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{ShowInSolo: true, ShowInGroupList: true, ShowInGroupOverlay: true}
}

// Allows reports whether action is visible on surface.
// Params: display surface; unknown surfaces are never allowed.
// Returns: visibility flag.
func (d DisplaySettings) Allows(surface domain.Surface) bool {
	switch surface {
	case domain.SurfaceSolo:
		return d.ShowInSolo
	case domain.SurfaceGroupList:
		return d.ShowInGroupList
	case domain.SurfaceGroupOverlay:
		return d.ShowInGroupOverlay
	default:
		return false
	}
}
