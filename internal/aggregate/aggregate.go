package aggregate

import (
	"slices"

	"buffwatch/internal/config"
	"buffwatch/internal/domain"
	"buffwatch/internal/module"
)

// Suppression is the read side of the mute layers used by surfaces.
type Suppression interface {
	IsModuleSuppressed(module domain.ModuleKind) bool
	IsWarningSuppressed(warning domain.Warning) bool
	IsSurfaceSuppressed(surface domain.Surface) bool
}

// DisplayLookup resolves per-action surface toggles.
type DisplayLookup interface {
	DisplaySettings(kind domain.ModuleKind, actionID uint32) module.DisplaySettings
}

// Item is one rendered icon of a surface.
// Params: warning fields, distinct entity count, and mute marker.
// Returns: view-model row.
type Item struct {
	Module     string          `json:"module"`
	Icon       uint32          `json:"icon"`
	ActionID   uint32          `json:"action_id,omitempty"`
	Label      string          `json:"label"`
	Message    string          `json:"message"`
	EntityID   domain.EntityID `json:"entity_id,omitempty"`
	EntityName string          `json:"entity_name,omitempty"`
	Entities   []string        `json:"entities,omitempty"`
	Count      int             `json:"count,omitempty"`
	Priority   int             `json:"priority"`
	Muted      bool            `json:"muted,omitempty"`
}

// View is one display surface.
type View struct {
	Surface    domain.Surface `json:"surface"`
	Visible    bool           `json:"visible"`
	Suppressed bool           `json:"suppressed"`
	Items      []Item         `json:"items"`
}

// Views groups all surfaces of one tick.
type Views struct {
	Solo         View `json:"solo"`
	GroupList    View `json:"group_list"`
	GroupOverlay View `json:"group_overlay"`
}

// Surface returns view by surface key.
func (v Views) Surface(surface domain.Surface) (View, bool) {
	switch surface {
	case domain.SurfaceSolo:
		return v.Solo, true
	case domain.SurfaceGroupList:
		return v.GroupList, true
	case domain.SurfaceGroupOverlay:
		return v.GroupOverlay, true
	default:
		return View{}, false
	}
}

// Input is everything aggregation reads for one tick.
type Input struct {
	Warnings    []domain.Warning
	LocalID     domain.EntityID
	Settings    config.Settings
	Suppression Suppression
	Display     DisplayLookup
}

// Build projects raw warnings into the three surface views.
// Params: tick warnings, local id, settings, mute layers, and display lookup.
// Returns: views ordered and filtered per surface.
func Build(in Input) Views {
	var views Views
	if in.Settings.TestMode {
		views = Views{
			Solo:         View{Surface: domain.SurfaceSolo, Items: sampleSolo()},
			GroupList:    View{Surface: domain.SurfaceGroupList, Items: sampleGroupList()},
			GroupOverlay: View{Surface: domain.SurfaceGroupOverlay, Items: sampleOverlay()},
		}
	} else {
		views = Views{
			Solo:         View{Surface: domain.SurfaceSolo, Items: solo(in)},
			GroupList:    View{Surface: domain.SurfaceGroupList, Items: groupList(in)},
			GroupOverlay: View{Surface: domain.SurfaceGroupOverlay, Items: overlay(in)},
		}
	}
	finish(&views.Solo, in)
	finish(&views.GroupList, in)
	finish(&views.GroupOverlay, in)
	return views
}

func finish(view *View, in Input) {
	if view.Items == nil {
		view.Items = []Item{}
	}
	if in.Suppression != nil {
		view.Suppressed = in.Suppression.IsSurfaceSuppressed(view.Surface)
	}
	show := in.Settings.Surface.For(view.Surface).Show
	if in.Settings.TestMode {
		view.Visible = show
		return
	}
	view.Visible = in.Settings.Enabled && show && !view.Suppressed && len(view.Items) > 0
}

func allowed(in Input, warning domain.Warning, surface domain.Surface) bool {
	if in.Display == nil {
		return true
	}
	return in.Display.DisplaySettings(warning.Module, warning.ActionID).Allows(surface)
}

func moduleMuted(in Input, kind domain.ModuleKind) bool {
	return in.Suppression != nil && in.Suppression.IsModuleSuppressed(kind)
}

func itemFrom(warning domain.Warning) Item {
	return Item{
		Module:     warning.Module.String(),
		Icon:       warning.Icon,
		ActionID:   warning.ActionID,
		Label:      warning.Label,
		Message:    warning.Message,
		EntityID:   warning.EntityID,
		EntityName: warning.EntityName,
		Priority:   warning.Priority,
	}
}

// solo keeps the highest-priority warning per module of the local subject.
func solo(in Input) []Item {
	type key struct {
		module domain.ModuleKind
		entity domain.EntityID
	}
	index := make(map[key]int)
	items := make([]Item, 0)
	for _, warning := range in.Warnings {
		if warning.EntityID != in.LocalID || !allowed(in, warning, domain.SurfaceSolo) {
			continue
		}
		k := key{module: warning.Module, entity: warning.EntityID}
		item := itemFrom(warning)
		item.Muted = moduleMuted(in, warning.Module)
		if at, ok := index[k]; ok {
			if item.Priority > items[at].Priority {
				items[at] = item
			}
			continue
		}
		index[k] = len(items)
		items = append(items, item)
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		return b.Priority - a.Priority
	})
	return items
}

// groupList merges companion warnings by module and action.
func groupList(in Input) []Item {
	type key struct {
		module domain.ModuleKind
		group  uint32
	}
	index := make(map[key]int)
	seen := make(map[key]map[domain.EntityID]struct{})
	items := make([]Item, 0)
	for _, warning := range in.Warnings {
		if !companion(in, warning) || !allowed(in, warning, domain.SurfaceGroupList) {
			continue
		}
		k := key{module: warning.Module, group: warning.GroupKey()}
		at, ok := index[k]
		if !ok {
			item := itemFrom(warning)
			item.EntityID = 0
			item.EntityName = ""
			item.Muted = moduleMuted(in, warning.Module)
			at = len(items)
			index[k] = at
			seen[k] = make(map[domain.EntityID]struct{})
			items = append(items, item)
		}
		if _, dup := seen[k][warning.EntityID]; dup {
			continue
		}
		seen[k][warning.EntityID] = struct{}{}
		items[at].Count++
		items[at].Entities = append(items[at].Entities, warning.EntityName)
		if warning.Priority > items[at].Priority {
			items[at].Priority = warning.Priority
		}
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return b.Priority - a.Priority
	})
	return items
}

// overlay picks the top-priority warning of each companion, then hides it when suppressed.
// A suppressed top warning leaves the companion without an overlay item.
func overlay(in Input) []Item {
	index := make(map[domain.EntityID]int)
	picked := make([]domain.Warning, 0)
	for _, warning := range in.Warnings {
		if !companion(in, warning) || !allowed(in, warning, domain.SurfaceGroupOverlay) {
			continue
		}
		if at, ok := index[warning.EntityID]; ok {
			if warning.Priority > picked[at].Priority {
				picked[at] = warning
			}
			continue
		}
		index[warning.EntityID] = len(picked)
		picked = append(picked, warning)
	}

	items := make([]Item, 0, len(picked))
	for _, warning := range picked {
		if in.Suppression != nil && in.Suppression.IsWarningSuppressed(warning) {
			continue
		}
		items = append(items, itemFrom(warning))
	}
	return items
}

func companion(in Input, warning domain.Warning) bool {
	return warning.EntityID != in.LocalID && warning.EntityID.Valid()
}
