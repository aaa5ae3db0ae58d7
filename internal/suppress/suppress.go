package suppress

import (
	"sort"

	"buffwatch/internal/domain"
)

type playerKey struct {
	module domain.ModuleKind
	entity domain.EntityID
}

// Engine stores session-scoped mute layers.
// Params: none; caller serializes access.
// Returns: module, (module, entity), and surface suppression sets.
type Engine struct {
	modules  map[domain.ModuleKind]struct{}
	players  map[playerKey]struct{}
	surfaces map[domain.Surface]struct{}
}

// New creates empty suppression engine.
// Params: none.
// Returns: engine with all layers empty.
func New() *Engine {
	return &Engine{
		modules:  make(map[domain.ModuleKind]struct{}),
		players:  make(map[playerKey]struct{}),
		surfaces: make(map[domain.Surface]struct{}),
	}
}

// IsModuleSuppressed reports module-wide mute.
func (e *Engine) IsModuleSuppressed(module domain.ModuleKind) bool {
	_, ok := e.modules[module]
	return ok
}

// IsPlayerSuppressed reports mute of one (module, entity) pair.
func (e *Engine) IsPlayerSuppressed(module domain.ModuleKind, entity domain.EntityID) bool {
	_, ok := e.players[playerKey{module: module, entity: entity}]
	return ok
}

// IsSurfaceSuppressed reports whether surface is auto-hidden.
// Params: display surface; unknown surfaces are never suppressed.
// Returns: true when surface is in the suppressed set.
func (e *Engine) IsSurfaceSuppressed(surface domain.Surface) bool {
	_, ok := e.surfaces[surface]
	return ok
}

// IsWarningSuppressed combines module and player layers for one warning.
// Params: warning record.
// Returns: true when module or (module, entity) pair is muted.
func (e *Engine) IsWarningSuppressed(warning domain.Warning) bool {
	return e.IsModuleSuppressed(warning.Module) || e.IsPlayerSuppressed(warning.Module, warning.EntityID)
}

// ToggleModule flips module-wide suppression.
// Params: module kind.
// Returns: suppression state after toggle.
func (e *Engine) ToggleModule(module domain.ModuleKind) bool {
	if _, ok := e.modules[module]; ok {
		delete(e.modules, module)
		return false
	}
	e.modules[module] = struct{}{}
	return true
}

// SuppressPlayer mutes one (module, entity) pair.
func (e *Engine) SuppressPlayer(module domain.ModuleKind, entity domain.EntityID) {
	e.players[playerKey{module: module, entity: entity}] = struct{}{}
}

// UnsuppressPlayer unmutes one (module, entity) pair.
func (e *Engine) UnsuppressPlayer(module domain.ModuleKind, entity domain.EntityID) {
	delete(e.players, playerKey{module: module, entity: entity})
}

// SuppressSurface hides one surface; unknown surfaces are ignored.
func (e *Engine) SuppressSurface(surface domain.Surface) {
	if !surface.Valid() {
		return
	}
	e.surfaces[surface] = struct{}{}
}

// UnsuppressSurface shows one surface again.
func (e *Engine) UnsuppressSurface(surface domain.Surface) {
	delete(e.surfaces, surface)
}

// ClearAll empties every suppression layer.
// Params: none.
// Returns: none.
func (e *Engine) ClearAll() {
	clear(e.modules)
	clear(e.players)
	clear(e.surfaces)
}

// PlayerMute is one exported (module, entity) suppression entry.
type PlayerMute struct {
	Module   string          `json:"module"`
	EntityID domain.EntityID `json:"entity_id"`
}

// State is a detached copy of suppression layers.
type State struct {
	Modules  []string         `json:"modules"`
	Players  []PlayerMute     `json:"players"`
	Surfaces []domain.Surface `json:"surfaces"`
}

// Snapshot copies suppression layers in deterministic order.
// Params: none.
// Returns: detached state for status output.
func (e *Engine) Snapshot() State {
	state := State{
		Modules:  make([]string, 0, len(e.modules)),
		Players:  make([]PlayerMute, 0, len(e.players)),
		Surfaces: make([]domain.Surface, 0, len(e.surfaces)),
	}
	for _, kind := range domain.ModuleKinds() {
		if e.IsModuleSuppressed(kind) {
			state.Modules = append(state.Modules, kind.String())
		}
	}
	for key := range e.players {
		state.Players = append(state.Players, PlayerMute{Module: key.module.String(), EntityID: key.entity})
	}
	sort.Slice(state.Players, func(i, j int) bool {
		if state.Players[i].Module != state.Players[j].Module {
			return state.Players[i].Module < state.Players[j].Module
		}
		return state.Players[i].EntityID < state.Players[j].EntityID
	})
	for _, surface := range domain.Surfaces() {
		if e.IsSurfaceSuppressed(surface) {
			state.Surfaces = append(state.Surfaces, surface)
		}
	}
	return state
}
