package engine

import (
	"fmt"
	"log/slog"
	"time"

	"buffwatch/internal/config"
	"buffwatch/internal/domain"
	"buffwatch/internal/fault"
	"buffwatch/internal/module"
)

// PlayerMutes is the player-suppression layer consulted and fed by the pipeline.
type PlayerMutes interface {
	IsPlayerSuppressed(module domain.ModuleKind, entity domain.EntityID) bool
	SuppressPlayer(module domain.ModuleKind, entity domain.EntityID)
}

// Result is one tick of pipeline output.
// Params: gate reason and flat warning list in module registry order.
// Returns: detached warnings safe to keep after the next tick.
type Result struct {
	Gate     GateReason
	Warnings []domain.Warning
}

// Gated reports whether tick stopped at the global gate.
func (r Result) Gated() bool {
	return r.Gate != GateOpen
}

// Pipeline evaluates the fixed module set against the tick roster.
// Params: ordered modules, mute layer, zone blacklist, and logger.
// Returns: per-tick warning lists with death and auto-suppress bookkeeping.
type Pipeline struct {
	modules []module.Module
	mutes   PlayerMutes
	zones   ZoneFilter
	logger  *slog.Logger
	deaths  *deathTracker
	timers  *autoSuppress
}

// New constructs pipeline for module registry.
// Params: ordered modules, player mute layer, zone blacklist, and logger.
// Returns: pipeline with empty death and timer state.
func New(modules []module.Module, mutes PlayerMutes, zones ZoneFilter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		modules: modules,
		mutes:   mutes,
		zones:   zones,
		logger:  logger,
		deaths:  newDeathTracker(),
		timers:  newAutoSuppress(),
	}
}

// SetLogger replaces fault logger, e.g. to attach session attributes.
func (p *Pipeline) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Modules returns registry in evaluation order.
func (p *Pipeline) Modules() []module.Module {
	return p.modules
}

// Module finds one module by kind.
func (p *Pipeline) Module(kind domain.ModuleKind) (module.Module, bool) {
	for _, m := range p.modules {
		if m.Kind() == kind {
			return m, true
		}
	}
	return nil, false
}

// Reset forgets death edges and auto-suppress timers.
func (p *Pipeline) Reset() {
	p.deaths.Reset()
	p.timers.Reset()
	for _, m := range p.modules {
		m.Reset()
	}
}

// Evaluate runs one tick over every enabled module and surviving entity.
// Params: frame, tick time, and global settings.
// Returns: gate reason and collected warnings.
func (p *Pipeline) Evaluate(frame *domain.Frame, now time.Time, settings config.Settings) Result {
	for _, m := range p.modules {
		m.Reset()
	}

	if gate := Gate(frame, settings, p.zones); gate != GateOpen {
		p.timers.Reset()
		return Result{Gate: gate}
	}

	if !settings.AutoSuppress {
		p.timers.Reset()
	}

	tick := module.NewTick(frame, now)
	entities := make([]domain.Entity, 0, len(tick.Roster))
	for _, e := range tick.Roster {
		if p.entityFilter(frame, e) {
			entities = append(entities, e)
		}
	}

	warnings := make([]domain.Warning, 0)
	for _, m := range p.modules {
		if !m.Enabled() {
			p.timers.Retain(m.Kind(), nil)
			continue
		}
		if entity, err := p.runModule(m, tick, entities, settings); err != nil {
			m.Reset()
			p.timers.Retain(m.Kind(), nil)
			p.logger.Warn("module evaluation failed", "module", m.Kind().String(), "entity", uint64(entity), "error", err.Error())
			continue
		}
		warnings = append(warnings, m.Warnings()...)
	}
	return Result{Warnings: warnings}
}

// runModule evaluates one module for every entity with panic isolation.
// Params: module, tick view, filtered entities, and settings.
// Returns: entity being evaluated and fault error when module failed.
func (p *Pipeline) runModule(m module.Module, tick module.Tick, entities []domain.Entity, settings config.Settings) (current domain.EntityID, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()

	kind := m.Kind()
	warned := make(map[domain.EntityID]struct{})
	for _, e := range entities {
		current = e.ID()
		if !m.Applicable(tick, e) {
			continue
		}
		if p.mutes != nil && p.mutes.IsPlayerSuppressed(kind, current) {
			continue
		}

		before := len(m.Warnings())
		if evalErr := m.Evaluate(tick, e); evalErr != nil {
			if !fault.Is(evalErr) {
				return current, evalErr
			}
			truncate(m, before)
			continue
		}
		if len(m.Warnings()) == before {
			continue
		}
		warned[current] = struct{}{}
		p.autoSuppress(kind, e, tick, settings)
	}
	p.timers.Retain(kind, warned)
	return 0, nil
}

// autoSuppress promotes long-lived companion warnings into player mutes.
func (p *Pipeline) autoSuppress(kind domain.ModuleKind, e domain.Entity, tick module.Tick, settings config.Settings) {
	if !settings.AutoSuppress || tick.IsLocal(e) || p.mutes == nil {
		return
	}
	if !p.timers.Observe(kind, e.ID(), tick.Now, settings.AutoSuppressAfter()) {
		return
	}
	p.mutes.SuppressPlayer(kind, e.ID())
	p.logger.Warn("player auto-suppressed", "module", kind.String(), "entity", uint64(e.ID()), "name", e.Name())
}

// truncater is implemented by accumulators that can drop a partial entity contribution.
type truncater interface {
	Truncate(n int)
}

func truncate(m module.Module, n int) {
	if t, ok := m.(truncater); ok {
		t.Truncate(n)
	}
}

// DisplaySettings resolves per-action surface toggles for a warning.
// Params: module kind and action id; action id 0 is visible everywhere.
// Returns: settings copy, all-true for unknown modules.
func (p *Pipeline) DisplaySettings(kind domain.ModuleKind, actionID uint32) module.DisplaySettings {
	m, ok := p.Module(kind)
	if !ok || actionID == 0 {
		return module.DefaultDisplaySettings()
	}
	return *m.DisplaySettings(actionID)
}
