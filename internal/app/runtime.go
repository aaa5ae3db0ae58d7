package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"buffwatch/internal/aggregate"
	"buffwatch/internal/blacklist"
	"buffwatch/internal/clock"
	"buffwatch/internal/config"
	"buffwatch/internal/domain"
	"buffwatch/internal/engine"
	"buffwatch/internal/module"
	"buffwatch/internal/session"
	"buffwatch/internal/store"
	"buffwatch/internal/suppress"
)

var (
	// ErrUnknownModule indicates a control addressed a module outside the registry.
	ErrUnknownModule = errors.New("unknown module")
	// ErrInvalidSettings indicates a rejected settings patch.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrPersist indicates the store rejected a control-triggered save.
	ErrPersist = errors.New("persist failed")
)

// Status is a detached runtime snapshot for the status endpoint.
type Status struct {
	SessionID   string            `json:"session_id"`
	Gate        engine.GateReason `json:"gate,omitempty"`
	Frames      uint64            `json:"frames"`
	Warnings    []domain.Warning  `json:"warnings"`
	Views       aggregate.Views   `json:"views"`
	Suppression suppress.State    `json:"suppression"`
	Tracker     session.State     `json:"tracker"`
	Blacklist   []uint32          `json:"blacklist"`
	Settings    config.Settings   `json:"settings"`
}

// ModuleStatus is one row of the module listing.
type ModuleStatus struct {
	Key           string          `json:"key"`
	Label         string          `json:"label"`
	Category      domain.Category `json:"category"`
	Enabled       bool            `json:"enabled"`
	Muted         bool            `json:"muted"`
	SelfOnly      bool            `json:"self_only"`
	RequiresGroup bool            `json:"requires_group"`
	Actions       []uint32        `json:"actions"`
}

// Runtime owns every piece of mutable engine state.
// Params: character-scoped store, default settings, module registry, clock, and logger.
// Returns: frame sink plus manual controls serialized by one mutex.
type Runtime struct {
	mu sync.Mutex

	store    store.Store
	defaults config.Settings
	settings config.Settings
	zones    *blacklist.Blacklist
	mutes    *suppress.Engine
	pipeline *engine.Pipeline
	tracker  *session.Tracker
	clock    clock.Clock
	base     *slog.Logger
	logger   *slog.Logger

	sessionID string
	frames    uint64
	gate      engine.GateReason
	warnings  []domain.Warning
	views     aggregate.Views
	published uint64
	onViews   func(aggregate.Views)

	notifyMu sync.Mutex
	notified uint64
}

// NewRuntime wires pipeline, suppression, and tracker around one module registry.
// Params: store for persisted blobs, factory settings, modules in evaluation order, clock, logger.
// Returns: runtime in a fresh session with default settings.
func NewRuntime(st store.Store, defaults config.Settings, modules []module.Module, clk clock.Clock, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	mutes := suppress.New()
	zones := blacklist.New()
	r := &Runtime{
		store:    st,
		defaults: defaults,
		settings: defaults,
		zones:    zones,
		mutes:    mutes,
		pipeline: engine.New(modules, mutes, zones, logger),
		tracker:  session.NewTracker(mutes),
		clock:    clk,
		base:     logger,
	}
	r.startSession()
	return r
}

// OnViews registers a callback receiving views after every tick, outside the lock.
func (r *Runtime) OnViews(fn func(aggregate.Views)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onViews = fn
}

// Push implements ingest.FrameSink.
// Params: one decoded tick or session event.
// Returns: error only for persistence failures during login reload.
func (r *Runtime) Push(frame domain.Frame) error {
	switch frame.Type {
	case domain.FrameTick:
		r.Tick(frame)
		return nil
	case domain.FrameLogin:
		return r.Login(context.Background())
	case domain.FrameLogout, domain.FrameDutyWipe, domain.FrameDutyComplete, domain.FrameZoneChanged:
		r.ResetSession(string(frame.Type))
		return nil
	default:
		return fmt.Errorf("unsupported frame type %q", frame.Type)
	}
}

// Tick runs one full frame: tracker edges, module pipeline, surface policies, aggregation.
// Params: tick frame.
// Returns: views built for this tick.
func (r *Runtime) Tick(frame domain.Frame) aggregate.Views {
	r.mu.Lock()
	now := frame.Time(r.clock.Now())
	r.frames++

	var result engine.Result
	if !frame.LoggedIn || frame.BetweenAreas {
		// Gate fails here; Evaluate still drops module and auto-suppress state.
		result = r.pipeline.Evaluate(&frame, now, r.settings)
	} else {
		r.tracker.ObserveCombat(frame.InCombat, now, len(r.warnings))
		result = r.pipeline.Evaluate(&frame, now, r.settings)
		r.tracker.ObserveWarnings(len(result.Warnings), now)
		r.tracker.Apply(r.policies(), now)
	}

	r.gate = result.Gate
	r.warnings = result.Warnings
	r.views = r.build(result.Warnings, frame.Local.ID())
	r.published++
	seq, views, notify := r.published, r.views, r.onViews
	r.mu.Unlock()

	r.publish(seq, views, notify)
	return views
}

// publish hands views to the registered callback in tick order.
// Views overtaken by a later tick are dropped.
func (r *Runtime) publish(seq uint64, views aggregate.Views, notify func(aggregate.Views)) {
	if notify == nil {
		return
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if seq <= r.notified {
		return
	}
	r.notified = seq
	notify(views)
}

func (r *Runtime) build(warnings []domain.Warning, localID domain.EntityID) aggregate.Views {
	return aggregate.Build(aggregate.Input{
		Warnings:    warnings,
		LocalID:     localID,
		Settings:    r.settings,
		Suppression: r.mutes,
		Display:     r.pipeline,
	})
}

func (r *Runtime) policies() map[domain.Surface]session.Policy {
	out := make(map[domain.Surface]session.Policy, len(domain.Surfaces()))
	for _, surface := range domain.Surfaces() {
		cfg := r.settings.Surface.For(surface)
		out[surface] = session.Policy{Mode: cfg.Mode(), Delay: cfg.Delay()}
	}
	return out
}

// Login reloads persisted settings, blacklist, and module configs, then starts a new session.
// Params: context for store reads.
// Returns: nil; individual load faults fall back to defaults and are logged.
func (r *Runtime) Login(ctx context.Context) error {
	snapshot, err := r.prefetch(ctx)
	if err != nil {
		return err
	}

	var problems []error
	r.mu.Lock()
	settings, err := decodeSettings(ctx, snapshot, r.defaults)
	if err != nil {
		problems = append(problems, err)
	}
	r.settings = settings
	if err := r.zones.Load(ctx, snapshot); err != nil {
		problems = append(problems, err)
	}
	for _, m := range r.pipeline.Modules() {
		if err := m.LoadConfig(ctx, snapshot); err != nil {
			problems = append(problems, err)
		}
	}
	r.resetLocked()
	r.startSession()
	logger := r.logger
	r.mu.Unlock()

	for _, problem := range problems {
		logger.Warn("persisted state ignored, using defaults", "error", problem.Error())
	}
	logger.Info("session started")
	return nil
}

// prefetch copies every persisted blob into a memory snapshot without holding the lock.
func (r *Runtime) prefetch(ctx context.Context) (*store.MemoryStore, error) {
	keys := []string{store.SystemBlob, store.BlacklistBlob}
	for _, m := range r.pipeline.Modules() {
		keys = append(keys, store.ModuleBlob(m.Kind().String()))
	}

	snapshot := store.NewMemoryStore()
	for _, key := range keys {
		body, err := r.store.Load(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.currentLogger().Warn("persisted blob unreadable", "key", key, "error", err.Error())
			continue
		}
		if err := snapshot.Save(ctx, key, body); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

func decodeSettings(ctx context.Context, st store.Store, defaults config.Settings) (config.Settings, error) {
	body, err := st.Load(ctx, store.SystemBlob)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("load settings: %w", err)
	}
	settings := defaults
	if err := json.Unmarshal(body, &settings); err != nil {
		return defaults, fmt.Errorf("decode settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return defaults, fmt.Errorf("validate settings: %w", err)
	}
	return settings, nil
}

// ResetSession clears session-scoped state on logout, wipe, completion, or zone change.
// Params: event name for logging.
// Returns: none.
func (r *Runtime) ResetSession(reason string) {
	r.mu.Lock()
	r.resetLocked()
	logger := r.logger
	r.mu.Unlock()
	logger.Info("session state reset", "reason", reason)
}

func (r *Runtime) resetLocked() {
	r.mutes.ClearAll()
	r.tracker.Reset()
	r.pipeline.Reset()
	r.warnings = nil
	r.gate = engine.GateOpen
}

func (r *Runtime) startSession() {
	r.sessionID = uuid.NewString()
	r.logger = r.base.With("session_id", r.sessionID)
	r.pipeline.SetLogger(r.logger)
}

func (r *Runtime) currentLogger() *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}

// ToggleModule flips session mute of one module.
// Params: module key.
// Returns: new muted state or ErrUnknownModule.
func (r *Runtime) ToggleModule(key string) (bool, error) {
	kind, err := r.resolve(key)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutes.ToggleModule(kind), nil
}

// UnsuppressPlayer lifts one (module, entity) mute.
func (r *Runtime) UnsuppressPlayer(key string, entity domain.EntityID) error {
	kind, err := r.resolve(key)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutes.UnsuppressPlayer(kind, entity)
	return nil
}

// SetModuleEnabled switches module on or off and persists its config.
// Params: context for save, module key, and enabled flag.
// Returns: lookup, encode, or store error.
func (r *Runtime) SetModuleEnabled(ctx context.Context, key string, enabled bool) error {
	kind, err := r.resolve(key)
	if err != nil {
		return err
	}
	r.mu.Lock()
	m, _ := r.pipeline.Module(kind)
	m.SetEnabled(enabled)
	body, err := m.MarshalConfig()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.save(ctx, store.ModuleBlob(kind.String()), body)
}

// ModuleConfig returns current JSON config of one module.
func (r *Runtime) ModuleConfig(key string) ([]byte, error) {
	kind, err := r.resolve(key)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, _ := r.pipeline.Module(kind)
	return m.MarshalConfig()
}

// PatchModuleConfig overlays JSON fields onto module config and persists the result.
// Params: context for save, module key, partial JSON object.
// Returns: resulting config or decode/store error.
func (r *Runtime) PatchModuleConfig(ctx context.Context, key string, patch []byte) ([]byte, error) {
	kind, err := r.resolve(key)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	m, _ := r.pipeline.Module(kind)
	if err := m.PatchConfig(patch); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	body, err := m.MarshalConfig()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := r.save(ctx, store.ModuleBlob(kind.String()), body); err != nil {
		return nil, err
	}
	return body, nil
}

// Modules lists registry with enabled and mute state.
func (r *Runtime) Modules() []ModuleStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ModuleStatus, 0, len(r.pipeline.Modules()))
	for _, m := range r.pipeline.Modules() {
		info := m.Kind().Info()
		actions := append([]uint32(nil), m.TrackedActions()...)
		if actions == nil {
			actions = []uint32{}
		}
		out = append(out, ModuleStatus{
			Key:           info.Key,
			Label:         info.Label,
			Category:      info.Category,
			Enabled:       m.Enabled(),
			Muted:         r.mutes.IsModuleSuppressed(m.Kind()),
			SelfOnly:      m.SelfOnly(),
			RequiresGroup: m.RequiresGroup(),
			Actions:       actions,
		})
	}
	return out
}

// Settings returns current global settings.
func (r *Runtime) Settings() config.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// PatchSettings overlays JSON fields onto global settings and persists them.
// Params: context for save and partial JSON object.
// Returns: resulting settings, ErrInvalidSettings for rejected input, or store error.
func (r *Runtime) PatchSettings(ctx context.Context, patch []byte) (config.Settings, error) {
	r.mu.Lock()
	next := r.settings
	if err := json.Unmarshal(patch, &next); err != nil {
		r.mu.Unlock()
		return config.Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := next.Validate(); err != nil {
		r.mu.Unlock()
		return config.Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	r.settings = next
	body, err := json.Marshal(next)
	r.mu.Unlock()
	if err != nil {
		return config.Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := r.save(ctx, store.SystemBlob, body); err != nil {
		return config.Settings{}, err
	}
	return next, nil
}

// BlacklistAdd excludes one territory and persists the blacklist.
// Params: context for save and territory id.
// Returns: whether the set changed and store error.
func (r *Runtime) BlacklistAdd(ctx context.Context, territory uint32) (bool, error) {
	return r.updateBlacklist(ctx, func() bool { return r.zones.Add(territory) })
}

// BlacklistRemove re-includes one territory and persists the blacklist.
func (r *Runtime) BlacklistRemove(ctx context.Context, territory uint32) (bool, error) {
	return r.updateBlacklist(ctx, func() bool { return r.zones.Remove(territory) })
}

func (r *Runtime) updateBlacklist(ctx context.Context, mutate func() bool) (bool, error) {
	r.mu.Lock()
	changed := mutate()
	if !changed {
		r.mu.Unlock()
		return false, nil
	}
	body, err := r.zones.Marshal()
	r.mu.Unlock()
	if err != nil {
		return true, err
	}
	return true, r.save(ctx, store.BlacklistBlob, body)
}

// Views returns views of the last tick.
func (r *Runtime) Views() aggregate.Views {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views
}

// Snapshot copies runtime state for status output.
func (r *Runtime) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	warnings := append([]domain.Warning(nil), r.warnings...)
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	return Status{
		SessionID:   r.sessionID,
		Gate:        r.gate,
		Frames:      r.frames,
		Warnings:    warnings,
		Views:       r.views,
		Suppression: r.mutes.Snapshot(),
		Tracker:     r.tracker.Snapshot(),
		Blacklist:   r.zones.List(),
		Settings:    r.settings,
	}
}

func (r *Runtime) resolve(key string) (domain.ModuleKind, error) {
	kind, err := domain.ParseModuleKind(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModule, key)
	}
	r.mu.Lock()
	_, ok := r.pipeline.Module(kind)
	r.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModule, key)
	}
	return kind, nil
}

func (r *Runtime) save(ctx context.Context, key string, body []byte) error {
	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.store.Save(saveCtx, key, body); err != nil {
		r.currentLogger().Error("persist failed", "key", key, "error", err.Error())
		return fmt.Errorf("%w: %s: %w", ErrPersist, key, err)
	}
	return nil
}
