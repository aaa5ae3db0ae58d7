package module

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"buffwatch/internal/domain"
	"buffwatch/internal/fault"
	"buffwatch/internal/store"
)

// Common is the configuration shared by every module.
// Params: enabled flag and lazily created per-action display settings.
// Returns: JSON fields embedded into each module config blob.
type Common struct {
	Enabled bool                        `json:"enabled"`
	Actions map[uint32]*DisplaySettings `json:"actions,omitempty"`
}

// common exposes the embedded block through module-specific configs.
func (c *Common) common() *Common {
	return c
}

// Config is implemented by module-specific configuration structs.
type Config interface {
	common() *Common
	// SetDefaults restores factory values, including Common.
	SetDefaults()
}

// Options describes static module metadata.
type Options struct {
	Kind          domain.ModuleKind
	Message       string
	Actions       []uint32
	SelfOnly      bool
	RequiresGroup bool
	Priority      int
}

// Base is the composition helper embedded by concrete modules.
// Params: static options and pointer to module-specific config.
// Returns: accumulator, shared config, persistence, and emit helpers.
type Base struct {
	opts     Options
	config   Config
	warnings []domain.Warning
}

// NewBase creates base helper and resets config to defaults.
// Params: static options and module config pointer.
// Returns: initialized base.
func NewBase(opts Options, cfg Config) Base {
	cfg.SetDefaults()
	return Base{opts: opts, config: cfg}
}

func (b *Base) Kind() domain.ModuleKind { return b.opts.Kind }
func (b *Base) SelfOnly() bool { return b.opts.SelfOnly }
func (b *Base) RequiresGroup() bool { return b.opts.RequiresGroup }
func (b *Base) Enabled() bool { return b.config.common().Enabled }

// SetEnabled toggles module and drops warnings accumulated while enabled.
func (b *Base) SetEnabled(enabled bool) {
	b.config.common().Enabled = enabled
	if !enabled {
		b.Reset()
	}
}

// TrackedActions returns copy of action ids with per-surface toggles.
func (b *Base) TrackedActions() []uint32 {
	return append([]uint32(nil), b.opts.Actions...)
}

// Warnings returns warnings accumulated this tick.
func (b *Base) Warnings() []domain.Warning {
	return b.warnings
}

// Reset clears accumulator before a new tick.
func (b *Base) Reset() {
	b.warnings = b.warnings[:0]
}

// Truncate drops warnings past n, discarding a partial entity contribution.
func (b *Base) Truncate(n int) {
	if n >= 0 && n < len(b.warnings) {
		b.warnings = b.warnings[:n]
	}
}

// DisplaySettings returns per-action settings, creating all-true defaults on first query.
// Params: action id; 0 addresses warnings without action granularity.
// Returns: mutable settings owned by module config.
func (b *Base) DisplaySettings(actionID uint32) *DisplaySettings {
	common := b.config.common()
	if common.Actions == nil {
		common.Actions = make(map[uint32]*DisplaySettings)
	}
	settings, ok := common.Actions[actionID]
	if !ok || settings == nil {
		defaults := DefaultDisplaySettings()
		settings = &defaults
		common.Actions[actionID] = settings
	}
	return settings
}

// Emit records warning without action granularity.
// Params: source entity and icon label; icon falls back to module icon.
// Returns: none.
func (b *Base) Emit(e domain.Entity, icon uint32, label string) {
	info := b.opts.Kind.Info()
	if icon == 0 {
		icon = info.Icon
	}
	if label == "" {
		label = info.Label
	}
	b.warnings = append(b.warnings, domain.Warning{
		Module:     b.opts.Kind,
		Icon:       icon,
		Label:      label,
		Message:    b.opts.Message,
		EntityID:   e.ID(),
		EntityName: e.Name(),
		Priority:   b.opts.Priority,
	})
}

// EmitAction records warning for one catalog action.
// Params: source entity and action id.
// Returns: fault.Unavailable error when action is missing from catalog.
func (b *Base) EmitAction(e domain.Entity, actionID uint32) error {
	action, ok := domain.LookupAction(actionID)
	if !ok {
		return fault.Mark(fmt.Errorf("action %d not in catalog", actionID))
	}
	b.warnings = append(b.warnings, domain.Warning{
		Module:     b.opts.Kind,
		Icon:       action.Icon,
		ActionID:   action.ID,
		Label:      action.Name,
		Message:    b.opts.Message,
		EntityID:   e.ID(),
		EntityName: e.Name(),
		Priority:   b.opts.Priority,
	})
	return nil
}

// SaveConfig persists module config blob.
// Params: context and character-scoped store.
// Returns: encode or store error.
func (b *Base) SaveConfig(ctx context.Context, st store.Store) error {
	body, err := b.MarshalConfig()
	if err != nil {
		return err
	}
	if err := st.Save(ctx, store.ModuleBlob(b.opts.Kind.String()), body); err != nil {
		return fmt.Errorf("save %s config: %w", b.opts.Kind, err)
	}
	return nil
}

// LoadConfig restores module config blob.
// Params: context and character-scoped store.
// Returns: nil for absent blob; error for store or decode failure, with defaults applied.
func (b *Base) LoadConfig(ctx context.Context, st store.Store) error {
	b.config.SetDefaults()
	body, err := st.Load(ctx, store.ModuleBlob(b.opts.Kind.String()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load %s config: %w", b.opts.Kind, err)
	}
	if err := json.Unmarshal(body, b.config); err != nil {
		b.config.SetDefaults()
		return fmt.Errorf("decode %s config: %w", b.opts.Kind, err)
	}
	return nil
}

// MarshalConfig encodes current module config.
func (b *Base) MarshalConfig() ([]byte, error) {
	body, err := json.Marshal(b.config)
	if err != nil {
		return nil, fmt.Errorf("encode %s config: %w", b.opts.Kind, err)
	}
	return body, nil
}

// PatchConfig overlays JSON fields onto current config.
// Params: partial JSON object.
// Returns: decode error; config stays unchanged on failure.
func (b *Base) PatchConfig(body []byte) error {
	previous, err := b.MarshalConfig()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, b.config); err != nil {
		b.config.SetDefaults()
		_ = json.Unmarshal(previous, b.config)
		return fmt.Errorf("decode %s config patch: %w", b.opts.Kind, err)
	}
	if !b.config.common().Enabled {
		b.Reset()
	}
	return nil
}
