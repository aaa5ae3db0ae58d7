package modules

import (
	"time"

	"buffwatch/internal/domain"
	"buffwatch/internal/module"
)

const wellFedStatus = 48

// FoodConfig holds food buff tunables.
type FoodConfig struct {
	module.Common
	SuppressInCombat bool `json:"suppress_in_combat"`
	EarlyWarningSec  int  `json:"early_warning_sec"`
}

// SetDefaults restores factory food settings.
func (c *FoodConfig) SetDefaults() {
	*c = FoodConfig{
		Common:           module.Common{Enabled: true},
		SuppressInCombat: true,
		EarlyWarningSec:  600,
	}
}

// Food warns when the local subject's meal buff is missing or about to expire.
type Food struct {
	module.Base
	config *FoodConfig
}

// NewFood creates food module with default config.
func NewFood() *Food {
	cfg := &FoodConfig{}
	return &Food{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleFood,
			Message:  "Food Warning",
			SelfOnly: true,
		}, cfg),
		config: cfg,
	}
}

func (m *Food) Applicable(t module.Tick, e domain.Entity) bool {
	if !t.IsLocal(e) {
		return false
	}
	return !(m.config.SuppressInCombat && t.InCombat())
}

func (m *Food) Evaluate(_ module.Tick, e domain.Entity) error {
	threshold := time.Duration(max(m.config.EarlyWarningSec, 0)) * time.Second
	remaining, ok := e.StatusRemaining(wellFedStatus)
	if !ok || remaining < threshold {
		m.Emit(e, 0, "Food")
	}
	return nil
}

// FreeCompanyConfig holds company buff tunables.
type FreeCompanyConfig struct {
	module.Common
	// StatusIDs lists statuses granted by company actions.
	StatusIDs []uint32 `json:"status_ids"`
}

// SetDefaults restores factory company buff settings.
func (c *FreeCompanyConfig) SetDefaults() {
	*c = FreeCompanyConfig{
		Common:    module.Common{Enabled: true},
		StatusIDs: []uint32{353, 354, 355, 356, 357, 360, 361, 362, 363, 364, 365, 366, 367, 368, 413, 414, 902},
	}
}

// FreeCompany warns when the local subject has no company buff on the home world.
type FreeCompany struct {
	module.Base
	config *FreeCompanyConfig
}

// NewFreeCompany creates company buff module with default config.
func NewFreeCompany() *FreeCompany {
	cfg := &FreeCompanyConfig{}
	return &FreeCompany{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleFreeCompany,
			Message:  "Free Company Buff",
			SelfOnly: true,
		}, cfg),
		config: cfg,
	}
}

func (m *FreeCompany) Applicable(t module.Tick, e domain.Entity) bool {
	return t.IsLocal(e) && t.Frame.HomeWorld == t.Frame.CurrentWorld
}

func (m *FreeCompany) Evaluate(_ module.Tick, e domain.Entity) error {
	if e.MissingStatus(m.config.StatusIDs...) {
		m.Emit(e, 0, "FC Buff")
	}
	return nil
}

// ChocoboConfig holds companion tunables.
type ChocoboConfig struct {
	module.Common
	DisableInCombat bool `json:"disable_in_combat"`
	EarlyWarning    bool `json:"early_warning"`
	EarlyWarningSec int  `json:"early_warning_sec"`
}

// SetDefaults restores factory companion settings.
func (c *ChocoboConfig) SetDefaults() {
	*c = ChocoboConfig{
		Common:          module.Common{Enabled: true},
		DisableInCombat: true,
		EarlyWarning:    true,
		EarlyWarningSec: 300,
	}
}

// Chocobo warns when companion time is running out outside sanctuaries.
type Chocobo struct {
	module.Base
	config *ChocoboConfig
}

// NewChocobo creates companion module with default config.
func NewChocobo() *Chocobo {
	cfg := &ChocoboConfig{}
	return &Chocobo{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleChocobo,
			Message:  "Chocobo Missing",
			SelfOnly: true,
		}, cfg),
		config: cfg,
	}
}

func (m *Chocobo) Applicable(t module.Tick, e domain.Entity) bool {
	if t.Frame.InSanctuary {
		return false
	}
	if m.config.DisableInCombat && t.InCombat() {
		return false
	}
	return t.IsLocal(e)
}

func (m *Chocobo) Evaluate(t module.Tick, e domain.Entity) error {
	warningSec := 0.0
	if m.config.EarlyWarning {
		warningSec = float64(max(m.config.EarlyWarningSec, 0))
	}
	if t.Frame.CompanionSec <= warningSec {
		m.Emit(e, 0, "Gyshal Greens")
	}
	return nil
}
