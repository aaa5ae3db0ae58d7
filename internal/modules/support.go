package modules

import (
	"buffwatch/internal/domain"
	"buffwatch/internal/module"
)

const (
	sageJob          = 40
	sageMinimumLevel = 4
	kardiaAction     = 24285
	kardiaStatus     = 2604
)

// SageConfig holds sage tunables.
type SageConfig struct {
	module.Common
	DisableWhileSolo bool `json:"disable_while_solo"`
}

// SetDefaults restores factory sage settings.
func (c *SageConfig) SetDefaults() {
	*c = SageConfig{Common: module.Common{Enabled: true}, DisableWhileSolo: true}
}

// Sage warns when a sage has no Kardia applied.
type Sage struct {
	module.Base
	config *SageConfig
}

// NewSage creates sage module with default config.
func NewSage() *Sage {
	cfg := &SageConfig{}
	return &Sage{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleSage,
			Message:  "Sage Kardion",
			Actions:  []uint32{kardiaAction},
			Priority: 20,
		}, cfg),
		config: cfg,
	}
}

func (m *Sage) Applicable(t module.Tick, e domain.Entity) bool {
	if m.config.DisableWhileSolo && t.Solo {
		return false
	}
	return e.ClassJob() == sageJob && e.Level() >= sageMinimumLevel
}

func (m *Sage) Evaluate(_ module.Tick, e domain.Entity) error {
	if e.MissingStatus(kardiaStatus) {
		return m.EmitAction(e, kardiaAction)
	}
	return nil
}

const (
	arcanistJob          = 26
	summonerJob          = 27
	summonerMinimumLevel = 2
	summonCarbuncle      = 25798
)

// SummonerConfig holds summoner tunables.
type SummonerConfig struct {
	module.Common
}

// SetDefaults restores factory summoner settings.
func (c *SummonerConfig) SetDefaults() {
	*c = SummonerConfig{Common: module.Common{Enabled: true}}
}

// Summoner warns when an arcanist or summoner has no pet out.
type Summoner struct {
	module.Base
	config *SummonerConfig
}

// NewSummoner creates summoner module with default config.
func NewSummoner() *Summoner {
	cfg := &SummonerConfig{}
	return &Summoner{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleSummoner,
			Message:  "Summoner Pet",
			Actions:  []uint32{summonCarbuncle},
			Priority: 20,
		}, cfg),
		config: cfg,
	}
}

func (m *Summoner) Applicable(_ module.Tick, e domain.Entity) bool {
	job := e.ClassJob()
	if job != arcanistJob && job != summonerJob {
		return false
	}
	return e.Level() >= summonerMinimumLevel && e.Targetable()
}

func (m *Summoner) Evaluate(_ module.Tick, e domain.Entity) error {
	if !e.HasPet() {
		return m.EmitAction(e, summonCarbuncle)
	}
	return nil
}
