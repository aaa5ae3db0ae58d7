package modules

import (
	"time"

	"buffwatch/internal/domain"
	"buffwatch/internal/module"
)

// JobGaugeConfig holds tunables shared by gauge-driven job modules.
type JobGaugeConfig struct {
	module.Common
	WarningDelaySec int `json:"warning_delay_sec"`
}

func (c *JobGaugeConfig) delay() time.Duration {
	return time.Duration(max(c.WarningDelaySec, 0)) * time.Second
}

// MonkConfig holds monk tunables.
type MonkConfig struct {
	JobGaugeConfig
	FormlessFist bool `json:"formless_fist"`
}

// SetDefaults restores factory monk settings.
func (c *MonkConfig) SetDefaults() {
	*c = MonkConfig{JobGaugeConfig: JobGaugeConfig{Common: module.Common{Enabled: true}, WarningDelaySec: 5}}
}

const (
	monkJob                  = 20
	monkMinimumLevel         = 40
	mantraAction             = 36943
	mantraMinimumLevel       = 54
	formlessFistAction       = 4262
	formlessFistStatus       = 2513
	formlessFistMinimumLevel = 52
	fullChakra               = 5
)

// Monk warns about unfilled chakra and missing Formless Fist after combat.
type Monk struct {
	module.Base
	config   *MonkConfig
	cooldown module.CombatCooldown
}

// NewMonk creates monk module with default config.
func NewMonk() *Monk {
	cfg := &MonkConfig{}
	return &Monk{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleMonk,
			Message:  "Monk Warning",
			Actions:  []uint32{mantraAction, formlessFistAction},
			SelfOnly: true,
			Priority: 10,
		}, cfg),
		config: cfg,
	}
}

func (m *Monk) Applicable(t module.Tick, e domain.Entity) bool {
	return t.IsLocal(e) && e.ClassJob() == monkJob && e.Level() >= monkMinimumLevel
}

func (m *Monk) Evaluate(t module.Tick, e domain.Entity) error {
	if !m.cooldown.Elapsed(t, m.config.delay()) {
		return nil
	}
	if e.Level() >= mantraMinimumLevel && t.Frame.Gauge.Chakra < fullChakra {
		return m.EmitAction(e, mantraAction)
	}
	if e.Level() >= formlessFistMinimumLevel && m.config.FormlessFist && e.MissingStatus(formlessFistStatus) {
		return m.EmitAction(e, formlessFistAction)
	}
	return nil
}

// PictomancerConfig holds pictomancer tunables.
type PictomancerConfig struct {
	JobGaugeConfig
}

// SetDefaults restores factory pictomancer settings.
func (c *PictomancerConfig) SetDefaults() {
	*c = PictomancerConfig{JobGaugeConfig: JobGaugeConfig{Common: module.Common{Enabled: true}, WarningDelaySec: 5}}
}

const pictomancerJob = 42

type motif struct {
	action   uint32
	minLevel uint8
	drawn    func(domain.Gauge) bool
}

var motifs = []motif{
	{action: 34664, minLevel: 30, drawn: func(g domain.Gauge) bool { return g.CreatureMotif }},
	{action: 34668, minLevel: 50, drawn: func(g domain.Gauge) bool { return g.WeaponMotif }},
	{action: 34669, minLevel: 70, drawn: func(g domain.Gauge) bool { return g.LandscapeMotif }},
}

// Pictomancer warns about the first undrawn motif after combat.
type Pictomancer struct {
	module.Base
	config   *PictomancerConfig
	cooldown module.CombatCooldown
}

// NewPictomancer creates pictomancer module with default config.
func NewPictomancer() *Pictomancer {
	cfg := &PictomancerConfig{}
	return &Pictomancer{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModulePictomancer,
			Message:  "Missing Motif",
			Actions:  []uint32{34664, 34668, 34669},
			SelfOnly: true,
			Priority: 10,
		}, cfg),
		config: cfg,
	}
}

func (m *Pictomancer) Applicable(t module.Tick, e domain.Entity) bool {
	return t.IsLocal(e) && e.ClassJob() == pictomancerJob && e.Level() >= motifs[0].minLevel
}

func (m *Pictomancer) Evaluate(t module.Tick, e domain.Entity) error {
	if !m.cooldown.Elapsed(t, m.config.delay()) {
		return nil
	}
	for _, candidate := range motifs {
		if e.Level() >= candidate.minLevel && !candidate.drawn(t.Frame.Gauge) {
			return m.EmitAction(e, candidate.action)
		}
	}
	return nil
}

// ReaperConfig holds reaper tunables.
type ReaperConfig struct {
	JobGaugeConfig
}

// SetDefaults restores factory reaper settings.
func (c *ReaperConfig) SetDefaults() {
	*c = ReaperConfig{JobGaugeConfig: JobGaugeConfig{Common: module.Common{Enabled: true}, WarningDelaySec: 5}}
}

const (
	reaperJob          = 39
	reaperMinimumLevel = 82
	soulsowAction      = 24387
	soulsowStatus      = 2594
)

// Reaper warns about missing Soulsow after combat.
type Reaper struct {
	module.Base
	config   *ReaperConfig
	cooldown module.CombatCooldown
}

// NewReaper creates reaper module with default config.
func NewReaper() *Reaper {
	cfg := &ReaperConfig{}
	return &Reaper{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleReaper,
			Message:  "Status Missing",
			Actions:  []uint32{soulsowAction},
			SelfOnly: true,
			Priority: 10,
		}, cfg),
		config: cfg,
	}
}

func (m *Reaper) Applicable(t module.Tick, e domain.Entity) bool {
	return t.IsLocal(e) && e.ClassJob() == reaperJob && e.Level() >= reaperMinimumLevel
}

func (m *Reaper) Evaluate(t module.Tick, e domain.Entity) error {
	if !m.cooldown.Elapsed(t, m.config.delay()) {
		return nil
	}
	if e.MissingStatus(soulsowStatus) {
		return m.EmitAction(e, soulsowAction)
	}
	return nil
}
