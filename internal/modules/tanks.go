package modules

import (
	"fmt"

	"buffwatch/internal/domain"
	"buffwatch/internal/fault"
	"buffwatch/internal/module"
)

const tankMinimumLevel = 10

var (
	tankStanceStatuses = []uint32{79, 91, 743, 1833}
	tankStanceActions  = map[uint8]uint32{
		1:  28,
		19: 28,
		3:  48,
		21: 48,
		32: 3629,
		37: 16142,
	}
)

// TanksConfig holds tank stance tunables.
type TanksConfig struct {
	module.Common
	DisableInAlliance  bool `json:"disable_in_alliance"`
	CheckAllianceTanks bool `json:"check_alliance_tanks"`
}

// SetDefaults restores factory tank settings.
func (c *TanksConfig) SetDefaults() {
	*c = TanksConfig{
		Common:             module.Common{Enabled: true},
		DisableInAlliance:  true,
		CheckAllianceTanks: true,
	}
}

// Tanks warns when no tank in the group holds a stance.
type Tanks struct {
	module.Base
	config *TanksConfig
}

// NewTanks creates tank stance module with default config.
func NewTanks() *Tanks {
	cfg := &TanksConfig{}
	return &Tanks{
		Base: module.NewBase(module.Options{
			Kind:     domain.ModuleTanks,
			Message:  "Tank Stance",
			Actions:  []uint32{28, 48, 3629, 16142},
			Priority: 30,
		}, cfg),
		config: cfg,
	}
}

// Applicable reports whether entity is a tank old enough to carry a stance.
func (m *Tanks) Applicable(t module.Tick, e domain.Entity) bool {
	if m.config.DisableInAlliance && t.Frame.InAlliance() {
		return false
	}
	return isTank(e)
}

// Evaluate warns for the tank when stance is missing.
// Params: tick view and tank entity.
// Returns: unavailable error for a tank job without a stance action.
func (m *Tanks) Evaluate(t module.Tick, e domain.Entity) error {
	actionID, ok := tankStanceActions[e.ClassJob()]
	if !ok {
		return fault.Mark(fmt.Errorf("no stance action for job %d", e.ClassJob()))
	}

	if t.Solo {
		if e.MissingStatus(tankStanceStatuses...) {
			return m.EmitAction(e, actionID)
		}
		return nil
	}

	if m.config.CheckAllianceTanks && t.Frame.InAlliance() && anyStance(t.Alliance) {
		return nil
	}
	if !anyStance(t.Roster) {
		return m.EmitAction(e, actionID)
	}
	return nil
}

func isTank(e domain.Entity) bool {
	if _, ok := tankStanceActions[e.ClassJob()]; !ok {
		return false
	}
	return e.Level() >= tankMinimumLevel
}

func anyStance(members []domain.Entity) bool {
	for _, member := range members {
		if !member.ID().Valid() || !isTank(member) {
			continue
		}
		if member.HasStatus(tankStanceStatuses...) {
			return true
		}
	}
	return false
}
