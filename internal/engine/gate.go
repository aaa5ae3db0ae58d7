package engine

import (
	"buffwatch/internal/config"
	"buffwatch/internal/domain"
)

// GateReason names why a tick was skipped before module evaluation.
type GateReason string

const (
	GateOpen           GateReason = ""
	GateLoggedOut      GateReason = "logged_out"
	GateBetweenAreas   GateReason = "between_areas"
	GateDisabled       GateReason = "disabled"
	GatePvP            GateReason = "pvp"
	GateNotInDuty      GateReason = "not_in_duty"
	GateBlacklisted    GateReason = "blacklisted"
	GateDutyNotStarted GateReason = "duty_not_started"
	GateCrossWorld     GateReason = "cross_world"
	GateCutscene       GateReason = "cutscene"
)

// ZoneFilter reports blacklisted territories.
type ZoneFilter interface {
	Contains(territory uint32) bool
}

// Gate evaluates global tick gates in fixed order.
// Params: frame, global settings, and optional zone blacklist.
// Returns: first matching gate reason or GateOpen.
func Gate(frame *domain.Frame, settings config.Settings, zones ZoneFilter) GateReason {
	switch {
	case !frame.LoggedIn:
		return GateLoggedOut
	case frame.BetweenAreas:
		return GateBetweenAreas
	case !settings.Enabled:
		return GateDisabled
	case frame.PvP && !frame.PvPExempt:
		return GatePvP
	case settings.OnlyInDuties && !frame.BoundByDuty:
		return GateNotInDuty
	case zones != nil && zones.Contains(frame.Territory):
		return GateBlacklisted
	case settings.OnlyInDuties && !frame.DutyStarted:
		return GateDutyNotStarted
	case frame.CrossWorld:
		return GateCrossWorld
	case settings.HideInQuestEvent && frame.InCutscene:
		return GateCutscene
	default:
		return GateOpen
	}
}
