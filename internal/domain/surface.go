package domain

import (
	"fmt"
	"strings"
)

// Surface identifies one independent display output.
// Params: solo/group-list/group-overlay constants.
// Returns: surface key used by suppression and aggregation.
type Surface string

const (
	// SurfaceSolo shows warnings of the local subject.
	SurfaceSolo Surface = "solo"
	// SurfaceGroupList shows grouped warnings of companions.
	SurfaceGroupList Surface = "group_list"
	// SurfaceGroupOverlay shows one warning above each companion.
	SurfaceGroupOverlay Surface = "group_overlay"
)

// Surfaces lists every display surface in render order.
func Surfaces() []Surface {
	return []Surface{SurfaceSolo, SurfaceGroupList, SurfaceGroupOverlay}
}

// Valid reports whether surface is one of the known outputs.
func (s Surface) Valid() bool {
	switch s {
	case SurfaceSolo, SurfaceGroupList, SurfaceGroupOverlay:
		return true
	default:
		return false
	}
}

// SuppressMode selects how one surface is auto-hidden.
// Params: never/after_time/on_combat_start constants.
// Returns: per-surface suppression strategy.
type SuppressMode string

const (
	// SuppressNever keeps surface visible.
	SuppressNever SuppressMode = "never"
	// SuppressAfterTime hides surface once warnings stayed visible for delay.
	SuppressAfterTime SuppressMode = "after_time"
	// SuppressOnCombatStart hides surface once combat lasted for delay.
	SuppressOnCombatStart SuppressMode = "on_combat_start"
)

// ParseSuppressMode normalizes config value into suppress mode.
// Params: raw mode string; empty means never.
// Returns: mode or error for unknown value.
func ParseSuppressMode(value string) (SuppressMode, error) {
	switch mode := SuppressMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "", SuppressNever:
		return SuppressNever, nil
	case SuppressAfterTime, SuppressOnCombatStart:
		return mode, nil
	default:
		return SuppressNever, fmt.Errorf("unsupported suppress mode %q", value)
	}
}
