package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FrameType identifies incoming host record shape.
// Params: tick or one of the session event constants.
// Returns: normalized frame type usage across runtime.
type FrameType string

const (
	// FrameTick carries one sampled world state.
	FrameTick FrameType = "tick"
	// FrameLogin marks start of a character session.
	FrameLogin FrameType = "login"
	// FrameLogout marks end of a character session.
	FrameLogout FrameType = "logout"
	// FrameDutyWipe marks party wipe inside a duty.
	FrameDutyWipe FrameType = "duty_wipe"
	// FrameDutyComplete marks duty completion.
	FrameDutyComplete FrameType = "duty_complete"
	// FrameZoneChanged marks territory change.
	FrameZoneChanged FrameType = "zone_changed"
)

// DutyKind classifies duty content for module gates.
type DutyKind string

const (
	DutyOther    DutyKind = "other"
	DutyRaid     DutyKind = "raid"
	DutyAlliance DutyKind = "alliance"
)

// Gauge holds local job gauge values consumed by job modules.
type Gauge struct {
	Chakra         uint8 `json:"chakra"`
	CreatureMotif  bool  `json:"creature_motif"`
	WeaponMotif    bool  `json:"weapon_motif"`
	LandscapeMotif bool  `json:"landscape_motif"`
}

// Frame is one host tick or session event.
// Params: timestamp, world flags, roster snapshots, and local gauges.
// Returns: validated payload for runtime processing.
type Frame struct {
	Type         FrameType        `json:"type"`
	DT           int64            `json:"dt"`
	LoggedIn     bool             `json:"logged_in"`
	BetweenAreas bool             `json:"between_areas"`
	InCombat     bool             `json:"in_combat"`
	Territory    uint32           `json:"territory"`
	BoundByDuty  bool             `json:"bound_by_duty"`
	DutyStarted  bool             `json:"duty_started"`
	DutyKind     DutyKind         `json:"duty_kind,omitempty"`
	PvP          bool             `json:"pvp"`
	PvPExempt    bool             `json:"pvp_exempt"`
	CrossWorld   bool             `json:"cross_world"`
	InCutscene   bool             `json:"in_cutscene"`
	Transient    bool             `json:"transient"`
	Local        EntitySnapshot   `json:"local"`
	Party        []EntitySnapshot `json:"party,omitempty"`
	Alliance     []EntitySnapshot `json:"alliance,omitempty"`
	Gauge        Gauge            `json:"gauge"`
	CompanionSec float64          `json:"companion_sec"`
	InSanctuary  bool             `json:"in_sanctuary"`
	HomeWorld    uint32           `json:"home_world"`
	CurrentWorld uint32           `json:"current_world"`
}

// Time converts frame timestamp into UTC time.
// Params: fallback used when frame carries no timestamp.
// Returns: frame time or fallback.
func (f Frame) Time(fallback time.Time) time.Time {
	if f.DT <= 0 {
		return fallback
	}
	return time.UnixMilli(f.DT).UTC()
}

// Solo reports whether local subject has no group companions.
func (f Frame) Solo() bool {
	return len(f.Party) == 0
}

// InAlliance reports whether frame is inside alliance duty content.
func (f Frame) InAlliance() bool {
	return f.BoundByDuty && f.DutyKind == DutyAlliance
}

// DecodeFrame decodes and validates one frame payload.
// Params: JSON document bytes.
// Returns: validated frame or decode/validation error.
func DecodeFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := frame.Validate(); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// DecodeFrameReader decodes and validates next frame from stream.
// Params: decoder positioned at one JSON object.
// Returns: validated frame or decode/validation error.
func DecodeFrameReader(reader *json.Decoder) (Frame, error) {
	var frame Frame
	if err := reader.Decode(&frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := frame.Validate(); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// Validate validates one frame against the host contract.
// Params: frame fields parsed from transport.
// Returns: validation error when schema is violated.
func (f Frame) Validate() error {
	if f.DT < 0 {
		return errors.New("dt must be >=0")
	}
	switch f.Type {
	case FrameTick, FrameLogin, FrameLogout, FrameDutyWipe, FrameDutyComplete, FrameZoneChanged:
	default:
		return fmt.Errorf("unsupported type %q", f.Type)
	}
	switch f.DutyKind {
	case "", DutyOther, DutyRaid, DutyAlliance:
	default:
		return fmt.Errorf("unsupported duty_kind %q", f.DutyKind)
	}
	if f.Type == FrameTick && f.LoggedIn && !f.BetweenAreas && !f.Local.ID().Valid() {
		return errors.New("local.id is required for logged-in tick")
	}
	if f.CompanionSec < 0 {
		return errors.New("companion_sec must be >=0")
	}
	return nil
}
