package domain

import (
	"math"
	"time"
)

// EntityID is the host identifier of one sampled entity.
type EntityID uint64

// InvalidEntityID is the host sentinel for an empty roster slot.
const InvalidEntityID EntityID = 0xE0000000

// PermanentStatus is the remaining duration reported for statuses without a timer.
const PermanentStatus = time.Duration(math.MaxInt64)

// Valid reports whether id refers to a real entity.
func (id EntityID) Valid() bool {
	return id != 0 && id != InvalidEntityID
}

// Entity is the read-only capability surface over one sampled entity.
// Params: accessors valid for the current tick only.
// Returns: identity, job, level, statuses, and pet/target/death state.
type Entity interface {
	ID() EntityID
	Name() string
	ClassJob() uint8
	Level() uint8
	HasStatus(ids ...uint32) bool
	MissingStatus(ids ...uint32) bool
	StatusRemaining(id uint32) (time.Duration, bool)
	HasPet() bool
	Targetable() bool
	Dead() bool
	HP() uint32
}

// StatusEffect is one active status on an entity.
// Params: status id and remaining duration in milliseconds (<=0 is permanent).
// Returns: status payload from host snapshot.
type StatusEffect struct {
	ID          uint32 `json:"id"`
	RemainingMS int64  `json:"remaining_ms"`
}

// EntitySnapshot is one host-sampled entity copied by value.
// Params: JSON fields from host frame.
// Returns: Entity implementation for module evaluation.
type EntitySnapshot struct {
	EntityID   EntityID       `json:"id"`
	EntityName string         `json:"name"`
	Job        uint8          `json:"class_job"`
	Lvl        uint8          `json:"level"`
	Statuses   []StatusEffect `json:"statuses,omitempty"`
	Pet        bool           `json:"has_pet"`
	CanTarget  bool           `json:"targetable"`
	IsDead     bool           `json:"dead"`
	Health     uint32         `json:"hp"`
}

func (e EntitySnapshot) ID() EntityID { return e.EntityID }
func (e EntitySnapshot) Name() string { return e.EntityName }
func (e EntitySnapshot) ClassJob() uint8 { return e.Job }
func (e EntitySnapshot) Level() uint8 { return e.Lvl }
func (e EntitySnapshot) HasPet() bool { return e.Pet }
func (e EntitySnapshot) Targetable() bool { return e.CanTarget }
func (e EntitySnapshot) Dead() bool { return e.IsDead }
func (e EntitySnapshot) HP() uint32 { return e.Health }

// HasStatus reports whether any of the ids is active.
// Params: candidate status ids.
// Returns: true on first active match.
func (e EntitySnapshot) HasStatus(ids ...uint32) bool {
	for _, status := range e.Statuses {
		for _, id := range ids {
			if status.ID == id {
				return true
			}
		}
	}
	return false
}

// MissingStatus reports whether none of the ids is active.
func (e EntitySnapshot) MissingStatus(ids ...uint32) bool {
	return !e.HasStatus(ids...)
}

// StatusRemaining returns remaining duration of one status.
// Params: status id.
// Returns: remaining duration (PermanentStatus when untimed) and presence flag.
func (e EntitySnapshot) StatusRemaining(id uint32) (time.Duration, bool) {
	for _, status := range e.Statuses {
		if status.ID != id {
			continue
		}
		if status.RemainingMS <= 0 {
			return PermanentStatus, true
		}
		return time.Duration(status.RemainingMS) * time.Millisecond, true
	}
	return 0, false
}
