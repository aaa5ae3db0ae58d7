package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDecodeFrameReader(t *testing.T) {
	t.Parallel()

	frame, err := DecodeFrameReader(json.NewDecoder(strings.NewReader(validFrameJSON(42))))
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Local.ID() != 42 {
		t.Fatalf("unexpected local id %d", frame.Local.ID())
	}
	if !frame.Solo() {
		t.Fatalf("expected solo frame")
	}
	if !frame.Local.HasStatus(48) || frame.Local.HasStatus(49) {
		t.Fatalf("unexpected status lookup result")
	}
	remaining, ok := frame.Local.StatusRemaining(48)
	if !ok || remaining != 90*time.Second {
		t.Fatalf("unexpected remaining %s ok=%v", remaining, ok)
	}
}

func TestStatusRemainingPermanent(t *testing.T) {
	t.Parallel()

	entity := EntitySnapshot{Statuses: []StatusEffect{{ID: 48}, {ID: 49, RemainingMS: -1}}}
	for _, id := range []uint32{48, 49} {
		if remaining, ok := entity.StatusRemaining(id); !ok || remaining != PermanentStatus {
			t.Fatalf("status %d: expected permanent, got %s ok=%v", id, remaining, ok)
		}
	}
	if remaining, ok := entity.StatusRemaining(50); ok || remaining != 0 {
		t.Fatalf("absent status must report 0 and false, got %s ok=%v", remaining, ok)
	}
}

func TestDecodeFrameRejectsUnknownType(t *testing.T) {
	t.Parallel()

	if _, err := DecodeFrame([]byte(`{"type":"warp","dt":1}`)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestDecodeFrameRequiresLocalIDWhenLoggedIn(t *testing.T) {
	t.Parallel()

	if _, err := DecodeFrame([]byte(`{"type":"tick","dt":1,"logged_in":true}`)); err == nil {
		t.Fatalf("expected error for missing local id")
	}
	if _, err := DecodeFrame([]byte(`{"type":"tick","dt":1,"logged_in":true,"between_areas":true}`)); err != nil {
		t.Fatalf("between areas tick must pass: %v", err)
	}
}

func TestFrameTimeFallsBack(t *testing.T) {
	t.Parallel()

	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := (Frame{}).Time(fallback); !got.Equal(fallback) {
		t.Fatalf("expected fallback time, got %s", got)
	}
	if got := (Frame{DT: 1000}).Time(fallback); got.Unix() != 1 {
		t.Fatalf("expected unix 1, got %s", got)
	}
}

func TestEntityIDSentinels(t *testing.T) {
	t.Parallel()

	if EntityID(0).Valid() || InvalidEntityID.Valid() {
		t.Fatalf("sentinel ids must be invalid")
	}
	if !EntityID(7).Valid() {
		t.Fatalf("expected id 7 to be valid")
	}
}

func TestParseModuleKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseModuleKind("Free_Company")
	if err != nil {
		t.Fatalf("parse module: %v", err)
	}
	if kind != ModuleFreeCompany || kind.Info().Icon != 60460 {
		t.Fatalf("unexpected module %v", kind)
	}
	if _, err := ParseModuleKind("bard"); err == nil {
		t.Fatalf("expected unknown module error")
	}
	if len(ModuleKinds()) != 14 {
		t.Fatalf("unexpected module count %d", len(ModuleKinds()))
	}
}

func TestParseSuppressMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseSuppressMode("On_Combat_Start")
	if err != nil || mode != SuppressOnCombatStart {
		t.Fatalf("unexpected mode %q err=%v", mode, err)
	}
	mode, err = ParseSuppressMode("sometimes")
	if err == nil || mode != SuppressNever {
		t.Fatalf("unknown mode must fall back to never, got %q err=%v", mode, err)
	}
}

func validFrameJSON(id int) string {
	return `{"type":"tick","dt":1739876543210,"logged_in":true,"local":{"id":` + itoa(id) + `,"name":"Alpha","class_job":19,"level":90,"statuses":[{"id":48,"remaining_ms":90000}],"hp":100}}`
}

func itoa(v int) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
