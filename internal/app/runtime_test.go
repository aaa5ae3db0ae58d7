package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"buffwatch/internal/aggregate"
	"buffwatch/internal/clock"
	"buffwatch/internal/config"
	"buffwatch/internal/domain"
	"buffwatch/internal/engine"
	"buffwatch/internal/module"
	"buffwatch/internal/modules"
	"buffwatch/internal/store"
	"buffwatch/internal/testutil"
)

var runtimeStart = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func newTestRuntime(t *testing.T, st store.Store) (*Runtime, *clock.Manual, *testutil.LogRecorder) {
	t.Helper()
	logger, recorder := testutil.NewLogger(t)
	clk := clock.NewManual(runtimeStart)
	if st == nil {
		st = store.NewMemoryStore()
	}
	runtime := NewRuntime(st, config.DefaultSettings(), []module.Module{modules.NewTanks()}, clk, logger)
	return runtime, clk, recorder
}

func dutyFrame(inCombat bool) domain.Frame {
	healer := domain.EntitySnapshot{EntityID: 1, EntityName: "Healer", Job: 24, Lvl: 90, CanTarget: true, Health: 1000}
	tank := domain.EntitySnapshot{EntityID: 2, EntityName: "Tank", Job: 21, Lvl: 90, CanTarget: true, Health: 1000}
	return domain.Frame{
		Type:        domain.FrameTick,
		LoggedIn:    true,
		InCombat:    inCombat,
		Territory:   1000,
		BoundByDuty: true,
		DutyStarted: true,
		Local:       healer,
		Party:       []domain.EntitySnapshot{healer, tank},
	}
}

func TestRuntimeTickFeedsSurfaces(t *testing.T) {
	t.Parallel()

	runtime, _, _ := newTestRuntime(t, nil)
	views := runtime.Tick(dutyFrame(false))

	if !views.GroupList.Visible || len(views.GroupList.Items) != 1 {
		t.Fatalf("expected one visible group list item, got %+v", views.GroupList)
	}
	item := views.GroupList.Items[0]
	if item.Module != "tanks" || item.ActionID != 48 || item.Count != 1 {
		t.Fatalf("unexpected group list item %+v", item)
	}
	if views.Solo.Visible {
		t.Fatalf("local healer has nothing to fix, solo must stay hidden: %+v", views.Solo)
	}

	status := runtime.Snapshot()
	if status.Frames != 1 || status.Gate != engine.GateOpen || len(status.Warnings) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestRuntimeGatedTickClearsWarnings(t *testing.T) {
	t.Parallel()

	runtime, _, _ := newTestRuntime(t, nil)
	runtime.Tick(dutyFrame(false))

	views := runtime.Tick(domain.Frame{Type: domain.FrameTick})
	if views.GroupList.Visible || len(views.GroupList.Items) != 0 {
		t.Fatalf("logged out tick must hide everything, got %+v", views.GroupList)
	}
	status := runtime.Snapshot()
	if status.Gate != engine.GateLoggedOut || len(status.Warnings) != 0 {
		t.Fatalf("unexpected status after logout tick %+v", status)
	}
}

func TestRuntimeLoggedOutTickDropsAutoSuppressTimers(t *testing.T) {
	t.Parallel()

	runtime, clk, _ := newTestRuntime(t, nil)
	if _, err := runtime.PatchSettings(context.Background(), []byte(`{"auto_suppress":true,"auto_suppress_sec":60}`)); err != nil {
		t.Fatalf("patch settings: %v", err)
	}

	for sec := 0; sec < 50; sec++ {
		runtime.Tick(dutyFrame(false))
		clk.Advance(time.Second)
	}
	runtime.Tick(domain.Frame{Type: domain.FrameTick})

	clk.Advance(61 * time.Second)
	runtime.Tick(dutyFrame(false))
	if players := runtime.Snapshot().Suppression.Players; len(players) != 0 {
		t.Fatalf("timer must restart after logged out tick, got mutes %+v", players)
	}

	for sec := 0; sec < 60; sec++ {
		clk.Advance(time.Second)
		runtime.Tick(dutyFrame(false))
	}
	if players := runtime.Snapshot().Suppression.Players; len(players) != 1 || players[0].EntityID != 2 {
		t.Fatalf("expected tank auto-suppressed after a full window, got %+v", players)
	}
}

func TestRuntimeViewsDeliveredInTickOrder(t *testing.T) {
	t.Parallel()

	runtime, clk, _ := newTestRuntime(t, nil)
	var (
		mu        sync.Mutex
		delivered []bool
	)
	runtime.OnViews(func(views aggregate.Views) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, views.GroupList.Visible)
	})

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(loggedIn bool) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				frame := dutyFrame(false)
				frame.LoggedIn = loggedIn
				runtime.Tick(frame)
			}
		}(worker%2 == 0)
	}
	wg.Wait()

	clk.Advance(time.Second)
	runtime.Tick(dutyFrame(false))

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) == 0 || !delivered[len(delivered)-1] {
		t.Fatalf("last delivered views must belong to the last tick")
	}
}

func TestRuntimeCombatStartSuppressesSurface(t *testing.T) {
	t.Parallel()

	runtime, clk, _ := newTestRuntime(t, nil)
	if _, err := runtime.PatchSettings(context.Background(), []byte(`{"surface":{"group_list":{"show":true,"suppress_mode":"on_combat_start","suppress_delay_sec":5}}}`)); err != nil {
		t.Fatalf("patch settings: %v", err)
	}

	views := runtime.Tick(dutyFrame(false))
	if !views.GroupList.Visible {
		t.Fatalf("group list must be visible before combat")
	}

	for sec := 1; sec <= 5; sec++ {
		clk.Advance(time.Second)
		views = runtime.Tick(dutyFrame(true))
		if !views.GroupList.Visible {
			t.Fatalf("second %d of combat: surface hidden before delay", sec-1)
		}
	}
	if !runtime.Snapshot().Tracker.HadWarningsBeforeCombat {
		t.Fatalf("expected warnings-before-combat flag")
	}

	clk.Advance(time.Second)
	views = runtime.Tick(dutyFrame(true))
	if views.GroupList.Visible || !views.GroupList.Suppressed {
		t.Fatalf("expected group list suppressed after delay, got %+v", views.GroupList)
	}

	clk.Advance(time.Second)
	views = runtime.Tick(dutyFrame(false))
	if !views.GroupList.Visible || views.GroupList.Suppressed {
		t.Fatalf("combat exit must restore surface, got %+v", views.GroupList)
	}
}

func TestRuntimeLoginLoadsPersistedState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	_ = st.Save(ctx, store.SystemBlob, []byte(`{"enabled":true,"only_in_duties":false,"test_mode":true}`))
	_ = st.Save(ctx, store.BlacklistBlob, []byte(`{"zones":[777]}`))
	_ = st.Save(ctx, store.ModuleBlob("tanks"), []byte(`{"enabled":false}`))

	runtime, _, recorder := newTestRuntime(t, st)
	before := runtime.Snapshot().SessionID
	if err := runtime.Login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}

	status := runtime.Snapshot()
	if status.SessionID == before || status.SessionID == "" {
		t.Fatalf("login must start a new session, got %q after %q", status.SessionID, before)
	}
	if status.Settings.OnlyInDuties || !status.Settings.TestMode || !status.Settings.HideInQuestEvent {
		t.Fatalf("persisted settings must overlay defaults, got %+v", status.Settings)
	}
	if len(status.Blacklist) != 1 || status.Blacklist[0] != 777 {
		t.Fatalf("unexpected blacklist %v", status.Blacklist)
	}
	if listed := runtime.Modules(); len(listed) != 1 || listed[0].Enabled {
		t.Fatalf("expected tanks disabled from store, got %+v", listed)
	}
	if !recorder.Contains("session started", "session_id="+status.SessionID) {
		t.Fatalf("expected session start log with id")
	}
}

func TestRuntimeLoginFallsBackOnBadBlobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	_ = st.Save(ctx, store.SystemBlob, []byte(`{"auto_suppress_sec":-4}`))
	_ = st.Save(ctx, store.ModuleBlob("tanks"), []byte(`{"enabled":`))

	runtime, _, recorder := newTestRuntime(t, st)
	if err := runtime.Login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}
	if settings := runtime.Settings(); settings != config.DefaultSettings() {
		t.Fatalf("invalid settings blob must fall back to defaults, got %+v", settings)
	}
	if listed := runtime.Modules(); !listed[0].Enabled {
		t.Fatalf("malformed module blob must fall back to defaults")
	}
	if !recorder.Contains("persisted state ignored", "validate settings") {
		t.Fatalf("expected settings fault log")
	}
	if !recorder.Contains("persisted state ignored", "decode tanks config") {
		t.Fatalf("expected module fault log")
	}
}

func TestRuntimeSessionEventsClearMutes(t *testing.T) {
	t.Parallel()

	runtime, _, recorder := newTestRuntime(t, nil)
	muted, err := runtime.ToggleModule("tanks")
	if err != nil || !muted {
		t.Fatalf("toggle: muted=%v err=%v", muted, err)
	}
	runtime.Tick(dutyFrame(true))
	if state := runtime.Snapshot(); len(state.Suppression.Modules) != 1 || !state.Tracker.InCombat {
		t.Fatalf("unexpected state before wipe %+v", state)
	}

	if err := runtime.Push(domain.Frame{Type: domain.FrameDutyWipe}); err != nil {
		t.Fatalf("push wipe: %v", err)
	}
	state := runtime.Snapshot()
	if len(state.Suppression.Modules) != 0 || state.Tracker.InCombat {
		t.Fatalf("wipe must clear mutes and tracker, got %+v", state)
	}
	if !recorder.Contains("session state reset", "reason=duty_wipe") {
		t.Fatalf("expected reset log")
	}
	if err := runtime.Push(domain.Frame{Type: "teleport"}); err == nil {
		t.Fatalf("expected unsupported frame type error")
	}
}

func TestRuntimeMutedModuleStaysOnSoloDimmed(t *testing.T) {
	t.Parallel()

	runtime, _, _ := newTestRuntime(t, nil)
	if _, err := runtime.ToggleModule("tanks"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	frame := dutyFrame(false)
	frame.Local = frame.Party[1]
	views := runtime.Tick(frame)
	if len(views.Solo.Items) != 1 || !views.Solo.Items[0].Muted {
		t.Fatalf("expected muted solo item, got %+v", views.Solo)
	}
}

func TestRuntimeControlsPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	runtime, _, _ := newTestRuntime(t, st)

	if err := runtime.SetModuleEnabled(ctx, "tanks", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	body, err := st.Load(ctx, store.ModuleBlob("tanks"))
	if err != nil || !strings.Contains(string(body), `"enabled":false`) {
		t.Fatalf("expected persisted disabled config, got %s err=%v", body, err)
	}

	changed, err := runtime.BlacklistAdd(ctx, 9)
	if err != nil || !changed {
		t.Fatalf("blacklist add: changed=%v err=%v", changed, err)
	}
	if changed, _ := runtime.BlacklistAdd(ctx, 9); changed {
		t.Fatalf("second add must be a no-op")
	}
	if body, _ := st.Load(ctx, store.BlacklistBlob); string(body) != `{"zones":[9]}` {
		t.Fatalf("unexpected blacklist blob %s", body)
	}

	patched, err := runtime.PatchModuleConfig(ctx, "tanks", []byte(`{"enabled":true,"disable_in_alliance":false}`))
	if err != nil || !strings.Contains(string(patched), `"disable_in_alliance":false`) {
		t.Fatalf("patch module: %s err=%v", patched, err)
	}
	if _, err := runtime.PatchModuleConfig(ctx, "tanks", []byte(`[`)); err == nil || errors.Is(err, ErrPersist) {
		t.Fatalf("expected decode error, got %v", err)
	}

	if _, err := runtime.PatchSettings(ctx, []byte(`{"surface":{"solo":{"suppress_mode":"sometimes"}}}`)); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
	if _, err := runtime.ToggleModule("monk"); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("module outside registry must be unknown, got %v", err)
	}
	if _, err := runtime.ToggleModule("bard"); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("unknown key must be rejected, got %v", err)
	}
}

func TestRuntimePersistFailureKeepsMemoryState(t *testing.T) {
	t.Parallel()

	runtime, _, recorder := newTestRuntime(t, failingStore{store.NewMemoryStore()})
	changed, err := runtime.BlacklistAdd(context.Background(), 12)
	if !changed || !errors.Is(err, ErrPersist) {
		t.Fatalf("expected persist error after in-memory change, changed=%v err=%v", changed, err)
	}
	if list := runtime.Snapshot().Blacklist; len(list) != 1 || list[0] != 12 {
		t.Fatalf("in-memory blacklist must keep the change, got %v", list)
	}
	if !recorder.Contains("persist failed", "key=blacklist", "disk full") {
		t.Fatalf("expected persist failure log")
	}
}
