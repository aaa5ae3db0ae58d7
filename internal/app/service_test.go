package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"buffwatch/internal/aggregate"
	"buffwatch/internal/clock"
	"buffwatch/internal/config"
	"buffwatch/internal/store"
)

const tankFrameJSON = `{"type":"tick","logged_in":true,"bound_by_duty":true,"duty_started":true,"territory":1000,` +
	`"local":{"id":1,"name":"Healer","class_job":24,"level":90,"targetable":true,"hp":1000,"statuses":[{"id":48}]},` +
	`"party":[{"id":1,"name":"Healer","class_job":24,"level":90,"targetable":true,"hp":1000,"statuses":[{"id":48}]},` +
	`{"id":2,"name":"Tank","class_job":21,"level":90,"targetable":true,"hp":1000,"statuses":[{"id":48}]}]}`

func newTestService(t *testing.T, extra string) *Service {
	t.Helper()

	dir := t.TempDir()
	body := strings.Join([]string{
		`[service]
character = "Tester"`,
		`[log.file]
enabled = true
path = "` + filepath.ToSlash(filepath.Join(dir, "buffwatch.log")) + `"`,
		extra,
	}, "\n\n")
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	service, err := NewService(config.ConfigSource{File: path}, clock.NewManual(runtimeStart))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = service.shutdown() })
	return service
}

func serve(t *testing.T, service *Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	service.httpSrv.Handler.ServeHTTP(recorder, request)
	return recorder
}

func TestServiceHealthEndpoints(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "[feed]\nsource = \"\"")
	if rec := serve(t, service, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(t, service, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready before run must be 503, got %d", rec.Code)
	}
	service.readyFlag.Store(true)
	if rec := serve(t, service, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready after start must be 200, got %d", rec.Code)
	}
}

func TestServiceRejectsBadRenderTemplate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[service]\ncharacter = \"Tester\"\n\n[feed]\nsource = \"\"\nrender = true\nrender_template = \"{{ .Label \"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := NewService(config.ConfigSource{File: path}, clock.NewManual(runtimeStart))
	if err == nil || !strings.Contains(err.Error(), "parse render template") {
		t.Fatalf("expected render template error, got %v", err)
	}
}

func TestServiceFramesAndSurfaces(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "[feed]\nsource = \"\"")
	if rec := serve(t, service, http.MethodPost, "/frames", tankFrameJSON); rec.Code != http.StatusAccepted {
		t.Fatalf("post frame: %d %s", rec.Code, rec.Body.String())
	}

	rec := serve(t, service, http.MethodGet, "/surfaces", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("surfaces: %d", rec.Code)
	}
	var views aggregate.Views
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	found := false
	for _, item := range views.GroupList.Items {
		if item.Module == "tanks" && slices.Contains(item.Entities, "Tank") {
			found = true
		}
	}
	if !views.GroupList.Visible || !found {
		t.Fatalf("expected visible tank stance item, got %+v", views.GroupList)
	}

	if rec := serve(t, service, http.MethodPost, "/frames", `{"type":"tick"`); rec.Code != http.StatusBadRequest {
		t.Fatalf("broken frame must be 400, got %d", rec.Code)
	}
}

func TestServiceModuleControls(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "[feed]\nsource = \"\"")

	rec := serve(t, service, http.MethodPost, "/modules/tanks/mute", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"muted":true`) {
		t.Fatalf("mute: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(t, service, http.MethodPost, "/modules/bard/mute", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown module must be 404, got %d", rec.Code)
	}

	if rec := serve(t, service, http.MethodPut, "/modules/food/enabled", "false\n"); rec.Code != http.StatusOK {
		t.Fatalf("disable food: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(t, service, http.MethodPut, "/modules/food/enabled", "maybe"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad enabled body must be 400, got %d", rec.Code)
	}
	rec = serve(t, service, http.MethodGet, "/modules/food/config", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"enabled":false`) {
		t.Fatalf("food config: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, service, http.MethodPatch, "/modules/food/config", `{"early_warning_sec":120}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"early_warning_sec":120`) {
		t.Fatalf("patch food config: %d %s", rec.Code, rec.Body.String())
	}
	persisted, err := service.backend.Load(context.Background(), "tester."+store.ModuleBlob("food"))
	if err != nil || !strings.Contains(string(persisted), `"early_warning_sec":120`) {
		t.Fatalf("expected character-scoped module blob, got %s err=%v", persisted, err)
	}

	rec = serve(t, service, http.MethodGet, "/modules", "")
	var listed []ModuleStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil || len(listed) != 9 {
		t.Fatalf("modules listing: %s err=%v", rec.Body.String(), err)
	}
	if listed[0].Key != "tanks" || !listed[0].Muted {
		t.Fatalf("expected muted tanks first, got %+v", listed[0])
	}

	if rec := serve(t, service, http.MethodDelete, "/players/tanks/0x2/mute", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("unmute player: %d", rec.Code)
	}
	if rec := serve(t, service, http.MethodDelete, "/players/tanks/two/mute", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad entity must be 400, got %d", rec.Code)
	}
}

func TestServiceBlacklistAndSettings(t *testing.T) {
	t.Parallel()

	service := newTestService(t, "[feed]\nsource = \"\"")

	rec := serve(t, service, http.MethodPut, "/blacklist/55", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"changed":true`) {
		t.Fatalf("blacklist add: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(t, service, http.MethodPut, "/blacklist/-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad territory must be 400, got %d", rec.Code)
	}
	if rec := serve(t, service, http.MethodDelete, "/blacklist/56", ""); !strings.Contains(rec.Body.String(), `"changed":false`) {
		t.Fatalf("removing absent zone must report no change, got %s", rec.Body.String())
	}

	if rec := serve(t, service, http.MethodPatch, "/settings", `{"auto_suppress":true}`); rec.Code != http.StatusOK {
		t.Fatalf("patch settings: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(t, service, http.MethodPatch, "/settings", `{"auto_suppress_sec":-1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid settings must be 400, got %d", rec.Code)
	}

	var status Status
	rec = serve(t, service, http.MethodGet, "/status", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(status.Blacklist) != 1 || status.Blacklist[0] != 55 || !status.Settings.AutoSuppress {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestServiceRunConsumesFeedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	feed := filepath.Join(dir, "frames.jsonl")
	lines := `{"type":"login"}` + "\n" + "not json\n" + tankFrameJSON + "\n"
	if err := os.WriteFile(feed, []byte(lines), 0o600); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	service := newTestService(t, strings.Join([]string{
		"[http]\nenabled = false",
		"[feed]\nsource = \"" + filepath.ToSlash(feed) + "\"",
		"[store]\nbackend = \"file\"\ndir = \"" + filepath.ToSlash(filepath.Join(dir, "state")) + "\"",
	}, "\n\n"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := service.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	status := service.Runtime().Snapshot()
	if status.Frames != 1 || len(status.Warnings) == 0 {
		t.Fatalf("expected one evaluated tick with warnings, got %+v", status)
	}
}
