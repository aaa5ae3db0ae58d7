package aggregate

import (
	"testing"

	"buffwatch/internal/config"
	"buffwatch/internal/domain"
	"buffwatch/internal/module"
	"buffwatch/internal/suppress"
)

type displayTable map[uint32]module.DisplaySettings

func (d displayTable) DisplaySettings(_ domain.ModuleKind, actionID uint32) module.DisplaySettings {
	if settings, ok := d[actionID]; ok {
		return settings
	}
	return module.DefaultDisplaySettings()
}

func warning(kind domain.ModuleKind, actionID uint32, entity domain.EntityID, name string, priority int) domain.Warning {
	return domain.Warning{
		Module:     kind,
		Icon:       kind.Info().Icon,
		ActionID:   actionID,
		Label:      kind.Info().Label,
		Message:    "msg",
		EntityID:   entity,
		EntityName: name,
		Priority:   priority,
	}
}

func baseInput(warnings ...domain.Warning) Input {
	return Input{
		Warnings:    warnings,
		LocalID:     1,
		Settings:    config.DefaultSettings(),
		Suppression: suppress.New(),
		Display:     displayTable{},
	}
}

func TestSoloOrdersByPriority(t *testing.T) {
	t.Parallel()

	in := baseInput(
		warning(domain.ModuleFood, 0, 1, "Me", 0),
		warning(domain.ModuleMonk, 36943, 1, "Me", 10),
		warning(domain.ModuleMonk, 4262, 1, "Me", 10),
		warning(domain.ModuleTanks, 28, 1, "Me", 30),
		warning(domain.ModuleSage, 24285, 2, "Other", 20),
	)
	view := Build(in).Solo
	if !view.Visible || len(view.Items) != 3 {
		t.Fatalf("unexpected solo view %+v", view)
	}
	if view.Items[0].Module != "tanks" || view.Items[1].Module != "monk" || view.Items[2].Module != "food" {
		t.Fatalf("unexpected order %+v", view.Items)
	}
	if view.Items[1].ActionID != 36943 {
		t.Fatalf("expected first monk warning kept on priority tie, got %+v", view.Items[1])
	}
}

func TestSoloMarksMutedModule(t *testing.T) {
	t.Parallel()

	in := baseInput(warning(domain.ModuleFood, 0, 1, "Me", 0))
	in.Suppression.(*suppress.Engine).ToggleModule(domain.ModuleFood)
	view := Build(in).Solo
	if len(view.Items) != 1 || !view.Items[0].Muted || !view.Visible {
		t.Fatalf("muted module must stay visible dimmed, got %+v", view)
	}
}

func TestGroupListCountsDistinctEntities(t *testing.T) {
	t.Parallel()

	in := baseInput(
		warning(domain.ModuleSage, 24285, 2, "Sage", 20),
		warning(domain.ModuleSummoner, 25798, 3, "Smn A", 20),
		warning(domain.ModuleSummoner, 25798, 4, "Smn B", 20),
		warning(domain.ModuleSummoner, 25798, 4, "Smn B", 20),
		warning(domain.ModuleTanks, 28, 1, "Me", 30),
		warning(domain.ModuleFood, 0, domain.InvalidEntityID, "ghost", 0),
	)
	view := Build(in).GroupList
	if len(view.Items) != 2 {
		t.Fatalf("expected two groups, got %+v", view.Items)
	}
	if view.Items[0].Module != "summoner" || view.Items[0].Count != 2 || len(view.Items[0].Entities) != 2 {
		t.Fatalf("unexpected first group %+v", view.Items[0])
	}
	if view.Items[1].Module != "sage" || view.Items[1].Count != 1 {
		t.Fatalf("unexpected second group %+v", view.Items[1])
	}
}

func TestGroupListGroupsIconWarnings(t *testing.T) {
	t.Parallel()

	first := warning(domain.ModuleFreeCompany, 0, 2, "A", 0)
	second := warning(domain.ModuleFreeCompany, 0, 3, "B", 0)
	view := Build(baseInput(first, second)).GroupList
	if len(view.Items) != 1 || view.Items[0].Count != 2 {
		t.Fatalf("icon-only warnings must merge by icon, got %+v", view.Items)
	}
}

func TestOverlayOnePerEntityAndHidesSuppressed(t *testing.T) {
	t.Parallel()

	mutes := suppress.New()
	in := baseInput(
		warning(domain.ModuleSummoner, 25798, 2, "A", 20),
		warning(domain.ModuleTanks, 48, 2, "A", 30),
		warning(domain.ModuleSage, 24285, 3, "B", 20),
		warning(domain.ModuleSummoner, 25798, 4, "C", 20),
	)
	in.Suppression = mutes
	mutes.SuppressPlayer(domain.ModuleSage, 3)
	mutes.ToggleModule(domain.ModuleSummoner)

	view := Build(in).GroupOverlay
	if len(view.Items) != 1 || view.Items[0].EntityID != 2 || view.Items[0].Module != "tanks" {
		t.Fatalf("unexpected overlay %+v", view.Items)
	}
}

func TestOverlayMutedTopWarningHidesEntity(t *testing.T) {
	t.Parallel()

	mutes := suppress.New()
	in := baseInput(
		warning(domain.ModuleSummoner, 25798, 2, "A", 20),
		warning(domain.ModuleTanks, 48, 2, "A", 30),
		warning(domain.ModuleSummoner, 25798, 3, "B", 20),
	)
	in.Suppression = mutes
	mutes.SuppressPlayer(domain.ModuleTanks, 2)

	view := Build(in).GroupOverlay
	if len(view.Items) != 1 || view.Items[0].EntityID != 3 {
		t.Fatalf("muted top warning must not fall back to a lower one, got %+v", view.Items)
	}
}

func TestActionDisplayFilters(t *testing.T) {
	t.Parallel()

	in := baseInput(
		warning(domain.ModuleTanks, 28, 1, "Me", 30),
		warning(domain.ModuleTanks, 28, 2, "Other", 30),
	)
	in.Display = displayTable{28: {ShowInSolo: false, ShowInGroupList: true, ShowInGroupOverlay: false}}
	views := Build(in)
	if len(views.Solo.Items) != 0 || views.Solo.Visible {
		t.Fatalf("solo must hide disabled action, got %+v", views.Solo)
	}
	if len(views.GroupList.Items) != 1 {
		t.Fatalf("group list must keep action, got %+v", views.GroupList)
	}
	if len(views.GroupOverlay.Items) != 0 {
		t.Fatalf("overlay must hide disabled action, got %+v", views.GroupOverlay)
	}
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	in := baseInput(warning(domain.ModuleSage, 24285, 2, "A", 20))
	views := Build(in)
	if views.Solo.Visible || !views.GroupList.Visible || !views.GroupOverlay.Visible {
		t.Fatalf("unexpected visibility %+v", views)
	}

	mutes := suppress.New()
	mutes.SuppressSurface(domain.SurfaceGroupList)
	in.Suppression = mutes
	in.Settings.Surface.GroupOverlay.Show = false
	views = Build(in)
	if views.GroupList.Visible || !views.GroupList.Suppressed || len(views.GroupList.Items) != 1 {
		t.Fatalf("suppressed surface keeps items hidden, got %+v", views.GroupList)
	}
	if views.GroupOverlay.Visible {
		t.Fatalf("hidden surface must not be visible")
	}

	in.Settings.Enabled = false
	if Build(in).Solo.Visible {
		t.Fatalf("disabled engine shows nothing")
	}
}

func TestTestModeSamples(t *testing.T) {
	t.Parallel()

	in := baseInput()
	in.Settings.TestMode = true
	views := Build(in)
	for _, view := range []View{views.Solo, views.GroupList, views.GroupOverlay} {
		if !view.Visible || len(view.Items) == 0 {
			t.Fatalf("test mode must show samples on %s, got %+v", view.Surface, view)
		}
	}
	if views.Solo.Items[0].Label != "Iron Will" {
		t.Fatalf("expected catalog label, got %+v", views.Solo.Items[0])
	}
}

func TestEmptyViewsEncodeItems(t *testing.T) {
	t.Parallel()

	views := Build(baseInput())
	if views.Solo.Items == nil || views.GroupList.Items == nil || views.GroupOverlay.Items == nil {
		t.Fatalf("items must be non-nil for JSON output")
	}
	if _, ok := views.Surface("bogus"); ok {
		t.Fatalf("unknown surface must not resolve")
	}
}
