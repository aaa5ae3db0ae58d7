package aggregate

import "buffwatch/internal/domain"

func sampleItem(kind domain.ModuleKind, actionID uint32, message string, entity domain.EntityID, name string) Item {
	item := Item{
		Module:     kind.String(),
		Icon:       kind.Info().Icon,
		Label:      kind.Info().Label,
		Message:    message,
		EntityID:   entity,
		EntityName: name,
	}
	if action, ok := domain.LookupAction(actionID); ok {
		item.Icon = action.Icon
		item.ActionID = action.ID
		item.Label = action.Name
	}
	return item
}

func sampleSolo() []Item {
	return []Item{
		sampleItem(domain.ModuleTanks, 28, "Tank Stance", 1, "Sample Paladin"),
		sampleItem(domain.ModuleFood, 0, "Food Warning", 1, "Sample Paladin"),
	}
}

func sampleGroupList() []Item {
	item := sampleItem(domain.ModuleSummoner, 25798, "Summoner Pet", 0, "")
	item.Count = 2
	item.Entities = []string{"Sample Arcanist", "Sample Summoner"}
	kardia := sampleItem(domain.ModuleSage, 24285, "Sage Kardion", 0, "")
	kardia.Count = 1
	kardia.Entities = []string{"Sample Sage"}
	return []Item{item, kardia}
}

func sampleOverlay() []Item {
	return []Item{
		sampleItem(domain.ModuleSummoner, 25798, "Summoner Pet", 2, "Sample Summoner"),
	}
}
