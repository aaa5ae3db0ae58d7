package domain

import (
	"fmt"
	"strings"
)

// ModuleKind identifies one condition checker from the fixed module set.
// Params: enum constants below.
// Returns: stable module identity for suppression, config keys, and warnings.
type ModuleKind int

const (
	ModuleTanks ModuleKind = iota
	ModuleBlueMage
	ModuleDancer
	ModuleFreeCompany
	ModuleFood
	ModuleSpiritBond
	ModuleSage
	ModuleScholar
	ModuleSummoner
	ModuleChocobo
	ModuleGatherers
	ModuleMonk
	ModulePictomancer
	ModuleReaper
)

// Category groups modules in configuration listings.
// Params: tank/healer/dps/gatherer/general constants.
// Returns: grouping label without behavioral effect.
type Category string

const (
	CategoryTank     Category = "tank"
	CategoryHealer   Category = "healer"
	CategoryDPS      Category = "dps"
	CategoryGatherer Category = "gatherer"
	CategoryGeneral  Category = "general"
)

// ModuleInfo is static metadata attached to one module kind.
// Params: persistence key, human label, icon reference, and category.
// Returns: lookup row of the module metadata table.
type ModuleInfo struct {
	Key      string
	Label    string
	Icon     uint32
	Category Category
}

var moduleTable = [...]ModuleInfo{
	ModuleTanks:       {Key: "tanks", Label: "Tank Stance", Icon: 62019, Category: CategoryTank},
	ModuleBlueMage:    {Key: "blue_mage", Label: "Blue Mage", Icon: 62036, Category: CategoryDPS},
	ModuleDancer:      {Key: "dancer", Label: "Dancer", Icon: 62038, Category: CategoryDPS},
	ModuleFreeCompany: {Key: "free_company", Label: "Free Company", Icon: 60460, Category: CategoryGeneral},
	ModuleFood:        {Key: "food", Label: "Food", Icon: 62015, Category: CategoryGeneral},
	ModuleSpiritBond:  {Key: "spiritbond", Label: "Spiritbond", Icon: 62014, Category: CategoryGeneral},
	ModuleSage:        {Key: "sage", Label: "Sage", Icon: 62040, Category: CategoryHealer},
	ModuleScholar:     {Key: "scholar", Label: "Scholar", Icon: 62028, Category: CategoryHealer},
	ModuleSummoner:    {Key: "summoner", Label: "Summoner", Icon: 62027, Category: CategoryDPS},
	ModuleChocobo:     {Key: "chocobo", Label: "Chocobo", Icon: 62043, Category: CategoryGeneral},
	ModuleGatherers:   {Key: "gatherers", Label: "Gatherers", Icon: 62017, Category: CategoryGatherer},
	ModuleMonk:        {Key: "monk", Label: "Monk", Icon: 62020, Category: CategoryDPS},
	ModulePictomancer: {Key: "pictomancer", Label: "Pictomancer", Icon: 62042, Category: CategoryDPS},
	ModuleReaper:      {Key: "reaper", Label: "Reaper", Icon: 62039, Category: CategoryDPS},
}

// Info returns static metadata for module kind.
// Params: none.
// Returns: metadata row or zero value for out-of-range kinds.
func (k ModuleKind) Info() ModuleInfo {
	if k < 0 || int(k) >= len(moduleTable) {
		return ModuleInfo{}
	}
	return moduleTable[k]
}

// String returns persistence key of module kind.
func (k ModuleKind) String() string {
	info := k.Info()
	if info.Key == "" {
		return fmt.Sprintf("module(%d)", int(k))
	}
	return info.Key
}

// Valid reports whether kind belongs to the closed module enumeration.
func (k ModuleKind) Valid() bool {
	return k >= 0 && int(k) < len(moduleTable)
}

// ModuleKinds lists all known module kinds in declaration order.
// Params: none.
// Returns: fresh slice of kinds.
func ModuleKinds() []ModuleKind {
	out := make([]ModuleKind, 0, len(moduleTable))
	for i := range moduleTable {
		out = append(out, ModuleKind(i))
	}
	return out
}

// ParseModuleKind resolves module key (case-insensitive) into kind.
// Params: module key such as "tanks" or "free_company".
// Returns: module kind or error for unknown key.
func ParseModuleKind(value string) (ModuleKind, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	for i, info := range moduleTable {
		if info.Key == key {
			return ModuleKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown module %q", value)
}
