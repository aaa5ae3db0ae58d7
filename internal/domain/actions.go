package domain

// Action is one catalog row resolved for action-based warnings.
type Action struct {
	ID   uint32
	Name string
	Icon uint32
}

var actionCatalog = map[uint32]Action{
	28:    {ID: 28, Name: "Iron Will", Icon: 2505},
	48:    {ID: 48, Name: "Defiance", Icon: 251},
	3629:  {ID: 3629, Name: "Grit", Icon: 3076},
	16142: {ID: 16142, Name: "Royal Guard", Icon: 3603},
	4262:  {ID: 4262, Name: "Form Shift", Icon: 2536},
	36943: {ID: 36943, Name: "Meditation", Icon: 2545},
	34664: {ID: 34664, Name: "Creature Motif", Icon: 3802},
	34668: {ID: 34668, Name: "Weapon Motif", Icon: 3806},
	34669: {ID: 34669, Name: "Landscape Motif", Icon: 3807},
	24387: {ID: 24387, Name: "Soulsow", Icon: 3634},
	24285: {ID: 24285, Name: "Kardia", Icon: 3651},
	25798: {ID: 25798, Name: "Summon Carbuncle", Icon: 2799},
}

// LookupAction resolves action row from static catalog.
// Params: action id.
// Returns: action row and presence flag.
func LookupAction(id uint32) (Action, bool) {
	action, ok := actionCatalog[id]
	return action, ok
}
