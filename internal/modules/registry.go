package modules

import "buffwatch/internal/module"

// Registry builds every module in evaluation order.
// Params: none.
// Returns: fresh module instances with default configs.
func Registry() []module.Module {
	return []module.Module{
		NewTanks(),
		NewFreeCompany(),
		NewFood(),
		NewSage(),
		NewSummoner(),
		NewChocobo(),
		NewMonk(),
		NewPictomancer(),
		NewReaper(),
	}
}
