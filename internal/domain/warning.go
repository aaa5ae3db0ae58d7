package domain

// Warning is one active condition detected by a module for one entity this tick.
// Params: module, icon/action reference, texts, source entity, and priority.
// Returns: transient record consumed by aggregation and suppression.
type Warning struct {
	Module     ModuleKind `json:"module"`
	Icon       uint32     `json:"icon"`
	ActionID   uint32     `json:"action_id,omitempty"`
	Label      string     `json:"label"`
	Message    string     `json:"message"`
	EntityID   EntityID   `json:"entity_id"`
	EntityName string     `json:"entity_name"`
	Priority   int        `json:"priority"`
}

// GroupKey returns action id, or icon for warnings without action granularity.
// Params: none.
// Returns: key used to merge equal warnings across entities.
func (w Warning) GroupKey() uint32 {
	if w.ActionID != 0 {
		return w.ActionID
	}
	return w.Icon
}
