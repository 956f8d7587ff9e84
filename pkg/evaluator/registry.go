package evaluator

import "agui-policy-be/internal/model"

// PanelEvaluator recomputes one derived data field of a panel from its
// controls and a rules snapshot. Evaluators are pure: same controls and
// rules always yield the same value.
type PanelEvaluator interface {
	// Type is the panel_configs "type" this evaluator handles.
	Type() string
	// FactsKey names the per-document rules entry the evaluator reads.
	FactsKey() string
	// Evaluate returns the data field to overwrite and its new value.
	Evaluate(rules map[string]interface{}, cfg model.PanelConfig) (field string, value interface{})
}

// Registry dispatches panel recomputation by panel type. Panels with a
// type no evaluator claims are left untouched.
type Registry struct {
	byType map[string]PanelEvaluator
}

func NewRegistry(evaluators ...PanelEvaluator) *Registry {
	r := &Registry{byType: make(map[string]PanelEvaluator, len(evaluators))}
	for _, ev := range evaluators {
		r.byType[ev.Type()] = ev
	}
	return r
}

// DefaultRegistry wires every built-in panel evaluator.
func DefaultRegistry() *Registry {
	return NewRegistry(
		SpendingPanel{},
		ApprovalChainPanel{},
		RolesSoDPanel{},
		ControlChecklistsPanel{},
		ExceptionsTrackerPanel{},
	)
}

// Lookup returns the evaluator for a panel type, or nil if none is
// registered.
func (r *Registry) Lookup(panelType string) PanelEvaluator {
	return r.byType[panelType]
}
