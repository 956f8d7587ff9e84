package evaluator

import (
	"testing"

	"agui-policy-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func panel(controls map[string]interface{}) model.PanelConfig {
	return model.PanelConfig{"controls": controls}
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()

	for _, typ := range []string{"form_spending", "approval_chain", "roles_sod", "control_checklists", "exceptions_tracker"} {
		ev := r.Lookup(typ)
		require.NotNil(t, ev, typ)
		assert.Equal(t, typ, ev.Type())
		assert.NotEmpty(t, ev.FactsKey())
	}

	assert.Nil(t, r.Lookup("markdown_notes"))
}

func TestSpendingPanelEvaluate(t *testing.T) {
	rules := map[string]interface{}{
		"tiers": []interface{}{
			map[string]interface{}{
				"condition":      map[string]interface{}{"op": "any"},
				"required_steps": []interface{}{"PurchaseOrder"},
			},
			map[string]interface{}{
				"condition":      map[string]interface{}{"field": "amount", "op": ">=", "value": float64(20000)},
				"required_steps": []interface{}{"RFP", "DualSignatures"},
			},
			map[string]interface{}{
				"condition":      map[string]interface{}{"field": "amount", "op": "<", "value": float64(20000)},
				"required_steps": []interface{}{"ManagerApproval"},
			},
		},
		"exceptions": []interface{}{
			map[string]interface{}{
				"if":             map[string]interface{}{"category": "asset"},
				"then_add_steps": []interface{}{"AssetRegister"},
			},
		},
	}

	tests := []struct {
		name     string
		controls map[string]interface{}
		want     []string
	}{
		{
			name:     "no amount yields empty",
			controls: map[string]interface{}{},
			want:     []string{},
		},
		{
			name:     "below threshold",
			controls: map[string]interface{}{"amount": float64(500)},
			want:     []string{"PurchaseOrder", "ManagerApproval"},
		},
		{
			name:     "at threshold",
			controls: map[string]interface{}{"amount": float64(20000)},
			want:     []string{"PurchaseOrder", "RFP", "DualSignatures"},
		},
		{
			name:     "category exception stacks",
			controls: map[string]interface{}{"amount": float64(500), "category": "asset"},
			want:     []string{"PurchaseOrder", "ManagerApproval", "AssetRegister"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, value := SpendingPanel{}.Evaluate(rules, panel(tt.controls))
			assert.Equal(t, "required_steps", field)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestApprovalChainPanelEvaluate(t *testing.T) {
	rules := map[string]interface{}{
		"levels": []interface{}{
			map[string]interface{}{
				"condition": map[string]interface{}{"field": "amount", "op": "between", "range": map[string]interface{}{"min": float64(0), "max": float64(9999.99)}},
				"approvers": []interface{}{"Manager"},
			},
			map[string]interface{}{
				"condition": map[string]interface{}{"field": "amount", "op": "between", "range": map[string]interface{}{"min": float64(10000)}},
				"approvers": []interface{}{"Manager", "Director", "Board"},
			},
		},
		"triggers": []interface{}{
			map[string]interface{}{
				"when": map[string]interface{}{"instrument": "cheque"},
				"add":  []interface{}{"SecondSignatory"},
			},
		},
	}

	tests := []struct {
		name     string
		controls map[string]interface{}
		want     []string
	}{
		{
			name:     "no amount yields empty chain",
			controls: map[string]interface{}{},
			want:     []string{},
		},
		{
			name:     "small amount",
			controls: map[string]interface{}{"amount": float64(100)},
			want:     []string{"Manager"},
		},
		{
			name:     "open-ended upper level",
			controls: map[string]interface{}{"amount": float64(50000)},
			want:     []string{"Manager", "Director", "Board"},
		},
		{
			name:     "instrument trigger appends once",
			controls: map[string]interface{}{"amount": float64(100), "instrument": "Company Cheque"},
			want:     []string{"Manager", "SecondSignatory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, value := ApprovalChainPanel{}.Evaluate(rules, panel(tt.controls))
			assert.Equal(t, "chain", field)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestRolesSoDPanelEvaluate(t *testing.T) {
	rules := map[string]interface{}{
		"constraints": []interface{}{
			map[string]interface{}{
				"code":    "ConflictRolePair",
				"pair":    []interface{}{"Spending", "Payment"},
				"message": "Spending and Payment must differ.",
			},
		},
	}

	field, value := RolesSoDPanel{}.Evaluate(rules, panel(map[string]interface{}{
		"assignments": map[string]interface{}{"Spending": "kim", "Payment": "kim"},
	}))
	require.Equal(t, "violations", field)
	violations := value.([]model.Violation)
	require.Len(t, violations, 1)
	assert.Equal(t, "ConflictRolePair", violations[0].Code)
	assert.Equal(t, "/assignments/Payment", violations[0].Path)

	_, value = RolesSoDPanel{}.Evaluate(rules, panel(map[string]interface{}{
		"assignments": map[string]interface{}{"Spending": "kim", "Payment": "lee"},
	}))
	assert.Empty(t, value)
}

func TestControlChecklistsPanelEvaluate(t *testing.T) {
	rules := map[string]interface{}{
		"travel_rules": []interface{}{
			map[string]interface{}{
				"code":  "ClaimDueAfterTrip",
				"label": "Claim within 10 days",
				"logic": map[string]interface{}{"kind": "days_between", "from": "trip_end", "to": "claim_date", "op": "<=", "value": float64(10)},
			},
			map[string]interface{}{
				"code":  "NoOtherOutstandingAdvance",
				"logic": map[string]interface{}{"kind": "all_false", "fields": []interface{}{"has_outstanding_advance"}},
			},
		},
		"bank_recon_rules": []interface{}{
			map[string]interface{}{
				"code":  "PreparerIndependence",
				"logic": map[string]interface{}{"kind": "bool_equals", "field": "preparer_is_signatory", "value": false},
			},
		},
	}

	controls := map[string]interface{}{
		"travel": map[string]interface{}{
			"trip_end":                "2026-03-01",
			"claim_date":              "2026-03-20",
			"has_outstanding_advance": false,
		},
		"bank": map[string]interface{}{},
	}

	field, value := ControlChecklistsPanel{}.Evaluate(rules, panel(controls))
	require.Equal(t, "status", field)
	status := value.(map[string]interface{})

	travel := status["travel"].([]RuleStatus)
	require.Len(t, travel, 2)
	assert.Equal(t, "fail", travel[0].Status) // 19 days late
	assert.Equal(t, "Claim within 10 days", travel[0].Label)
	assert.Equal(t, "pass", travel[1].Status)

	bank := status["bank"].([]RuleStatus)
	require.Len(t, bank, 1)
	assert.Equal(t, "unknown", bank[0].Status) // input never entered

	credit := status["credit"].([]RuleStatus)
	assert.Empty(t, credit)
}

func TestExceptionsTrackerPanelEvaluate(t *testing.T) {
	rules := map[string]interface{}{
		"exception_policies": []interface{}{
			map[string]interface{}{
				"when": map[string]interface{}{"keyword": "sole source", "amount": map[string]interface{}{"op": ">=", "value": float64(20000)}},
				"requires": map[string]interface{}{
					"approvals":     []interface{}{"Board approval"},
					"documentation": []interface{}{"Justification memo"},
					"reporting":     []interface{}{"Annual report disclosure"},
				},
			},
			map[string]interface{}{
				"when": map[string]interface{}{"keyword": "emergency"},
				"requires": map[string]interface{}{
					"approvals": []interface{}{"ED approval"},
				},
			},
		},
	}

	entry := map[string]interface{}{
		"keywords": "Sole Source purchase of generators",
		"amount":   float64(25000),
		"approvals": map[string]interface{}{
			"Board approval": true,
		},
		"documentation": map[string]interface{}{
			"Justification memo": false,
		},
	}

	field, value := ExceptionsTrackerPanel{}.Evaluate(rules, panel(map[string]interface{}{"entry": entry}))
	require.Equal(t, "status", field)
	status := value.(map[string]interface{})

	approvals := status["approvals"].([]ItemStatus)
	require.Len(t, approvals, 1) // emergency policy keyword does not match
	assert.Equal(t, ItemStatus{Item: "Board approval", Status: "PASS"}, approvals[0])

	docs := status["documentation"].([]ItemStatus)
	require.Len(t, docs, 1)
	assert.Equal(t, "FAIL", docs[0].Status)

	reporting := status["reporting"].([]ItemStatus)
	require.Len(t, reporting, 1)
	assert.Equal(t, "UNKNOWN", reporting[0].Status)
}

func TestExceptionsTrackerAmountGate(t *testing.T) {
	rules := map[string]interface{}{
		"exception_policies": []interface{}{
			map[string]interface{}{
				"when":     map[string]interface{}{"keyword": "waiver", "amount": map[string]interface{}{"op": ">=", "value": float64(20000)}},
				"requires": map[string]interface{}{"approvals": []interface{}{"Board approval"}},
			},
		},
	}

	// Amount condition present but no amount entered: the policy cannot match.
	entry := map[string]interface{}{"keywords": "waiver request"}
	_, value := ExceptionsTrackerPanel{}.Evaluate(rules, panel(map[string]interface{}{"entry": entry}))
	status := value.(map[string]interface{})
	assert.Empty(t, status["approvals"])

	entry["amount"] = float64(30000)
	_, value = ExceptionsTrackerPanel{}.Evaluate(rules, panel(map[string]interface{}{"entry": entry}))
	status = value.(map[string]interface{})
	assert.Len(t, status["approvals"], 1)
}
