package service

import "sort"

// FactsKeys lists every per-document rule set the panels consume.
var FactsKeys = []string{
	"spending_rules",
	"delegation_rules",
	"approval_chain_rules",
	"control_rules",
	"exception_rules",
}

// SynthesizeRules derives a panel rule set from the active policy
// snapshots. The compiled spend policy and delegation rules carry the
// document-grounded facts; the synthesis reshapes them into the
// structures the panel evaluators understand.
func SynthesizeRules(key string, spendPolicy, delegationRules map[string]interface{}) map[string]interface{} {
	switch key {
	case "spending_rules":
		return synthSpendingRules(spendPolicy)
	case "delegation_rules":
		return synthDelegationRules(delegationRules)
	case "approval_chain_rules":
		return synthApprovalRules(spendPolicy)
	case "control_rules":
		return synthControlRules()
	case "exception_rules":
		return synthExceptionRules(spendPolicy)
	}
	return map[string]interface{}{}
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

// spendThreshold reads the boundary between the two compiled tiers.
func spendThreshold(spendPolicy map[string]interface{}) (float64, bool) {
	tiers := asSlice(asMap(spendPolicy["spend_policy"])["tiers"])
	if len(tiers) < 2 {
		return 0, false
	}
	min, ok := asMap(asMap(tiers[1])["range"])["min"].(float64)
	return min, ok
}

func tierSteps(tier interface{}) []interface{} {
	return asSlice(asMap(tier)["requires"])
}

func policyEvidence(doc map[string]interface{}, section string) []interface{} {
	return asSlice(asMap(doc[section])["evidence"])
}

func synthSpendingRules(spendPolicy map[string]interface{}) map[string]interface{} {
	inner := asMap(spendPolicy["spend_policy"])
	tiers := asSlice(inner["tiers"])

	converted := []interface{}{}
	if threshold, ok := spendThreshold(spendPolicy); ok && len(tiers) >= 2 {
		converted = append(converted,
			map[string]interface{}{
				"name":           asMap(tiers[0])["name"],
				"condition":      map[string]interface{}{"field": "amount", "op": "<", "value": threshold},
				"required_steps": tierSteps(tiers[0]),
			},
			map[string]interface{}{
				"name":           asMap(tiers[1])["name"],
				"condition":      map[string]interface{}{"field": "amount", "op": ">=", "value": threshold},
				"required_steps": tierSteps(tiers[1]),
			},
		)
	}

	return map[string]interface{}{
		"tiers":      converted,
		"exceptions": []interface{}{},
		"evidence":   policyEvidence(spendPolicy, "spend_policy"),
	}
}

func synthDelegationRules(delegationRules map[string]interface{}) map[string]interface{} {
	inner := asMap(delegationRules["delegation"])
	roles := asSlice(inner["roles"])
	if roles == nil {
		roles = []interface{}{}
	}
	constraints := asSlice(inner["constraints"])
	if constraints == nil {
		constraints = []interface{}{}
	}
	return map[string]interface{}{
		"roles":       roles,
		"constraints": constraints,
		"allows":      []interface{}{},
		"evidence":    asSlice(inner["evidence"]),
	}
}

func synthApprovalRules(spendPolicy map[string]interface{}) map[string]interface{} {
	inner := asMap(spendPolicy["spend_policy"])
	tiers := asSlice(inner["tiers"])

	levels := []interface{}{}
	triggers := []interface{}{}
	if threshold, ok := spendThreshold(spendPolicy); ok && len(tiers) >= 2 {
		levels = append(levels,
			map[string]interface{}{
				"title": asMap(tiers[0])["name"],
				"condition": map[string]interface{}{
					"field": "amount",
					"op":    "between",
					"range": map[string]interface{}{"min": 0.0, "max": threshold - 0.01},
				},
				"approvers": []interface{}{"Manager"},
			},
			map[string]interface{}{
				"title":     asMap(tiers[1])["name"],
				"condition": map[string]interface{}{"field": "amount", "op": ">=", "value": threshold},
				"approvers": []interface{}{"Manager", "Finance Director"},
			},
		)
	}

	// Dual-signature requirements become an instrument trigger.
	if len(tiers) >= 2 {
		for _, step := range tierSteps(tiers[1]) {
			if step == "DualSignatures" {
				triggers = append(triggers, map[string]interface{}{
					"when": map[string]interface{}{"instrument": "cheque"},
					"add":  []interface{}{"Second Signatory"},
				})
				break
			}
		}
	}

	return map[string]interface{}{
		"levels":   levels,
		"triggers": triggers,
		"evidence": policyEvidence(spendPolicy, "spend_policy"),
	}
}

// synthControlRules emits the standard travel/bank/credit control
// calendar. These controls are fixed by the policy domain rather than
// parsed from text.
func synthControlRules() map[string]interface{} {
	rule := func(code, label string, logic map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"code": code, "label": label, "logic": logic}
	}
	return map[string]interface{}{
		"travel_rules": []interface{}{
			rule("ClaimDueAfterTrip", "Claim submitted within 10 days of trip end", map[string]interface{}{
				"kind": "due_within_days_after", "anchor": "trip_end_date", "event": "claim_submitted_date",
				"op": "<=", "value": 10.0,
			}),
			rule("ExcessReturnedPromptly", "Excess advance returned within 7 days of trip end", map[string]interface{}{
				"kind": "due_within_days_after", "anchor": "trip_end_date", "event": "excess_returned_date",
				"op": "<=", "value": 7.0,
			}),
			rule("NoOtherOutstandingAdvance", "No other advance outstanding", map[string]interface{}{
				"kind": "all_false", "fields": []interface{}{"has_other_advance"},
			}),
		},
		"bank_recon_rules": []interface{}{
			rule("BankReconDueWithinDays", "Reconciliation completed within 30 days of statement", map[string]interface{}{
				"kind": "due_within_days_after", "anchor": "statement_date", "event": "recon_completed_date",
				"op": "<=", "value": 30.0,
			}),
			rule("PreparerIndependence", "Preparer is neither signer nor depositor", map[string]interface{}{
				"kind": "all_false", "fields": []interface{}{"is_preparer_signer", "is_preparer_depositor"},
			}),
		},
		"credit_card_rules": []interface{}{
			rule("CardReconDueWithinDays", "Card reconciliation completed within 30 days of statement", map[string]interface{}{
				"kind": "due_within_days_after", "anchor": "cc_statement_date", "event": "cc_recon_completed_date",
				"op": "<=", "value": 30.0,
			}),
			rule("CardReconIndependence", "Card preparer has no spending authority", map[string]interface{}{
				"kind": "bool_equals", "field": "preparer_has_spending_authority", "value": false,
			}),
		},
	}
}

func synthExceptionRules(spendPolicy map[string]interface{}) map[string]interface{} {
	policies := []interface{}{
		map[string]interface{}{
			"name": "Emergency purchase",
			"when": map[string]interface{}{"keyword": "emergency"},
			"requires": map[string]interface{}{
				"approvals":     []interface{}{"Executive Director"},
				"documentation": []interface{}{"Written justification"},
				"reporting":     []interface{}{"Report to finance committee"},
			},
		},
	}
	if threshold, ok := spendThreshold(spendPolicy); ok {
		policies = append(policies, map[string]interface{}{
			"name": "Sole source procurement",
			"when": map[string]interface{}{
				"keyword": "sole source",
				"amount":  map[string]interface{}{"op": ">=", "value": threshold},
			},
			"requires": map[string]interface{}{
				"approvals":     []interface{}{"Board approval"},
				"documentation": []interface{}{"Written justification", "Quotes on file"},
				"reporting":     []interface{}{"Report to board"},
			},
		})
	}
	return map[string]interface{}{"exception_policies": policies}
}

// citationsFrom lifts a rule set's evidence rows into state citations.
func citationsFrom(rules map[string]interface{}, key string) []interface{} {
	out := []interface{}{}
	for _, raw := range asSlice(rules["evidence"]) {
		row := asMap(raw)
		snippet, _ := row["snippet"].(string)
		if snippet == "" {
			continue
		}
		out = append(out, map[string]interface{}{"key": key, "snippet": snippet})
	}
	return out
}

// exceptionSuggestions flattens the requirement lists of every policy
// into sorted unique suggestions per checklist group.
func exceptionSuggestions(rules map[string]interface{}) map[string]interface{} {
	groups := map[string]map[string]bool{
		"approvals":     {},
		"documentation": {},
		"reporting":     {},
	}
	for _, raw := range asSlice(rules["exception_policies"]) {
		requires := asMap(asMap(raw)["requires"])
		for group, set := range groups {
			for _, item := range asSlice(requires[group]) {
				if s, ok := item.(string); ok && s != "" {
					set[s] = true
				}
			}
		}
	}
	out := map[string]interface{}{}
	for group, set := range groups {
		items := make([]string, 0, len(set))
		for item := range set {
			items = append(items, item)
		}
		sort.Strings(items)
		generic := make([]interface{}, len(items))
		for i, item := range items {
			generic[i] = item
		}
		out[group] = generic
	}
	return out
}
