package evaluator

import (
	"strings"

	"agui-policy-be/internal/model"
)

// ExceptionsTrackerPanel recomputes the waiver checklist status for
// exceptions_tracker panels. Policies are matched against the entered
// keywords and amount; each required item is PASS when ticked true,
// FAIL when ticked false and UNKNOWN when untouched.
type ExceptionsTrackerPanel struct{}

func (ExceptionsTrackerPanel) Type() string     { return "exceptions_tracker" }
func (ExceptionsTrackerPanel) FactsKey() string { return "exception_rules" }

// ItemStatus is one checklist requirement with its tick verdict.
type ItemStatus struct {
	Item   string `json:"item"`
	Status string `json:"status"`
}

func matchKeyword(when map[string]interface{}, keywords string) bool {
	want := strings.ToLower(strings.TrimSpace(getStr(when, "keyword")))
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(keywords)), want)
}

func matchExceptionAmount(when map[string]interface{}, amount *float64) bool {
	cond := getObj(when, "amount")
	if len(cond) == 0 {
		return true
	}
	if amount == nil {
		return false
	}
	value, ok := getNum(cond, "value")
	if !ok {
		return true
	}
	op := strings.TrimSpace(getStr(cond, "op"))
	switch op {
	case "<", "<=", ">", ">=", "==":
		return compareAmount(*amount, value, op)
	}
	return true
}

func tickStatus(required []string, ticked map[string]interface{}) []ItemStatus {
	out := []ItemStatus{}
	for _, item := range required {
		status := "UNKNOWN"
		if v, ok := ticked[item].(bool); ok {
			if v {
				status = "PASS"
			} else {
				status = "FAIL"
			}
		}
		out = append(out, ItemStatus{Item: item, Status: status})
	}
	return out
}

func (ExceptionsTrackerPanel) Evaluate(rules map[string]interface{}, cfg model.PanelConfig) (string, interface{}) {
	entry := getObj(cfg.Controls(), "entry")

	keywords := getStr(entry, "keywords")
	var amount *float64
	if v, ok := getNum(entry, "amount"); ok {
		amount = &v
	}

	var requiredApprovals, requiredDocs, requiredReporting []string
	for _, raw := range getArr(rules, "exception_policies") {
		policy, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		when := getObj(policy, "when")
		if !matchKeyword(when, keywords) || !matchExceptionAmount(when, amount) {
			continue
		}
		requires := getObj(policy, "requires")
		requiredApprovals = appendUnique(requiredApprovals, asStrings(getArr(requires, "approvals"))...)
		requiredDocs = appendUnique(requiredDocs, asStrings(getArr(requires, "documentation"))...)
		requiredReporting = appendUnique(requiredReporting, asStrings(getArr(requires, "reporting"))...)
	}

	return "status", map[string]interface{}{
		"approvals":     tickStatus(requiredApprovals, getObj(entry, "approvals")),
		"documentation": tickStatus(requiredDocs, getObj(entry, "documentation")),
		"reporting":     tickStatus(requiredReporting, getObj(entry, "reporting")),
	}
}
