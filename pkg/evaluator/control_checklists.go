package evaluator

import (
	"time"

	"agui-policy-be/internal/model"
)

// ControlChecklistsPanel recomputes pass/fail/unknown status for the
// travel, bank and credit checklist sections of control_checklists
// panels. A rule whose inputs are missing or unparseable stays unknown.
type ControlChecklistsPanel struct{}

func (ControlChecklistsPanel) Type() string     { return "control_checklists" }
func (ControlChecklistsPanel) FactsKey() string { return "control_rules" }

// RuleStatus is one evaluated checklist row.
type RuleStatus struct {
	Code      string        `json:"code"`
	Label     string        `json:"label"`
	Status    string        `json:"status"`
	Citations []interface{} `json:"citations"`
	Quotes    []interface{} `json:"quotes"`
}

func daysBetween(controls map[string]interface{}, fromField, toField string) (int, bool) {
	from, errFrom := time.Parse(grantDateLayout, getStr(controls, fromField))
	to, errTo := time.Parse(grantDateLayout, getStr(controls, toField))
	if errFrom != nil || errTo != nil {
		return 0, false
	}
	return int(to.Sub(from).Hours() / 24), true
}

func compareDays(days int, op string, value float64) (bool, bool) {
	d := float64(days)
	switch op {
	case "<=":
		return d <= value, true
	case ">=":
		return d >= value, true
	case "==":
		return d == value, true
	}
	return false, false
}

// evalLogic returns (result, known). Unknown means the verdict cannot
// be decided from the entered controls.
func evalLogic(controls map[string]interface{}, logic map[string]interface{}) (bool, bool) {
	switch getStr(logic, "kind") {
	case "days_between":
		days, ok := daysBetween(controls, getStr(logic, "from"), getStr(logic, "to"))
		if !ok {
			return false, false
		}
		value, ok := getNum(logic, "value")
		if !ok {
			return false, false
		}
		return compareDays(days, getStr(logic, "op"), value)
	case "due_within_days_after":
		days, ok := daysBetween(controls, getStr(logic, "anchor"), getStr(logic, "event"))
		if !ok {
			return false, false
		}
		value, ok := getNum(logic, "value")
		if !ok {
			return false, false
		}
		return compareDays(days, getStr(logic, "op"), value)
	case "all_false":
		fields := asStrings(getArr(logic, "fields"))
		if len(fields) == 0 {
			return false, false
		}
		for _, field := range fields {
			v, ok := getBool(controls, field)
			if !ok {
				return false, false
			}
			if v {
				return false, true
			}
		}
		return true, true
	case "bool_equals":
		v, ok := getBool(controls, getStr(logic, "field"))
		if !ok {
			return false, false
		}
		expect, _ := getBool(logic, "value")
		return v == expect, true
	}
	return false, false
}

func evalSection(controls map[string]interface{}, rules []interface{}) []RuleStatus {
	out := []RuleStatus{}
	for _, raw := range rules {
		rule, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		status := "unknown"
		if passed, known := evalLogic(controls, getObj(rule, "logic")); known {
			if passed {
				status = "pass"
			} else {
				status = "fail"
			}
		}
		label := getStr(rule, "label")
		if label == "" {
			label = getStr(rule, "code")
		}
		out = append(out, RuleStatus{
			Code:      getStr(rule, "code"),
			Label:     label,
			Status:    status,
			Citations: getArr(rule, "citations"),
			Quotes:    getArr(rule, "quotes"),
		})
	}
	return out
}

func (ControlChecklistsPanel) Evaluate(rules map[string]interface{}, cfg model.PanelConfig) (string, interface{}) {
	controls := cfg.Controls()
	return "status", map[string]interface{}{
		"travel": evalSection(getObj(controls, "travel"), getArr(rules, "travel_rules")),
		"bank":   evalSection(getObj(controls, "bank"), getArr(rules, "bank_recon_rules")),
		"credit": evalSection(getObj(controls, "credit"), getArr(rules, "credit_card_rules")),
	}
}
