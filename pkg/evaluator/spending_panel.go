package evaluator

import (
	"strings"

	"agui-policy-be/internal/model"
)

// SpendingPanel recomputes required_steps for form_spending panels from
// the compiled spending rules tiers and exceptions.
type SpendingPanel struct{}

func (SpendingPanel) Type() string     { return "form_spending" }
func (SpendingPanel) FactsKey() string { return "spending_rules" }

func (SpendingPanel) Evaluate(rules map[string]interface{}, cfg model.PanelConfig) (string, interface{}) {
	controls := cfg.Controls()
	amount, ok := getNum(controls, "amount")
	if !ok {
		return "required_steps", []string{}
	}
	category := getStr(controls, "category")

	steps := []string{}
	tiers := getArr(rules, "tiers")

	// Unconditional tiers apply regardless of the amount entered.
	for _, raw := range tiers {
		tier, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		cond := getObj(tier, "condition")
		if strings.ToLower(getStr(cond, "op")) == "any" {
			steps = appendUnique(steps, asStrings(getArr(tier, "required_steps"))...)
		}
	}

	for _, raw := range tiers {
		tier, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		cond := getObj(tier, "condition")
		op := getStr(cond, "op")
		if getStr(cond, "field") != "amount" || op == "" || op == "any" {
			continue
		}
		value, ok := getNum(cond, "value")
		if !ok {
			continue
		}
		if compareAmount(amount, value, op) {
			steps = appendUnique(steps, asStrings(getArr(tier, "required_steps"))...)
		}
	}

	for _, raw := range getArr(rules, "exceptions") {
		ex, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		when := getStr(getObj(ex, "if"), "category")
		if category != "" && when != "" && strings.EqualFold(when, category) {
			steps = appendUnique(steps, asStrings(getArr(ex, "then_add_steps"))...)
		}
	}

	return "required_steps", steps
}
