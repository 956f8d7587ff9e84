package evaluator

import (
	"math"
	"strings"

	"agui-policy-be/internal/model"
)

// ApprovalChainPanel recomputes the ordered approver chain for
// approval_chain panels from amount levels and instrument triggers.
type ApprovalChainPanel struct{}

func (ApprovalChainPanel) Type() string     { return "approval_chain" }
func (ApprovalChainPanel) FactsKey() string { return "approval_chain_rules" }

func matchLevel(amount float64, cond map[string]interface{}) bool {
	op := getStr(cond, "op")
	if op == "between" {
		rng := getObj(cond, "range")
		min, ok := getNum(rng, "min")
		if !ok {
			min = math.Inf(-1)
		}
		max, ok := getNum(rng, "max")
		if !ok {
			max = math.Inf(1)
		}
		return min <= amount && amount <= max
	}
	value, _ := getNum(cond, "value")
	return compareAmount(amount, value, op)
}

func (ApprovalChainPanel) Evaluate(rules map[string]interface{}, cfg model.PanelConfig) (string, interface{}) {
	controls := cfg.Controls()
	amount, ok := getNum(controls, "amount")
	if !ok {
		return "chain", []string{}
	}
	instrument := strings.ToLower(strings.TrimSpace(getStr(controls, "instrument")))

	chain := []string{}
	for _, raw := range getArr(rules, "levels") {
		level, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		cond := getObj(level, "condition")
		if getStr(cond, "field") != "amount" || !matchLevel(amount, cond) {
			continue
		}
		chain = appendUnique(chain, asStrings(getArr(level, "approvers"))...)
	}

	for _, raw := range getArr(rules, "triggers") {
		trigger, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		want := strings.ToLower(strings.TrimSpace(getStr(getObj(trigger, "when"), "instrument")))
		if want == "" || instrument == "" || !strings.Contains(instrument, want) {
			continue
		}
		chain = appendUnique(chain, asStrings(getArr(trigger, "add"))...)
	}

	return "chain", chain
}
