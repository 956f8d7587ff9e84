package evaluator

import (
	"agui-policy-be/internal/model"
)

// RolesSoDPanel recomputes separation-of-duties conflicts for roles_sod
// panels from the conflict pairs extracted into delegation_rules.
type RolesSoDPanel struct{}

func (RolesSoDPanel) Type() string     { return "roles_sod" }
func (RolesSoDPanel) FactsKey() string { return "delegation_rules" }

func (RolesSoDPanel) Evaluate(rules map[string]interface{}, cfg model.PanelConfig) (string, interface{}) {
	assignments := getObj(cfg.Controls(), "assignments")

	same := func(a, b string) bool {
		pa, okA := assignments[a].(string)
		pb, okB := assignments[b].(string)
		return okA && okB && pa != "" && pa == pb
	}

	violations := []model.Violation{}
	for _, raw := range getArr(rules, "constraints") {
		constraint, ok := raw.(map[string]interface{})
		if !ok || getStr(constraint, "code") != "ConflictRolePair" {
			continue
		}
		pair := asStrings(getArr(constraint, "pair"))
		if len(pair) != 2 || !same(pair[0], pair[1]) {
			continue
		}
		message := getStr(constraint, "message")
		if message == "" {
			message = "Conflict"
		}
		violations = append(violations, model.Violation{
			Code:    "ConflictRolePair",
			Message: message,
			Path:    "/assignments/" + pair[1],
		})
	}

	return "violations", violations
}
