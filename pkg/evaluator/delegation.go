package evaluator

import (
	"fmt"
	"sort"
	"time"

	"agui-policy-be/internal/model"
)

const grantDateLayout = "2006-01-02"

func parseGrantDate(s string) (time.Time, bool) {
	t, err := time.Parse(grantDateLayout, s)
	return t, err == nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ValidateDelegation recomputes all delegation violations for the current
// delegation state under the given rules snapshot. The result replaces
// whatever list was there before; violations never accumulate.
func ValidateDelegation(state model.DelegationState, rules map[string]interface{}) []model.Violation {
	violations := []model.Violation{}

	delegation := getObj(rules, "delegation")
	rolesAllowed := asStrings(getArr(delegation, "roles"))
	constraints := getArr(delegation, "constraints")
	actingRules := getObj(delegation, "acting_rules")

	for _, role := range state.Roles {
		if !containsString(rolesAllowed, role) {
			violations = append(violations, model.Violation{
				Code:    "UnknownRole",
				Message: fmt.Sprintf("Role %q is not defined in policy.", role),
				Path:    "/delegation/roles",
			})
		}
	}

	assignedRoles := make([]string, 0, len(state.Assignments))
	for role := range state.Assignments {
		assignedRoles = append(assignedRoles, role)
	}
	sort.Strings(assignedRoles)

	for _, role := range assignedRoles {
		person := state.Assignments[role]
		path := "/delegation/assignments/" + model.EscapePointer(role)
		if !containsString(rolesAllowed, role) {
			violations = append(violations, model.Violation{
				Code:    "UnknownRole",
				Message: fmt.Sprintf("Assignment uses unknown role %q.", role),
				Path:    path,
			})
		}
		if person != nil && !containsString(state.People, *person) {
			violations = append(violations, model.Violation{
				Code:    "UnknownAssignee",
				Message: fmt.Sprintf("%q is not in people list.", *person),
				Path:    path,
			})
		}
	}

	samePerson := func(roleA, roleB string) bool {
		pa := state.Assignments[roleA]
		pb := state.Assignments[roleB]
		return pa != nil && pb != nil && *pa == *pb
	}

	for _, raw := range constraints {
		constraint, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		code := getStr(constraint, "code")
		if code != "ConflictRolePair" && code != "ReconIndependence" {
			continue
		}
		pair := asStrings(getArr(constraint, "pair"))
		if len(pair) != 2 || !samePerson(pair[0], pair[1]) {
			continue
		}
		message := getStr(constraint, "message")
		if message == "" {
			message = fmt.Sprintf("Roles %s and %s must be held by different people.", pair[0], pair[1])
		}
		violations = append(violations, model.Violation{
			Code:    code,
			Message: message,
			Path:    "/delegation/assignments/" + model.EscapePointer(pair[1]),
		})
	}

	requireDates, _ := getBool(actingRules, "require_dates")
	for idx, grant := range state.Acting {
		path := fmt.Sprintf("/delegation/acting/%d", idx)
		if !containsString(rolesAllowed, grant.Role) {
			violations = append(violations, model.Violation{
				Code:    "ActingUnknownRole",
				Message: fmt.Sprintf("Acting grant uses unknown role %q.", grant.Role),
				Path:    path,
			})
		}
		if !containsString(state.People, grant.Person) {
			violations = append(violations, model.Violation{
				Code:    "ActingUnknownPerson",
				Message: fmt.Sprintf("Acting grant names unknown person %q.", grant.Person),
				Path:    path,
			})
		}
		if requireDates {
			from, okFrom := parseGrantDate(grant.From)
			to, okTo := parseGrantDate(grant.To)
			switch {
			case !okFrom || !okTo:
				violations = append(violations, model.Violation{
					Code:    "ActingDatesMissing",
					Message: "Acting grant must include valid 'from' and 'to' dates (YYYY-MM-DD).",
					Path:    path,
				})
			case from.After(to):
				violations = append(violations, model.Violation{
					Code:    "ActingDateRangeInvalid",
					Message: "'from' date must be on/before 'to' date.",
					Path:    path,
				})
			}
		}
		if assigned := state.Assignments[grant.Role]; assigned != nil && *assigned == grant.Person {
			violations = append(violations, model.Violation{
				Code:    "ActingRedundant",
				Message: fmt.Sprintf("Acting grant redundant: %q already holds %q.", grant.Person, grant.Role),
				Path:    path,
			})
		}
	}

	return violations
}
