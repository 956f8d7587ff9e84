package evaluator

import (
	"agui-policy-be/internal/model"
)

// Requirements is the derived output for the spend sub-document.
type Requirements struct {
	RequiredSteps []string
	Violations    []model.Violation
}

// pickTier finds the policy tier whose [min, max] range contains amount.
// A max of "inf" means unbounded.
func pickTier(amount *float64, tiers []interface{}) map[string]interface{} {
	if amount == nil {
		return nil
	}
	for _, raw := range tiers {
		tier, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		rng := getObj(tier, "range")
		min, okMin := getNum(rng, "min")
		if !okMin {
			continue
		}
		max, okMax := getNum(rng, "max")
		unbounded := !okMax && getStr(rng, "max") == "inf"
		if *amount >= min && (unbounded || *amount <= max) {
			return tier
		}
	}
	return nil
}

// DeriveRequirements computes the required procedural steps and the
// spend-specific violations for the current spend state under the given
// policy snapshot.
func DeriveRequirements(spend model.SpendState, policy map[string]interface{}) Requirements {
	spendPolicy := getObj(policy, "spend_policy")
	tiers := getArr(spendPolicy, "tiers")
	constraints := getArr(spendPolicy, "constraints")

	req := Requirements{RequiredSteps: []string{}, Violations: []model.Violation{}}

	if tier := pickTier(spend.Amount, tiers); tier != nil {
		req.RequiredSteps = append(req.RequiredSteps, asStrings(getArr(tier, "requires"))...)
	}

	for _, raw := range constraints {
		constraint, ok := raw.(map[string]interface{})
		if !ok || getStr(constraint, "code") != "SeparationOfDuties" {
			continue
		}
		if spend.Requester != nil && spend.Approver != nil &&
			*spend.Requester != "" && *spend.Requester == *spend.Approver {
			req.Violations = append(req.Violations, model.Violation{
				Code:    "SeparationOfDuties",
				Message: "Requester and Approver must be different.",
				Path:    "/spend/approver",
			})
		}
		break
	}

	return req
}
