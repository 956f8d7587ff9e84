package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tierNames(compiled map[string]interface{}) []string {
	sp := compiled["spend_policy"].(map[string]interface{})
	var names []string
	for _, raw := range sp["tiers"].([]interface{}) {
		names = append(names, raw.(map[string]interface{})["name"].(string))
	}
	return names
}

func upperRequires(compiled map[string]interface{}) []interface{} {
	sp := compiled["spend_policy"].(map[string]interface{})
	tiers := sp["tiers"].([]interface{})
	return tiers[1].(map[string]interface{})["requires"].([]interface{})
}

func TestCompileSpendPolicy(t *testing.T) {
	text := "Purchases of $25000 or more require an RFP.\n" +
		"All payments need two signatures.\n" +
		"Minor purchases under $500 are petty cash."

	compiled := CompileSpendPolicy(text)

	assert.Equal(t, []string{"Under25000", "AtOrOver25000"}, tierNames(compiled))

	sp := compiled["spend_policy"].(map[string]interface{})
	tiers := sp["tiers"].([]interface{})

	lower := tiers[0].(map[string]interface{})
	lowerRange := lower["range"].(map[string]interface{})
	assert.Equal(t, 0.0, lowerRange["min"])
	assert.Equal(t, 24999.99, lowerRange["max"])

	upper := tiers[1].(map[string]interface{})
	upperRange := upper["range"].(map[string]interface{})
	assert.Equal(t, 25000.0, upperRange["min"])
	assert.Equal(t, "inf", upperRange["max"])

	assert.Equal(t, []interface{}{"CertifyInvoice", "ManagerApproval", "DualSignatures", "RFP"}, upperRequires(compiled))

	constraints := sp["constraints"].([]interface{})
	require.Len(t, constraints, 1)
	assert.Equal(t, "SeparationOfDuties", constraints[0].(map[string]interface{})["code"])

	evidence := sp["evidence"].([]interface{})
	var keys []string
	for _, raw := range evidence {
		keys = append(keys, raw.(map[string]interface{})["key"].(string))
	}
	assert.Contains(t, keys, "spend.rfp")
	assert.Contains(t, keys, "spend.dual")
	assert.Contains(t, keys, "spend.threshold")
}

func TestCompileSpendPolicyDefaults(t *testing.T) {
	compiled := CompileSpendPolicy("No numbers in this policy at all.")

	assert.Equal(t, []string{"Under20000", "AtOrOver20000"}, tierNames(compiled))
	// Neither RFP nor dual signatures are mentioned, so the upper tier
	// stays at the base steps.
	assert.Equal(t, []interface{}{"CertifyInvoice", "ManagerApproval"}, upperRequires(compiled))
}

func TestCompileSpendPolicyPicksLargestAmount(t *testing.T) {
	compiled := CompileSpendPolicy("Petty cash up to $500. Board sign-off over $50,000. Limit $10,000 for managers.")
	assert.Equal(t, []string{"Under50000", "AtOrOver50000"}, tierNames(compiled))
}

func TestCompileDelegationRules(t *testing.T) {
	text := "Spending authority rests with budget holders.\n" +
		"Cheque signing is reserved to the Treasurer.\n" +
		"Bank reconciliation is done monthly.\n" +
		"We require separation of duties between approval and payment.\n" +
		"Reconciliation must be independent of payment processing."

	compiled := CompileDelegationRules(text)
	delegation := compiled["delegation"].(map[string]interface{})

	assert.Equal(t, []interface{}{"Spending", "Payment", "BankReconciliation"}, delegation["roles"])

	constraints := delegation["constraints"].([]interface{})
	require.Len(t, constraints, 2)
	assert.Equal(t, "ConflictRolePair", constraints[0].(map[string]interface{})["code"])
	assert.Equal(t, "ReconIndependence", constraints[1].(map[string]interface{})["code"])

	acting := delegation["acting_rules"].(map[string]interface{})
	assert.Equal(t, true, acting["require_dates"])
}

func TestCompileDelegationRulesFallbacks(t *testing.T) {
	compiled := CompileDelegationRules("This text names no roles and no duties.")
	delegation := compiled["delegation"].(map[string]interface{})

	assert.Equal(t, []interface{}{"Spending", "Payment", "BankReconciliation"}, delegation["roles"])
	assert.Len(t, delegation["constraints"], 2)
}
