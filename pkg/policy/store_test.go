package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreSeedsDefaults(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "spend_policy.json"))
	assert.FileExists(t, filepath.Join(dir, "delegation_rules.json"))

	// The seeded policy carries the standard threshold and the full
	// upper-tier step set.
	assert.Equal(t, []string{"Under20000", "AtOrOver20000"}, tierNames(store.SpendPolicy()))
	assert.Equal(t,
		[]interface{}{"CertifyInvoice", "ManagerApproval", "DualSignatures", "RFP"},
		upperRequires(store.SpendPolicy()))

	delegation := store.DelegationRules()["delegation"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Spending", "Payment", "BankReconciliation"}, delegation["roles"])
	assert.Len(t, delegation["constraints"], 2)
}

func TestStoreSetAndReload(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	compiled := CompileSpendPolicy("Anything over $5000 needs an RFP.")
	require.NoError(t, store.SetSpendPolicy(compiled))
	assert.Equal(t, []string{"Under5000", "AtOrOver5000"}, tierNames(store.SpendPolicy()))

	// A second store over the same dir picks up the persisted policy.
	second, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Under5000", "AtOrOver5000"}, tierNames(second.SpendPolicy()))

	// Editing the file on disk is not visible until reload.
	raw, err := os.ReadFile(filepath.Join(dir, "spend_policy.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spend_policy.json"),
		[]byte(`{"spend_policy":{"tiers":[],"constraints":[],"evidence":[]}}`), 0o644))

	assert.Equal(t, []string{"Under5000", "AtOrOver5000"}, tierNames(store.SpendPolicy()))
	require.NoError(t, store.ReloadSpendPolicy())
	assert.Empty(t, store.SpendPolicy()["spend_policy"].(map[string]interface{})["tiers"])

	// restore for any later assertions on the same dir
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spend_policy.json"), raw, 0o644))
}

func TestStoreReloadMissingFile(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "delegation_rules.json")))
	assert.Error(t, store.ReloadDelegationRules())
}
