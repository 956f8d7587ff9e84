package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestFixture(t *testing.T) (*fixture, *IngestService) {
	fx := newFixture(t)
	chat := NewChatService(fx.state, fx.policies, fx.facts, nopLogger{})
	ingest, err := NewIngestService(fx.state, chat, fx.policies, fx.facts, t.TempDir(), nopLogger{})
	require.NoError(t, err)
	return fx, ingest
}

const uploadText = `Purchases of $30000 or more require an RFP.
Two signatures are required on all cheques.
Spending authority rests with budget holders.
Cheque signing is reserved to the Treasurer.
Bank reconciliation must be independent of payment.
We require separation of duties between approval and payment.`

func TestUploadCompilesAndActivates(t *testing.T) {
	fx, ingest := newIngestFixture(t)

	res, err := ingest.Upload("finance-manual.txt", []byte(uploadText), "auto")
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "finance-manual.txt", res.DocName)
	assert.Equal(t, float64(30000), res.SpendThreshold)
	assert.Equal(t, []interface{}{"Spending", "Payment", "BankReconciliation"}, res.Roles)

	// Active policy switched to the uploaded document's threshold.
	sp := fx.policies.SpendPolicy()["spend_policy"].(map[string]interface{})
	tiers := sp["tiers"].([]interface{})
	assert.Equal(t, "Under30000", tiers[0].(map[string]interface{})["name"])

	// Document identity and citations landed in the shared state.
	doc := decodeState(t, fx.state.Raw())
	meta := doc["meta"].(map[string]interface{})
	assert.Equal(t, "finance-manual.txt", meta["doc_id"])
	assert.NotEmpty(t, doc["citations"])

	// Every rule set was reseeded for the new document.
	recorded := fx.facts.Load("finance-manual.txt")
	for _, key := range FactsKeys {
		assert.Contains(t, recorded, key)
	}
}

func TestUploadAutoCreatesPanels(t *testing.T) {
	fx, ingest := newIngestFixture(t)

	_, err := ingest.Upload("finance-manual.txt", []byte(uploadText), "auto")
	require.NoError(t, err)

	doc := decodeState(t, fx.state.Raw())
	panels := doc["panels"].([]interface{})
	assert.Contains(t, panels, "Panel:control_checklists:finance-manual.txt")
	assert.Contains(t, panels, "Panel:exceptions:finance-manual.txt")

	configs := doc["panel_configs"].(map[string]interface{})
	controls := configs["Panel:control_checklists:finance-manual.txt"].(map[string]interface{})
	assert.Equal(t, "control_checklists", controls["type"])
}

func TestUploadKindSpendLeavesDelegationAlone(t *testing.T) {
	fx, ingest := newIngestFixture(t)

	before := fx.policies.DelegationRules()

	res, err := ingest.Upload("spend-only.txt", []byte("Anything over $9000 needs a tender."), "spend")
	require.NoError(t, err)

	assert.Equal(t, float64(9000), res.SpendThreshold)
	assert.Nil(t, res.Roles)
	assert.Equal(t, before, fx.policies.DelegationRules())
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	_, ingest := newIngestFixture(t)

	_, err := ingest.Upload("policy.pdf", []byte("%PDF-1.4"), "auto")
	require.Error(t, err)
}
