package service

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agui-policy-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportWritesCSV(t *testing.T) {
	dir := t.TempDir()
	exporter, err := NewExportService(dir, nopLogger{})
	require.NoError(t, err)

	amount := 25000.0
	requester := "dana"
	treasurer := "lee"

	state := model.NewAppState("Demo Policy", []string{"Panel:spending:demo"})
	state.Spend.Amount = &amount
	state.Spend.Requester = &requester
	state.Spend.RequiredSteps = []string{"CertifyInvoice", "RFP"}
	state.Delegation.Assignments = map[string]*string{"Payment": &treasurer}
	state.PanelConfigs = map[string]model.PanelConfig{
		"Panel:spending:demo": {
			"type":     "form_spending",
			"title":    "Spending Checker",
			"controls": map[string]interface{}{"amount": float64(5000)},
			"data":     map[string]interface{}{"required_steps": []interface{}{"ManagerApproval"}},
		},
	}

	url, err := exporter.Export(state)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/files/export-"))

	f, err := os.Open(filepath.Join(dir, strings.TrimPrefix(url, "/files/")))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Section", "Key", "Value"}, rows[0])

	sections := map[string]bool{}
	var spendAmount, paymentHolder string
	for _, row := range rows[1:] {
		sections[row[0]] = true
		if row[0] == "Legacy Spend" && row[1] == "amount" {
			spendAmount = row[2]
		}
		if row[0] == "Legacy Delegation" && row[1] == "Payment" {
			paymentHolder = row[2]
		}
	}
	assert.True(t, sections["Legacy Spend"])
	assert.True(t, sections["Legacy Delegation"])
	assert.Equal(t, "25000", spendAmount)
	assert.Equal(t, "lee", paymentHolder)
}

func TestExportSkipsEmptyLegacySpend(t *testing.T) {
	exporter, err := NewExportService(t.TempDir(), nopLogger{})
	require.NoError(t, err)

	url, err := exporter.Export(model.NewAppState("Demo Policy", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestExportURLsNeverCollide(t *testing.T) {
	exporter, err := NewExportService(t.TempDir(), nopLogger{})
	require.NoError(t, err)

	state := model.NewAppState("Demo Policy", nil)
	first, err := exporter.Export(state)
	require.NoError(t, err)
	second, err := exporter.Export(state)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
