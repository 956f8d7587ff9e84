package service

import (
	"testing"

	"agui-policy-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatFixture(t *testing.T) (*fixture, *ChatService) {
	fx := newFixture(t)
	chat := NewChatService(fx.state, fx.policies, fx.facts, nopLogger{})
	return fx, chat
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"", "unknown"},
		{"Spending checker please", "spending"},
		{"what's our procurement threshold?", "spending"},
		{"Roles & SoD", "roles_sod"},
		{"who has cheque signing authority", "roles_sod"},
		{"approval chain for 50k", "approval_chain"},
		{"show approval workflow", "approval_chain"},
		{"approval rules", "unknown"},
		{"control calendar", "controls"},
		{"travel advance checklist", "controls"},
		{"bank reconciliation status", "controls"},
		{"sole source waiver", "exceptions"},
		{"emergency purchase exception", "exceptions"},
		{"hello there", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIntent(tt.prompt))
		})
	}
}

func TestChatOpen(t *testing.T) {
	_, chat := newChatFixture(t)

	res := chat.Open()
	assert.Len(t, res.SessionID, 12)
	assert.Equal(t, "Demo Policy", res.DocID)
	assert.NotEmpty(t, res.Greeting)
}

func TestChatAskCreatesSpendingPanel(t *testing.T) {
	fx, chat := newChatFixture(t)
	stream := subscribe(t, fx.publisher)

	require.NoError(t, chat.Ask("spending checker"))

	doc := decodeState(t, fx.state.Raw())
	panels := doc["panels"].([]interface{})
	require.Len(t, panels, 1)
	assert.Equal(t, "Panel:spending:Demo Policy", panels[0])

	cfg := doc["panel_configs"].(map[string]interface{})["Panel:spending:Demo Policy"].(map[string]interface{})
	assert.Equal(t, "form_spending", cfg["type"])

	// rules were synthesized from the seeded policy and recorded
	recorded := fx.facts.Load("Demo Policy")
	assert.Contains(t, recorded, "spending_rules")

	envs := drain(t, stream, 2)
	assert.Equal(t, events.TypeStateDelta, envs[0].Event)
	require.Equal(t, events.TypeToolResult, envs[1].Event)
	payload := envs[1].Data.(map[string]interface{})
	assert.Equal(t, "chat_message", payload["name"])
}

func TestChatAskUnknownIntentSendsMenu(t *testing.T) {
	fx, chat := newChatFixture(t)
	stream := subscribe(t, fx.publisher)

	require.NoError(t, chat.Ask("tell me a joke"))

	doc := decodeState(t, fx.state.Raw())
	assert.Empty(t, doc["panels"])

	envs := drain(t, stream, 1)
	require.Equal(t, events.TypeToolResult, envs[0].Event)
	payload := envs[0].Data.(map[string]interface{})
	assert.Contains(t, payload["message"], "Spending Checker")
}

func TestChatAskReusesRecordedRules(t *testing.T) {
	fx, chat := newChatFixture(t)

	custom := map[string]interface{}{"tiers": []interface{}{}, "marker": "recorded"}
	require.NoError(t, fx.facts.Upsert("Demo Policy", "spending_rules", custom))

	require.NoError(t, chat.Ask("spending checker"))

	doc := decodeState(t, fx.state.Raw())
	cfg := doc["panel_configs"].(map[string]interface{})["Panel:spending:Demo Policy"].(map[string]interface{})
	data := cfg["data"].(map[string]interface{})
	rules := data["rules"].(map[string]interface{})
	assert.Equal(t, "recorded", rules["marker"])
}

func TestChatPanelFactoriesPassSchema(t *testing.T) {
	fx, chat := newChatFixture(t)

	for _, prompt := range []string{
		"spending checker",
		"roles & sod",
		"approval chain",
		"control calendar",
		"exceptions tracker",
	} {
		require.NoError(t, chat.Ask(prompt), prompt)
	}

	doc := decodeState(t, fx.state.Raw())
	assert.Len(t, doc["panels"], 5)
	assert.Len(t, doc["panel_configs"], 5)
}
