package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapePointerRoundTrip(t *testing.T) {
	tests := []struct {
		token   string
		escaped string
	}{
		{"plain", "plain"},
		{"a/b", "a~1b"},
		{"a~b", "a~0b"},
		{"a~/b", "a~0~1b"},
		{"Panel:spending:Demo Policy", "Panel:spending:Demo Policy"},
	}
	for _, tt := range tests {
		got := EscapePointer(tt.token)
		assert.Equal(t, tt.escaped, got)
		assert.Equal(t, tt.token, UnescapePointer(got))
	}
}

func TestTouchesPrefix(t *testing.T) {
	ops := []PatchOp{
		ReplaceOp("/spend/amount", 100),
		AddOp("/delegation/assignments/Payment", "lee"),
	}
	assert.True(t, TouchesPrefix(ops, "/spend/"))
	assert.True(t, TouchesPrefix(ops, "/delegation/"))
	assert.False(t, TouchesPrefix(ops, "/panels"))
	assert.False(t, TouchesPrefix(nil, "/spend/"))
}

func TestTouchedPanelIDs(t *testing.T) {
	ops := []PatchOp{
		ReplaceOp("/panel_configs/p1/controls/amount", 500),
		ReplaceOp("/panel_configs/p2/controls/inputs/rfp", true),
		// Second touch of p1 must not duplicate it.
		ReplaceOp("/panel_configs/p1/controls/category", "it_equipment"),
		// Non-controls writes are not a recompute trigger.
		ReplaceOp("/panel_configs/p3/data", map[string]interface{}{}),
		AddOp("/panel_configs/p4", map[string]interface{}{}),
		ReplaceOp("/spend/amount", 100),
	}
	assert.Equal(t, []string{"p1", "p2"}, TouchedPanelIDs(ops))
}

func TestTouchedPanelIDsUnescapesTokens(t *testing.T) {
	ops := []PatchOp{
		ReplaceOp("/panel_configs/Panel:a~1b/controls/x", 1),
	}
	assert.Equal(t, []string{"Panel:a/b"}, TouchedPanelIDs(ops))
}

func TestValueAs(t *testing.T) {
	op := ReplaceOp("/spend/amount", 2500.0)
	var f float64
	assert.True(t, op.ValueAs(&f))
	assert.Equal(t, 2500.0, f)

	var missing float64
	assert.False(t, PatchOp{Op: "remove", Path: "/x"}.ValueAs(&missing))
}
