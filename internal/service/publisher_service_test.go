package service

import (
	"testing"

	"agui-policy-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Subscribers must observe events strictly in publish order; the
// snapshot-then-delta contract of a streaming session depends on it.
func TestPublishOrderIsPreserved(t *testing.T) {
	publisher := NewPublisherService()
	t.Cleanup(func() { _ = publisher.Close() })
	stream := subscribe(t, publisher)

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, publisher.Publish(events.Delta([]interface{}{i})))
	}

	got := drain(t, stream, n)
	for i, env := range got {
		assert.Equal(t, events.TypeStateDelta, env.Event)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		ops, ok := data["ops"].([]interface{})
		require.True(t, ok)
		require.Len(t, ops, 1)
		assert.EqualValues(t, i, ops[0])
	}
}
