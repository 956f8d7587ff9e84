package events

import (
	"encoding/json"
	"time"
)

// Stream event names shared by the websocket sessions and the NATS
// relay. Clients switch on these values.
const (
	TypeRunStarted    = "RUN_STARTED"
	TypeStateSnapshot = "STATE_SNAPSHOT"
	TypeStateDelta    = "STATE_DELTA"
	TypeHeartbeat     = "HEARTBEAT"
	TypeToolResult    = "TOOL_RESULT"
)

// Envelope is one framed stream event.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Encode marshals the envelope to its wire form.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// RunStarted marks the beginning of a streaming session.
func RunStarted() Envelope {
	return Envelope{Event: TypeRunStarted, Data: map[string]interface{}{"ts": nowSeconds()}}
}

// Heartbeat keeps idle sessions alive.
func Heartbeat() Envelope {
	return Envelope{Event: TypeHeartbeat, Data: map[string]interface{}{"ts": nowSeconds()}}
}

// Snapshot carries the full committed document.
func Snapshot(state json.RawMessage) Envelope {
	return Envelope{Event: TypeStateSnapshot, Data: map[string]interface{}{"state": state, "ts": nowSeconds()}}
}

// Delta carries the patch operations of one commit.
func Delta(ops interface{}) Envelope {
	return Envelope{Event: TypeStateDelta, Data: map[string]interface{}{"ops": ops}}
}

// ToolResult reports the outcome of a server-side action, such as a
// generated export file.
func ToolResult(payload interface{}) Envelope {
	return Envelope{Event: TypeToolResult, Data: payload}
}
