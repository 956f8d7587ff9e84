package model

import (
	"encoding/json"
	"strings"
)

// PatchOp is one RFC-6902 instruction against the shared document. Value
// is kept raw so an explicit null survives the round trip from client to
// broadcast unchanged.
type PatchOp struct {
	Op    string          `json:"op" validate:"required,oneof=add remove replace move copy test"`
	Path  string          `json:"path" validate:"required,startswith=/"`
	Value json.RawMessage `json:"value,omitempty"`
	From  string          `json:"from,omitempty"`
}

// NewOp builds a patch op with a marshalled value. Values originate from
// the server's own types, so marshalling cannot fail.
func NewOp(op, path string, value interface{}) PatchOp {
	raw, _ := json.Marshal(value)
	return PatchOp{Op: op, Path: path, Value: raw}
}

// ReplaceOp is shorthand for the ops recomputation emits.
func ReplaceOp(path string, value interface{}) PatchOp {
	return NewOp("replace", path, value)
}

// AddOp is shorthand for panel-creation and flag-introduction ops.
func AddOp(path string, value interface{}) PatchOp {
	return NewOp("add", path, value)
}

// ValueAs decodes the op value into out, reporting whether a value was set.
func (o PatchOp) ValueAs(out interface{}) bool {
	if len(o.Value) == 0 {
		return false
	}
	return json.Unmarshal(o.Value, out) == nil
}

// EscapePointer encodes one reference token per RFC 6901 so panel ids may
// contain "/" or "~" without corrupting the path.
func EscapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// UnescapePointer reverses EscapePointer.
func UnescapePointer(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// TouchesPrefix reports whether any op path starts with the given prefix.
// Region detection for derived-state recomputation relies on this.
func TouchesPrefix(ops []PatchOp, prefix string) bool {
	for _, o := range ops {
		if strings.HasPrefix(o.Path, prefix) {
			return true
		}
	}
	return false
}

// TouchedPanelIDs collects the panel ids whose controls sub-tree any op
// targets (/panel_configs/<id>/controls/...). Order follows first
// appearance so recomputation stays deterministic.
func TouchedPanelIDs(ops []PatchOp) []string {
	seen := map[string]bool{}
	var ids []string
	for _, o := range ops {
		if !strings.HasPrefix(o.Path, "/panel_configs/") {
			continue
		}
		rest := strings.TrimPrefix(o.Path, "/panel_configs/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[1], "controls/") {
			continue
		}
		id := UnescapePointer(parts[0])
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
