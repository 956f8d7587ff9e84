// Package patch applies ordered RFC-6902 operation batches to the shared
// document. Application is all-or-nothing: the committed document bytes
// are never touched, and any failing operation rejects the whole batch.
package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	"agui-policy-be/internal/model"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Reasons a batch can be rejected for.
const (
	ReasonPathNotFound = "path-not-found"
	ReasonMalformed    = "malformed"
)

// Error describes why a batch was rejected. It is fatal to the request
// that carried the batch and to nothing else.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("patch rejected (%s): %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func classify(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "missing") || strings.Contains(msg, "nonexistent") {
		return ReasonPathNotFound
	}
	return ReasonMalformed
}

// Apply runs ops in order against a copy of doc and returns the candidate
// document bytes. doc is left untouched in every outcome.
func Apply(doc []byte, ops []model.PatchOp) ([]byte, error) {
	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, &Error{Reason: ReasonMalformed, Err: err}
	}
	p, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, &Error{Reason: ReasonMalformed, Err: err}
	}
	out, err := p.Apply(doc)
	if err != nil {
		return nil, &Error{Reason: classify(err), Err: err}
	}
	return out, nil
}
