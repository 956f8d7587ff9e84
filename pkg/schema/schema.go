// Package schema enforces the structural contract of the shared document.
//
// The top-level document and its nested spend, delegation, violation and
// citation records are closed: unknown keys are rejected. The meta block,
// the panel_configs map and each panel's controls/data sub-trees are open,
// since panel shapes vary by type. An orphan panel_configs entry (no
// matching id in panels) is tolerated, and ids in panels are not required
// to have a config; the add-panel patch pair stays order-insensitive.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"agui-policy-be/internal/model"

	"github.com/go-playground/validator/v10"
)

// FieldError is one violated field with its reason. Validation reports
// every violation, not just the first.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates all field errors from one candidate document.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var topLevelKeys = map[string]bool{
	"meta": true, "panels": true, "panel_configs": true, "spend": true,
	"delegation": true, "violations": true, "citations": true,
}

var requiredTopLevel = []string{"meta", "panels", "spend", "delegation", "violations", "citations"}

var spendKeys = map[string]bool{
	"amount": true, "category": true, "flags": true,
	"requester": true, "approver": true, "required_steps": true,
}

var delegationKeys = map[string]bool{
	"people": true, "roles": true, "assignments": true, "acting": true,
}

var actingKeys = map[string]bool{"person": true, "role": true, "from": true, "to": true}

var violationKeys = map[string]bool{"code": true, "message": true, "path": true}

var citationKeys = map[string]bool{"key": true, "href": true, "snippet": true}

var structValidate = validator.New(validator.WithRequiredStructEnabled())

type checker struct {
	errs []FieldError
}

func (c *checker) addf(field, format string, args ...interface{}) {
	c.errs = append(c.errs, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (c *checker) unknownKeys(field string, obj map[string]interface{}, allowed map[string]bool) {
	var extras []string
	for k := range obj {
		if !allowed[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		c.addf(field+"/"+k, "unknown field")
	}
}

func (c *checker) object(field string, v interface{}) (map[string]interface{}, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		c.addf(field, "expected object, got %s", typeName(v))
	}
	return obj, ok
}

func (c *checker) stringArray(field string, v interface{}) {
	arr, ok := v.([]interface{})
	if !ok {
		c.addf(field, "expected array of strings, got %s", typeName(v))
		return
	}
	for i, item := range arr {
		if _, ok := item.(string); !ok {
			c.addf(fmt.Sprintf("%s/%d", field, i), "expected string, got %s", typeName(item))
		}
	}
}

func (c *checker) optString(field string, v interface{}) {
	if v == nil {
		return
	}
	if _, ok := v.(string); !ok {
		c.addf(field, "expected string or null, got %s", typeName(v))
	}
}

func (c *checker) optNumber(field string, v interface{}) {
	if v == nil {
		return
	}
	if _, ok := v.(float64); !ok {
		c.addf(field, "expected number or null, got %s", typeName(v))
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Validate checks candidate document bytes against the schema and, when
// structurally sound, returns the decoded typed document. All violated
// fields are reported together.
func Validate(candidate []byte) (*model.AppState, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(candidate, &root); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "/", Reason: "document is not a JSON object"}}}
	}

	c := &checker{}
	c.unknownKeys("", root, topLevelKeys)
	for _, k := range requiredTopLevel {
		if _, ok := root[k]; !ok {
			c.addf("/"+k, "required field missing")
		}
	}

	if v, ok := root["meta"]; ok {
		if meta, ok := c.object("/meta", v); ok {
			if name, ok := meta["docName"]; !ok {
				c.addf("/meta/docName", "required field missing")
			} else if _, ok := name.(string); !ok {
				c.addf("/meta/docName", "expected string, got %s", typeName(name))
			}
			if ts, ok := meta["server_timestamp"]; ok {
				c.optNumber("/meta/server_timestamp", ts)
			}
		}
	}

	if v, ok := root["panels"]; ok {
		c.stringArray("/panels", v)
	}

	if v, ok := root["panel_configs"]; ok {
		if configs, ok := c.object("/panel_configs", v); ok {
			for id, cfg := range configs {
				if _, ok := cfg.(map[string]interface{}); !ok {
					c.addf("/panel_configs/"+model.EscapePointer(id), "expected object, got %s", typeName(cfg))
				}
			}
		}
	}

	if v, ok := root["spend"]; ok {
		if spend, ok := c.object("/spend", v); ok {
			c.unknownKeys("/spend", spend, spendKeys)
			c.optNumber("/spend/amount", spend["amount"])
			c.optString("/spend/category", spend["category"])
			c.optString("/spend/requester", spend["requester"])
			c.optString("/spend/approver", spend["approver"])
			if f, ok := spend["flags"]; ok && f != nil {
				c.stringArray("/spend/flags", f)
			}
			if s, ok := spend["required_steps"]; ok && s != nil {
				c.stringArray("/spend/required_steps", s)
			}
		}
	}

	if v, ok := root["delegation"]; ok {
		if del, ok := c.object("/delegation", v); ok {
			c.unknownKeys("/delegation", del, delegationKeys)
			if p, ok := del["people"]; ok && p != nil {
				c.stringArray("/delegation/people", p)
			}
			if r, ok := del["roles"]; ok && r != nil {
				c.stringArray("/delegation/roles", r)
			}
			if a, ok := del["assignments"]; ok && a != nil {
				if assigns, ok := c.object("/delegation/assignments", a); ok {
					for role, person := range assigns {
						c.optString("/delegation/assignments/"+model.EscapePointer(role), person)
					}
				}
			}
			if a, ok := del["acting"]; ok && a != nil {
				c.actingArray("/delegation/acting", a)
			}
		}
	}

	if v, ok := root["violations"]; ok {
		c.recordArray("/violations", v, violationKeys, []string{"code", "message"})
	}
	if v, ok := root["citations"]; ok {
		c.recordArray("/citations", v, citationKeys, []string{"key"})
	}

	if len(c.errs) > 0 {
		return nil, &ValidationError{Fields: c.errs}
	}

	var state model.AppState
	if err := json.Unmarshal(candidate, &state); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "/", Reason: err.Error()}}}
	}
	state.Normalize()

	if err := structValidate.Struct(&state); err != nil {
		var fields []FieldError
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, FieldError{
					Field:  fe.Namespace(),
					Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
				})
			}
		} else {
			fields = append(fields, FieldError{Field: "/", Reason: err.Error()})
		}
		return nil, &ValidationError{Fields: fields}
	}

	return &state, nil
}

func (c *checker) actingArray(field string, v interface{}) {
	arr, ok := v.([]interface{})
	if !ok {
		c.addf(field, "expected array, got %s", typeName(v))
		return
	}
	for i, item := range arr {
		elem := fmt.Sprintf("%s/%d", field, i)
		obj, ok := c.object(elem, item)
		if !ok {
			continue
		}
		c.unknownKeys(elem, obj, actingKeys)
		for _, k := range []string{"person", "role", "from", "to"} {
			if raw, ok := obj[k]; ok {
				c.optString(elem+"/"+k, raw)
			}
		}
	}
}

func (c *checker) recordArray(field string, v interface{}, allowed map[string]bool, required []string) {
	arr, ok := v.([]interface{})
	if !ok {
		c.addf(field, "expected array, got %s", typeName(v))
		return
	}
	for i, item := range arr {
		elem := fmt.Sprintf("%s/%d", field, i)
		obj, ok := c.object(elem, item)
		if !ok {
			continue
		}
		c.unknownKeys(elem, obj, allowed)
		for _, k := range required {
			if raw, ok := obj[k]; !ok {
				c.addf(elem+"/"+k, "required field missing")
			} else if _, ok := raw.(string); !ok {
				c.addf(elem+"/"+k, "expected string, got %s", typeName(raw))
			}
		}
		if p, ok := obj["path"]; ok {
			c.optString(elem+"/path", p)
		}
		if s, ok := obj["snippet"]; ok {
			c.optString(elem+"/snippet", s)
		}
		if h, ok := obj["href"]; ok {
			c.optString(elem+"/href", h)
		}
	}
}
