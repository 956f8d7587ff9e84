package schema

// Document returns the structural schema of the shared document for the
// introspection endpoint, so clients can validate or generate bindings
// without guessing the shape.
func Document() map[string]interface{} {
	stringOrNull := map[string]interface{}{"type": []string{"string", "null"}}
	stringArray := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}

	return map[string]interface{}{
		"title":                "AppState",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"meta", "panels", "spend", "delegation", "violations", "citations"},
		"properties": map[string]interface{}{
			"meta": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": true,
				"required":             []string{"docName"},
				"properties": map[string]interface{}{
					"docName":          map[string]interface{}{"type": "string"},
					"server_timestamp": map[string]interface{}{"type": []string{"number", "null"}},
				},
			},
			"panels": stringArray,
			"panel_configs": map[string]interface{}{
				"type": "object",
				"additionalProperties": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": true,
					"properties": map[string]interface{}{
						"type":     map[string]interface{}{"type": "string"},
						"title":    map[string]interface{}{"type": "string"},
						"controls": map[string]interface{}{"type": "object", "additionalProperties": true},
						"data":     map[string]interface{}{"type": "object", "additionalProperties": true},
					},
				},
			},
			"spend": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]interface{}{
					"amount": map[string]interface{}{"type": []string{"number", "null"}},
					"category": map[string]interface{}{
						"type": []string{"string", "null"},
						"enum": []string{"ops", "asset", "program"},
					},
					"flags":          stringArray,
					"requester":      stringOrNull,
					"approver":       stringOrNull,
					"required_steps": stringArray,
				},
			},
			"delegation": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]interface{}{
					"people": stringArray,
					"roles":  stringArray,
					"assignments": map[string]interface{}{
						"type":                 "object",
						"additionalProperties": stringOrNull,
					},
					"acting": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []string{"person", "role"},
							"properties": map[string]interface{}{
								"person": map[string]interface{}{"type": "string"},
								"role":   map[string]interface{}{"type": "string"},
								"from":   map[string]interface{}{"type": "string"},
								"to":     map[string]interface{}{"type": "string"},
							},
						},
					},
				},
			},
			"violations": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"code", "message"},
					"properties": map[string]interface{}{
						"code":    map[string]interface{}{"type": "string"},
						"message": map[string]interface{}{"type": "string"},
						"path":    stringOrNull,
					},
				},
			},
			"citations": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"key"},
					"properties": map[string]interface{}{
						"key":     map[string]interface{}{"type": "string"},
						"href":    stringOrNull,
						"snippet": stringOrNull,
					},
				},
			},
		},
	}
}
