package evaluator

// Rule sets arrive as decoded JSON, so evaluators read them through
// tolerant accessors: a missing or mistyped field reads as the zero
// shape, never a panic. A panicking evaluator aborts the whole commit.

func getObj(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func getArr(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}

func getStr(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getNum(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func getBool(m map[string]interface{}, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	if v, ok := m[key].(bool); ok {
		return v, true
	}
	return false, false
}

func asStrings(arr []interface{}) []string {
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// appendUnique keeps first-appearance order, which the derived-step and
// approver-chain contracts rely on.
func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range dst {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, item)
		}
	}
	return dst
}

func compareAmount(amount, value float64, op string) bool {
	switch op {
	case "<":
		return amount < value
	case "<=":
		return amount <= value
	case ">":
		return amount > value
	case ">=":
		return amount >= value
	case "==":
		return amount == value
	}
	return false
}
