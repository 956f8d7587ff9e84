package policy

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultThreshold is used when a policy text contains no money-like
// number to anchor the spend tiers on.
const DefaultThreshold = 20000.0

var moneyPattern = regexp.MustCompile(`(?:\$\s*(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)|(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?))\s*([kK])?`)

var (
	rfpNeedles  = []string{"rfp", "tender", "competitive bid", "bids", "procurement"}
	dualNeedles = []string{"dual signature", "two signatures", "two signatories", "dual signatories"}
)

// Evidence is a policy line that justified a compiled rule.
type Evidence struct {
	Key     string `json:"key"`
	Snippet string `json:"snippet"`
}

func parseAmount(match []string) (float64, bool) {
	raw := match[1]
	if raw == "" {
		raw = match[2]
	}
	raw = strings.ReplaceAll(raw, ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if match[3] != "" {
		value *= 1000
	}
	return value, true
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstLineWith(lines []string, needles []string) string {
	for _, line := range lines {
		low := strings.ToLower(line)
		for _, needle := range needles {
			if strings.Contains(low, needle) {
				return line
			}
		}
	}
	return ""
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// extractThreshold picks the largest money-like number in the text as
// the tier boundary and records the lines that mention it.
func extractThreshold(text string, evidence *[]Evidence) (float64, bool) {
	lines := nonEmptyLines(text)

	var threshold float64
	found := false
	for _, m := range moneyPattern.FindAllStringSubmatch(text, -1) {
		if value, ok := parseAmount(m); ok {
			found = true
			threshold = math.Max(threshold, value)
		}
	}
	if !found {
		return 0, false
	}

	if line := firstLineWith(lines, rfpNeedles); line != "" {
		*evidence = append(*evidence, Evidence{Key: "spend.rfp", Snippet: line})
	}
	if line := firstLineWith(lines, dualNeedles); line != "" {
		*evidence = append(*evidence, Evidence{Key: "spend.dual", Snippet: line})
	}

	whole := int64(threshold)
	options := []string{
		humanize(whole),
		strconv.FormatInt(whole, 10),
		"$" + humanize(whole),
		"$" + strconv.FormatInt(whole, 10),
	}
	for _, line := range lines {
		test := strings.ToLower(strings.ReplaceAll(line, " ", ""))
		matched := false
		for _, opt := range options {
			if strings.Contains(test, strings.ToLower(strings.ReplaceAll(opt, ",", ""))) {
				matched = true
				break
			}
		}
		if matched {
			*evidence = append(*evidence, Evidence{Key: "spend.threshold", Snippet: line})
			break
		}
	}
	return threshold, true
}

func humanize(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// CompileSpendPolicy derives a tiered spend policy from raw policy
// text. Two tiers split at the largest money amount found; dual
// signatures and RFP steps are added to the upper tier when the text
// mentions them.
func CompileSpendPolicy(text string) map[string]interface{} {
	var evidence []Evidence
	lower := strings.ToLower(text)

	wantsDual := containsAny(lower, dualNeedles)
	wantsRFP := containsAny(lower, rfpNeedles)

	threshold, ok := extractThreshold(text, &evidence)
	if !ok {
		threshold = DefaultThreshold
	}

	underSteps := []string{"CertifyInvoice", "ManagerApproval"}
	overSteps := []string{"CertifyInvoice", "ManagerApproval"}
	if wantsDual {
		overSteps = append(overSteps, "DualSignatures")
	}
	if wantsRFP {
		overSteps = append(overSteps, "RFP")
	}

	evidenceRows := make([]interface{}, 0, len(evidence))
	for _, ev := range evidence {
		evidenceRows = append(evidenceRows, map[string]interface{}{"key": ev.Key, "snippet": ev.Snippet})
	}

	return map[string]interface{}{
		"spend_policy": map[string]interface{}{
			"tiers": []interface{}{
				map[string]interface{}{
					"name":     fmt.Sprintf("Under%d", int64(threshold)),
					"range":    map[string]interface{}{"min": 0.0, "max": math.Round((threshold-0.01)*100) / 100},
					"requires": toAnySlice(underSteps),
				},
				map[string]interface{}{
					"name":     fmt.Sprintf("AtOrOver%d", int64(threshold)),
					"range":    map[string]interface{}{"min": threshold, "max": "inf"},
					"requires": toAnySlice(overSteps),
				},
			},
			"constraints": []interface{}{
				map[string]interface{}{
					"code":      "SeparationOfDuties",
					"message":   "Requester and Approver must be different for the same spend.",
					"appliesTo": []interface{}{"/spend/requester", "/spend/approver"},
				},
			},
			"evidence": evidenceRows,
		},
	}
}

func toAnySlice(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

// CompileDelegationRules derives delegation roles and separation
// constraints from raw policy text, falling back to the standard
// Spending/Payment/BankReconciliation setup when the text names none.
func CompileDelegationRules(text string) map[string]interface{} {
	lines := nonEmptyLines(text)
	var evidence []Evidence

	var roles []string
	addRole := func(name, hint string) {
		for _, r := range roles {
			if r == name {
				return
			}
		}
		roles = append(roles, name)
		if hint != "" {
			evidence = append(evidence, Evidence{Key: "delegation.role." + name, Snippet: hint})
		}
	}

	if line := firstLineWith(lines, []string{"spending authority", "spending approval", "purchase approval"}); line != "" {
		addRole("Spending", line)
	}
	if line := firstLineWith(lines, []string{"payment authority", "cheque signing", "check signing", "payment approval"}); line != "" {
		addRole("Payment", line)
	}
	if line := firstLineWith(lines, []string{"bank reconciliation", "bank recon", "reconciliation of bank"}); line != "" {
		addRole("BankReconciliation", line)
	}
	if len(roles) == 0 {
		roles = []string{"Spending", "Payment", "BankReconciliation"}
	}

	var constraints []interface{}
	if line := firstLineWith(lines, []string{"separation of duties", "separation-of-duties", "duties must be separate"}); line != "" {
		constraints = append(constraints, conflictPair("ConflictRolePair",
			"Spending and Payment must be held by different people.", "Spending", "Payment"))
		evidence = append(evidence, Evidence{Key: "delegation.constraint.ConflictRolePair", Snippet: line})
	}
	if line := firstLineWith(lines, []string{"bank reconciliation independent", "reconciliation independent", "independent of payment", "reconciliation must be independent"}); line != "" {
		constraints = append(constraints, conflictPair("ReconIndependence",
			"Bank Reconciliation must be prepared by someone different from Payment.", "BankReconciliation", "Payment"))
		evidence = append(evidence, Evidence{Key: "delegation.constraint.ReconIndependence", Snippet: line})
	}
	if len(constraints) == 0 {
		constraints = []interface{}{
			conflictPair("ConflictRolePair",
				"Spending and Payment must be held by different people.", "Spending", "Payment"),
			conflictPair("ReconIndependence",
				"Bank Reconciliation must be prepared by someone different from Payment.", "BankReconciliation", "Payment"),
		}
	}

	evidenceRows := make([]interface{}, 0, len(evidence))
	for _, ev := range evidence {
		evidenceRows = append(evidenceRows, map[string]interface{}{"key": ev.Key, "snippet": ev.Snippet})
	}

	return map[string]interface{}{
		"delegation": map[string]interface{}{
			"roles":        toAnySlice(roles),
			"constraints":  constraints,
			"acting_rules": map[string]interface{}{"require_dates": true},
			"evidence":     evidenceRows,
		},
	}
}

func conflictPair(code, message, a, b string) map[string]interface{} {
	return map[string]interface{}{
		"code":    code,
		"message": message,
		"pair":    []interface{}{a, b},
	}
}
