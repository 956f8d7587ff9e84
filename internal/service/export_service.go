package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"agui-policy-be/internal/model"
	"agui-policy-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// ExportService renders the current document to a CSV file served under
// /files and returns its URL path.
type ExportService struct {
	dir    string
	logger logger.ILogger
}

func NewExportService(dir string, log logger.ILogger) (*ExportService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &ExportService{dir: dir, logger: log}, nil
}

// Export writes a summary CSV of the legacy blocks and every dynamic
// panel. The file name carries a timestamp and a random suffix so
// repeated exports never collide.
func (s *ExportService) Export(state *model.AppState) (string, error) {
	name := fmt.Sprintf("export-%s-%s.csv",
		time.Now().UTC().Format("20060102-150405"),
		uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Section", "Key", "Value"}); err != nil {
		return "", err
	}

	s.writeLegacySpend(w, state.Spend)
	s.writeLegacyDelegation(w, state.Delegation)
	s.writePanels(w, state.PanelConfigs)

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write export csv: %w", err)
	}

	s.logger.Info("ExportService", "Export written", map[string]interface{}{"file": name})
	return "/files/" + name, nil
}

func cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

func joinSteps(steps []string) string {
	out := ""
	for i, s := range steps {
		if i > 0 {
			out += ";"
		}
		out += s
	}
	return out
}

func (s *ExportService) writeLegacySpend(w *csv.Writer, spend model.SpendState) {
	rows := [][2]interface{}{
		{"amount", deref(spend.Amount)},
		{"category", derefString(spend.Category)},
		{"requester", derefString(spend.Requester)},
		{"approver", derefString(spend.Approver)},
		{"required_steps", joinSteps(spend.RequiredSteps)},
	}
	populated := false
	for _, row := range rows {
		if v := cell(row[1]); v != "" {
			populated = true
			break
		}
	}
	if !populated {
		return
	}
	for _, row := range rows {
		_ = w.Write([]string{"Legacy Spend", row[0].(string), cell(row[1])})
	}
}

func deref(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func derefString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func (s *ExportService) writeLegacyDelegation(w *csv.Writer, delegation model.DelegationState) {
	roles := make([]string, 0, len(delegation.Assignments))
	for role := range delegation.Assignments {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		person := ""
		if p := delegation.Assignments[role]; p != nil {
			person = *p
		}
		_ = w.Write([]string{"Legacy Delegation", role, person})
	}
}

// genericPanel normalizes a panel config to plain JSON values so the
// export does not care whether data was just recomputed or round-tripped
// through a commit.
func genericPanel(cfg model.PanelConfig) map[string]interface{} {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func (s *ExportService) writePanels(w *csv.Writer, panels map[string]model.PanelConfig) {
	ids := make([]string, 0, len(panels))
	for id := range panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := genericPanel(panels[id])
		controls, _ := cfg["controls"].(map[string]interface{})
		data, _ := cfg["data"].(map[string]interface{})
		ptype, _ := cfg["type"].(string)

		switch ptype {
		case "form_spending":
			label := "Spending (panel)"
			_ = w.Write([]string{label, "amount", cell(controls["amount"])})
			_ = w.Write([]string{label, "category", cell(controls["category"])})
			_ = w.Write([]string{label, "required_steps", joinAny(data["required_steps"])})

		case "approval_chain":
			label := "Approval Chain"
			_ = w.Write([]string{label, "amount", cell(controls["amount"])})
			_ = w.Write([]string{label, "instrument", cell(controls["instrument"])})
			_ = w.Write([]string{label, "approver_chain", joinAny(data["chain"])})
			if rules, ok := data["rules"].(map[string]interface{}); ok {
				levels, _ := rules["levels"].([]interface{})
				triggers, _ := rules["triggers"].([]interface{})
				if len(levels) > 0 || len(triggers) > 0 {
					_ = w.Write([]string{label, "levels_found", strconv.Itoa(len(levels))})
					_ = w.Write([]string{label, "triggers_found", strconv.Itoa(len(triggers))})
				}
			}

		case "roles_sod":
			label := "Roles & SoD"
			if assigns, ok := controls["assignments"].(map[string]interface{}); ok {
				keys := make([]string, 0, len(assigns))
				for k := range assigns {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, role := range keys {
					_ = w.Write([]string{label, "assign:" + role, cell(assigns[role])})
				}
			}
			if viols, ok := data["violations"].([]interface{}); ok && len(viols) > 0 {
				_ = w.Write([]string{label, "violations_count", strconv.Itoa(len(viols))})
				for i, raw := range viols {
					if i >= 5 {
						break
					}
					if v, ok := raw.(map[string]interface{}); ok {
						_ = w.Write([]string{label, "violation", cell(v["message"])})
					}
				}
			}

		case "control_checklists":
			label := "Control Checklists"
			if status, ok := data["status"].(map[string]interface{}); ok {
				for _, group := range []string{"travel", "bank", "credit"} {
					items, _ := status[group].([]interface{})
					if len(items) == 0 {
						continue
					}
					_ = w.Write([]string{label, group + "_count", strconv.Itoa(len(items))})
					flat := ""
					for i, item := range items {
						if i > 0 {
							flat += "; "
						}
						flat += cell(item)
					}
					_ = w.Write([]string{label, group + "_items", flat})
				}
			}

		case "exceptions_tracker":
			label := "Exceptions & Waivers"
			entry, _ := controls["entry"].(map[string]interface{})
			_ = w.Write([]string{label, "keywords", cell(entry["keywords"])})
			_ = w.Write([]string{label, "amount", cell(entry["amount"])})
			_ = w.Write([]string{label, "currency", cell(entry["currency"])})
			if status, ok := data["status"].(map[string]interface{}); ok {
				for _, group := range []string{"approvals", "documentation", "reporting"} {
					rows, _ := status[group].([]interface{})
					if len(rows) == 0 {
						continue
					}
					tally := map[string]int{"PASS": 0, "FAIL": 0, "UNKNOWN": 0}
					items := ""
					for _, raw := range rows {
						row, _ := raw.(map[string]interface{})
						st, _ := row["status"].(string)
						if st == "" {
							st = "UNKNOWN"
						}
						tally[st]++
						if item, _ := row["item"].(string); item != "" {
							if items != "" {
								items += "; "
							}
							items += item
						}
					}
					_ = w.Write([]string{label, group + "_summary",
						fmt.Sprintf("PASS:%d | FAIL:%d | UNKNOWN:%d", tally["PASS"], tally["FAIL"], tally["UNKNOWN"])})
					if items != "" {
						_ = w.Write([]string{label, group + "_items", items})
					}
				}
			}

		default:
			if ptype != "" {
				_ = w.Write([]string{fmt.Sprintf("Panel (%s)", ptype), "id", id})
			}
		}
	}
}

func joinAny(v interface{}) string {
	items, ok := v.([]interface{})
	if !ok {
		return ""
	}
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ";"
		}
		out += cell(item)
	}
	return out
}
