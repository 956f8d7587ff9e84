package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agui-policy-be/internal/model"
	"agui-policy-be/internal/pkg/logger"
	"agui-policy-be/pkg/facts"
	"agui-policy-be/pkg/policy"

	"github.com/google/uuid"
)

// ErrNoDocument is returned when a prompt arrives before any policy
// document has been ingested.
var ErrNoDocument = errors.New("no document uploaded yet")

// ChatService turns chat prompts into panel-creation patches. Intents
// are keyword matched; each intent builds one panel wired to the rule
// set recorded for the current document in the facts store.
type ChatService struct {
	state    *StateService
	policies *policy.Store
	facts    *facts.Store
	logger   logger.ILogger
}

func NewChatService(state *StateService, policies *policy.Store, factsStore *facts.Store, log logger.ILogger) *ChatService {
	return &ChatService{state: state, policies: policies, facts: factsStore, logger: log}
}

// OpenResult is the /chat/open payload.
type OpenResult struct {
	SessionID string `json:"session_id"`
	DocID     string `json:"doc_id,omitempty"`
	Greeting  string `json:"greeting"`
}

func (s *ChatService) Open() OpenResult {
	return OpenResult{
		SessionID: strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		DocID:     s.currentDocID(),
		Greeting: "Hi! I'm your Policy Assistant. Ask me for a Spending Checker, " +
			"Roles & SoD, Approval Chain, Control Calendar, or Exceptions Tracker.",
	}
}

func (s *ChatService) currentDocID() string {
	var snapshot struct {
		Meta model.Meta `json:"meta"`
	}
	if err := json.Unmarshal(s.state.Raw(), &snapshot); err != nil {
		return ""
	}
	if id := snapshot.Meta.DocID(); id != "" {
		return id
	}
	return snapshot.Meta.DocName()
}

// DetectIntent classifies a prompt by keywords. Order matters: the
// first matching bucket wins.
func DetectIntent(prompt string) string {
	q := strings.ToLower(strings.TrimSpace(prompt))
	if q == "" {
		return "unknown"
	}
	contains := func(keys ...string) bool {
		for _, k := range keys {
			if strings.Contains(q, k) {
				return true
			}
		}
		return false
	}
	switch {
	case contains("spend", "procure", "rfp", "threshold", "checker"):
		return "spending"
	case contains("roles", "sod", "separation", "delegation", "cheque", "check signing"):
		return "roles_sod"
	case strings.Contains(q, "approval") && contains("chain", "workflow", "matrix"):
		return "approval_chain"
	case contains("control", "calendar", "checklist", "travel", "reconcil", "credit card", "bank"):
		return "controls"
	case contains("exception", "waiver", "sole source", "emergency", "deviation"):
		return "exceptions"
	}
	return "unknown"
}

const capabilityMenu = "I can create panels for:\n" +
	"• Spending Checker\n" +
	"• Roles & SoD\n" +
	"• Approval Chain\n" +
	"• Control Calendar & Checklists\n" +
	"• Exceptions & Waiver Tracker\n\n" +
	"Try: \"Spending checker\", \"Roles & SoD\", \"Approval chain\", " +
	"\"Control calendar\", or \"Exceptions tracker\"."

// Ask handles one prompt: build the panel patches for the detected
// intent, commit them, and emit the assistant message as a TOOL_RESULT.
func (s *ChatService) Ask(prompt string) error {
	id := s.currentDocID()
	if id == "" {
		return ErrNoDocument
	}

	var (
		patches []model.PatchOp
		message string
		err     error
	)

	switch DetectIntent(prompt) {
	case "spending":
		patches, err = s.spendingPanel(id)
		message = "I've created the Spending Checker panel. Enter an amount to see the required steps, with citations."
	case "roles_sod":
		patches, err = s.rolesPanel(id)
		message = "I've created a Roles & SoD panel. Assign people to the roles to see conflicts."
	case "approval_chain":
		patches, err = s.approvalPanel(id)
		message = "I've created an Approval Chain panel. Enter an amount and optionally an instrument (e.g., cheque) to see who must approve."
	case "controls":
		patches, err = s.controlsPanel(id)
		message = "I've created a Control Calendar & Checklists panel. Enter dates and toggles to see compliance pass/fail."
	case "exceptions":
		patches, err = s.exceptionsPanel(id)
		message = "I've created an Exceptions & Waiver Tracker panel. Describe the waiver and tick what you've obtained."
	default:
		message = capabilityMenu
	}
	if err != nil {
		return err
	}

	if len(patches) > 0 {
		if _, err := s.state.ApplyServerPatches(patches); err != nil {
			return fmt.Errorf("state update failed: %w", err)
		}
	}
	if message != "" {
		s.state.PublishToolResult(map[string]interface{}{"name": "chat_message", "message": message})
	}
	return nil
}

// panelPatches builds the canonical add pair for a new panel.
func panelPatches(panelID string, cfg map[string]interface{}) []model.PatchOp {
	return []model.PatchOp{
		model.AddOp("/panels/-", panelID),
		model.AddOp("/panel_configs/"+model.EscapePointer(panelID), cfg),
	}
}

// rulesFor returns the recorded rule set for a document, synthesizing
// and recording one from the active policy snapshots on first use.
func (s *ChatService) rulesFor(docID, key string) (map[string]interface{}, error) {
	if rules, ok := s.facts.Load(docID)[key].(map[string]interface{}); ok {
		return rules, nil
	}
	rules := SynthesizeRules(key, s.policies.SpendPolicy(), s.policies.DelegationRules())
	if err := s.facts.Upsert(docID, key, rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *ChatService) spendingPanel(docID string) ([]model.PatchOp, error) {
	rules, err := s.rulesFor(docID, "spending_rules")
	if err != nil {
		return nil, err
	}
	panelID := "Panel:spending:" + docID
	return panelPatches(panelID, map[string]interface{}{
		"type":     "form_spending",
		"title":    "Spending Checker",
		"controls": map[string]interface{}{"amount": nil, "category": nil},
		"data": map[string]interface{}{
			"rules":          rules,
			"required_steps": []interface{}{},
			"citations":      citationsFrom(rules, "spend.rule"),
		},
	}), nil
}

func (s *ChatService) rolesPanel(docID string) ([]model.PatchOp, error) {
	rules, err := s.rulesFor(docID, "delegation_rules")
	if err != nil {
		return nil, err
	}
	assignments := map[string]interface{}{}
	if roles, ok := rules["roles"].([]interface{}); ok {
		for _, r := range roles {
			if name, ok := r.(string); ok {
				assignments[name] = nil
			}
		}
	}
	panelID := "Panel:roles_sod:" + docID
	return panelPatches(panelID, map[string]interface{}{
		"type":     "roles_sod",
		"title":    "Roles & Separation of Duties",
		"controls": map[string]interface{}{"assignments": assignments},
		"data": map[string]interface{}{
			"extracted":  rules,
			"violations": []interface{}{},
			"citations":  citationsFrom(rules, "roles.evidence"),
		},
	}), nil
}

func (s *ChatService) approvalPanel(docID string) ([]model.PatchOp, error) {
	rules, err := s.rulesFor(docID, "approval_chain_rules")
	if err != nil {
		return nil, err
	}
	panelID := "Panel:approval_chain:" + docID
	return panelPatches(panelID, map[string]interface{}{
		"type":     "approval_chain",
		"title":    "Approval Chain",
		"controls": map[string]interface{}{"amount": nil, "instrument": nil},
		"data": map[string]interface{}{
			"rules":     rules,
			"chain":     []interface{}{},
			"citations": citationsFrom(rules, "approval.evidence"),
		},
	}), nil
}

func (s *ChatService) controlsPanel(docID string) ([]model.PatchOp, error) {
	rules, err := s.rulesFor(docID, "control_rules")
	if err != nil {
		return nil, err
	}
	panelID := "Panel:control_checklists:" + docID
	return panelPatches(panelID, map[string]interface{}{
		"type":  "control_checklists",
		"title": "Control Calendar & Checklists",
		"controls": map[string]interface{}{
			"travel": map[string]interface{}{
				"advance_issued_date":  nil,
				"trip_start_date":      nil,
				"trip_end_date":        nil,
				"claim_submitted_date": nil,
				"excess_returned_date": nil,
				"has_other_advance":    nil,
			},
			"bank": map[string]interface{}{
				"statement_date":        nil,
				"recon_completed_date":  nil,
				"is_preparer_signer":    nil,
				"is_preparer_depositor": nil,
			},
			"credit": map[string]interface{}{
				"cc_statement_date":               nil,
				"cc_recon_completed_date":         nil,
				"preparer_has_spending_authority": nil,
			},
		},
		"data": map[string]interface{}{
			"rules":     rules,
			"status":    map[string]interface{}{"travel": []interface{}{}, "bank": []interface{}{}, "credit": []interface{}{}},
			"citations": citationsFrom(rules, "controls.evidence"),
		},
	}), nil
}

func (s *ChatService) exceptionsPanel(docID string) ([]model.PatchOp, error) {
	rules, err := s.rulesFor(docID, "exception_rules")
	if err != nil {
		return nil, err
	}
	panelID := "Panel:exceptions:" + docID
	return panelPatches(panelID, map[string]interface{}{
		"type":  "exceptions_tracker",
		"title": "Exceptions & Waiver Tracker",
		"controls": map[string]interface{}{
			"entry": map[string]interface{}{
				"keywords":      "",
				"amount":        nil,
				"currency":      "",
				"approvals":     map[string]interface{}{},
				"documentation": map[string]interface{}{},
				"reporting":     map[string]interface{}{},
			},
		},
		"data": map[string]interface{}{
			"extracted":   rules,
			"suggestions": exceptionSuggestions(rules),
			"status":      map[string]interface{}{"approvals": []interface{}{}, "documentation": []interface{}{}, "reporting": []interface{}{}},
			"citations":   citationsFrom(rules, "exceptions.evidence"),
		},
	}), nil
}
