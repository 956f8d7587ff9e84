package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agui-policy-be/internal/model"
	"agui-policy-be/internal/pkg/logger"
	"agui-policy-be/pkg/facts"
	"agui-policy-be/pkg/policy"
)

// IngestResult is the /ingest/upload payload.
type IngestResult struct {
	OK             bool        `json:"ok"`
	DocName        string      `json:"docName"`
	SpendThreshold interface{} `json:"spend_threshold"`
	Roles          interface{} `json:"roles"`
}

// IngestService takes an uploaded policy document, compiles it into the
// active policy snapshots, reseeds the per-document rule sets and
// auto-creates the calendar and exceptions panels.
type IngestService struct {
	state    *StateService
	chat     *ChatService
	policies *policy.Store
	facts    *facts.Store
	docsDir  string
	logger   logger.ILogger
}

func NewIngestService(state *StateService, chat *ChatService, policies *policy.Store, factsStore *facts.Store, docsDir string, log logger.ILogger) (*IngestService, error) {
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create docs dir: %w", err)
	}
	return &IngestService{
		state:    state,
		chat:     chat,
		policies: policies,
		facts:    factsStore,
		docsDir:  docsDir,
		logger:   log,
	}, nil
}

// Upload ingests one plain-text policy document. kind narrows which
// policies get recompiled: "auto" (both), "spend" or "delegation".
func (s *IngestService) Upload(filename string, content []byte, kind string) (IngestResult, error) {
	if filename == "" {
		filename = "uploaded"
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".txt" && ext != "" {
		return IngestResult{}, fmt.Errorf("only .txt supported for now")
	}
	if kind == "" {
		kind = "auto"
	}

	savePath := filepath.Join(s.docsDir, filepath.Base(filename))
	if err := os.WriteFile(savePath, content, 0o644); err != nil {
		return IngestResult{}, fmt.Errorf("save upload: %w", err)
	}
	text := string(content)

	var compiledSpend, compiledDelegation map[string]interface{}

	if kind == "auto" || kind == "spend" {
		compiledSpend = policy.CompileSpendPolicy(text)
		if err := s.policies.SetSpendPolicy(compiledSpend); err != nil {
			return IngestResult{}, err
		}
	}
	if kind == "auto" || kind == "delegation" {
		compiledDelegation = policy.CompileDelegationRules(text)
		if err := s.policies.SetDelegationRules(compiledDelegation); err != nil {
			return IngestResult{}, err
		}
	}

	citations := collectCitations(compiledSpend, compiledDelegation)
	docID := filepath.Base(filename)
	s.state.SetDocument(docID, docID, citations)

	// Reseed every rule set for the new document so panels bind to the
	// freshly compiled policies.
	spendSnapshot := s.policies.SpendPolicy()
	delegationSnapshot := s.policies.DelegationRules()
	for _, key := range FactsKeys {
		rules := SynthesizeRules(key, spendSnapshot, delegationSnapshot)
		if err := s.facts.Upsert(docID, key, rules); err != nil {
			return IngestResult{}, err
		}
	}

	s.autoPanels(docID)

	result := IngestResult{OK: true, DocName: docID}
	if compiledSpend != nil {
		if threshold, ok := spendThresholdOf(compiledSpend); ok {
			result.SpendThreshold = threshold
		}
	}
	if compiledDelegation != nil {
		if roles := asSlice(asMap(compiledDelegation["delegation"])["roles"]); roles != nil {
			result.Roles = roles
		}
	}
	return result, nil
}

// autoPanels creates the control calendar and exceptions panels right
// after an upload. Failures here never fail the upload itself.
func (s *IngestService) autoPanels(docID string) {
	var patches []model.PatchOp
	if p, err := s.chat.controlsPanel(docID); err == nil {
		patches = append(patches, p...)
	} else {
		s.logger.Warn("IngestService", "Controls auto-panel skipped", map[string]interface{}{"error": err.Error()})
	}
	if p, err := s.chat.exceptionsPanel(docID); err == nil {
		patches = append(patches, p...)
	} else {
		s.logger.Warn("IngestService", "Exceptions auto-panel skipped", map[string]interface{}{"error": err.Error()})
	}
	if len(patches) == 0 {
		return
	}
	if _, err := s.state.ApplyServerPatches(patches); err != nil {
		s.logger.Warn("IngestService", "Auto-panel apply failed", map[string]interface{}{"error": err.Error()})
	}
}

func spendThresholdOf(compiled map[string]interface{}) (float64, bool) {
	return spendThreshold(compiled)
}

func collectCitations(compiledSpend, compiledDelegation map[string]interface{}) []model.Citation {
	citations := []model.Citation{}
	appendRows := func(rows []interface{}, fallbackKey string) {
		for _, raw := range rows {
			row := asMap(raw)
			key, _ := row["key"].(string)
			if key == "" {
				key = fallbackKey
			}
			snippet, _ := row["snippet"].(string)
			citations = append(citations, model.Citation{Key: key, Snippet: snippet})
		}
	}
	if compiledSpend != nil {
		appendRows(policyEvidence(compiledSpend, "spend_policy"), "spend")
	}
	if compiledDelegation != nil {
		appendRows(policyEvidence(compiledDelegation, "delegation"), "delegation")
	}
	return citations
}
