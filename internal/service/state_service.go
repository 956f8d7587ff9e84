package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"agui-policy-be/internal/model"
	"agui-policy-be/internal/pkg/logger"
	"agui-policy-be/pkg/events"
	"agui-policy-be/pkg/evaluator"
	"agui-policy-be/pkg/facts"
	"agui-policy-be/pkg/patch"
	"agui-policy-be/pkg/policy"
	"agui-policy-be/pkg/schema"
)

// EvaluatorError means derived-state recomputation failed; the commit
// that triggered it is rejected wholesale.
type EvaluatorError struct {
	Panel string
	Err   error
}

func (e *EvaluatorError) Error() string {
	if e.Panel != "" {
		return fmt.Sprintf("evaluator failed for panel %s: %v", e.Panel, e.Err)
	}
	return fmt.Sprintf("evaluator failed: %v", e.Err)
}

func (e *EvaluatorError) Unwrap() error { return e.Err }

const defaultDocName = "Demo Policy"

// StateService owns the single shared document. Every mutation runs the
// full apply-validate-recompute-commit pipeline under one lock; the
// delta of each commit is published to the stream bus before the lock
// is released, so subscribers observe commits in commit order.
type StateService struct {
	mu    sync.Mutex
	state *model.AppState
	raw   []byte

	policies  *policy.Store
	facts     *facts.Store
	registry  *evaluator.Registry
	exporter  *ExportService
	publisher *PublisherService
	logger    logger.ILogger

	lastApplied []model.PatchOp
	lastError   map[string]interface{}
}

func NewStateService(
	policies *policy.Store,
	factsStore *facts.Store,
	registry *evaluator.Registry,
	exporter *ExportService,
	publisher *PublisherService,
	log logger.ILogger,
) *StateService {
	state := model.NewAppState(defaultDocName, nil)
	return &StateService{
		state:     state,
		raw:       state.MarshalBytes(),
		policies:  policies,
		facts:     factsStore,
		registry:  registry,
		exporter:  exporter,
		publisher: publisher,
		logger:    log,
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// stamp sets a strictly increasing server timestamp on the candidate
// and returns the replace op for it. Wall-clock regressions are clamped.
func (s *StateService) stamp(candidate *model.AppState) model.PatchOp {
	ts := nowSeconds()
	if prev, ok := s.state.Meta.ServerTimestamp(); ok && ts <= prev {
		ts = prev + 1e-6
	}
	candidate.Meta[model.MetaServerTimestamp] = ts
	return model.ReplaceOp("/meta/server_timestamp", ts)
}

// Raw returns the committed document bytes.
func (s *StateService) Raw() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	return out
}

// Snapshot builds the STATE_SNAPSHOT envelope for a new session.
func (s *StateService) Snapshot() (events.Envelope, error) {
	return events.Snapshot(s.Raw()), nil
}

// DocID resolves the document id used for facts lookups, falling back
// to the doc name and then to "default".
func docID(state *model.AppState) string {
	if id := state.Meta.DocID(); id != "" {
		return id
	}
	if name := state.Meta.DocName(); name != "" {
		return name
	}
	return "default"
}

// ApplyPatch runs one client patch through the pipeline and returns the
// full delta (client ops, derived ops, server timestamp) on success.
// On any error the committed document is untouched.
func (s *StateService) ApplyPatch(ops []model.PatchOp) ([]model.PatchOp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = nil

	patched, err := patch.Apply(s.raw, ops)
	if err != nil {
		s.lastError = map[string]interface{}{"type": "patch", "detail": err.Error()}
		return nil, err
	}

	validated, err := schema.Validate(patched)
	if err != nil {
		s.lastError = map[string]interface{}{"type": "validation", "detail": err.Error()}
		return nil, err
	}

	var extraOps []model.PatchOp

	// Spend derived steps + violations when /spend/* changes
	touchesSpend := model.TouchesPrefix(ops, "/spend/")
	var spendViolations []model.Violation
	if touchesSpend {
		derived := evaluator.DeriveRequirements(validated.Spend, s.policies.SpendPolicy())
		validated.Spend.RequiredSteps = derived.RequiredSteps
		extraOps = append(extraOps, model.ReplaceOp("/spend/required_steps", derived.RequiredSteps))
		spendViolations = derived.Violations
	}

	// Delegation violations when /delegation/* or /spend/* changes
	var delegationViolations []model.Violation
	if model.TouchesPrefix(ops, "/delegation/") || touchesSpend {
		delegationViolations = evaluator.ValidateDelegation(validated.Delegation, s.policies.DelegationRules())
	}

	allViolations := append(append([]model.Violation{}, spendViolations...), delegationViolations...)
	validated.Violations = allViolations
	extraOps = append(extraOps, model.ReplaceOp("/violations", allViolations))

	// Dynamic panel control listeners
	if model.TouchesPrefix(ops, "/panel_configs/") {
		id := docID(validated)
		rules := s.facts.Load(id)
		for _, panelID := range model.TouchedPanelIDs(ops) {
			cfg, ok := validated.PanelConfigs[panelID]
			if !ok {
				continue
			}
			ev := s.registry.Lookup(cfg.Type())
			if ev == nil {
				continue
			}
			panelRules, _ := rules[ev.FactsKey()].(map[string]interface{})
			field, value, err := s.evaluatePanel(ev, panelRules, cfg)
			if err != nil {
				evalErr := &EvaluatorError{Panel: panelID, Err: err}
				s.lastError = map[string]interface{}{"type": "evaluator", "panel": panelID, "detail": err.Error()}
				return nil, evalErr
			}
			cfg.SetData(field, value)
			extraOps = append(extraOps, model.ReplaceOp(
				"/panel_configs/"+model.EscapePointer(panelID)+"/data/"+field, value))
		}
	}

	// Export tool
	exportRequested := false
	for _, o := range ops {
		if o.Path != "/meta/exportRequested" || (o.Op != "add" && o.Op != "replace") {
			continue
		}
		var flag bool
		if o.ValueAs(&flag) && flag {
			exportRequested = true
			break
		}
	}

	var exportURL string
	if exportRequested {
		url, err := s.exporter.Export(validated)
		if err != nil {
			s.lastError = map[string]interface{}{"type": "export", "detail": err.Error()}
			return nil, fmt.Errorf("export failed: %w", err)
		}
		exportURL = url
		validated.Meta[model.MetaLastExportURL] = url
		validated.Meta[model.MetaExportRequested] = false

		flagOp := "replace"
		if _, ok := s.state.Meta[model.MetaExportRequested]; !ok {
			flagOp = "add"
		}
		urlOp := "add"
		if _, ok := s.state.Meta[model.MetaLastExportURL]; ok {
			urlOp = "replace"
		}
		extraOps = append(extraOps,
			model.NewOp(flagOp, "/meta/exportRequested", false),
			model.NewOp(urlOp, "/meta/last_export_url", url),
		)
	}

	serverOp := s.stamp(validated)
	s.commit(validated)

	delta := append(append(append([]model.PatchOp{}, ops...), extraOps...), serverOp)
	s.lastApplied = delta
	s.publish(events.Delta(delta))

	if exportRequested {
		s.publish(events.ToolResult(map[string]interface{}{"name": "export_csv", "url": exportURL}))
	}

	return delta, nil
}

// evaluatePanel runs one evaluator with panic isolation.
func (s *StateService) evaluatePanel(ev evaluator.PanelEvaluator, rules map[string]interface{}, cfg model.PanelConfig) (field string, value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	field, value = ev.Evaluate(rules, cfg)
	return field, value, nil
}

// ApplyServerPatches applies server-generated ops (chat panel factories,
// ingest auto panels) without the region listeners: apply, validate,
// stamp, commit, broadcast.
func (s *StateService) ApplyServerPatches(ops []model.PatchOp) ([]model.PatchOp, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	patched, err := patch.Apply(s.raw, ops)
	if err != nil {
		s.lastError = map[string]interface{}{"type": "server_patch", "detail": err.Error()}
		return nil, err
	}
	validated, err := schema.Validate(patched)
	if err != nil {
		s.lastError = map[string]interface{}{"type": "server_patch_validation", "detail": err.Error()}
		return nil, err
	}

	serverOp := s.stamp(validated)
	s.commit(validated)

	delta := append(append([]model.PatchOp{}, ops...), serverOp)
	s.lastApplied = delta
	s.publish(events.Delta(delta))
	return delta, nil
}

// SetDocument records the uploaded document's name, id and citations
// directly, broadcasting the matching delta. Ingestion bypasses the
// schema gate the same way resets do: the server constructs the state.
func (s *StateService) SetDocument(docName, id string, citations []model.Citation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nameOp := "add"
	if _, ok := s.state.Meta[model.MetaDocName]; ok {
		nameOp = "replace"
	}
	idOp := "add"
	if _, ok := s.state.Meta[model.MetaDocID]; ok {
		idOp = "replace"
	}

	s.state.Meta[model.MetaDocName] = docName
	s.state.Meta[model.MetaDocID] = id
	if citations == nil {
		citations = []model.Citation{}
	}
	s.state.Citations = citations
	s.raw = s.state.MarshalBytes()

	s.publish(events.Delta([]model.PatchOp{
		model.NewOp(nameOp, "/meta/docName", docName),
		model.ReplaceOp("/citations", citations),
		model.NewOp(idOp, "/meta/doc_id", id),
	}))
}

// Reset replaces the document with a fresh default one, optionally
// seeded with panel ids, and broadcasts a snapshot.
func (s *StateService) Reset(panels []string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = model.NewAppState(defaultDocName, panels)
	s.raw = s.state.MarshalBytes()
	s.lastApplied = nil
	s.lastError = nil

	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	s.publish(events.Snapshot(out))
	return out
}

// PublishToolResult pushes a TOOL_RESULT frame to all sessions.
func (s *StateService) PublishToolResult(payload map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(events.ToolResult(payload))
}

// DebugLast reports the delta of the last successful commit and the
// last pipeline error.
func (s *StateService) DebugLast() ([]model.PatchOp, map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastApplied, s.lastError
}

func (s *StateService) commit(validated *model.AppState) {
	s.state = validated
	s.raw = validated.MarshalBytes()
}

func (s *StateService) publish(env events.Envelope) {
	if err := s.publisher.Publish(env); err != nil {
		s.logger.Error("StateService", "Failed to publish stream event", map[string]interface{}{"event": env.Event, "error": err.Error()})
	}
}
