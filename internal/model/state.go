package model

import "encoding/json"

// Spend categories accepted by the schema.
const (
	CategoryOps     = "ops"
	CategoryAsset   = "asset"
	CategoryProgram = "program"
)

// Meta keys that the server itself reads or writes. The meta object is
// open: clients and ingestion may store additional keys freely.
const (
	MetaDocName         = "docName"
	MetaDocID           = "doc_id"
	MetaServerTimestamp = "server_timestamp"
	MetaExportRequested = "exportRequested"
	MetaLastExportURL   = "last_export_url"
)

// Meta is the open metadata block of the shared document.
type Meta map[string]interface{}

func (m Meta) DocName() string {
	if s, ok := m[MetaDocName].(string); ok {
		return s
	}
	return ""
}

func (m Meta) DocID() string {
	if s, ok := m[MetaDocID].(string); ok {
		return s
	}
	return ""
}

func (m Meta) ServerTimestamp() (float64, bool) {
	f, ok := m[MetaServerTimestamp].(float64)
	return f, ok
}

func (m Meta) ExportRequested() bool {
	b, ok := m[MetaExportRequested].(bool)
	return ok && b
}

// SpendState is the closed spend-request sub-document.
type SpendState struct {
	Amount        *float64 `json:"amount"`
	Category      *string  `json:"category" validate:"omitempty,oneof=ops asset program"`
	Flags         []string `json:"flags"`
	Requester     *string  `json:"requester"`
	Approver      *string  `json:"approver"`
	RequiredSteps []string `json:"required_steps"`
}

// ActingGrant is one temporary delegation of a role to a person.
type ActingGrant struct {
	Person string `json:"person"`
	Role   string `json:"role"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// DelegationState is the closed delegation sub-document.
type DelegationState struct {
	People      []string           `json:"people"`
	Roles       []string           `json:"roles"`
	Assignments map[string]*string `json:"assignments"`
	Acting      []ActingGrant      `json:"acting"`
}

// Violation is a structured finding produced by an evaluator. The server
// replaces the document's violation list wholesale on every recomputation.
type Violation struct {
	Code    string `json:"code" validate:"required"`
	Message string `json:"message" validate:"required"`
	Path    string `json:"path,omitempty"`
}

// Citation points at the policy text a rule or panel was derived from.
type Citation struct {
	Key     string  `json:"key" validate:"required"`
	Href    *string `json:"href,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
}

// PanelConfig is one widget instance. Its shape is open by design: panel
// types define their own controls and data trees. The server only ever
// reads the type tag and the controls tree, and only ever writes into data.
type PanelConfig map[string]interface{}

func (p PanelConfig) Type() string {
	if s, ok := p["type"].(string); ok {
		return s
	}
	return ""
}

func (p PanelConfig) Title() string {
	if s, ok := p["title"].(string); ok {
		return s
	}
	return ""
}

func (p PanelConfig) Controls() map[string]interface{} {
	if m, ok := p["controls"].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func (p PanelConfig) Data() map[string]interface{} {
	if m, ok := p["data"].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// SetData writes one server-owned field under the panel's data tree,
// creating the tree if the panel was added without one.
func (p PanelConfig) SetData(field string, value interface{}) {
	data, ok := p["data"].(map[string]interface{})
	if !ok {
		data = map[string]interface{}{}
		p["data"] = data
	}
	data[field] = value
}

// AppState is the single shared mutable document. Top level is closed:
// the schema rejects unknown keys here and in the nested spend,
// delegation, violation and citation records.
type AppState struct {
	Meta         Meta                   `json:"meta" validate:"required"`
	Panels       []string               `json:"panels"`
	PanelConfigs map[string]PanelConfig `json:"panel_configs"`
	Spend        SpendState             `json:"spend"`
	Delegation   DelegationState        `json:"delegation"`
	Violations   []Violation            `json:"violations" validate:"dive"`
	Citations    []Citation             `json:"citations" validate:"dive"`
}

// NewAppState returns a fresh default document, optionally seeded with a
// panel id list.
func NewAppState(docName string, panels []string) *AppState {
	s := &AppState{
		Meta:   Meta{MetaDocName: docName},
		Panels: append([]string{}, panels...),
	}
	s.Normalize()
	return s
}

// Normalize replaces nil collections with empty ones so the marshalled
// document always carries the full shape ([] and {}, never null). Patch
// paths like /panels/- rely on the arrays existing.
func (s *AppState) Normalize() {
	if s.Meta == nil {
		s.Meta = Meta{}
	}
	if s.Panels == nil {
		s.Panels = []string{}
	}
	if s.PanelConfigs == nil {
		s.PanelConfigs = map[string]PanelConfig{}
	}
	if s.Spend.Flags == nil {
		s.Spend.Flags = []string{}
	}
	if s.Spend.RequiredSteps == nil {
		s.Spend.RequiredSteps = []string{}
	}
	if s.Delegation.People == nil {
		s.Delegation.People = []string{}
	}
	if s.Delegation.Roles == nil {
		s.Delegation.Roles = []string{}
	}
	if s.Delegation.Assignments == nil {
		s.Delegation.Assignments = map[string]*string{}
	}
	if s.Delegation.Acting == nil {
		s.Delegation.Acting = []ActingGrant{}
	}
	if s.Violations == nil {
		s.Violations = []Violation{}
	}
	if s.Citations == nil {
		s.Citations = []Citation{}
	}
}

// MarshalBytes renders the document to its canonical JSON form.
func (s *AppState) MarshalBytes() []byte {
	raw, _ := json.Marshal(s)
	return raw
}
