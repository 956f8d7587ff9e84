package dto

import (
	"encoding/json"

	"agui-policy-be/internal/model"
)

type ApplyPatchRequest struct {
	Ops []model.PatchOp `json:"ops" validate:"required,min=1,dive"`
}

type ApplyPatchResponse struct {
	Ok      bool            `json:"ok"`
	Applied []model.PatchOp `json:"applied"`
}

type ResetRequest struct {
	Panels []string `json:"panels"`
}

type ResetResponse struct {
	Ok    bool            `json:"ok"`
	State json.RawMessage `json:"state"`
}

type DebugLastResponse struct {
	LastApplied []model.PatchOp        `json:"last_applied"`
	LastError   map[string]interface{} `json:"last_error"`
}
