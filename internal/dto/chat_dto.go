package dto

// ChatAskRequest tolerates the aliases older frontends send for the
// prompt field.
type ChatAskRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	Message   string `json:"message"`
	Text      string `json:"text"`
}

// PromptText returns whichever alias carried the prompt.
func (r ChatAskRequest) PromptText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	if r.Message != "" {
		return r.Message
	}
	return r.Text
}

type ChatOpenResponse struct {
	SessionID string `json:"session_id"`
	DocID     string `json:"doc_id,omitempty"`
	Greeting  string `json:"greeting"`
}

type ChatAskResponse struct {
	Ok bool `json:"ok"`
}
