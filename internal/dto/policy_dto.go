package dto

type CompileSpendRequest struct {
	Text string `json:"text" validate:"required"`
}

type CompileSpendResponse struct {
	Ok        bool                   `json:"ok"`
	Compiled  map[string]interface{} `json:"compiled"`
	Persisted bool                   `json:"persisted"`
}

type ReloadResponse struct {
	Ok bool `json:"ok"`
}
