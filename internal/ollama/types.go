package ollama

import "time"

type Options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	System  string   `json:"system,omitempty"`
	Options *Options `json:"options,omitempty"`
}

type GenerateResponse struct {
	Model         string    `json:"model"`
	CreatedAt     time.Time `json:"created_at"`
	Response      string    `json:"response"`
	Done          bool      `json:"done"`
	DoneReason    string    `json:"done_reason,omitempty"`
	TotalDuration int64     `json:"total_duration,omitempty"`
	EvalCount     int       `json:"eval_count,omitempty"`
}

// generateReply is what Generate decodes; a 200 body may still carry an
// error and no response.
type generateReply struct {
	Response *string `json:"response"`
	Error    string  `json:"error"`
}

type apiError struct {
	Error string `json:"error"`
}
