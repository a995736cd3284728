package domain

// DispatchRequest is the wire form of a notification trigger.
type DispatchRequest struct {
	Category   string   `json:"category" validate:"required"`
	Recipients []string `json:"recipients" validate:"required,min=1,max=1000,dive,required"`
	Payload    Payload  `json:"payload"`
}

// DispatchResult summarises one fan-out. Created always counts in-app records; the push
// counters are per token.
type DispatchResult struct {
	Recipients    int `json:"recipients"`
	Created       int `json:"created"`
	Failed        int `json:"failed"`
	Pushed        int `json:"pushed"`
	PushFailures  int `json:"push_failures"`
	InvalidTokens int `json:"invalid_tokens"`
}
