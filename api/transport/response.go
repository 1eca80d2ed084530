package transport

import "encoding/json"

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewError returns an error envelope with optional metadata.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// StateSummary is the lookup/resolve payload: just enough for the caller to
// decide between resuming the wizard and showing a status page.
type StateSummary struct {
	SessionID   string `json:"session_id"`
	CurrentStep string `json:"current_step"`
	Status      string `json:"status"`
}

// ChannelReply is the message a text channel renders back to the customer.
type ChannelReply struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	End       bool   `json:"end"`
}
