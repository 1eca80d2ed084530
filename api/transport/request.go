package transport

// StartApplicationRequest opens (or returns) the wizard session for a caller.
type StartApplicationRequest struct {
	SessionID      string `json:"session_id"`
	Channel        string `json:"channel"`
	UserIdentifier string `json:"user_identifier"`
}

// StepRequest carries one wizard step submission. Channel defaults to web
// when omitted.
type StepRequest struct {
	Channel  string                 `json:"channel"`
	Data     map[string]interface{} `json:"data"`
	Metadata map[string]string      `json:"metadata"`
}

// WhatsAppInboundRequest is the messaging gateway's inbound webhook payload.
type WhatsAppInboundRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// USSDRequest is one round-trip from the USSD gateway.
type USSDRequest struct {
	SessionKey string `json:"session_key"`
	Msisdn     string `json:"msisdn"`
	Text       string `json:"text"`
}

// LookupRequest resolves a reference code or a national ID.
type LookupRequest struct {
	Code       string `json:"code"`
	NationalID string `json:"national_id"`
}

// CheckResultRequest is the bureau's asynchronous outcome callback.
type CheckResultRequest struct {
	SessionID   string                 `json:"session_id"`
	AttemptID   string                 `json:"attempt_id"`
	Outcome     string                 `json:"outcome"`
	Detail      map[string]interface{} `json:"detail"`
	CompletedAt string                 `json:"completed_at"`
}

// ScheduleDeliveryRequest creates the courier record for an approved application.
type ScheduleDeliveryRequest struct {
	CourierType string `json:"courier_type"`
}

// DeliveryUpdateRequest applies a courier status change.
type DeliveryUpdateRequest struct {
	Status string `json:"status"`
}

// DepositConfirmRequest records an upfront deposit payment.
type DepositConfirmRequest struct {
	TransactionID string  `json:"transaction_id"`
	Method        string  `json:"method"`
	Amount        float64 `json:"amount"`
}
