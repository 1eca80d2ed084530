package domain

import "time"

// Channel identifies the surface a customer is applying through.
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelUSSD      Channel = "ussd"
	ChannelMobileApp Channel = "mobile_app"
)

// ValidChannel reports whether the given value is a known channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelWeb, ChannelWhatsApp, ChannelUSSD, ChannelMobileApp:
		return true
	}
	return false
}

// Wizard step names. The full per-intent ordering lives in the steps package;
// these are the names shared across flows.
const (
	StepLanguage   = "language"
	StepIntent     = "intent"
	StepHasAccount = "hasAccount"
	StepEmployer   = "employer"
	StepProduct    = "product"
	StepForm       = "form"
	StepSummary    = "summary"
	StepDeposit    = "deposit"
	StepCompleted  = "completed"
)

// Intent values a customer can select early in the wizard.
const (
	IntentHirePurchase = "hirePurchase"
	IntentCashPurchase = "cashPurchase"
	IntentZBAccount    = "zbAccount"
	IntentMicroBiz     = "microBiz"
)

// Post-wizard application statuses driven by the status engine.
type Status string

const (
	StatusPending                  Status = "pending"
	StatusPendingVerification      Status = "pending_verification"
	StatusSentForChecks            Status = "sent_for_checks"
	StatusAwaitingCreditCheck      Status = "awaiting_credit_check"
	StatusAwaitingSSBApproval      Status = "awaiting_ssb_approval"
	StatusApproved                 Status = "approved"
	StatusRejected                 Status = "rejected"
	StatusCreditCheckPoorRejected  Status = "credit_check_poor_rejected"
	StatusApprovedAwaitingDelivery Status = "approved_awaiting_delivery"
	StatusCompleted                Status = "completed"
	StatusAccountOpened            Status = "account_opened"
)

// IsTerminal reports whether no further status transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusAccountOpened, StatusRejected, StatusCreditCheckPoorRejected:
		return true
	}
	return false
}

// CheckStatus codes the outcome of an automated SSB/credit-bureau check.
type CheckStatus string

const (
	CheckStatusPending     CheckStatus = "pending"
	CheckStatusSuccess     CheckStatus = "success"
	CheckStatusFailure     CheckStatus = "failure"
	CheckStatusBlacklisted CheckStatus = "blacklisted"
	CheckStatusApproved    CheckStatus = "approved"
)

// ApplicationState is the aggregate root for one customer journey across any channel.
type ApplicationState struct {
	ID             string                 `json:"id"`
	SessionID      string                 `json:"session_id"`
	Channel        Channel                `json:"channel"`
	UserIdentifier string                 `json:"user_identifier"`
	CurrentStep    string                 `json:"current_step"`
	FormData       map[string]interface{} `json:"form_data"`
	Metadata       map[string]string      `json:"metadata,omitempty"`

	ReferenceCode          string     `json:"reference_code,omitempty"`
	ReferenceCodeExpiresAt *time.Time `json:"reference_code_expires_at,omitempty"`

	Status      Status       `json:"status"`
	CheckType   string       `json:"check_type,omitempty"`
	CheckStatus CheckStatus  `json:"check_status,omitempty"`
	CheckResult *CheckResult `json:"check_result,omitempty"`

	DepositAmount        float64    `json:"deposit_amount,omitempty"`
	DepositPaid          bool       `json:"deposit_paid"`
	DepositPaidAt        *time.Time `json:"deposit_paid_at,omitempty"`
	DepositTransactionID string     `json:"deposit_transaction_id,omitempty"`
	DepositPaymentMethod string     `json:"deposit_payment_method,omitempty"`

	ExpiresAt              *time.Time `json:"expires_at,omitempty"`
	LastActivity           time.Time  `json:"last_activity"`
	IsArchived             bool       `json:"is_archived"`
	ExemptFromAutoDeletion bool       `json:"exempt_from_auto_deletion"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// CheckResult holds the recorded outcome of one external check attempt.
// AttemptID is the idempotency key: a duplicate result for the same attempt
// never overwrites what was already recorded.
type CheckResult struct {
	AttemptID   string                 `json:"attempt_id"`
	Outcome     CheckStatus            `json:"outcome"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

// IsCompleted reports whether the form-filling phase is over.
func (a *ApplicationState) IsCompleted() bool {
	return a != nil && a.CurrentStep == StepCompleted
}

// IsExpired reports whether the wizard session can no longer be resumed.
func (a *ApplicationState) IsExpired(reference time.Time) bool {
	if a == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return a.ExpiresAt != nil && !a.ExpiresAt.After(reference)
}

// ReferenceCodeValid reports whether the stored code can still be used for lookups.
func (a *ApplicationState) ReferenceCodeValid(reference time.Time) bool {
	if a == nil || a.ReferenceCode == "" {
		return false
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return a.ReferenceCodeExpiresAt != nil && a.ReferenceCodeExpiresAt.After(reference)
}

// Intent returns the intent selected so far, or "" before that step.
func (a *ApplicationState) Intent() string {
	if a == nil {
		return ""
	}
	if v, ok := a.FormData["intent"].(string); ok {
		return v
	}
	return ""
}

// MergeFormData applies delta onto data with field-level merge semantics:
// new keys are added, existing keys are overwritten, keys absent from the
// delta are preserved, and nested maps merge recursively rather than being
// replaced wholesale. The input maps are not mutated.
func MergeFormData(data, delta map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(data)+len(delta))
	for k, v := range data {
		merged[k] = v
	}
	for k, v := range delta {
		existing, ok := merged[k]
		if !ok {
			merged[k] = v
			continue
		}
		existingMap, okA := existing.(map[string]interface{})
		deltaMap, okB := v.(map[string]interface{})
		if okA && okB {
			merged[k] = MergeFormData(existingMap, deltaMap)
			continue
		}
		merged[k] = v
	}
	return merged
}
