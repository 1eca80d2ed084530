// Package channels translates between wizard steps and the text surfaces
// (WhatsApp messages, USSD menus). It turns a step into a prompt and a raw
// reply into the delta the step engine validates; it holds no state of its
// own.
package channels

import (
	"fmt"
	"strings"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/steps"
)

// BackKey is the USSD convention for re-showing the current menu.
const BackKey = "0"

var languageOptions = []struct {
	code  string
	label string
}{
	{"en", "English"},
	{"sn", "Shona"},
	{"nd", "Ndebele"},
}

var intentOptions = []struct {
	code  string
	label string
}{
	{domain.IntentHirePurchase, "Buy on credit (hire purchase)"},
	{domain.IntentCashPurchase, "Buy for cash"},
	{domain.IntentZBAccount, "Open a ZB account"},
	{domain.IntentMicroBiz, "MicroBiz loan"},
}

var employerOptions = []struct {
	code  string
	label string
}{
	{steps.EmployerSSB, "Government (SSB)"},
	{steps.EmployerZB, "ZB Bank"},
	{steps.EmployerPensioner, "Pensioner"},
	{steps.EmployerOther, "Other employer"},
}

// Adapter renders prompts and parses replies for one application state.
type Adapter struct {
	engine *steps.Engine
}

func NewAdapter(engine *steps.Engine) *Adapter {
	if engine == nil {
		engine = steps.NewEngine()
	}
	return &Adapter{engine: engine}
}

// Prompt renders the question for the step about to be asked. formData
// supplies the flags that shape the form-step field list.
func (a *Adapter) Prompt(step string, formData map[string]interface{}) string {
	switch step {
	case domain.StepLanguage:
		return numbered("Welcome to BancoZim. Choose your language:", languageLabels())
	case domain.StepIntent:
		return numbered("What would you like to do?", intentLabels())
	case domain.StepHasAccount:
		return "Do you already have a ZB account?\n1. Yes\n2. No"
	case domain.StepEmployer:
		return numbered("Who is your employer?", employerLabels())
	case domain.StepProduct:
		return "Which product are you applying for? Reply with the product name."
	case domain.StepForm:
		fields := a.engine.FormFields(formData)
		return "Please send your details as name=value pairs separated by ';':\n" + strings.Join(fields, ", ")
	case domain.StepDeposit:
		return "A deposit is required for this product. How will you pay it? (e.g. ecocash, bank transfer)"
	case domain.StepSummary:
		return "Reply 1 to confirm and submit your application, or 2 to cancel."
	case domain.StepCompleted:
		return "Your application has been submitted."
	}
	return ""
}

// PendingStep returns the step whose answer the channel should collect next.
// A fresh state sits at the entry step with nothing answered yet, so the
// entry question itself is pending; afterwards it is always the engine's
// next step.
func (a *Adapter) PendingStep(state *domain.ApplicationState) (string, bool) {
	if state == nil || state.IsCompleted() {
		return "", false
	}
	if state.CurrentStep == domain.StepLanguage {
		if _, answered := state.FormData["language"]; !answered {
			return domain.StepLanguage, true
		}
	}
	return a.engine.Next(state.CurrentStep, state.FormData)
}

// Parse converts a raw reply into the delta for the given step. It returns a
// validation error when the reply cannot be understood; the engine then
// re-validates the delta it does produce.
func (a *Adapter) Parse(step, text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)
	switch step {
	case domain.StepLanguage:
		if code, ok := pick(text, languageCodes()); ok {
			return map[string]interface{}{"language": code}, nil
		}
		return nil, domain.NewValidationError(step, "language")
	case domain.StepIntent:
		if code, ok := pick(text, intentCodes()); ok {
			return map[string]interface{}{"intent": code}, nil
		}
		return nil, domain.NewValidationError(step, "intent")
	case domain.StepHasAccount:
		switch strings.ToLower(text) {
		case "1", "yes", "y":
			return map[string]interface{}{"hasAccount": true}, nil
		case "2", "no", "n":
			return map[string]interface{}{"hasAccount": false}, nil
		}
		return nil, domain.NewValidationError(step, "hasAccount")
	case domain.StepEmployer:
		if code, ok := pick(text, employerCodes()); ok {
			return map[string]interface{}{"employer": code}, nil
		}
		return nil, domain.NewValidationError(step, "employer")
	case domain.StepProduct:
		if text == "" {
			return nil, domain.NewValidationError(step, "product")
		}
		return map[string]interface{}{"product": text}, nil
	case domain.StepForm:
		responses := parsePairs(text)
		if len(responses) == 0 {
			return nil, domain.NewValidationError(step, "formResponses")
		}
		return map[string]interface{}{"formResponses": responses}, nil
	case domain.StepDeposit:
		if text == "" {
			return nil, domain.NewValidationError(step, "depositMethod")
		}
		return map[string]interface{}{"depositMethod": text}, nil
	case domain.StepSummary:
		switch strings.ToLower(text) {
		case "1", "yes", "y", "confirm":
			return map[string]interface{}{"confirmed": true}, nil
		}
		return nil, domain.NewValidationError(step, "confirmed")
	}
	return nil, domain.NewValidationError(step, "step")
}

// CompletionDelta builds the final submission delta from the accumulated
// form data, for channels that collect the form before the completed step.
func CompletionDelta(state *domain.ApplicationState) map[string]interface{} {
	responses, _ := state.FormData["formResponses"].(map[string]interface{})
	if responses == nil {
		responses = map[string]interface{}{}
	}
	return map[string]interface{}{"formResponses": responses}
}

// ConfirmationMessage is sent once an application reaches completed.
func ConfirmationMessage(referenceCode string) string {
	if referenceCode == "" {
		return "Thank you. Your application has been submitted and is being processed."
	}
	return fmt.Sprintf(
		"Thank you. Your application has been submitted. Your reference code is %s. Use it to check your status or resume later.",
		referenceCode)
}

func numbered(header string, labels []string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, label := range labels {
		fmt.Fprintf(&b, "\n%d. %s", i+1, label)
	}
	return b.String()
}

// pick resolves a reply that is either a menu number or the option code.
func pick(text string, codes []string) (string, bool) {
	for i, code := range codes {
		if strings.EqualFold(text, code) || text == fmt.Sprintf("%d", i+1) {
			return code, true
		}
	}
	return "", false
}

// parsePairs reads "a=b; c=d" style replies.
func parsePairs(text string) map[string]interface{} {
	out := map[string]interface{}{}
	for _, pair := range strings.Split(text, ";") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func languageLabels() []string {
	labels := make([]string, len(languageOptions))
	for i, o := range languageOptions {
		labels[i] = o.label
	}
	return labels
}

func languageCodes() []string {
	codes := make([]string, len(languageOptions))
	for i, o := range languageOptions {
		codes[i] = o.code
	}
	return codes
}

func intentLabels() []string {
	labels := make([]string, len(intentOptions))
	for i, o := range intentOptions {
		labels[i] = o.label
	}
	return labels
}

func intentCodes() []string {
	codes := make([]string, len(intentOptions))
	for i, o := range intentOptions {
		codes[i] = o.code
	}
	return codes
}

func employerLabels() []string {
	labels := make([]string, len(employerOptions))
	for i, o := range employerOptions {
		labels[i] = o.label
	}
	return labels
}

func employerCodes() []string {
	codes := make([]string, len(employerOptions))
	for i, o := range employerOptions {
		codes[i] = o.code
	}
	return codes
}
