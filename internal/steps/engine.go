// Package steps owns the per-intent wizard step catalog and the pure
// next-step and validation logic. Nothing here touches the clock or does
// I/O: replaying a transition log through the engine reconstructs the same
// path every time.
package steps

import (
	"strings"

	"github.com/bancozim/origination/domain"
)

// Engine decides step ordering and validates submitted step data against
// the decision table in catalog.go.
type Engine struct{}

// NewEngine returns a stateless step engine.
func NewEngine() *Engine {
	return &Engine{}
}

// EntryStep is where every new application starts, on every channel.
func (e *Engine) EntryStep() string {
	return domain.StepLanguage
}

// Path returns the ordered step list for the flags accumulated in formData.
func (e *Engine) Path(formData map[string]interface{}) []string {
	intent, employer, hasAccount := flags(formData)
	return pathFor(intent, employer, hasAccount)
}

// FormFields returns the required formResponses keys for the flags
// accumulated in formData. Channel adapters use it to prompt field by field.
func (e *Engine) FormFields(formData map[string]interface{}) []string {
	intent, employer, hasAccount := flags(formData)
	return formFieldsFor(intent, employer, hasAccount)
}

// Next computes the step following currentStep, or ("", false) when the
// current step is terminal or unknown for this flow.
func (e *Engine) Next(currentStep string, formData map[string]interface{}) (string, bool) {
	if currentStep == domain.StepCompleted {
		return "", false
	}
	path := e.Path(formData)
	for i, step := range path {
		if step == currentStep && i+1 < len(path) {
			return path[i+1], true
		}
	}
	return "", false
}

// CanAdvance reports whether target is reachable from currentStep.
// Reachable means: the next step on the flow's path, the same step again
// (a channel re-asking a question), or the completed step when a channel
// submits the remaining form in one hit, as the web wizard does.
func (e *Engine) CanAdvance(currentStep, target string, formData map[string]interface{}) bool {
	if currentStep == domain.StepCompleted {
		return false
	}
	if currentStep == "" {
		return target == e.EntryStep()
	}
	if target == currentStep {
		return true
	}
	if target == domain.StepCompleted {
		return true
	}
	next, ok := e.Next(currentStep, formData)
	return ok && next == target
}

// Validate checks that delta satisfies the required-field set of step, given
// the data accumulated so far. It returns a *domain.ValidationError naming
// every missing or invalid field, or nil.
func (e *Engine) Validate(step string, formData, delta map[string]interface{}) error {
	var bad []string

	switch step {
	case domain.StepLanguage:
		lang, _ := delta["language"].(string)
		if !languages[lang] {
			bad = append(bad, "language")
		}
	case domain.StepIntent:
		intent, _ := delta["intent"].(string)
		if !intents[intent] {
			bad = append(bad, "intent")
		}
	case domain.StepHasAccount:
		if _, ok := delta["hasAccount"].(bool); !ok {
			bad = append(bad, "hasAccount")
		}
	case domain.StepEmployer:
		employer, _ := delta["employer"].(string)
		if !employers[employer] {
			bad = append(bad, "employer")
		}
	case domain.StepProduct:
		if blankString(delta["product"]) {
			bad = append(bad, "product")
		}
	case domain.StepForm:
		bad = append(bad, missingFormFields(formData, delta)...)
	case domain.StepDeposit:
		if blankString(delta["depositMethod"]) {
			bad = append(bad, "depositMethod")
		}
	case domain.StepSummary:
		if confirmed, _ := delta["confirmed"].(bool); !confirmed {
			bad = append(bad, "confirmed")
		}
	case domain.StepCompleted:
		// Final submission: formResponses must at least be present. A full
		// per-field check only applies when the form step itself runs.
		if _, ok := delta["formResponses"].(map[string]interface{}); !ok {
			bad = append(bad, "formResponses")
		}
	default:
		return domain.NewValidationError(step, "step")
	}

	if len(bad) > 0 {
		return domain.NewValidationError(step, bad...)
	}
	return nil
}

func missingFormFields(formData, delta map[string]interface{}) []string {
	intent, employer, hasAccount := flags(formData)
	required := formFieldsFor(intent, employer, hasAccount)
	if len(required) == 0 {
		return []string{"formResponses"}
	}

	responses, _ := delta["formResponses"].(map[string]interface{})
	if responses == nil {
		return []string{"formResponses"}
	}

	var missing []string
	for _, field := range required {
		if blankString(responses[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

func flags(formData map[string]interface{}) (intent, employer string, hasAccount *bool) {
	if formData == nil {
		return "", "", nil
	}
	intent, _ = formData["intent"].(string)
	employer, _ = formData["employer"].(string)
	if v, ok := formData["hasAccount"].(bool); ok {
		hasAccount = &v
	}
	return intent, employer, hasAccount
}

func blankString(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return v == nil
	}
	return strings.TrimSpace(s) == ""
}
