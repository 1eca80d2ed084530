package steps

import "github.com/bancozim/origination/domain"

// Employer classes selected at the employer step. They drive which form
// schema applies downstream, and for pensioners an extra deposit step.
const (
	EmployerSSB       = "ssb"
	EmployerZB        = "zb"
	EmployerPensioner = "pensioner"
	EmployerOther     = "other"
)

// Languages offered at the entry step.
var languages = map[string]bool{
	"en": true, // English
	"sn": true, // Shona
	"nd": true, // Ndebele
}

var intents = map[string]bool{
	domain.IntentHirePurchase: true,
	domain.IntentCashPurchase: true,
	domain.IntentZBAccount:    true,
	domain.IntentMicroBiz:     true,
}

var employers = map[string]bool{
	EmployerSSB:       true,
	EmployerZB:        true,
	EmployerPensioner: true,
	EmployerOther:     true,
}

// flowRule is one row of the decision table mapping
// intent x employer-class x hasAccount to an ordered step list.
// Empty intent/employer match anything; nil hasAccount matches anything.
type flowRule struct {
	intent     string
	employer   string
	hasAccount *bool
	steps      []string
}

var boolTrue = true
var boolFalse = false

// flowTable is evaluated top to bottom; the first matching rule wins.
// All paths share the language -> intent prefix, so the fallback rule keeps
// Next total before an intent has been chosen.
var flowTable = []flowRule{
	{
		intent:   domain.IntentHirePurchase,
		employer: EmployerPensioner,
		steps: []string{
			domain.StepLanguage, domain.StepIntent, domain.StepEmployer,
			domain.StepProduct, domain.StepForm, domain.StepDeposit,
			domain.StepSummary, domain.StepCompleted,
		},
	},
	{
		intent: domain.IntentHirePurchase,
		steps: []string{
			domain.StepLanguage, domain.StepIntent, domain.StepEmployer,
			domain.StepProduct, domain.StepForm,
			domain.StepSummary, domain.StepCompleted,
		},
	},
	{
		intent: domain.IntentCashPurchase,
		steps: []string{
			domain.StepLanguage, domain.StepIntent,
			domain.StepProduct, domain.StepForm, domain.StepDeposit,
			domain.StepSummary, domain.StepCompleted,
		},
	},
	{
		intent:     domain.IntentZBAccount,
		hasAccount: &boolTrue,
		steps: []string{
			domain.StepLanguage, domain.StepIntent, domain.StepHasAccount,
			domain.StepForm, domain.StepSummary, domain.StepCompleted,
		},
	},
	{
		intent:     domain.IntentZBAccount,
		hasAccount: &boolFalse,
		steps: []string{
			domain.StepLanguage, domain.StepIntent, domain.StepHasAccount,
			domain.StepForm, domain.StepSummary, domain.StepCompleted,
		},
	},
	{
		intent: domain.IntentZBAccount,
		steps: []string{
			domain.StepLanguage, domain.StepIntent, domain.StepHasAccount,
		},
	},
	{
		intent: domain.IntentMicroBiz,
		steps: []string{
			domain.StepLanguage, domain.StepIntent,
			domain.StepForm, domain.StepSummary, domain.StepCompleted,
		},
	},
	// No intent selected yet: only the shared prefix is known.
	{
		steps: []string{domain.StepLanguage, domain.StepIntent},
	},
}

// formFields lists required formResponses keys per intent, with employer
// overrides for hire purchase (SSB payslips carry an employee number, ZB
// account holders are identified by account number).
var formFields = map[string][]string{
	domain.IntentHirePurchase:                     {"firstName", "lastName", "nationalId", "phone", "employerName", "payDayRange", "monthlySalary"},
	domain.IntentHirePurchase + "/" + EmployerSSB: {"firstName", "lastName", "nationalId", "phone", "employeeNumber", "payDayRange", "monthlySalary"},
	domain.IntentHirePurchase + "/" + EmployerZB:  {"firstName", "lastName", "nationalId", "phone", "accountNumber", "payDayRange", "monthlySalary"},
	domain.IntentCashPurchase:                     {"firstName", "lastName", "nationalId", "phone"},
	domain.IntentZBAccount:                        {"firstName", "lastName", "nationalId", "phone", "residentialAddress"},
	domain.IntentZBAccount + "/linked":            {"firstName", "lastName", "nationalId", "accountNumber"},
	domain.IntentMicroBiz:                         {"businessName", "registrationNumber", "firstName", "lastName", "nationalId", "phone"},
}

func matches(rule flowRule, intent, employer string, hasAccount *bool) bool {
	if rule.intent != "" && rule.intent != intent {
		return false
	}
	if rule.employer != "" && rule.employer != employer {
		return false
	}
	if rule.hasAccount != nil {
		if hasAccount == nil || *rule.hasAccount != *hasAccount {
			return false
		}
	}
	return true
}

// pathFor resolves the ordered step list for the given flags.
func pathFor(intent, employer string, hasAccount *bool) []string {
	for _, rule := range flowTable {
		if matches(rule, intent, employer, hasAccount) {
			return rule.steps
		}
	}
	// Unreachable: the fallback rule matches everything.
	return []string{domain.StepLanguage, domain.StepIntent}
}

// formFieldsFor resolves the required form schema for the given flags.
func formFieldsFor(intent, employer string, hasAccount *bool) []string {
	if intent == domain.IntentZBAccount && hasAccount != nil && *hasAccount {
		return formFields[domain.IntentZBAccount+"/linked"]
	}
	if employer != "" {
		if fields, ok := formFields[intent+"/"+employer]; ok {
			return fields
		}
	}
	return formFields[intent]
}
