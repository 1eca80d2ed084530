package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/steps"
)

func TestParseMenuSteps(t *testing.T) {
	adapter := NewAdapter(nil)

	tests := []struct {
		name string
		step string
		text string
		want map[string]interface{}
	}{
		{name: "language by number", step: domain.StepLanguage, text: "2", want: map[string]interface{}{"language": "sn"}},
		{name: "language by code", step: domain.StepLanguage, text: "EN", want: map[string]interface{}{"language": "en"}},
		{name: "intent by number", step: domain.StepIntent, text: "1", want: map[string]interface{}{"intent": domain.IntentHirePurchase}},
		{name: "intent case-insensitive code", step: domain.StepIntent, text: "zbaccount", want: map[string]interface{}{"intent": domain.IntentZBAccount}},
		{name: "employer by number", step: domain.StepEmployer, text: "3", want: map[string]interface{}{"employer": steps.EmployerPensioner}},
		{name: "has account yes", step: domain.StepHasAccount, text: "yes", want: map[string]interface{}{"hasAccount": true}},
		{name: "has account no", step: domain.StepHasAccount, text: "2", want: map[string]interface{}{"hasAccount": false}},
		{name: "summary confirm", step: domain.StepSummary, text: "1", want: map[string]interface{}{"confirmed": true}},
		{name: "whitespace trimmed", step: domain.StepLanguage, text: " 1 ", want: map[string]interface{}{"language": "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, err := adapter.Parse(tt.step, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, delta)
		})
	}
}

func TestParseCanonicalizesIntentCode(t *testing.T) {
	adapter := NewAdapter(nil)

	delta, err := adapter.Parse(domain.StepIntent, "HIREPURCHASE")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentHirePurchase, delta["intent"], "stored code keeps canonical casing")
}

func TestParseFormPairs(t *testing.T) {
	adapter := NewAdapter(nil)

	delta, err := adapter.Parse(domain.StepForm, "firstName=Tariro; lastName=Moyo;phone=+263771234567")
	require.NoError(t, err)

	responses, ok := delta["formResponses"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tariro", responses["firstName"])
	assert.Equal(t, "Moyo", responses["lastName"])
	assert.Equal(t, "+263771234567", responses["phone"])
}

func TestParseRejectsUnintelligibleReplies(t *testing.T) {
	adapter := NewAdapter(nil)

	tests := []struct {
		step string
		text string
	}{
		{domain.StepLanguage, "9"},
		{domain.StepLanguage, "french"},
		{domain.StepIntent, "mortgage"},
		{domain.StepHasAccount, "maybe"},
		{domain.StepForm, "no pairs here"},
		{domain.StepSummary, "2"},
		{"unknownStep", "1"},
	}

	for _, tt := range tests {
		_, err := adapter.Parse(tt.step, tt.text)
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr, "%s / %q", tt.step, tt.text)
	}
}

func TestPendingStep(t *testing.T) {
	adapter := NewAdapter(nil)

	fresh := &domain.ApplicationState{
		CurrentStep: domain.StepLanguage,
		FormData:    map[string]interface{}{},
	}
	step, ok := adapter.PendingStep(fresh)
	require.True(t, ok)
	assert.Equal(t, domain.StepLanguage, step, "entry question is pending until answered")

	answered := &domain.ApplicationState{
		CurrentStep: domain.StepLanguage,
		FormData:    map[string]interface{}{"language": "en"},
	}
	step, ok = adapter.PendingStep(answered)
	require.True(t, ok)
	assert.Equal(t, domain.StepIntent, step)

	completed := &domain.ApplicationState{CurrentStep: domain.StepCompleted}
	_, ok = adapter.PendingStep(completed)
	assert.False(t, ok)
}

func TestPromptListsFormFieldsForFlow(t *testing.T) {
	adapter := NewAdapter(nil)

	prompt := adapter.Prompt(domain.StepForm, map[string]interface{}{
		"intent":   domain.IntentHirePurchase,
		"employer": steps.EmployerSSB,
	})
	assert.Contains(t, prompt, "employeeNumber")
	assert.Contains(t, prompt, "name=value")
}

func TestCompletionDelta(t *testing.T) {
	state := &domain.ApplicationState{
		FormData: map[string]interface{}{
			"formResponses": map[string]interface{}{"firstName": "Tariro"},
		},
	}
	delta := CompletionDelta(state)
	responses := delta["formResponses"].(map[string]interface{})
	assert.Equal(t, "Tariro", responses["firstName"])

	empty := CompletionDelta(&domain.ApplicationState{FormData: map[string]interface{}{}})
	assert.NotNil(t, empty["formResponses"])
}

func TestConfirmationMessage(t *testing.T) {
	assert.Contains(t, ConfirmationMessage("AB23CD"), "AB23CD")
	assert.NotContains(t, ConfirmationMessage(""), "reference code")
}
