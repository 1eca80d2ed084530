package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancozim/origination/domain"
)

func TestPathBranchesPerIntent(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		formData map[string]interface{}
		want     []string
	}{
		{
			name:     "no intent yet",
			formData: map[string]interface{}{"language": "en"},
			want:     []string{domain.StepLanguage, domain.StepIntent},
		},
		{
			name:     "hire purchase generic",
			formData: map[string]interface{}{"intent": domain.IntentHirePurchase, "employer": EmployerOther},
			want: []string{
				domain.StepLanguage, domain.StepIntent, domain.StepEmployer,
				domain.StepProduct, domain.StepForm, domain.StepSummary, domain.StepCompleted,
			},
		},
		{
			name:     "hire purchase pensioner has deposit step",
			formData: map[string]interface{}{"intent": domain.IntentHirePurchase, "employer": EmployerPensioner},
			want: []string{
				domain.StepLanguage, domain.StepIntent, domain.StepEmployer,
				domain.StepProduct, domain.StepForm, domain.StepDeposit,
				domain.StepSummary, domain.StepCompleted,
			},
		},
		{
			name:     "cash purchase skips employer",
			formData: map[string]interface{}{"intent": domain.IntentCashPurchase},
			want: []string{
				domain.StepLanguage, domain.StepIntent,
				domain.StepProduct, domain.StepForm, domain.StepDeposit,
				domain.StepSummary, domain.StepCompleted,
			},
		},
		{
			name:     "zb account before answering hasAccount",
			formData: map[string]interface{}{"intent": domain.IntentZBAccount},
			want:     []string{domain.StepLanguage, domain.StepIntent, domain.StepHasAccount},
		},
		{
			name:     "micro biz goes straight to form",
			formData: map[string]interface{}{"intent": domain.IntentMicroBiz},
			want: []string{
				domain.StepLanguage, domain.StepIntent,
				domain.StepForm, domain.StepSummary, domain.StepCompleted,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Path(tt.formData))
		})
	}
}

func TestNextIsDeterministic(t *testing.T) {
	engine := NewEngine()
	formData := map[string]interface{}{"intent": domain.IntentHirePurchase, "employer": EmployerSSB}

	first, ok := engine.Next(domain.StepProduct, formData)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := engine.Next(domain.StepProduct, formData)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, domain.StepForm, first)
}

func TestNextTerminalAndUnknown(t *testing.T) {
	engine := NewEngine()

	_, ok := engine.Next(domain.StepCompleted, nil)
	assert.False(t, ok, "completed is terminal")

	_, ok = engine.Next(domain.StepDeposit, map[string]interface{}{"intent": domain.IntentMicroBiz})
	assert.False(t, ok, "deposit is not on the microBiz path")
}

func TestCanAdvance(t *testing.T) {
	engine := NewEngine()
	formData := map[string]interface{}{"language": "en", "intent": domain.IntentMicroBiz}

	assert.True(t, engine.CanAdvance(domain.StepIntent, domain.StepForm, formData), "next step on path")
	assert.True(t, engine.CanAdvance(domain.StepIntent, domain.StepIntent, formData), "same step resubmission")
	assert.True(t, engine.CanAdvance(domain.StepIntent, domain.StepCompleted, formData), "single-shot completion")
	assert.False(t, engine.CanAdvance(domain.StepIntent, domain.StepSummary, formData), "skipping ahead")
	assert.False(t, engine.CanAdvance(domain.StepCompleted, domain.StepForm, formData), "no advancing past completed")
}

func TestValidateRejectsMissingFields(t *testing.T) {
	engine := NewEngine()

	err := engine.Validate(domain.StepLanguage, nil, map[string]interface{}{"language": "fr"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.StepLanguage, vErr.Step)
	assert.Contains(t, vErr.Fields, "language")

	err = engine.Validate(domain.StepIntent, nil, map[string]interface{}{"intent": "mortgage"})
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "intent")

	err = engine.Validate(domain.StepSummary, nil, map[string]interface{}{"confirmed": false})
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "confirmed")
}

func TestValidateFormFieldsPerEmployer(t *testing.T) {
	engine := NewEngine()
	formData := map[string]interface{}{
		"intent":   domain.IntentHirePurchase,
		"employer": EmployerSSB,
	}

	err := engine.Validate(domain.StepForm, formData, map[string]interface{}{
		"formResponses": map[string]interface{}{
			"firstName":     "Tariro",
			"lastName":      "Moyo",
			"nationalId":    "63-123456A12",
			"phone":         "+263771234567",
			"payDayRange":   "25-31",
			"monthlySalary": "850",
		},
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr, "SSB schema requires employeeNumber")
	assert.Equal(t, []string{"employeeNumber"}, vErr.Fields)

	err = engine.Validate(domain.StepForm, formData, map[string]interface{}{
		"formResponses": map[string]interface{}{
			"firstName":      "Tariro",
			"lastName":       "Moyo",
			"nationalId":     "63-123456A12",
			"phone":          "+263771234567",
			"employeeNumber": "E10293",
			"payDayRange":    "25-31",
			"monthlySalary":  "850",
		},
	})
	assert.NoError(t, err)
}

func TestValidateAcceptsValidSteps(t *testing.T) {
	engine := NewEngine()

	assert.NoError(t, engine.Validate(domain.StepLanguage, nil, map[string]interface{}{"language": "sn"}))
	assert.NoError(t, engine.Validate(domain.StepIntent, nil, map[string]interface{}{"intent": domain.IntentZBAccount}))
	assert.NoError(t, engine.Validate(domain.StepHasAccount, nil, map[string]interface{}{"hasAccount": true}))
	assert.NoError(t, engine.Validate(domain.StepEmployer, nil, map[string]interface{}{"employer": EmployerZB}))
	assert.NoError(t, engine.Validate(domain.StepDeposit, nil, map[string]interface{}{"depositMethod": "ecocash"}))
	assert.NoError(t, engine.Validate(domain.StepCompleted, nil, map[string]interface{}{
		"formResponses": map[string]interface{}{"firstName": "T"},
	}))
}

func TestFormFieldsLinkedAccountSchema(t *testing.T) {
	engine := NewEngine()
	fields := engine.FormFields(map[string]interface{}{
		"intent":     domain.IntentZBAccount,
		"hasAccount": true,
	})
	assert.Contains(t, fields, "accountNumber")
	assert.NotContains(t, fields, "residentialAddress")
}
