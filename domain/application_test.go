package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFormDataAddsAndOverwrites(t *testing.T) {
	data := map[string]interface{}{
		"language": "en",
		"intent":   "hirePurchase",
	}
	delta := map[string]interface{}{
		"intent":   "cashPurchase",
		"employer": "ssb",
	}

	merged := MergeFormData(data, delta)

	assert.Equal(t, "en", merged["language"], "keys absent from delta are preserved")
	assert.Equal(t, "cashPurchase", merged["intent"], "existing keys are overwritten")
	assert.Equal(t, "ssb", merged["employer"], "new keys are added")
}

func TestMergeFormDataNestedMapsMergeRecursively(t *testing.T) {
	data := map[string]interface{}{
		"formResponses": map[string]interface{}{
			"firstName": "Tariro",
			"lastName":  "Moyo",
		},
	}
	delta := map[string]interface{}{
		"formResponses": map[string]interface{}{
			"lastName": "Moyo-Ncube",
			"phone":    "+263771234567",
		},
	}

	merged := MergeFormData(data, delta)

	responses, ok := merged["formResponses"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tariro", responses["firstName"], "sibling keys survive a nested merge")
	assert.Equal(t, "Moyo-Ncube", responses["lastName"])
	assert.Equal(t, "+263771234567", responses["phone"])
}

func TestMergeFormDataDoesNotMutateInputs(t *testing.T) {
	data := map[string]interface{}{
		"nested": map[string]interface{}{"a": 1},
	}
	delta := map[string]interface{}{
		"nested": map[string]interface{}{"b": 2},
	}

	_ = MergeFormData(data, delta)

	nested := data["nested"].(map[string]interface{})
	_, leaked := nested["b"]
	assert.False(t, leaked, "input map must not be mutated")
}

func TestMergeFormDataScalarReplacesMap(t *testing.T) {
	data := map[string]interface{}{"value": map[string]interface{}{"a": 1}}
	delta := map[string]interface{}{"value": "flat"}

	merged := MergeFormData(data, delta)
	assert.Equal(t, "flat", merged["value"])
}

func TestApplicationStateExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&ApplicationState{ExpiresAt: &future}).IsExpired(now))
	assert.True(t, (&ApplicationState{ExpiresAt: &past}).IsExpired(now))
	assert.False(t, (&ApplicationState{}).IsExpired(now), "no expiry means never expired")
}

func TestReferenceCodeValid(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	assert.True(t, (&ApplicationState{ReferenceCode: "ABC234", ReferenceCodeExpiresAt: &future}).ReferenceCodeValid(now))
	assert.False(t, (&ApplicationState{ReferenceCode: "ABC234", ReferenceCodeExpiresAt: &past}).ReferenceCodeValid(now))
	assert.False(t, (&ApplicationState{ReferenceCodeExpiresAt: &future}).ReferenceCodeValid(now), "no code set")
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusAccountOpened, StatusRejected, StatusCreditCheckPoorRejected}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}
	assert.False(t, StatusApproved.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
}
