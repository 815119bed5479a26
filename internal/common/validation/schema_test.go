package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReceiver = `{"age": 40, "location": "Maharashtra", "bloodGroup": "o+", "organNeeded": "Kidney", "tissueType": "Type1", "urgency": 2}`

func TestMatchRequestSchema(t *testing.T) {
	schema := MustCompile(MatchRequestSchema)

	tests := []struct {
		name       string
		doc        string
		valid      bool
		errorField string
	}{
		{"minimal", `{"receiver": ` + validReceiver + `}`, true, ""},
		{"with selection", `{"receiver": ` + validReceiver + `, "threshold": 0.7, "topK": 3}`, true, ""},
		{"missing receiver", `{"threshold": 0.5}`, false, ""},
		{"age too high", `{"receiver": {"age": 121, "location": "Goa", "bloodGroup": "A+", "organNeeded": "Liver", "tissueType": "HLA-A", "urgency": 0}}`, false, "receiver.age"},
		{"urgency out of range", `{"receiver": {"age": 30, "location": "Goa", "bloodGroup": "A+", "organNeeded": "Liver", "tissueType": "HLA-A", "urgency": 3}}`, false, "receiver.urgency"},
		{"bad blood group", `{"receiver": {"age": 30, "location": "Goa", "bloodGroup": "C+", "organNeeded": "Liver", "tissueType": "HLA-A", "urgency": 1}}`, false, "receiver.bloodGroup"},
		{"blank location", `{"receiver": {"age": 30, "location": "  ", "bloodGroup": "A+", "organNeeded": "Liver", "tissueType": "HLA-A", "urgency": 1}}`, false, "receiver.location"},
		{"threshold of one", `{"receiver": ` + validReceiver + `, "threshold": 1}`, false, "threshold"},
		{"fractional age", `{"receiver": {"age": 30.5, "location": "Goa", "bloodGroup": "A+", "organNeeded": "Liver", "tissueType": "HLA-A", "urgency": 1}}`, false, "receiver.age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := schema.ValidateJSON([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.GetErrorMessages())
			if tt.errorField != "" {
				assert.True(t, result.HasErrors(tt.errorField), result.GetErrorMessages())
			}
		})
	}
}

func TestMatchRequestSchema_RequiredFieldsReported(t *testing.T) {
	schema := MustCompile(MatchRequestSchema)

	result, err := schema.ValidateJSON([]byte(`{"receiver": {"location": "Goa"}}`))
	require.NoError(t, err)
	assert.False(t, result.Valid)

	assert.Len(t, result.Errors, 5)
	joined := strings.Join(result.GetErrorMessages(), "\n")
	for _, field := range []string{"age", "bloodGroup", "organNeeded", "tissueType", "urgency"} {
		assert.Contains(t, joined, field)
	}
	for _, e := range result.Errors {
		assert.Equal(t, "required", e.Code)
	}
}

func TestEligibilityRequestSchema_GoValue(t *testing.T) {
	schema := MustCompile(EligibilityRequestSchema)

	doc := map[string]interface{}{
		"donor": map[string]interface{}{
			"donorId":                "D1",
			"age":                    38,
			"location":               "Maharashtra",
			"bloodGroup":             "O-",
			"organ":                  "Kidney",
			"organTissueType":        "Type1",
			"organHealthScore":       80,
			"hospitalTransportation": false,
		},
		"receiver": map[string]interface{}{
			"age": 40, "location": "Goa", "bloodGroup": "AB+",
			"organNeeded": "Kidney", "tissueType": "Type1", "urgency": 1,
		},
	}

	result, err := schema.Validate(doc)
	require.NoError(t, err)
	assert.True(t, result.Valid, result.GetErrorMessages())

	doc["donor"].(map[string]interface{})["organHealthScore"] = 101
	result, err = schema.Validate(doc)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("donor.organHealthScore"))
}

func TestNotificationRequestSchema(t *testing.T) {
	schema := MustCompile(NotificationRequestSchema)

	result, err := schema.ValidateJSON([]byte(`{"requestId": "r-1", "urgency": 2, "matches": [{"donorId": "D1", "matchProbability": 0.9}]}`))
	require.NoError(t, err)
	assert.True(t, result.Valid, result.GetErrorMessages())

	result, err = schema.ValidateJSON([]byte(`{"requestId": "r-1", "matches": [{"matchProbability": 1.5}]}`))
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`not json`) })
}

func TestValidateJSON_MalformedDocument(t *testing.T) {
	schema := MustCompile(MatchRequestSchema)
	_, err := schema.ValidateJSON([]byte(`{"receiver": `))
	assert.Error(t, err)
}

func TestContactFormats(t *testing.T) {
	assert.True(t, ValidateEmail("transplant@kem.example.in"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.True(t, ValidatePhone("+91 22 2410 7000"))
	assert.False(t, ValidatePhone("12345"))
}
