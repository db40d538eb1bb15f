package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validLocationPayload() map[string]string {
	return map[string]string{
		"email":        "a@b.com",
		"phone":        "9876543210",
		"name":         "A",
		"address":      "X",
		"locationType": "retail",
	}
}

func TestValidate_ValidLocationSubmission(t *testing.T) {
	errs := Validate(FormLocation, validLocationPayload())
	assert.Empty(t, errs)
}

func TestValidate_MissingEmail(t *testing.T) {
	payload := validLocationPayload()
	delete(payload, "email")

	errs := Validate(FormLocation, payload)
	assert.Contains(t, errs, "email is required")
}

func TestValidate_InvalidEmail(t *testing.T) {
	payload := validLocationPayload()
	payload["email"] = "not-an-address"

	errs := Validate(FormLocation, payload)
	assert.Contains(t, errs, "email is not a valid address")
}

func TestValidate_PhoneFormat(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{"plain ten digits", "9876543210", true},
		{"formatted number", "(987) 654-3210", true},
		{"leading five", "5876543210", false},
		{"too short", "98765", false},
		{"too long", "98765432100", false},
		{"empty", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := validLocationPayload()
			payload["phone"] = tc.phone

			errs := Validate(FormLocation, payload)
			if tc.valid {
				assert.Empty(t, errs)
			} else {
				assert.NotEmpty(t, errs)
			}
		})
	}
}

func TestValidate_AcceptsFullNameField(t *testing.T) {
	payload := validLocationPayload()
	delete(payload, "name")
	payload["fullName"] = "A B"

	errs := Validate(FormLocation, payload)
	assert.Empty(t, errs)
}

func TestValidate_FranchiseRequiredFields(t *testing.T) {
	payload := map[string]string{
		"email": "a@b.com",
		"phone": "9876543210",
		"name":  "A",
	}

	errs := Validate(FormFranchise, payload)
	assert.Contains(t, errs, "investmentCapacity is required")
	assert.Contains(t, errs, "city is required")
	assert.Contains(t, errs, "state is required")
}

func TestValidate_JobRequiredFields(t *testing.T) {
	payload := map[string]string{
		"email": "a@b.com",
		"phone": "9876543210",
		"name":  "A",
	}

	errs := Validate(FormJob, payload)
	assert.Contains(t, errs, "position is required")
	assert.Contains(t, errs, "experience is required")
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	errs := Validate(FormLocation, map[string]string{})
	// email, phone, name, address, locationType
	assert.Len(t, errs, 5)
}
