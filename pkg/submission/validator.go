package submission

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Form-specific required fields, layered on top of the universal checks.
var requiredByForm = map[FormType][]string{
	FormFranchise: {"investmentCapacity", "city", "state"},
	FormJob:       {"position", "experience"},
	FormLocation:  {"address", "locationType"},
}

// Validate checks the required fields and format constraints for the given
// form type. It is pure, performs no I/O, and collects every violated rule
// rather than stopping at the first.
func Validate(formType FormType, payload map[string]string) []string {
	var errs []string

	email := strings.TrimSpace(payload["email"])
	switch {
	case email == "":
		errs = append(errs, "email is required")
	case validate.Var(email, "email") != nil:
		errs = append(errs, "email is not a valid address")
	}

	phone := keepDigits(payload["phone"])
	switch {
	case phone == "":
		errs = append(errs, "phone is required")
	case len(phone) != 10 || phone[0] < '6' || phone[0] > '9':
		errs = append(errs, "phone must be a valid 10-digit mobile number")
	}

	if strings.TrimSpace(payload["name"]) == "" && strings.TrimSpace(payload["fullName"]) == "" {
		errs = append(errs, "name is required")
	}

	for _, field := range requiredByForm[formType] {
		if strings.TrimSpace(payload[field]) == "" {
			errs = append(errs, field+" is required")
		}
	}

	return errs
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
