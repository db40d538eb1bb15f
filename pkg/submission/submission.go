package submission

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormType identifies the target collection form.
type FormType string

const (
	FormFranchise FormType = "franchise_applications"
	FormAgent     FormType = "agent_applications"
	FormJob       FormType = "job_applications"
	FormLocation  FormType = "location_submissions"
)

// Submission is a unit of user-entered form data travelling toward the
// collection endpoint. It is either in flight, queued for retry, or resolved.
type Submission struct {
	QueueID   string            `json:"id"`
	FormType  FormType          `json:"form_type"`
	Payload   map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}

// New builds a Submission and assigns its queue ID. The ID is assigned once
// and never reused; {formType}_{millis} is unique enough for a single client.
func New(formType FormType, payload map[string]string) Submission {
	now := time.Now()
	return Submission{
		QueueID:   fmt.Sprintf("%s_%d", formType, now.UnixMilli()),
		FormType:  formType,
		Payload:   payload,
		CreatedAt: now,
	}
}

// IdentityKey groups a user's submissions for rate limiting. Keyed by email.
func (s Submission) IdentityKey() string {
	return strings.ToLower(strings.TrimSpace(s.Payload["email"]))
}

// Name returns whichever name field the form carried.
func (s Submission) Name() string {
	if v := s.Payload["name"]; v != "" {
		return v
	}
	return s.Payload["fullName"]
}

// SubmissionRecord is the history entry appended after successful delivery.
// Only the identity fields are retained, not the full payload.
type SubmissionRecord struct {
	ID          string    `json:"id"`
	FormType    FormType  `json:"form_type"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Record derives the truncated history entry for a delivered submission.
func (s Submission) Record(now time.Time) SubmissionRecord {
	return SubmissionRecord{
		ID:          uuid.NewString(),
		FormType:    s.FormType,
		Name:        s.Name(),
		Email:       s.IdentityKey(),
		Phone:       s.Payload["phone"],
		SubmittedAt: now,
	}
}
