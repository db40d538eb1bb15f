package submission

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_AssignsQueueID(t *testing.T) {
	sub := New(FormLocation, map[string]string{"email": "a@b.com"})

	assert.True(t, strings.HasPrefix(sub.QueueID, "location_submissions_"))
	assert.False(t, sub.CreatedAt.IsZero())
}

func TestIdentityKey_NormalizesEmail(t *testing.T) {
	sub := New(FormAgent, map[string]string{"email": "  X@Y.Com "})
	assert.Equal(t, "x@y.com", sub.IdentityKey())
}

func TestName_PrefersNameOverFullName(t *testing.T) {
	sub := New(FormJob, map[string]string{"name": "A", "fullName": "A B"})
	assert.Equal(t, "A", sub.Name())

	sub = New(FormJob, map[string]string{"fullName": "A B"})
	assert.Equal(t, "A B", sub.Name())
}

func TestRecord_TruncatesPayload(t *testing.T) {
	sub := New(FormFranchise, map[string]string{
		"email":              "a@b.com",
		"phone":              "9876543210",
		"name":               "A",
		"investmentCapacity": "5-10 lakh",
		"city":               "Pune",
	})

	now := time.Now()
	rec := sub.Record(now)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, FormFranchise, rec.FormType)
	assert.Equal(t, "A", rec.Name)
	assert.Equal(t, "a@b.com", rec.Email)
	assert.Equal(t, "9876543210", rec.Phone)
	assert.Equal(t, now, rec.SubmittedAt)
}
