package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/go-submitq/pkg/submission"
)

func queuedSubmission(id string) submission.Submission {
	return submission.Submission{
		QueueID:   id,
		FormType:  submission.FormLocation,
		Payload:   map[string]string{"email": "a@b.com", "phone": "9876543210", "name": "A"},
		CreatedAt: time.Now(),
	}
}

func TestMemoryRepository_EnqueueIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	sub := queuedSubmission("location_submissions_1")
	require.NoError(t, repo.Enqueue(ctx, sub))
	require.NoError(t, repo.Enqueue(ctx, sub))

	queued, err := repo.ListQueued(ctx)
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestMemoryRepository_FIFOOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Enqueue(ctx, queuedSubmission(id)))
	}

	queued, err := repo.ListQueued(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 3)
	assert.Equal(t, "a", queued[0].QueueID)
	assert.Equal(t, "b", queued[1].QueueID)
	assert.Equal(t, "c", queued[2].QueueID)
}

func TestMemoryRepository_Dequeue(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Enqueue(ctx, queuedSubmission("a")))
	require.NoError(t, repo.Enqueue(ctx, queuedSubmission("b")))
	require.NoError(t, repo.Dequeue(ctx, "a"))

	queued, err := repo.ListQueued(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "b", queued[0].QueueID)

	// removing an absent entry is not an error
	assert.NoError(t, repo.Dequeue(ctx, "gone"))
}

func TestMemoryRepository_BoundedHistory(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	for i := 0; i < 60; i++ {
		rec := submission.SubmissionRecord{
			ID:          fmt.Sprintf("rec-%02d", i),
			FormType:    submission.FormAgent,
			Email:       "x@y.com",
			SubmittedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.AppendRecord(ctx, rec))
	}

	records, err := repo.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 50)

	// newest first; the oldest 10 were evicted
	assert.Equal(t, "rec-59", records[0].ID)
	assert.Equal(t, "rec-10", records[49].ID)
}

func TestMemoryRepository_CountRecent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AppendRecord(ctx, submission.SubmissionRecord{
			ID:          fmt.Sprintf("r%d", i),
			FormType:    submission.FormAgent,
			Email:       "x@y.com",
			SubmittedAt: now.Add(-time.Duration(i) * time.Minute),
		}))
	}
	// outside the window
	require.NoError(t, repo.AppendRecord(ctx, submission.SubmissionRecord{
		ID:          "old",
		FormType:    submission.FormAgent,
		Email:       "x@y.com",
		SubmittedAt: now.Add(-2 * time.Hour),
	}))
	// different identity and form type
	require.NoError(t, repo.AppendRecord(ctx, submission.SubmissionRecord{
		ID:          "other-user",
		FormType:    submission.FormAgent,
		Email:       "z@y.com",
		SubmittedAt: now,
	}))
	require.NoError(t, repo.AppendRecord(ctx, submission.SubmissionRecord{
		ID:          "other-form",
		FormType:    submission.FormJob,
		Email:       "x@y.com",
		SubmittedAt: now,
	}))

	count, err := repo.CountRecent(ctx, "x@y.com", submission.FormAgent, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.CountRecent(ctx, "z@y.com", submission.FormAgent, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
