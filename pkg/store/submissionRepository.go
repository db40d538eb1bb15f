package store

import (
	"context"
	"time"

	"github.com/relaykit/go-submitq/pkg/submission"
)

// SubmissionRepository defines the durable operations behind the retry queue
// and the delivery ledger. Implementations must serialize their own writes:
// concurrent submissions share the same queue and history collections.
type SubmissionRepository interface {
	// Enqueue persists a submission that failed to deliver. Idempotent:
	// re-enqueueing an ID already present has no duplicate effect.
	Enqueue(ctx context.Context, sub submission.Submission) error
	// Dequeue removes a queue entry after successful redelivery.
	Dequeue(ctx context.Context, queueID string) error
	// ListQueued returns the current queue contents, oldest first.
	ListQueued(ctx context.Context) ([]submission.Submission, error)

	// AppendRecord appends a history entry for a delivered submission and
	// evicts the oldest entries beyond the history cap.
	AppendRecord(ctx context.Context, rec submission.SubmissionRecord) error
	// CountRecent counts delivered submissions for an identity and form type
	// since the given instant.
	CountRecent(ctx context.Context, identityKey string, formType submission.FormType, since time.Time) (int, error)
	// ListRecords returns the delivery history, newest first.
	ListRecords(ctx context.Context) ([]submission.SubmissionRecord, error)

	// Close releases the underlying storage resources.
	Close() error
}
