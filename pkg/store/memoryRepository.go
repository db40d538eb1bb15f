package store

import (
	"context"
	"sync"
	"time"

	"github.com/relaykit/go-submitq/pkg/submission"
)

// MemoryRepository keeps the queue and ledger in process memory. Used for
// tests and ephemeral runs; nothing survives a restart. A mutex serializes
// read-modify-write so concurrent submissions cannot lose entries.
type MemoryRepository struct {
	mu      sync.Mutex
	queue   []submission.Submission
	history []submission.SubmissionRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Enqueue(ctx context.Context, sub submission.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, queued := range m.queue {
		if queued.QueueID == sub.QueueID {
			return nil
		}
	}
	m.queue = append(m.queue, sub)
	return nil
}

func (m *MemoryRepository) Dequeue(ctx context.Context, queueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, queued := range m.queue {
		if queued.QueueID == queueID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) ListQueued(ctx context.Context) ([]submission.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]submission.Submission, len(m.queue))
	copy(out, m.queue)
	return out, nil
}

func (m *MemoryRepository) AppendRecord(ctx context.Context, rec submission.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, rec)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}
	return nil
}

func (m *MemoryRepository) CountRecent(ctx context.Context, identityKey string, formType submission.FormType, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, rec := range m.history {
		if rec.Email == identityKey && rec.FormType == formType && rec.SubmittedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryRepository) ListRecords(ctx context.Context) ([]submission.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]submission.SubmissionRecord, len(m.history))
	for i, rec := range m.history {
		out[len(m.history)-1-i] = rec
	}
	return out, nil
}

func (m *MemoryRepository) Close() error {
	return nil
}
