package store

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/relaykit/go-submitq/pkg/submission"
)

// SpannerRepository backs cloud-hosted relay deployments.
type SpannerRepository struct {
	client *spanner.Client
}

func (s *SpannerRepository) Enqueue(ctx context.Context, sub submission.Submission) error {
	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		return err
	}

	// InsertOrUpdate keeps enqueue idempotent: re-writing the same queue ID
	// with the same submission has no duplicate effect.
	_, err = s.client.Apply(ctx, []*spanner.Mutation{
		spanner.InsertOrUpdateMap("retry_queue", map[string]interface{}{
			"id":         sub.QueueID,
			"form_type":  string(sub.FormType),
			"payload":    string(payload),
			"created_at": sub.CreatedAt.UnixMilli(),
		}),
	})
	return err
}

func (s *SpannerRepository) Dequeue(ctx context.Context, queueID string) error {
	_, err := s.client.Apply(ctx, []*spanner.Mutation{
		spanner.Delete("retry_queue", spanner.Key{queueID}),
	})
	return err
}

func (s *SpannerRepository) ListQueued(ctx context.Context) ([]submission.Submission, error) {
	stmt := spanner.Statement{
		SQL: `SELECT id, form_type, payload, created_at FROM retry_queue ORDER BY created_at, id`,
	}

	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var subs []submission.Submission
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var (
			sub       submission.Submission
			formType  string
			payload   string
			createdAt int64
		)
		if err := row.Columns(&sub.QueueID, &formType, &payload, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &sub.Payload); err != nil {
			return nil, err
		}
		sub.FormType = submission.FormType(formType)
		sub.CreatedAt = time.UnixMilli(createdAt)
		subs = append(subs, sub)
	}

	return subs, nil
}

func (s *SpannerRepository) AppendRecord(ctx context.Context, rec submission.SubmissionRecord) error {
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `INSERT INTO submission_history (id, form_type, name, email, phone, submitted_at)
			      VALUES (@id, @formType, @name, @email, @phone, @submittedAt)`,
			Params: map[string]interface{}{
				"id":          rec.ID,
				"formType":    string(rec.FormType),
				"name":        rec.Name,
				"email":       rec.Email,
				"phone":       rec.Phone,
				"submittedAt": rec.SubmittedAt.UnixMilli(),
			},
		}
		if _, err := txn.Update(ctx, stmt); err != nil {
			return err
		}

		// Evict everything past the cap, oldest first.
		iter := txn.Query(ctx, spanner.Statement{
			SQL: `SELECT id FROM submission_history ORDER BY submitted_at DESC, id DESC`,
		})
		defer iter.Stop()

		var overflow []string
		idx := 0
		for {
			row, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			if idx >= historyCap {
				var id string
				if err := row.Columns(&id); err != nil {
					return err
				}
				overflow = append(overflow, id)
			}
			idx++
		}

		for _, id := range overflow {
			if err := txn.BufferWrite([]*spanner.Mutation{
				spanner.Delete("submission_history", spanner.Key{id}),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func (s *SpannerRepository) CountRecent(ctx context.Context, identityKey string, formType submission.FormType, since time.Time) (int, error) {
	stmt := spanner.Statement{
		SQL: `SELECT COUNT(*) FROM submission_history
		      WHERE email = @email AND form_type = @formType AND submitted_at > @since`,
		Params: map[string]interface{}{
			"email":    identityKey,
			"formType": string(formType),
			"since":    since.UnixMilli(),
		},
	}

	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Columns(&count); err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *SpannerRepository) ListRecords(ctx context.Context) ([]submission.SubmissionRecord, error) {
	stmt := spanner.Statement{
		SQL: `SELECT id, form_type, name, email, phone, submitted_at FROM submission_history
		      ORDER BY submitted_at DESC, id DESC`,
	}

	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var records []submission.SubmissionRecord
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var (
			rec         submission.SubmissionRecord
			formType    string
			submittedAt int64
		)
		if err := row.Columns(&rec.ID, &formType, &rec.Name, &rec.Email, &rec.Phone, &submittedAt); err != nil {
			return nil, err
		}
		rec.FormType = submission.FormType(formType)
		rec.SubmittedAt = time.UnixMilli(submittedAt)
		records = append(records, rec)
	}

	return records, nil
}

func (s *SpannerRepository) Close() error {
	s.client.Close()
	return nil
}
