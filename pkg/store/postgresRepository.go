package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/relaykit/go-submitq/pkg/submission"
)

// PostgresRepository backs relay-server deployments where several relay
// instances share one queue. Uses database/sql with lib/pq.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (p *PostgresRepository) Enqueue(ctx context.Context, sub submission.Submission) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Enqueue")
	defer span.End()

	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		span.RecordError(err)
		return err
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO retry_queue (id, form_type, payload, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		sub.QueueID, string(sub.FormType), string(payload), sub.CreatedAt.UnixMilli())
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (p *PostgresRepository) Dequeue(ctx context.Context, queueID string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Dequeue")
	defer span.End()

	_, err := p.db.ExecContext(ctx, `DELETE FROM retry_queue WHERE id = $1`, queueID)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (p *PostgresRepository) ListQueued(ctx context.Context) ([]submission.Submission, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListQueued")
	defer span.End()

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, form_type, payload, created_at FROM retry_queue ORDER BY created_at, id`)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	var subs []submission.Submission
	for rows.Next() {
		var (
			sub       submission.Submission
			formType  string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&sub.QueueID, &formType, &payload, &createdAt); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &sub.Payload); err != nil {
			span.RecordError(err)
			return nil, err
		}
		sub.FormType = submission.FormType(formType)
		sub.CreatedAt = time.UnixMilli(createdAt)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "postgresql", "ListQueued", len(subs))
	return subs, nil
}

func (p *PostgresRepository) AppendRecord(ctx context.Context, rec submission.SubmissionRecord) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "AppendRecord")
	defer span.End()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO submission_history (id, form_type, name, email, phone, submitted_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, string(rec.FormType), rec.Name, rec.Email, rec.Phone, rec.SubmittedAt.UnixMilli())
	if err != nil {
		span.RecordError(err)
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM submission_history WHERE id NOT IN (SELECT id FROM submission_history ORDER BY submitted_at DESC, id DESC LIMIT $1)`,
		historyCap)
	if err != nil {
		span.RecordError(err)
		return err
	}

	return tx.Commit()
}

func (p *PostgresRepository) CountRecent(ctx context.Context, identityKey string, formType submission.FormType, since time.Time) (int, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CountRecent")
	defer span.End()

	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submission_history WHERE email = $1 AND form_type = $2 AND submitted_at > $3`,
		identityKey, string(formType), since.UnixMilli()).Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return count, nil
}

func (p *PostgresRepository) ListRecords(ctx context.Context) ([]submission.SubmissionRecord, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListRecords")
	defer span.End()

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, form_type, name, email, phone, submitted_at FROM submission_history ORDER BY submitted_at DESC, id DESC`)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	addDBStatsToSpan(span, "postgresql", "ListRecords", len(records))
	return records, nil
}

func (p *PostgresRepository) Close() error {
	return p.db.Close()
}
