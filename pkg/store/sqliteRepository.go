package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/relaykit/go-submitq/pkg/submission"
)

// SqliteRepository is the default backend: a local database file that
// survives process restarts, which is the one durability requirement the
// retry queue carries.
type SqliteRepository struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS retry_queue (
	id TEXT PRIMARY KEY,
	form_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS submission_history (
	id TEXT PRIMARY KEY,
	form_type TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	submitted_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_identity ON submission_history (email, form_type, submitted_at);
`

func NewSqliteRepository(path string) (*SqliteRepository, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// single writer connection serializes read-modify-write on the file
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &SqliteRepository{db: db}, nil
}

func (s *SqliteRepository) Enqueue(ctx context.Context, sub submission.Submission) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Enqueue")
	defer span.End()

	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		span.RecordError(err)
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO retry_queue (id, form_type, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		sub.QueueID, string(sub.FormType), string(payload), sub.CreatedAt.UnixMilli())
	if err != nil {
		span.RecordError(err)
		return err
	}
	addDBStatsToSpan(span, "sqlite", "Enqueue", 1)
	return nil
}

func (s *SqliteRepository) Dequeue(ctx context.Context, queueID string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Dequeue")
	defer span.End()

	_, err := s.db.ExecContext(ctx, `DELETE FROM retry_queue WHERE id = ?`, queueID)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *SqliteRepository) ListQueued(ctx context.Context) ([]submission.Submission, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListQueued")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
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

	addDBStatsToSpan(span, "sqlite", "ListQueued", len(subs))
	return subs, nil
}

func (s *SqliteRepository) AppendRecord(ctx context.Context, rec submission.SubmissionRecord) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "AppendRecord")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO submission_history (id, form_type, name, email, phone, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.FormType), rec.Name, rec.Email, rec.Phone, rec.SubmittedAt.UnixMilli())
	if err != nil {
		span.RecordError(err)
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM submission_history WHERE id NOT IN
		 (SELECT id FROM submission_history ORDER BY submitted_at DESC, id DESC LIMIT ?)`,
		historyCap)
	if err != nil {
		span.RecordError(err)
		return err
	}

	return tx.Commit()
}

func (s *SqliteRepository) CountRecent(ctx context.Context, identityKey string, formType submission.FormType, since time.Time) (int, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CountRecent")
	defer span.End()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submission_history WHERE email = ? AND form_type = ? AND submitted_at > ?`,
		identityKey, string(formType), since.UnixMilli()).Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return count, nil
}

func (s *SqliteRepository) ListRecords(ctx context.Context) ([]submission.SubmissionRecord, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListRecords")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, form_type, name, email, phone, submitted_at FROM submission_history
		 ORDER BY submitted_at DESC, id DESC`)
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
	addDBStatsToSpan(span, "sqlite", "ListRecords", len(records))
	return records, nil
}

func (s *SqliteRepository) Close() error {
	return s.db.Close()
}

// scanRecords is shared by the database/sql backed repositories.
func scanRecords(rows *sql.Rows) ([]submission.SubmissionRecord, error) {
	var records []submission.SubmissionRecord
	for rows.Next() {
		var (
			rec         submission.SubmissionRecord
			formType    string
			submittedAt int64
		)
		if err := rows.Scan(&rec.ID, &formType, &rec.Name, &rec.Email, &rec.Phone, &submittedAt); err != nil {
			return nil, err
		}
		rec.FormType = submission.FormType(formType)
		rec.SubmittedAt = time.UnixMilli(submittedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}
