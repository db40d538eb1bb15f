package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/relaykit/go-submitq/pkg/submission"
)

const (
	queueCollection   = "retry_queue"
	historyCollection = "submission_history"
)

type MongoRepository struct {
	client   *mongo.Client
	database string
}

func NewMongoRepository(client *mongo.Client, database string) *MongoRepository {
	return &MongoRepository{
		client:   client,
		database: database,
	}
}

type queueDoc struct {
	ID        string            `bson:"_id"`
	FormType  string            `bson:"form_type"`
	Payload   map[string]string `bson:"payload"`
	CreatedAt int64             `bson:"created_at"`
}

type recordDoc struct {
	ID          string `bson:"_id"`
	FormType    string `bson:"form_type"`
	Name        string `bson:"name"`
	Email       string `bson:"email"`
	Phone       string `bson:"phone"`
	SubmittedAt int64  `bson:"submitted_at"`
}

func (m *MongoRepository) Enqueue(ctx context.Context, sub submission.Submission) error {
	coll := m.client.Database(m.database).Collection(queueCollection)

	doc := queueDoc{
		ID:        sub.QueueID,
		FormType:  string(sub.FormType),
		Payload:   sub.Payload,
		CreatedAt: sub.CreatedAt.UnixMilli(),
	}

	// $setOnInsert with upsert keeps enqueue idempotent on the queue ID.
	_, err := coll.UpdateOne(ctx,
		bson.M{"_id": sub.QueueID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true))
	return err
}

func (m *MongoRepository) Dequeue(ctx context.Context, queueID string) error {
	coll := m.client.Database(m.database).Collection(queueCollection)
	_, err := coll.DeleteOne(ctx, bson.M{"_id": queueID})
	return err
}

func (m *MongoRepository) ListQueued(ctx context.Context) ([]submission.Submission, error) {
	coll := m.client.Database(m.database).Collection(queueCollection)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []submission.Submission
	for cursor.Next(ctx) {
		var doc queueDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		subs = append(subs, submission.Submission{
			QueueID:   doc.ID,
			FormType:  submission.FormType(doc.FormType),
			Payload:   doc.Payload,
			CreatedAt: time.UnixMilli(doc.CreatedAt),
		})
	}
	return subs, cursor.Err()
}

func (m *MongoRepository) AppendRecord(ctx context.Context, rec submission.SubmissionRecord) error {
	coll := m.client.Database(m.database).Collection(historyCollection)

	doc := recordDoc{
		ID:          rec.ID,
		FormType:    string(rec.FormType),
		Name:        rec.Name,
		Email:       rec.Email,
		Phone:       rec.Phone,
		SubmittedAt: rec.SubmittedAt.UnixMilli(),
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return err
	}

	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count <= historyCap {
		return nil
	}

	// Evict the oldest entries beyond the cap.
	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(count - historyCap).
		SetProjection(bson.M{"_id": 1})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	_, err = coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (m *MongoRepository) CountRecent(ctx context.Context, identityKey string, formType submission.FormType, since time.Time) (int, error) {
	coll := m.client.Database(m.database).Collection(historyCollection)

	count, err := coll.CountDocuments(ctx, bson.M{
		"email":        identityKey,
		"form_type":    string(formType),
		"submitted_at": bson.M{"$gt": since.UnixMilli()},
	})
	return int(count), err
}

func (m *MongoRepository) ListRecords(ctx context.Context) ([]submission.SubmissionRecord, error) {
	coll := m.client.Database(m.database).Collection(historyCollection)

	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []submission.SubmissionRecord
	for cursor.Next(ctx) {
		var doc recordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, submission.SubmissionRecord{
			ID:          doc.ID,
			FormType:    submission.FormType(doc.FormType),
			Name:        doc.Name,
			Email:       doc.Email,
			Phone:       doc.Phone,
			SubmittedAt: time.UnixMilli(doc.SubmittedAt),
		})
	}
	return records, cursor.Err()
}

func (m *MongoRepository) Close() error {
	return m.client.Disconnect(context.Background())
}
