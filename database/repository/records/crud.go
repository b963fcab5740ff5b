package records

import (
	"context"
	"time"

	"mindmate/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Insert stores a booking outcome record.
func (r *mongoRecordRepo) Insert(ctx context.Context, record models.BookingRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, record)
	return err
}

// ListByPatient fetches all booking records for one patient, most
// recent first.
func (r *mongoRecordRepo) ListByPatient(ctx context.Context, patientID string) ([]models.BookingRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"patient_id": patientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.BookingRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
