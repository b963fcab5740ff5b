package records

import (
	"context"

	"mindmate/database"
	"mindmate/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// Repository persists booking attempt outcomes.
type Repository interface {
	Insert(ctx context.Context, record models.BookingRecord) error
	ListByPatient(ctx context.Context, patientID string) ([]models.BookingRecord, error)
}

type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepo returns a new Repository instance using MongoDB.
func NewMongoRecordRepo() Repository {
	db := database.MongoClient.Database("mindmate")
	return &mongoRecordRepo{
		coll: db.Collection("booking_records"),
	}
}
