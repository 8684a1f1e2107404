package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository"
)

type AuditDocument struct {
	Key           string    `bson:"_id"`
	TransactionID string    `bson:"transactionId"`
	Reference     string    `bson:"reference,omitempty"`
	Status        string    `bson:"status"`
	Reason        string    `bson:"reason,omitempty"`
	Amount        int64     `bson:"amount"`
	Mode          string    `bson:"mode,omitempty"`
	Source        string    `bson:"source"`
	Payload       string    `bson:"payload,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
}

type AuditRepository struct {
	col *mongo.Collection
}

// NewAuditRepository also makes sure the transaction lookup index exists.
func NewAuditRepository(ctx context.Context, db *mongo.Database, collection string) *AuditRepository {
	col := db.Collection(collection)

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "transactionId", Value: 1}, {Key: "createdAt", Value: 1}},
	}
	indexCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, _ = col.Indexes().CreateOne(indexCtx, indexModel)

	return &AuditRepository{col: col}
}

func (r *AuditRepository) Append(ctx context.Context, record *entity.PaymentAuditRecord) error {
	_, err := r.col.InsertOne(ctx, &AuditDocument{
		Key:           record.Key,
		TransactionID: record.TransactionID,
		Reference:     record.Reference,
		Status:        record.Status,
		Reason:        record.Reason,
		Amount:        record.Amount,
		Mode:          record.Mode,
		Source:        record.Source,
		Payload:       record.Payload,
		CreatedAt:     record.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrAuditKeyExists
	}
	return err
}
