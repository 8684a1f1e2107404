package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository"
)

// ResourceDocument is one payable resource, keyed by its reference.
type ResourceDocument struct {
	Reference     string                `bson:"_id"`
	PaymentStatus string                `bson:"paymentStatus,omitempty"`
	PaymentID     *string               `bson:"paymentId,omitempty"`
	PaymentDate   *time.Time            `bson:"paymentDate,omitempty"`
	PaymentAmount *primitive.Decimal128 `bson:"paymentAmount,omitempty"`
	PaymentMethod *string               `bson:"paymentMethod,omitempty"`
	PaidBy        *string               `bson:"paidBy,omitempty"`
	UpdatedAt     time.Time             `bson:"updatedAt,omitempty"`
}

type ResourceRepository struct {
	col *mongo.Collection
}

func NewResourceRepository(db *mongo.Database, collection string) *ResourceRepository {
	return &ResourceRepository{col: db.Collection(collection)}
}

// ApplyPayment runs the idempotency guard and the write as a single
// FindOneAndUpdate. When nothing matched, a count on the key tells a missing
// resource apart from a rejected guard.
func (r *ResourceRepository) ApplyPayment(ctx context.Context, app *entity.PaymentApplication) (repository.ApplyResult, error) {
	amount, err := primitive.ParseDecimal128(app.PaymentAmount.String())
	if err != nil {
		return 0, fmt.Errorf("convert payment amount: %w", err)
	}

	filter := bson.M{
		"_id":       app.Reference,
		"paymentId": bson.M{"$ne": app.PaymentID},
		"$or": bson.A{
			bson.M{"paymentDate": nil},
			bson.M{"paymentDate": bson.M{"$lte": app.PaymentDate}},
		},
	}

	set := bson.M{
		"paymentStatus": entity.PaymentStatusPaid,
		"paymentId":     app.PaymentID,
		"paymentDate":   app.PaymentDate,
		"paymentAmount": amount,
		"paymentMethod": app.PaymentMethod,
		"updatedAt":     app.AppliedAt,
	}
	update := bson.M{"$set": set}
	if app.PaidBy != "" {
		set["paidBy"] = app.PaidBy
	} else {
		update["$unset"] = bson.M{"paidBy": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated ResourceDocument
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return repository.ApplyResultApplied, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, err
	}

	count, err := r.col.CountDocuments(ctx, bson.M{"_id": app.Reference}, options.Count().SetLimit(1))
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, repository.ErrResourceNotFound
	}
	return repository.ApplyResultUnchanged, nil
}

func (r *ResourceRepository) FindByReference(ctx context.Context, reference string) (*entity.PayableResource, error) {
	var doc ResourceDocument
	err := r.col.FindOne(ctx, bson.M{"_id": reference}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return documentToResource(&doc)
}

// Insert creates a resource document. Existing documents are left untouched.
func (r *ResourceRepository) Insert(ctx context.Context, resource *entity.PayableResource) error {
	status := resource.PaymentStatus
	if status == "" {
		status = entity.PaymentStatusUnpaid
	}
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": resource.Reference},
		bson.M{"$setOnInsert": bson.M{"paymentStatus": status, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func documentToResource(doc *ResourceDocument) (*entity.PayableResource, error) {
	resource := &entity.PayableResource{
		Reference:     doc.Reference,
		PaymentStatus: doc.PaymentStatus,
		PaymentID:     doc.PaymentID,
		PaymentMethod: doc.PaymentMethod,
		PaidBy:        doc.PaidBy,
		UpdatedAt:     doc.UpdatedAt,
	}
	if resource.PaymentStatus == "" {
		resource.PaymentStatus = entity.PaymentStatusUnpaid
	}
	if doc.PaymentDate != nil {
		date := doc.PaymentDate.UTC()
		resource.PaymentDate = &date
	}
	if doc.PaymentAmount != nil {
		amount, err := decimal.NewFromString(doc.PaymentAmount.String())
		if err != nil {
			return nil, fmt.Errorf("parse payment amount: %w", err)
		}
		resource.PaymentAmount = &amount
	}
	return resource, nil
}
