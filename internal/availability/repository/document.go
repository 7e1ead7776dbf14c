package repository

import (
	"fmt"
	availabilityerrors "staybook/internal/availability/errors"
	"staybook/pkg/model"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// availabilityDocument is the stored shape of an interval. Prices are kept as Decimal128 so
// equality in the merge pass survives a round trip.
type availabilityDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	AccommodationID string               `bson:"accommodation_id"`
	StartDate       time.Time            `bson:"start_date"`
	EndDate         time.Time            `bson:"end_date"`
	Price           primitive.Decimal128 `bson:"price"`
	PriceType       string               `bson:"price_type"`
	Status          string               `bson:"status"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidPrice, d.String())
	}
	return price, nil
}

func toDocument(a *model.Availability) (*availabilityDocument, error) {
	price, err := toDecimal128(a.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to encode price %s: %w", a.Price, err)
	}
	doc := &availabilityDocument{
		AccommodationID: a.AccommodationID,
		StartDate:       a.StartDate,
		EndDate:         a.EndDate,
		Price:           price,
		PriceType:       string(a.PriceType),
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.ID != "" {
		oid, err := primitive.ObjectIDFromHex(a.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, a.ID)
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d *availabilityDocument) toModel() (*model.Availability, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	return &model.Availability{
		ID:              d.ID.Hex(),
		AccommodationID: d.AccommodationID,
		StartDate:       d.StartDate.UTC(),
		EndDate:         d.EndDate.UTC(),
		Price:           price,
		PriceType:       model.PriceType(d.PriceType),
		Status:          model.AvailabilityStatus(d.Status),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}
