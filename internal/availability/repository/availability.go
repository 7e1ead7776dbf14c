package repository

import (
	"context"
	"errors"
	"fmt"
	availabilityerrors "staybook/internal/availability/errors"
	"staybook/internal/calendar"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Availabilities"
)

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
	now        func() time.Time
}

type AvailabilityRepository interface {
	Create(ctx context.Context, a *model.Availability) error
	FindByID(ctx context.Context, id string) (*model.Availability, error)
	Update(ctx context.Context, a *model.Availability) error
	UpdateStatus(ctx context.Context, id string, status model.AvailabilityStatus) error
	Delete(ctx context.Context, id string) error
	// FindByAccommodation returns every interval of the accommodation ordered by start date.
	FindByAccommodation(ctx context.Context, accommodationID string) ([]*model.Availability, error)
	// FindOverlapping returns intervals with start_date <= to and end_date >= from, optionally
	// restricted to the given statuses, ordered by start date.
	FindOverlapping(ctx context.Context, accommodationID string, from, to time.Time, statuses ...model.AvailabilityStatus) ([]*model.Availability, error)
	// ExpireBefore marks AVAILABLE intervals ending before day as EXPIRED.
	ExpireBefore(ctx context.Context, day time.Time) (int64, error)
	// ApplyChanges persists calendar changes in order. Created intervals receive their IDs.
	ApplyChanges(ctx context.Context, changes []calendar.Change) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
		now:        time.Now,
	}
}

// withTimeout leaves a SessionContext untouched; wrapping it would detach the operation
// from its transaction.
func (r *mongoAvailabilityRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAvailabilityRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *mongoAvailabilityRepository) Create(ctx context.Context, a *model.Availability) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	a.ID = ""
	a.CreatedAt = r.timestamp()
	a.UpdatedAt = a.CreatedAt
	doc, err := toDocument(a)
	if err != nil {
		return err
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create availability: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAvailabilityRepository) FindByID(ctx context.Context, id string) (*model.Availability, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	var doc availabilityDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find availability: %w", err)
	}

	return doc.toModel()
}

func (r *mongoAvailabilityRepository) Update(ctx context.Context, a *model.Availability) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, a.ID)
	}
	price, err := toDecimal128(a.Price)
	if err != nil {
		return fmt.Errorf("failed to encode price %s: %w", a.Price, err)
	}

	a.UpdatedAt = r.timestamp()
	update := bson.M{
		"$set": bson.M{
			"start_date": a.StartDate,
			"end_date":   a.EndDate,
			"price":      price,
			"price_type": string(a.PriceType),
			"status":     string(a.Status),
			"updated_at": a.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	if result.MatchedCount == 0 {
		return availabilityerrors.ErrNotFound
	}
	return nil
}

func (r *mongoAvailabilityRepository) UpdateStatus(ctx context.Context, id string, status model.AvailabilityStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{"status": string(status), "updated_at": r.timestamp()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update availability status: %w", err)
	}
	if result.MatchedCount == 0 {
		return availabilityerrors.ErrNotFound
	}
	return nil
}

func (r *mongoAvailabilityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	if result.DeletedCount == 0 {
		return availabilityerrors.ErrNotFound
	}
	return nil
}

func (r *mongoAvailabilityRepository) FindByAccommodation(ctx context.Context, accommodationID string) ([]*model.Availability, error) {
	return r.find(ctx, bson.M{"accommodation_id": accommodationID})
}

func (r *mongoAvailabilityRepository) FindOverlapping(
	ctx context.Context,
	accommodationID string,
	from, to time.Time,
	statuses ...model.AvailabilityStatus,
) ([]*model.Availability, error) {
	return r.find(ctx, buildOverlapFilter(accommodationID, from, to, statuses))
}

func buildOverlapFilter(accommodationID string, from, to time.Time, statuses []model.AvailabilityStatus) bson.M {
	filter := bson.M{
		"accommodation_id": accommodationID,
		"start_date":       bson.M{"$lte": to},
		"end_date":         bson.M{"$gte": from},
	}
	if len(statuses) == 1 {
		filter["status"] = string(statuses[0])
	} else if len(statuses) > 1 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		filter["status"] = bson.M{"$in": values}
	}
	return filter
}

func (r *mongoAvailabilityRepository) find(ctx context.Context, filter bson.M) ([]*model.Availability, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availabilities: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []availabilityDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode availabilities: %w", err)
	}

	intervals := make([]*model.Availability, 0, len(docs))
	for i := range docs {
		a, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, a)
	}
	return intervals, nil
}

func (r *mongoAvailabilityRepository) ExpireBefore(ctx context.Context, day time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":   string(model.AvailabilityAvailable),
		"end_date": bson.M{"$lt": day},
	}
	update := bson.M{"$set": bson.M{"status": string(model.AvailabilityExpired), "updated_at": r.timestamp()}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire availabilities: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoAvailabilityRepository) ApplyChanges(ctx context.Context, changes []calendar.Change) error {
	for _, c := range changes {
		var err error
		switch c.Kind {
		case calendar.Created:
			err = r.Create(ctx, c.Interval)
		case calendar.Updated:
			err = r.Update(ctx, c.Interval)
		case calendar.StatusChanged:
			err = r.UpdateStatus(ctx, c.Interval.ID, c.Interval.Status)
		case calendar.Deleted:
			err = r.Delete(ctx, c.Interval.ID)
		default:
			err = fmt.Errorf("unknown calendar change kind %d", c.Kind)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s change: %w", c.Kind, err)
		}
	}
	return nil
}

func (r *mongoAvailabilityRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
