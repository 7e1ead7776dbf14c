package repository

import (
	"context"
	"errors"
	"fmt"
	reservationerrors "staybook/internal/reservations/errors"
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
	RequestsCollectionName     = "Reservation_requests"
	ReservationsCollectionName = "Reservations"
)

type mongoReservationRepository struct {
	cfg          *config.Config
	db           *mongo.Database
	requests     *mongo.Collection
	reservations *mongo.Collection
	txManager    mongotx.TransactionManager
	now          func() time.Time
}

// ReservationRepository stores reservation requests and the reservations created from them.
// Date bounds are inclusive and always passed as (from, to).
type ReservationRepository interface {
	CreateRequest(ctx context.Context, req *model.ReservationRequest) error
	FindRequestByID(ctx context.Context, id string) (*model.ReservationRequest, error)
	// UpdateRequest replaces the stay dates and party size of a request.
	UpdateRequest(ctx context.Context, req *model.ReservationRequest) error
	UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) error
	DeleteRequest(ctx context.Context, id string) error
	FindRequestsByGuest(ctx context.Context, guestID, accommodationID string) ([]*model.ReservationRequest, error)
	// FindRequestsByAccommodation returns the accommodation's requests, newest first.
	FindRequestsByAccommodation(ctx context.Context, accommodationID string) ([]*model.ReservationRequest, error)
	// FindPendingOverlapping returns PENDING requests of the accommodation overlapping [from, to],
	// leaving out excludeID.
	FindPendingOverlapping(ctx context.Context, accommodationID string, from, to time.Time, excludeID string) ([]*model.ReservationRequest, error)

	CreateReservation(ctx context.Context, res *model.Reservation) error
	FindReservationByRequest(ctx context.Context, requestID string) (*model.Reservation, error)
	FindReservationsByRequests(ctx context.Context, requestIDs []string) ([]*model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus) error
	FindConfirmedOverlapping(ctx context.Context, accommodationID string, from, to time.Time) ([]*model.Reservation, error)
	CountByGuestAndStatus(ctx context.Context, guestID string, status model.ReservationStatus) (int64, error)
	// CompleteBefore moves CONFIRMED reservations ending before day to COMPLETED.
	CompleteBefore(ctx context.Context, day time.Time) (int64, error)
	// ExistsCompletedStay reports a COMPLETED reservation of the guest in any of the
	// accommodations that ended before day.
	ExistsCompletedStay(ctx context.Context, guestID string, accommodationIDs []string, day time.Time) (bool, error)
	ExistsConfirmedForGuest(ctx context.Context, guestID string) (bool, error)
	// ExistsConfirmedEndingAfter reports a CONFIRMED reservation in any of the accommodations
	// ending after day.
	ExistsConfirmedEndingAfter(ctx context.Context, accommodationIDs []string, day time.Time) (bool, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:          cfg,
		db:           db,
		requests:     db.Collection(RequestsCollectionName),
		reservations: db.Collection(ReservationsCollectionName),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
		now:          time.Now,
	}
}

// withTimeout leaves a SessionContext untouched; wrapping it would detach the operation
// from its transaction.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoReservationRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", reservationerrors.ErrInvalidID, id)
	}
	return oid, nil
}

// --- Requests ---

func (r *mongoReservationRepository) CreateRequest(ctx context.Context, req *model.ReservationRequest) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	req.ID = ""
	req.CreatedAt = r.timestamp()
	req.UpdatedAt = req.CreatedAt

	result, err := r.requests.InsertOne(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create reservation request: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		req.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindRequestByID(ctx context.Context, id string) (*model.ReservationRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var req model.ReservationRequest
	err = r.requests.FindOne(ctx, bson.M{"_id": oid}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation request: %w", err)
	}

	return &req, nil
}

func (r *mongoReservationRepository) UpdateRequest(ctx context.Context, req *model.ReservationRequest) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(req.ID)
	if err != nil {
		return err
	}

	req.UpdatedAt = r.timestamp()
	update := bson.M{
		"$set": bson.M{
			"start_date":  req.StartDate,
			"end_date":    req.EndDate,
			"guest_count": req.GuestCount,
			"updated_at":  req.UpdatedAt,
		},
	}

	result, err := r.requests.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation request: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationerrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"status": status, "updated_at": r.timestamp()}}
	result, err := r.requests.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation request status: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationerrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) DeleteRequest(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.requests.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete reservation request: %w", err)
	}
	if result.DeletedCount == 0 {
		return reservationerrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) FindRequestsByGuest(ctx context.Context, guestID, accommodationID string) ([]*model.ReservationRequest, error) {
	filter := bson.M{"guest_id": guestID}
	if accommodationID != "" {
		filter["accommodation_id"] = accommodationID
	}
	return r.findRequests(ctx, filter)
}

func (r *mongoReservationRepository) FindRequestsByAccommodation(ctx context.Context, accommodationID string) ([]*model.ReservationRequest, error) {
	return r.findRequests(ctx, bson.M{"accommodation_id": accommodationID})
}

func (r *mongoReservationRepository) FindPendingOverlapping(
	ctx context.Context,
	accommodationID string,
	from, to time.Time,
	excludeID string,
) ([]*model.ReservationRequest, error) {
	filter := overlapFilter(accommodationID, from, to)
	filter["status"] = model.RequestPending
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	return r.findRequests(ctx, filter)
}

func (r *mongoReservationRepository) findRequests(ctx context.Context, filter bson.M) ([]*model.ReservationRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.requests.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []*model.ReservationRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode reservation requests: %w", err)
	}
	return requests, nil
}

// --- Reservations ---

func (r *mongoReservationRepository) CreateReservation(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res.ID = ""
	res.UpdatedAt = r.timestamp()

	result, err := r.reservations.InsertOne(ctx, res)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", reservationerrors.ErrDuplicateReservation, res.RequestID)
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		res.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindReservationByRequest(ctx context.Context, requestID string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var res model.Reservation
	err := r.reservations.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationerrors.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &res, nil
}

func (r *mongoReservationRepository) FindReservationsByRequests(ctx context.Context, requestIDs []string) ([]*model.Reservation, error) {
	if len(requestIDs) == 0 {
		return []*model.Reservation{}, nil
	}
	return r.findReservations(ctx, bson.M{"request_id": bson.M{"$in": requestIDs}})
}

func (r *mongoReservationRepository) UpdateReservationStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"status": status, "updated_at": r.timestamp()}}
	result, err := r.reservations.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationerrors.ErrReservationNotFound
	}
	return nil
}

func (r *mongoReservationRepository) FindConfirmedOverlapping(ctx context.Context, accommodationID string, from, to time.Time) ([]*model.Reservation, error) {
	filter := overlapFilter(accommodationID, from, to)
	filter["status"] = model.ReservationConfirmed
	return r.findReservations(ctx, filter)
}

func (r *mongoReservationRepository) findReservations(ctx context.Context, filter bson.M) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := r.reservations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	reservations := []*model.Reservation{}
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) CountByGuestAndStatus(ctx context.Context, guestID string, status model.ReservationStatus) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.reservations.CountDocuments(ctx, bson.M{"guest_id": guestID, "status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) CompleteBefore(ctx context.Context, day time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.ReservationConfirmed,
		"end_date": bson.M{"$lt": day},
	}
	update := bson.M{"$set": bson.M{"status": model.ReservationCompleted, "updated_at": r.timestamp()}}

	result, err := r.reservations.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to complete reservations: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoReservationRepository) ExistsCompletedStay(ctx context.Context, guestID string, accommodationIDs []string, day time.Time) (bool, error) {
	if len(accommodationIDs) == 0 {
		return false, nil
	}
	return r.exists(ctx, bson.M{
		"guest_id":         guestID,
		"accommodation_id": bson.M{"$in": accommodationIDs},
		"status":           model.ReservationCompleted,
		"end_date":         bson.M{"$lt": day},
	})
}

func (r *mongoReservationRepository) ExistsConfirmedForGuest(ctx context.Context, guestID string) (bool, error) {
	return r.exists(ctx, bson.M{"guest_id": guestID, "status": model.ReservationConfirmed})
}

func (r *mongoReservationRepository) ExistsConfirmedEndingAfter(ctx context.Context, accommodationIDs []string, day time.Time) (bool, error) {
	if len(accommodationIDs) == 0 {
		return false, nil
	}
	return r.exists(ctx, bson.M{
		"accommodation_id": bson.M{"$in": accommodationIDs},
		"status":           model.ReservationConfirmed,
		"end_date":         bson.M{"$gt": day},
	})
}

func (r *mongoReservationRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.reservations.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to query reservations: %w", err)
	}
	return count > 0, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func overlapFilter(accommodationID string, from, to time.Time) bson.M {
	return bson.M{
		"accommodation_id": accommodationID,
		"start_date":       bson.M{"$lte": to},
		"end_date":         bson.M{"$gte": from},
	}
}
