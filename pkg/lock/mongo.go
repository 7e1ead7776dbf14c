package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Resource_locks"

var ErrHeld = errors.New("lock is held by another owner")

// Store persists advisory lock documents.
type Store interface {
	// Insert fails with ErrHeld when a live lock with the same id exists.
	Insert(ctx context.Context, lock *model.ResourceLock) error
	Delete(ctx context.Context, id, owner string) error
}

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{collection: db.Collection(CollectionName)}
}

// Insert takes over a lock whose expiry passed before the TTL monitor removed it.
func (s *mongoStore) Insert(ctx context.Context, lock *model.ResourceLock) error {
	_, err := s.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert lock: %w", err)
	}

	stale := bson.M{"_id": lock.ID, "expires_at": bson.M{"$lt": lock.CreatedAt}}
	res, err := s.collection.DeleteOne(ctx, stale)
	if err != nil {
		return fmt.Errorf("failed to clear stale lock: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrHeld
	}

	if _, err := s.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrHeld
		}
		return fmt.Errorf("failed to insert lock: %w", err)
	}
	return nil
}

func (s *mongoStore) Delete(ctx context.Context, id, owner string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	return err
}

// MongoLocker holds an advisory lock document for the duration of an operation. It does not
// wait: a held lock is reported as CONFLICT and the caller retries.
type MongoLocker struct {
	store Store
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

func NewMongoLocker(store Store, ttl time.Duration, log *logger.Logger) *MongoLocker {
	return &MongoLocker{store: store, ttl: ttl, log: log, now: time.Now}
}

func (l *MongoLocker) Acquire(ctx context.Context, key string) (Release, error) {
	now := l.now().UTC()
	lock := &model.ResourceLock{
		ID:        key,
		Owner:     uuid.New().String(),
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}

	if err := l.store.Insert(ctx, lock); err != nil {
		if errors.Is(err, ErrHeld) {
			l.log.Warn("Resource lock contention", "lock_id", key)
			return nil, apperrors.Conflict("Resource is being modified, try again")
		}
		return nil, apperrors.Internal("Failed to acquire resource lock", err)
	}

	return once(func() {
		// The operation context may already be done; the lock must still be removed.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.store.Delete(releaseCtx, lock.ID, lock.Owner); err != nil {
			l.log.Warn("Failed to release resource lock", "lock_id", lock.ID, "error", err)
		}
	}), nil
}
