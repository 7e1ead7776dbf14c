package model

import "time"

// ResourceLock is an advisory lock document serializing calendar mutations of one accommodation
// across service replicas. Stale locks are removed by a TTL index on expires_at.
type ResourceLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
