package service

import (
	"context"
	"errors"
	"staybook/internal/availability/repository"
	"staybook/internal/calendar"
	apperrors "staybook/pkg/errors"
)

// Allocator carves and reopens an accommodation's calendar on behalf of the reservation
// lifecycle. It expects to run inside the caller's transaction and under its lock, and
// returns the persisted changes so the caller can publish them after commit.
type Allocator interface {
	Allocate(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error)
	Reopen(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error)
}

type allocator struct {
	repo repository.AvailabilityRepository
}

func NewAllocator(repo repository.AvailabilityRepository) Allocator {
	return &allocator{repo: repo}
}

func (a *allocator) Allocate(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error) {
	intervals, err := a.repo.FindOverlapping(ctx, accommodationID, stay.Start, stay.End)
	if err != nil {
		return nil, apperrors.Internal("Failed to load calendar", err)
	}

	changes, err := calendar.Allocate(intervals, stay)
	if err != nil {
		if errors.Is(err, calendar.ErrOccupied) {
			return nil, apperrors.Overlap("Requested dates overlap an occupied interval")
		}
		return nil, apperrors.Internal("Failed to allocate calendar", err)
	}

	if err := a.repo.ApplyChanges(ctx, changes); err != nil {
		return nil, apperrors.Internal("Failed to update calendar", err)
	}
	return changes, nil
}

// Reopen frees the OCCUPIED intervals under stay and merges the accommodation's free intervals.
func (a *allocator) Reopen(ctx context.Context, accommodationID string, stay calendar.Range) ([]calendar.Change, error) {
	intervals, err := a.repo.FindByAccommodation(ctx, accommodationID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load calendar", err)
	}

	changes := calendar.Reopen(intervals, stay)
	if err := a.repo.ApplyChanges(ctx, changes); err != nil {
		return nil, apperrors.Internal("Failed to update calendar", err)
	}
	return changes, nil
}
