package service

import (
	"context"
	"errors"
	availabilityerrors "staybook/internal/availability/errors"
	"staybook/internal/availability/repository"
	"staybook/internal/availability/validator"
	"staybook/internal/calendar"
	"staybook/internal/notifier"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// ConfirmedStays is the slice of the reservation store the calendar needs.
type ConfirmedStays interface {
	FindConfirmedOverlapping(ctx context.Context, accommodationID string, from, to time.Time) ([]*model.Reservation, error)
}

type AvailabilityService interface {
	Define(ctx context.Context, create *model.AvailabilityCreate) (*model.Availability, error)
	Update(ctx context.Context, id string, update *model.AvailabilityUpdate) (*model.Availability, error)
	Delete(ctx context.Context, id string) error
	// Calendar lists the free intervals of an accommodation between from and to, plus the
	// confirmed stays when includeReservations is set. Nil bounds default to today and
	// today plus the configured number of months.
	Calendar(ctx context.Context, accommodationID string, from, to *time.Time, includeReservations bool) ([]*model.CalendarEntry, error)
	ExpireStale(ctx context.Context) (int64, error)
}

type availabilityService struct {
	repo      repository.AvailabilityRepository
	stays     ConfirmedStays
	locker    lock.Locker
	notifier  notifier.Notifier
	validator *validator.AvailabilityValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewAvailabilityService(
	repo repository.AvailabilityRepository,
	stays ConfirmedStays,
	locker lock.Locker,
	notify notifier.Notifier,
	validator *validator.AvailabilityValidator,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		repo:      repo,
		stays:     stays,
		locker:    locker,
		notifier:  notify,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *availabilityService) today() time.Time {
	return calendar.Day(s.now())
}

func (s *availabilityService) Define(ctx context.Context, create *model.AvailabilityCreate) (*model.Availability, error) {
	create.AccommodationID = sanitizer.SanitizeID(create.AccommodationID)
	iv, err := s.validator.ValidateCreate(create, s.today())
	if err != nil {
		s.cfg.Log.Warn("Availability validation failed", "error", err)
		return nil, apperrors.Validation("Availability validation failed", map[string]any{"error": err.Error()})
	}

	interval := &model.Availability{
		AccommodationID: create.AccommodationID,
		StartDate:       iv.StartDate,
		EndDate:         iv.EndDate,
		Price:           iv.Price,
		PriceType:       iv.PriceType,
		Status:          model.AvailabilityAvailable,
	}

	err = s.withAccommodation(ctx, interval.AccommodationID, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, interval); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, interval); err != nil {
			return apperrors.Internal("Failed to create availability", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("Failed to define availability", interval.AccommodationID, err)
		return nil, err
	}

	s.cfg.Log.Info("Availability defined",
		"id", interval.ID,
		"accommodation_id", interval.AccommodationID,
		"start_date", interval.StartDate,
		"end_date", interval.EndDate,
	)
	s.notifier.Notify(ctx, notifier.AvailabilityEvent(calendar.Created, interval))
	return interval, nil
}

func (s *availabilityService) Update(ctx context.Context, id string, update *model.AvailabilityUpdate) (*model.Availability, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Availability ID cannot be empty")
	}
	iv, err := s.validator.ValidateUpdate(update, s.today())
	if err != nil {
		s.cfg.Log.Warn("Availability update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "retrieve")
	}

	var updated *model.Availability
	err = s.withAccommodation(ctx, existing.AccommodationID, func(sessCtx mongo.SessionContext) error {
		current, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return s.translate(err, id, "retrieve")
		}
		if current.Status != model.AvailabilityAvailable {
			return apperrors.InvalidState("availability", string(current.Status), "update")
		}

		updated = current.Clone()
		updated.StartDate = iv.StartDate
		updated.EndDate = iv.EndDate
		updated.Price = iv.Price
		updated.PriceType = iv.PriceType

		if err := s.verifyNoOverlap(sessCtx, updated); err != nil {
			return err
		}
		if err := s.repo.Update(sessCtx, updated); err != nil {
			return s.translate(err, id, "update")
		}
		return nil
	})
	if err != nil {
		s.logFailure("Failed to update availability", existing.AccommodationID, err)
		return nil, err
	}

	s.cfg.Log.Info("Availability updated", "id", id, "accommodation_id", updated.AccommodationID)
	s.notifier.Notify(ctx, notifier.AvailabilityEvent(calendar.Updated, updated))
	return updated, nil
}

func (s *availabilityService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Availability ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translate(err, id, "retrieve")
	}

	var deleted *model.Availability
	err = s.withAccommodation(ctx, existing.AccommodationID, func(sessCtx mongo.SessionContext) error {
		current, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return s.translate(err, id, "retrieve")
		}

		stays, err := s.stays.FindConfirmedOverlapping(sessCtx, current.AccommodationID, current.StartDate, current.EndDate)
		if err != nil {
			return apperrors.Internal("Failed to check reservations", err)
		}
		if len(stays) > 0 {
			return apperrors.Overlap("Cannot delete availability with active reservations")
		}

		if err := s.repo.Delete(sessCtx, id); err != nil {
			return s.translate(err, id, "delete")
		}
		deleted = current
		return nil
	})
	if err != nil {
		s.logFailure("Failed to delete availability", existing.AccommodationID, err)
		return err
	}

	s.cfg.Log.Info("Availability deleted", "id", id, "accommodation_id", deleted.AccommodationID)
	s.notifier.Notify(ctx, notifier.AvailabilityEvent(calendar.Deleted, deleted))
	return nil
}

func (s *availabilityService) Calendar(ctx context.Context, accommodationID string, from, to *time.Time, includeReservations bool) ([]*model.CalendarEntry, error) {
	accommodationID = sanitizer.SanitizeID(accommodationID)
	if accommodationID == "" {
		return nil, apperrors.InvalidInput("Accommodation ID cannot be empty")
	}

	start := s.today()
	if from != nil {
		start = calendar.Day(*from)
	}
	end := start.AddDate(0, s.cfg.CalendarDefaultMonths, 0)
	if to != nil {
		end = calendar.Day(*to)
	}
	window, err := calendar.NewRange(start, end)
	if err != nil {
		return nil, apperrors.InvalidInput("end_date must not be before start_date")
	}

	free, err := s.repo.FindOverlapping(ctx, accommodationID, window.Start, window.End, model.AvailabilityAvailable)
	if err != nil {
		s.cfg.Log.Error("Failed to load calendar", "accommodation_id", accommodationID, "error", err)
		return nil, apperrors.Internal("Failed to load calendar", err)
	}

	entries := make([]*model.CalendarEntry, 0, len(free))
	for _, a := range free {
		price := a.Price
		entries = append(entries, &model.CalendarEntry{
			ID:        a.ID,
			StartDate: a.StartDate,
			EndDate:   a.EndDate,
			Status:    model.CalendarAvailable,
			Price:     &price,
			PriceType: a.PriceType,
		})
	}

	if includeReservations {
		stays, err := s.stays.FindConfirmedOverlapping(ctx, accommodationID, window.Start, window.End)
		if err != nil {
			s.cfg.Log.Error("Failed to load reservations for calendar", "accommodation_id", accommodationID, "error", err)
			return nil, apperrors.Internal("Failed to load calendar", err)
		}
		for _, r := range stays {
			entries = append(entries, &model.CalendarEntry{
				ID:        r.ID,
				StartDate: r.StartDate,
				EndDate:   r.EndDate,
				Status:    model.CalendarReserved,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartDate.Before(entries[j].StartDate)
	})

	s.cfg.Log.Debug("Calendar loaded",
		"accommodation_id", accommodationID,
		"from", window.Start,
		"to", window.End,
		"entries", len(entries),
	)
	return entries, nil
}

// ExpireStale marks free intervals that ended before today as EXPIRED. No events are emitted.
func (s *availabilityService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireBefore(ctx, s.today())
	if err != nil {
		s.cfg.Log.Error("Failed to expire availabilities", "error", err)
		return 0, apperrors.Internal("Failed to expire availabilities", err)
	}
	if n > 0 {
		s.cfg.Log.Info("Availabilities expired", "count", n)
	}
	return n, nil
}

// --- Helpers ---

func (s *availabilityService) withAccommodation(ctx context.Context, accommodationID string, fn func(sessCtx mongo.SessionContext) error) error {
	return lock.Do(ctx, s.locker, lock.AccommodationKey(accommodationID), s.cfg.LockRetryAttempts, s.cfg.LockRetryBackoff,
		func(ctx context.Context) error {
			return s.repo.ExecuteTransaction(ctx, fn)
		})
}

func (s *availabilityService) verifyNoOverlap(ctx context.Context, interval *model.Availability) error {
	r := calendar.Of(interval)
	existing, err := s.repo.FindOverlapping(ctx, interval.AccommodationID, r.Start, r.End)
	if err != nil {
		return apperrors.Internal("Failed to check existing availabilities", err)
	}
	if clash := calendar.FindOverlap(existing, r, interval.ID); clash != nil {
		return apperrors.Overlap("Availability overlaps an existing interval").WithDetails(map[string]any{
			"id":         clash.ID,
			"start_date": clash.StartDate.Format(dateLayout),
			"end_date":   clash.EndDate.Format(dateLayout),
		})
	}

	stays, err := s.stays.FindConfirmedOverlapping(ctx, interval.AccommodationID, r.Start, r.End)
	if err != nil {
		return apperrors.Internal("Failed to check reservations", err)
	}
	if len(stays) > 0 {
		return apperrors.Overlap("Availability overlaps a confirmed reservation")
	}
	return nil
}

func (s *availabilityService) translate(err error, id, operation string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, availabilityerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Availability", id)
	case errors.Is(err, availabilityerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid availability ID format")
	default:
		return apperrors.Internal("Failed to "+operation+" availability", err)
	}
}

func (s *availabilityService) logFailure(msg, accommodationID string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.StatusCode() >= 500 {
		s.cfg.Log.Error(msg, "accommodation_id", accommodationID, "error", err)
		return
	}
	s.cfg.Log.Warn(msg, "accommodation_id", accommodationID, "code", appErr.Code, "error", appErr.Message)
}

const dateLayout = "2006-01-02"
