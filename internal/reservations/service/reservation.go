package service

import (
	"context"
	"errors"
	availability "staybook/internal/availability/service"
	"staybook/internal/calendar"
	"staybook/internal/notifier"
	reservationerrors "staybook/internal/reservations/errors"
	"staybook/internal/reservations/repository"
	"staybook/internal/reservations/validator"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/identity"
	"staybook/pkg/lock"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// AccommodationDirectory is the part of the accommodation service the lifecycle depends on.
type AccommodationDirectory interface {
	AutoConfirm(ctx context.Context, accommodationID string) (bool, error)
	HostAccommodations(ctx context.Context, hostID, token string) ([]string, error)
}

type ReservationService interface {
	// Create stores a PENDING request and approves it right away when the accommodation
	// auto-confirms.
	Create(ctx context.Context, caller *identity.Caller, create *model.ReservationRequestCreate) (*model.ReservationRequest, error)
	Update(ctx context.Context, caller *identity.Caller, id string, update *model.ReservationRequestUpdate) (*model.ReservationRequest, error)
	Delete(ctx context.Context, caller *identity.Caller, id string) error
	Get(ctx context.Context, caller *identity.Caller, id string) (*model.ReservationRequestView, error)
	ListByGuest(ctx context.Context, guestID, accommodationID string) ([]*model.ReservationRequestView, error)
	ListByAccommodation(ctx context.Context, accommodationID string) ([]*model.ReservationRequestView, error)

	// Respond moves a PENDING request to APPROVED or REJECTED on behalf of the responder.
	Respond(ctx context.Context, responder *identity.Caller, id string, status model.RequestStatus) (*model.ReservationRequest, error)
	Approve(ctx context.Context, responder *identity.Caller, id string) (*model.ReservationRequest, error)
	Reject(ctx context.Context, responder *identity.Caller, id string) (*model.ReservationRequest, error)
	// Cancel cancels the reservation created from the request. Allowed up to the day before the stay.
	Cancel(ctx context.Context, caller *identity.Caller, requestID string) (*model.Reservation, error)
	CompleteFinished(ctx context.Context) (int64, error)

	HasGuestCompletedStay(ctx context.Context, guestID, accommodationID string) (bool, error)
	CanGuestRateHost(ctx context.Context, caller *identity.Caller, hostID string) (bool, error)
	CanGuestDeleteAccount(ctx context.Context, guestID string) (bool, error)
	CanHostDeleteAccount(ctx context.Context, caller *identity.Caller) (bool, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	allocator availability.Allocator
	directory AccommodationDirectory
	locker    lock.Locker
	notifier  notifier.Notifier
	validator *validator.ReservationValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	allocator availability.Allocator,
	directory AccommodationDirectory,
	locker lock.Locker,
	notify notifier.Notifier,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		allocator: allocator,
		directory: directory,
		locker:    locker,
		notifier:  notify,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *reservationService) today() time.Time {
	return calendar.Day(s.now())
}

func (s *reservationService) Create(ctx context.Context, caller *identity.Caller, create *model.ReservationRequestCreate) (*model.ReservationRequest, error) {
	create.AccommodationID = sanitizer.SanitizeID(create.AccommodationID)
	stay, err := s.validator.ValidateCreate(create, s.today())
	if err != nil {
		s.cfg.Log.Warn("Reservation request validation failed", "guest_id", caller.ID, "error", err)
		return nil, apperrors.Validation("Reservation request validation failed", map[string]any{"error": err.Error()})
	}

	req := &model.ReservationRequest{
		GuestID:         caller.ID,
		GuestEmail:      sanitizer.SanitizeEmail(caller.Email),
		GuestFirstName:  sanitizer.NormalizeName(caller.FirstName),
		GuestLastName:   sanitizer.NormalizeName(caller.LastName),
		AccommodationID: create.AccommodationID,
		StartDate:       stay.StartDate,
		EndDate:         stay.EndDate,
		GuestCount:      stay.GuestCount,
		Status:          model.RequestPending,
	}

	if err := s.repo.CreateRequest(ctx, req); err != nil {
		s.cfg.Log.Error("Failed to create reservation request", "accommodation_id", req.AccommodationID, "error", err)
		return nil, apperrors.Internal("Failed to create reservation request", err)
	}

	s.cfg.Log.Info("Reservation request created",
		"request_id", req.ID,
		"accommodation_id", req.AccommodationID,
		"guest_id", req.GuestID,
		"start_date", req.StartDate.Format(dateLayout),
		"end_date", req.EndDate.Format(dateLayout),
	)
	s.notifier.Notify(ctx, notifier.ReservationCreatedEvent(req))

	if !s.autoConfirm(ctx, req.AccommodationID) {
		return req, nil
	}

	approved, err := s.Approve(ctx, nil, req.ID)
	if err != nil {
		s.cfg.Log.Warn("Auto-confirm failed, request stays pending",
			"request_id", req.ID,
			"accommodation_id", req.AccommodationID,
			"error", err,
		)
		return req, nil
	}
	return approved, nil
}

// autoConfirm treats any lookup failure as "no auto-confirm".
func (s *reservationService) autoConfirm(ctx context.Context, accommodationID string) bool {
	enabled, err := s.directory.AutoConfirm(ctx, accommodationID)
	if err != nil {
		s.cfg.Log.Warn("Auto-confirm lookup failed", "accommodation_id", accommodationID, "error", err)
		return false
	}
	return enabled
}

func (s *reservationService) Update(ctx context.Context, caller *identity.Caller, id string, update *model.ReservationRequestUpdate) (*model.ReservationRequest, error) {
	stay, err := s.validator.ValidateUpdate(update, s.today())
	if err != nil {
		s.cfg.Log.Warn("Reservation request update validation failed", "request_id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	existing, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	var updated *model.ReservationRequest
	err = s.withAccommodation(ctx, existing.AccommodationID, func(sessCtx mongo.SessionContext) error {
		current, err := s.pending(sessCtx, id, "update")
		if err != nil {
			return err
		}

		current.StartDate = stay.StartDate
		current.EndDate = stay.EndDate
		current.GuestCount = stay.GuestCount
		if err := s.repo.UpdateRequest(sessCtx, current); err != nil {
			return s.translate(err, id, "update")
		}
		updated = current
		return nil
	})
	if err != nil {
		s.logFailure("Failed to update reservation request", id, err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation request updated", "request_id", id, "accommodation_id", updated.AccommodationID)
	return updated, nil
}

func (s *reservationService) Delete(ctx context.Context, caller *identity.Caller, id string) error {
	existing, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}

	err = s.withAccommodation(ctx, existing.AccommodationID, func(sessCtx mongo.SessionContext) error {
		if _, err := s.pending(sessCtx, id, "delete"); err != nil {
			return err
		}
		if err := s.repo.DeleteRequest(sessCtx, id); err != nil {
			return s.translate(err, id, "delete")
		}
		return nil
	})
	if err != nil {
		s.logFailure("Failed to delete reservation request", id, err)
		return err
	}

	s.cfg.Log.Info("Reservation request deleted", "request_id", id, "accommodation_id", existing.AccommodationID)
	return nil
}

func (s *reservationService) Respond(ctx context.Context, responder *identity.Caller, id string, status model.RequestStatus) (*model.ReservationRequest, error) {
	switch status {
	case model.RequestApproved:
		return s.Approve(ctx, responder, id)
	case model.RequestRejected:
		return s.Reject(ctx, responder, id)
	default:
		return nil, apperrors.InvalidInput("status must be APPROVED or REJECTED, got: " + string(status))
	}
}

type approval struct {
	request     *model.ReservationRequest
	reservation *model.Reservation
	rejected    []*model.ReservationRequest
	changes     []calendar.Change
}

// Approve rejects the other pending requests overlapping the stay, records the reservation and
// carves the stay out of the calendar, all in one transaction under the accommodation lock.
// A nil responder means the system approved the request.
func (s *reservationService) Approve(ctx context.Context, responder *identity.Caller, id string) (*model.ReservationRequest, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var out approval
	err = s.withAccommodation(ctx, existing.AccommodationID, func(sessCtx mongo.SessionContext) error {
		out = approval{}

		req, err := s.pending(sessCtx, id, "approve")
		if err != nil {
			return err
		}
		stay := calendar.Range{Start: req.StartDate, End: req.EndDate}

		confirmed, err := s.repo.FindConfirmedOverlapping(sessCtx, req.AccommodationID, stay.Start, stay.End)
		if err != nil {
			return apperrors.Internal("Failed to check reservations", err)
		}
		if len(confirmed) > 0 {
			return apperrors.Overlap("Requested dates overlap a confirmed reservation").WithDetails(map[string]any{
				"reservation_id": confirmed[0].ID,
				"start_date":     confirmed[0].StartDate.Format(dateLayout),
				"end_date":       confirmed[0].EndDate.Format(dateLayout),
			})
		}

		competing, err := s.repo.FindPendingOverlapping(sessCtx, req.AccommodationID, stay.Start, stay.End, req.ID)
		if err != nil {
			return apperrors.Internal("Failed to load pending requests", err)
		}
		for _, other := range competing {
			if err := s.repo.UpdateRequestStatus(sessCtx, other.ID, model.RequestRejected); err != nil {
				return s.translate(err, other.ID, "reject")
			}
			other.Status = model.RequestRejected
			out.rejected = append(out.rejected, other)
		}

		if err := s.repo.UpdateRequestStatus(sessCtx, req.ID, model.RequestApproved); err != nil {
			return s.translate(err, req.ID, "approve")
		}
		req.Status = model.RequestApproved

		reservation := &model.Reservation{
			RequestID:       req.ID,
			AccommodationID: req.AccommodationID,
			GuestID:         req.GuestID,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			ConfirmedAt:     s.now().UTC().Truncate(time.Millisecond),
			Status:          model.ReservationConfirmed,
		}
		if err := s.repo.CreateReservation(sessCtx, reservation); err != nil {
			if errors.Is(err, reservationerrors.ErrDuplicateReservation) {
				return apperrors.InvalidState("reservation request", string(model.RequestApproved), "approve")
			}
			return apperrors.Internal("Failed to create reservation", err)
		}

		changes, err := s.allocator.Allocate(sessCtx, req.AccommodationID, stay)
		if err != nil {
			return err
		}

		out.request = req
		out.reservation = reservation
		out.changes = changes
		return nil
	})
	if err != nil {
		s.logFailure("Failed to approve reservation request", id, err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation request approved",
		"request_id", id,
		"reservation_id", out.reservation.ID,
		"accommodation_id", out.request.AccommodationID,
		"rejected_requests", len(out.rejected),
		"calendar_changes", len(out.changes),
	)

	first, last := responderName(responder)
	respondedAt := s.now().UTC()
	events := []notifier.Event{notifier.RequestRespondedEvent(out.request, first, last, respondedAt)}
	for _, other := range out.rejected {
		events = append(events, notifier.RequestRespondedEvent(other, first, last, respondedAt))
	}
	events = append(events, notifier.AvailabilityEvents(out.changes)...)
	s.notifier.Notify(ctx, events...)

	return out.request, nil
}

func (s *reservationService) Reject(ctx context.Context, responder *identity.Caller, id string) (*model.ReservationRequest, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var rejected *model.ReservationRequest
	err = s.withAccommodation(ctx, existing.AccommodationID, func(sessCtx mongo.SessionContext) error {
		req, err := s.pending(sessCtx, id, "reject")
		if err != nil {
			return err
		}
		if err := s.repo.UpdateRequestStatus(sessCtx, id, model.RequestRejected); err != nil {
			return s.translate(err, id, "reject")
		}
		req.Status = model.RequestRejected
		rejected = req
		return nil
	})
	if err != nil {
		s.logFailure("Failed to reject reservation request", id, err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation request rejected", "request_id", id, "accommodation_id", rejected.AccommodationID)
	first, last := responderName(responder)
	s.notifier.Notify(ctx, notifier.RequestRespondedEvent(rejected, first, last, s.now().UTC()))
	return rejected, nil
}

func (s *reservationService) Cancel(ctx context.Context, caller *identity.Caller, requestID string) (*model.Reservation, error) {
	req, err := s.owned(ctx, caller, requestID)
	if err != nil {
		return nil, err
	}

	var (
		cancelled *model.Reservation
		changes   []calendar.Change
	)
	err = s.withAccommodation(ctx, req.AccommodationID, func(sessCtx mongo.SessionContext) error {
		cancelled, changes = nil, nil

		res, err := s.repo.FindReservationByRequest(sessCtx, requestID)
		if err != nil {
			return s.translate(err, requestID, "retrieve")
		}
		if res.Status != model.ReservationConfirmed {
			return apperrors.InvalidState("reservation", string(res.Status), "cancel")
		}
		if s.today().After(calendar.AddDays(res.StartDate, -1)) {
			return apperrors.TooLate("Too late to cancel reservation").WithDetails(map[string]any{
				"start_date": res.StartDate.Format(dateLayout),
			})
		}

		if err := s.repo.UpdateReservationStatus(sessCtx, res.ID, model.ReservationCancelled); err != nil {
			return s.translate(err, requestID, "cancel")
		}
		res.Status = model.ReservationCancelled

		changes, err = s.allocator.Reopen(sessCtx, res.AccommodationID, calendar.Range{Start: res.StartDate, End: res.EndDate})
		if err != nil {
			return err
		}
		cancelled = res
		return nil
	})
	if err != nil {
		s.logFailure("Failed to cancel reservation", requestID, err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation cancelled",
		"request_id", requestID,
		"reservation_id", cancelled.ID,
		"accommodation_id", cancelled.AccommodationID,
		"calendar_changes", len(changes),
	)
	events := []notifier.Event{notifier.ReservationCancelledEvent(req)}
	events = append(events, notifier.AvailabilityEvents(changes)...)
	s.notifier.Notify(ctx, events...)

	return cancelled, nil
}

// CompleteFinished moves CONFIRMED reservations whose stay ended before today to COMPLETED.
func (s *reservationService) CompleteFinished(ctx context.Context) (int64, error) {
	n, err := s.repo.CompleteBefore(ctx, s.today())
	if err != nil {
		s.cfg.Log.Error("Failed to complete reservations", "error", err)
		return 0, apperrors.Internal("Failed to complete reservations", err)
	}
	if n > 0 {
		s.cfg.Log.Info("Reservations completed", "count", n)
	}
	return n, nil
}

// --- Helpers ---

func (s *reservationService) withAccommodation(ctx context.Context, accommodationID string, fn func(sessCtx mongo.SessionContext) error) error {
	return lock.Do(ctx, s.locker, lock.AccommodationKey(accommodationID), s.cfg.LockRetryAttempts, s.cfg.LockRetryBackoff,
		func(ctx context.Context) error {
			return s.repo.ExecuteTransaction(ctx, fn)
		})
}

func (s *reservationService) find(ctx context.Context, id string) (*model.ReservationRequest, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation request ID cannot be empty")
	}
	req, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "retrieve")
	}
	return req, nil
}

// owned loads the request and refuses guests acting on another guest's request.
func (s *reservationService) owned(ctx context.Context, caller *identity.Caller, id string) (*model.ReservationRequest, error) {
	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller != nil && caller.IsGuest() && req.GuestID != caller.ID {
		s.cfg.Log.Warn("Guest attempted to access another guest's request", "request_id", id, "guest_id", caller.ID)
		return nil, apperrors.Forbidden("Reservation request belongs to another guest")
	}
	return req, nil
}

func (s *reservationService) pending(ctx context.Context, id, operation string) (*model.ReservationRequest, error) {
	req, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "retrieve")
	}
	if req.Status != model.RequestPending {
		return nil, apperrors.InvalidState("reservation request", string(req.Status), operation)
	}
	return req, nil
}

func (s *reservationService) translate(err error, id, operation string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, reservationerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Reservation request", id)
	case errors.Is(err, reservationerrors.ErrReservationNotFound):
		return apperrors.NotFound("Reservation")
	case errors.Is(err, reservationerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid reservation request ID format")
	default:
		return apperrors.Internal("Failed to "+operation+" reservation request", err)
	}
}

func (s *reservationService) logFailure(msg, requestID string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.StatusCode() >= 500 {
		s.cfg.Log.Error(msg, "request_id", requestID, "error", err)
		return
	}
	s.cfg.Log.Warn(msg, "request_id", requestID, "code", appErr.Code, "error", appErr.Message)
}

func responderName(responder *identity.Caller) (string, string) {
	if responder == nil {
		return "", ""
	}
	return responder.FirstName, responder.LastName
}

const dateLayout = "2006-01-02"
