package service

import (
	"context"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/identity"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
)

func (s *reservationService) Get(ctx context.Context, caller *identity.Caller, id string) (*model.ReservationRequestView, error) {
	req, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []*model.ReservationRequest{req})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *reservationService) ListByGuest(ctx context.Context, guestID, accommodationID string) ([]*model.ReservationRequestView, error) {
	accommodationID = sanitizer.SanitizeID(accommodationID)
	requests, err := s.repo.FindRequestsByGuest(ctx, guestID, accommodationID)
	if err != nil {
		s.cfg.Log.Error("Failed to list guest requests", "guest_id", guestID, "error", err)
		return nil, apperrors.Internal("Failed to list reservation requests", err)
	}
	return s.views(ctx, requests)
}

func (s *reservationService) ListByAccommodation(ctx context.Context, accommodationID string) ([]*model.ReservationRequestView, error) {
	accommodationID = sanitizer.SanitizeID(accommodationID)
	if accommodationID == "" {
		return nil, apperrors.InvalidInput("accommodation_id is required")
	}
	requests, err := s.repo.FindRequestsByAccommodation(ctx, accommodationID)
	if err != nil {
		s.cfg.Log.Error("Failed to list accommodation requests", "accommodation_id", accommodationID, "error", err)
		return nil, apperrors.Internal("Failed to list reservation requests", err)
	}
	return s.views(ctx, requests)
}

// views decorates requests with the state of their reservation and the guest's cancellation count.
func (s *reservationService) views(ctx context.Context, requests []*model.ReservationRequest) ([]*model.ReservationRequestView, error) {
	ids := make([]string, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.ID)
	}

	reservations, err := s.repo.FindReservationsByRequests(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to load reservations for requests", "error", err)
		return nil, apperrors.Internal("Failed to load reservations", err)
	}
	cancelled := make(map[string]bool, len(reservations))
	for _, res := range reservations {
		cancelled[res.RequestID] = res.Status == model.ReservationCancelled
	}

	counts := map[string]int64{}
	views := make([]*model.ReservationRequestView, 0, len(requests))
	for _, req := range requests {
		count, ok := counts[req.GuestID]
		if !ok {
			count, err = s.repo.CountByGuestAndStatus(ctx, req.GuestID, model.ReservationCancelled)
			if err != nil {
				s.cfg.Log.Error("Failed to count cancellations", "guest_id", req.GuestID, "error", err)
				return nil, apperrors.Internal("Failed to load reservations", err)
			}
			counts[req.GuestID] = count
		}

		views = append(views, &model.ReservationRequestView{
			ReservationRequest:            *req,
			ConnectedReservationCancelled: cancelled[req.ID],
			CancellationsCount:            count,
		})
	}
	return views, nil
}
