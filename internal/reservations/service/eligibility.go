package service

import (
	"context"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/identity"
	"staybook/pkg/sanitizer"
)

func (s *reservationService) HasGuestCompletedStay(ctx context.Context, guestID, accommodationID string) (bool, error) {
	accommodationID = sanitizer.SanitizeID(accommodationID)
	if accommodationID == "" {
		return false, apperrors.InvalidInput("Accommodation ID cannot be empty")
	}
	ok, err := s.repo.ExistsCompletedStay(ctx, guestID, []string{accommodationID}, s.today())
	if err != nil {
		s.cfg.Log.Error("Failed to check completed stays", "guest_id", guestID, "accommodation_id", accommodationID, "error", err)
		return false, apperrors.Internal("Failed to check completed stays", err)
	}
	return ok, nil
}

// CanGuestRateHost reports whether the guest completed a stay in any of the host's accommodations.
func (s *reservationService) CanGuestRateHost(ctx context.Context, caller *identity.Caller, hostID string) (bool, error) {
	accommodations, err := s.hostAccommodations(ctx, sanitizer.SanitizeID(hostID), caller.Token)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.ExistsCompletedStay(ctx, caller.ID, accommodations, s.today())
	if err != nil {
		s.cfg.Log.Error("Failed to check completed stays", "guest_id", caller.ID, "host_id", hostID, "error", err)
		return false, apperrors.Internal("Failed to check completed stays", err)
	}
	return ok, nil
}

func (s *reservationService) CanGuestDeleteAccount(ctx context.Context, guestID string) (bool, error) {
	active, err := s.repo.ExistsConfirmedForGuest(ctx, guestID)
	if err != nil {
		s.cfg.Log.Error("Failed to check guest reservations", "guest_id", guestID, "error", err)
		return false, apperrors.Internal("Failed to check reservations", err)
	}
	return !active, nil
}

// CanHostDeleteAccount is true when no confirmed stay in the host's accommodations ends after today.
func (s *reservationService) CanHostDeleteAccount(ctx context.Context, caller *identity.Caller) (bool, error) {
	accommodations, err := s.hostAccommodations(ctx, caller.ID, caller.Token)
	if err != nil {
		return false, err
	}
	if len(accommodations) == 0 {
		return true, nil
	}
	active, err := s.repo.ExistsConfirmedEndingAfter(ctx, accommodations, s.today())
	if err != nil {
		s.cfg.Log.Error("Failed to check host reservations", "host_id", caller.ID, "error", err)
		return false, apperrors.Internal("Failed to check reservations", err)
	}
	return !active, nil
}

func (s *reservationService) hostAccommodations(ctx context.Context, hostID, token string) ([]string, error) {
	if hostID == "" {
		return nil, apperrors.InvalidInput("Host ID cannot be empty")
	}
	ids, err := s.directory.HostAccommodations(ctx, hostID, token)
	if err != nil {
		s.cfg.Log.Warn("Accommodation lookup failed", "host_id", hostID, "error", err)
		return nil, apperrors.Unavailable("Accommodation service")
	}
	return sanitizer.NormalizeIDs(ids), nil
}
