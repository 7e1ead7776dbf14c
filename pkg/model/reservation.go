package model

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

// ReservationRequest is a guest's proposal to stay over an inclusive date range. The guest's
// contact fields are a snapshot taken when the request was created.
type ReservationRequest struct {
	ID              string        `json:"id,omitempty" bson:"_id,omitempty"`
	GuestID         string        `json:"guest_id" bson:"guest_id"`
	GuestEmail      string        `json:"guest_email" bson:"guest_email"`
	GuestFirstName  string        `json:"guest_first_name" bson:"guest_first_name"`
	GuestLastName   string        `json:"guest_last_name" bson:"guest_last_name"`
	AccommodationID string        `json:"accommodation_id" bson:"accommodation_id"`
	StartDate       time.Time     `json:"start_date" bson:"start_date"`
	EndDate         time.Time     `json:"end_date" bson:"end_date"`
	GuestCount      int           `json:"guest_count" bson:"guest_count"`
	Status          RequestStatus `json:"status" bson:"status"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
}

type ReservationRequestCreate struct {
	AccommodationID string `json:"accommodation_id" validate:"required,uuid"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	GuestCount      int    `json:"guest_count" validate:"required,min=1,max=50"`
}

type ReservationRequestUpdate struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	GuestCount int    `json:"guest_count" validate:"required,min=1,max=50"`
}

// ReservationRequestView is the read model returned by the request API.
type ReservationRequestView struct {
	ReservationRequest
	ConnectedReservationCancelled bool  `json:"connected_reservation_cancelled"`
	CancellationsCount            int64 `json:"cancellations_count"`
}

// Reservation is the booking created when a request is approved. Accommodation, guest and stay
// dates are copied from the request, which is immutable once approved.
type Reservation struct {
	ID              string            `json:"id,omitempty" bson:"_id,omitempty"`
	RequestID       string            `json:"request_id" bson:"request_id"`
	AccommodationID string            `json:"accommodation_id" bson:"accommodation_id"`
	GuestID         string            `json:"guest_id" bson:"guest_id"`
	StartDate       time.Time         `json:"start_date" bson:"start_date"`
	EndDate         time.Time         `json:"end_date" bson:"end_date"`
	ConfirmedAt     time.Time         `json:"confirmed_at" bson:"confirmed_at"`
	Status          ReservationStatus `json:"status" bson:"status"`
	UpdatedAt       time.Time         `json:"updated_at" bson:"updated_at"`
}
