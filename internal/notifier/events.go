package notifier

import (
	"time"

	"staybook/internal/calendar"
	"staybook/pkg/model"

	"github.com/shopspring/decimal"
)

const (
	TopicAvailability         = "availability-events"
	TopicReservationCreated   = "reservation-created"
	TopicReservationCancelled = "reservation-cancelled"
	TopicRequestResponded     = "request-responded"
)

const (
	AvailabilityCreated       = "AvailabilityCreated"
	AvailabilityUpdated       = "AvailabilityUpdated"
	AvailabilityDeleted       = "AvailabilityDeleted"
	AvailabilityStatusChanged = "AvailabilityStatusChanged"
	ReservationCreated        = "ReservationCreated"
	ReservationCancelled      = "ReservationCancelled"
	RequestResponded          = "RequestResponded"
)

const dateLayout = "2006-01-02"

// Event is one outbound change. Key selects the partition, so events sharing a key keep their order.
type Event struct {
	Topic   string
	Key     string
	Type    string
	Payload any
}

type AvailabilityPayload struct {
	ID              string          `json:"id"`
	EventType       string          `json:"eventType"`
	AccommodationID string          `json:"accommodationId"`
	StartDate       string          `json:"startDate"`
	EndDate         string          `json:"endDate"`
	Price           decimal.Decimal `json:"price"`
	PriceType       string          `json:"priceType"`
	Status          string          `json:"status"`
}

type ReservationPayload struct {
	ReservationRequestID string    `json:"reservationRequestId"`
	AccommodationID      string    `json:"accommodationId"`
	GuestID              string    `json:"guestId"`
	GuestFirstName       string    `json:"guestFirstName"`
	GuestLastName        string    `json:"guestLastName"`
	GuestEmail           string    `json:"guestEmail"`
	StartDate            string    `json:"startDate"`
	EndDate              string    `json:"endDate"`
	CreatedAt            time.Time `json:"createdAt"`
}

type RequestRespondedPayload struct {
	ReservationRequestID string    `json:"reservationRequestId"`
	Status               string    `json:"status"`
	AccommodationID      string    `json:"accommodationId"`
	GuestID              string    `json:"guestId"`
	HostName             string    `json:"hostName"`
	HostLastName         string    `json:"hostLastName"`
	RespondedAt          time.Time `json:"respondedAt"`
}

func availabilityEventType(kind calendar.Kind) string {
	switch kind {
	case calendar.Created:
		return AvailabilityCreated
	case calendar.Deleted:
		return AvailabilityDeleted
	case calendar.StatusChanged:
		return AvailabilityStatusChanged
	default:
		return AvailabilityUpdated
	}
}

// AvailabilityEvent snapshots one interval mutation.
func AvailabilityEvent(kind calendar.Kind, a *model.Availability) Event {
	eventType := availabilityEventType(kind)
	return Event{
		Topic: TopicAvailability,
		Key:   a.AccommodationID,
		Type:  eventType,
		Payload: AvailabilityPayload{
			ID:              a.ID,
			EventType:       eventType,
			AccommodationID: a.AccommodationID,
			StartDate:       a.StartDate.Format(dateLayout),
			EndDate:         a.EndDate.Format(dateLayout),
			Price:           a.Price,
			PriceType:       string(a.PriceType),
			Status:          string(a.Status),
		},
	}
}

// AvailabilityEvents maps calendar changes to events in their original order.
func AvailabilityEvents(changes []calendar.Change) []Event {
	events := make([]Event, 0, len(changes))
	for _, c := range changes {
		events = append(events, AvailabilityEvent(c.Kind, c.Interval))
	}
	return events
}

func reservationPayload(req *model.ReservationRequest) ReservationPayload {
	return ReservationPayload{
		ReservationRequestID: req.ID,
		AccommodationID:      req.AccommodationID,
		GuestID:              req.GuestID,
		GuestFirstName:       req.GuestFirstName,
		GuestLastName:        req.GuestLastName,
		GuestEmail:           req.GuestEmail,
		StartDate:            req.StartDate.Format(dateLayout),
		EndDate:              req.EndDate.Format(dateLayout),
		CreatedAt:            req.CreatedAt,
	}
}

func ReservationCreatedEvent(req *model.ReservationRequest) Event {
	return Event{
		Topic:   TopicReservationCreated,
		Key:     req.AccommodationID,
		Type:    ReservationCreated,
		Payload: reservationPayload(req),
	}
}

func ReservationCancelledEvent(req *model.ReservationRequest) Event {
	return Event{
		Topic:   TopicReservationCancelled,
		Key:     req.AccommodationID,
		Type:    ReservationCancelled,
		Payload: reservationPayload(req),
	}
}

// RequestRespondedEvent is keyed by request so that all responses to one request stay ordered.
func RequestRespondedEvent(req *model.ReservationRequest, hostFirstName, hostLastName string, at time.Time) Event {
	return Event{
		Topic: TopicRequestResponded,
		Key:   req.ID,
		Type:  RequestResponded,
		Payload: RequestRespondedPayload{
			ReservationRequestID: req.ID,
			Status:               string(req.Status),
			AccommodationID:      req.AccommodationID,
			GuestID:              req.GuestID,
			HostName:             hostFirstName,
			HostLastName:         hostLastName,
			RespondedAt:          at,
		},
	}
}
