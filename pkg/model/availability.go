package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityOccupied  AvailabilityStatus = "OCCUPIED"
	AvailabilityExpired   AvailabilityStatus = "EXPIRED"
)

type PriceType string

const (
	PriceNormal   PriceType = "NORMAL"
	PriceHoliday  PriceType = "HOLIDAY"
	PriceSeasonal PriceType = "SEASONAL"
	PriceWeekend  PriceType = "WEEKEND"
)

var PriceTypes = []PriceType{PriceNormal, PriceHoliday, PriceSeasonal, PriceWeekend}

func (p PriceType) Valid() bool {
	for _, known := range PriceTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Availability is one calendar interval of an accommodation: an inclusive span of whole days
// carrying a nightly price, its price category and an occupancy state.
type Availability struct {
	ID              string             `json:"id,omitempty"`
	AccommodationID string             `json:"accommodation_id"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"`
	Price           decimal.Decimal    `json:"price"`
	PriceType       PriceType          `json:"price_type"`
	Status          AvailabilityStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Fragment copies the interval's resource, price and category onto a new span.
func (a *Availability) Fragment(start, end time.Time, status AvailabilityStatus) *Availability {
	return &Availability{
		AccommodationID: a.AccommodationID,
		StartDate:       start,
		EndDate:         end,
		Price:           a.Price,
		PriceType:       a.PriceType,
		Status:          status,
	}
}

func (a *Availability) Clone() *Availability {
	c := *a
	return &c
}

type AvailabilityCreate struct {
	AccommodationID string           `json:"accommodation_id" validate:"required,uuid"`
	StartDate       string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	Price           *decimal.Decimal `json:"price" validate:"required,nonneg_decimal"`
	PriceType       PriceType        `json:"price_type,omitempty" validate:"omitempty,price_type"`
}

type AvailabilityUpdate struct {
	StartDate string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	Price     *decimal.Decimal `json:"price" validate:"required,nonneg_decimal"`
	PriceType PriceType        `json:"price_type,omitempty" validate:"omitempty,price_type"`
}

const (
	CalendarAvailable = "AVAILABLE"
	CalendarReserved  = "RESERVED"
)

// CalendarEntry is one row of the calendar view: a free priced interval or a confirmed stay.
type CalendarEntry struct {
	ID        string           `json:"id"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`
	Status    string           `json:"status"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	PriceType PriceType        `json:"price_type,omitempty"`
}
