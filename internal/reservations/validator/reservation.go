package validator

import (
	"errors"
	"fmt"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Stay is a validated request payload.
type Stay struct {
	StartDate  time.Time
	EndDate    time.Time
	GuestCount int
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	log.Info("Reservation request validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

// ValidateCreate checks the payload against today, the current UTC day. Stays may not start
// in the past.
func (v *ReservationValidator) ValidateCreate(create *model.ReservationRequestCreate, today time.Time) (*Stay, error) {
	if err := v.structErr(create); err != nil {
		return nil, err
	}
	return v.stay(create.StartDate, create.EndDate, create.GuestCount, today)
}

func (v *ReservationValidator) ValidateUpdate(update *model.ReservationRequestUpdate, today time.Time) (*Stay, error) {
	if err := v.structErr(update); err != nil {
		return nil, err
	}
	return v.stay(update.StartDate, update.EndDate, update.GuestCount, today)
}

func (v *ReservationValidator) structErr(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) stay(startRaw, endRaw string, guests int, today time.Time) (*Stay, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return nil, ValidationErrors{{Field: "StartDate", Message: "start_date must be YYYY-MM-DD"}}
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return nil, ValidationErrors{{Field: "EndDate", Message: "end_date must be YYYY-MM-DD"}}
	}

	var errs ValidationErrors
	if end.Before(start) {
		errs = append(errs, ValidationError{Field: "EndDate", Message: "end_date must not be before start_date"})
	}
	if start.Before(today) {
		errs = append(errs, ValidationError{Field: "StartDate", Message: "start_date cannot be in the past"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &Stay{StartDate: start, EndDate: end, GuestCount: guests}, nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "uuid":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in %s format", err.Field(), err.Param())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
