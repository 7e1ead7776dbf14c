package validator

import (
	"errors"
	"fmt"
	"reflect"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
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

// Interval is a validated, parsed availability payload.
type Interval struct {
	StartDate time.Time
	EndDate   time.Time
	Price     decimal.Decimal
	PriceType model.PriceType
}

type AvailabilityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	v := validator.New()

	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	if err := v.RegisterValidation("nonneg_decimal", validateNonNegativeDecimal); err != nil {
		log.Fatal("Failed to register 'nonneg_decimal' validator", "error", err)
	}
	if err := v.RegisterValidation("price_type", validatePriceType); err != nil {
		log.Fatal("Failed to register 'price_type' validator", "error", err)
	}

	log.Info("Availability validator initialized successfully")

	return &AvailabilityValidator{
		validate: v,
		logger:   log,
	}
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func validateNonNegativeDecimal(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && !d.IsNegative()
}

func validatePriceType(fl validator.FieldLevel) bool {
	return model.PriceType(fl.Field().String()).Valid()
}

// ValidateCreate checks the payload and returns the parsed interval. The price type defaults
// to NORMAL. today is the current UTC day; intervals ending before it are refused.
func (v *AvailabilityValidator) ValidateCreate(create *model.AvailabilityCreate, today time.Time) (*Interval, error) {
	if err := v.structErr(create); err != nil {
		return nil, err
	}
	return v.interval(create.StartDate, create.EndDate, *create.Price, create.PriceType, today)
}

func (v *AvailabilityValidator) ValidateUpdate(update *model.AvailabilityUpdate, today time.Time) (*Interval, error) {
	if err := v.structErr(update); err != nil {
		return nil, err
	}
	return v.interval(update.StartDate, update.EndDate, *update.Price, update.PriceType, today)
}

func (v *AvailabilityValidator) structErr(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *AvailabilityValidator) interval(startRaw, endRaw string, price decimal.Decimal, priceType model.PriceType, today time.Time) (*Interval, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return nil, ValidationErrors{{Field: "StartDate", Message: "start_date must be YYYY-MM-DD"}}
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return nil, ValidationErrors{{Field: "EndDate", Message: "end_date must be YYYY-MM-DD"}}
	}

	if end.Before(start) {
		return nil, ValidationErrors{{Field: "EndDate", Message: "end_date must not be before start_date"}}
	}
	if end.Before(today) {
		return nil, ValidationErrors{{Field: "EndDate", Message: "end_date cannot be in the past"}}
	}

	if priceType == "" {
		priceType = model.PriceNormal
	}

	return &Interval{
		StartDate: start,
		EndDate:   end,
		Price:     price,
		PriceType: priceType,
	}, nil
}

func (v *AvailabilityValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
		case "nonneg_decimal":
			message = fmt.Sprintf("%s must be a non-negative decimal", err.Field())
		case "price_type":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), priceTypeNames())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

func priceTypeNames() string {
	names := make([]string, 0, len(model.PriceTypes))
	for _, p := range model.PriceTypes {
		names = append(names, string(p))
	}
	return strings.Join(names, " ")
}
