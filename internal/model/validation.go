package model

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error locations.
const (
	LocBody  = "body"
	LocQuery = "query"
	LocPath  = "path"
)

// Field error types.
const (
	ErrTypeMissing          = "missing"
	ErrTypeJSONInvalid      = "json_invalid"
	ErrTypeModelAttributes  = "model_attributes_type"
	ErrTypeStringType       = "string_type"
	ErrTypeFloatType        = "float_type"
	ErrTypeIntParsing       = "int_parsing"
	ErrTypeStringTooShort   = "string_too_short"
	ErrTypeStringTooLong    = "string_too_long"
	ErrTypeGreaterThan      = "greater_than"
	ErrTypeGreaterThanEqual = "greater_than_equal"
	ErrTypeLessThanEqual    = "less_than_equal"
	ErrTypeValue            = "value_error"
)

// Pagination defaults and bounds.
const (
	DefaultSkip  = 0
	DefaultLimit = 10
	MaxLimit     = 100
)

// ItemIDParam is the name of the item identifier path parameter.
const ItemIDParam = "item_id"

// FieldError describes one invalid input value.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError is returned when request input fails validation.
type ValidationError struct {
	Errors []FieldError
}

// NewValidationError creates a ValidationError from field errors.
func NewValidationError(errs ...FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(fe.Loc, "."), fe.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidationErrorResponse is the body of a 422 response.
type ValidationErrorResponse struct {
	Detail []FieldError `json:"detail"`
}

// ListParams holds pagination parameters for listing items.
type ListParams struct {
	Skip  int `json:"skip" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

// DefaultListParams returns the pagination used when no query is given.
func DefaultListParams() ListParams {
	return ListParams{Skip: DefaultSkip, Limit: DefaultLimit}
}

// Validate checks the pagination bounds.
func (p *ListParams) Validate() error {
	return validateStruct(p, LocQuery)
}

// ParseListParams reads skip and limit from a query string.
// Absent parameters take their defaults.
func ParseListParams(query url.Values) (ListParams, error) {
	params := DefaultListParams()
	var errs []FieldError

	if vals, ok := query["skip"]; ok && len(vals) > 0 {
		skip, err := parseInt(vals[0], strconv.IntSize)
		if err != nil {
			errs = append(errs, intParsingError(LocQuery, "skip"))
		} else {
			params.Skip = int(skip)
		}
	}

	if vals, ok := query["limit"]; ok && len(vals) > 0 {
		limit, err := parseInt(vals[0], strconv.IntSize)
		if err != nil {
			errs = append(errs, intParsingError(LocQuery, "limit"))
		} else {
			params.Limit = int(limit)
		}
	}

	if len(errs) > 0 {
		return ListParams{}, NewValidationError(errs...)
	}

	if err := params.Validate(); err != nil {
		return ListParams{}, err
	}

	return params, nil
}

// ParseItemID parses the item identifier path parameter.
// Integers beyond the int64 range saturate and therefore match no item.
func ParseItemID(raw string) (int64, error) {
	id, err := parseInt(raw, 64)
	if err != nil {
		return 0, NewValidationError(intParsingError(LocPath, ItemIDParam))
	}
	return id, nil
}

// parseInt parses a decimal integer of the given bit size. Well-formed
// integers that do not fit saturate to the nearest bound instead of failing,
// so range checks report them like any other out-of-bounds value.
func parseInt(raw string, bitSize int) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, bitSize)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return n, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and converts the result
// into a ValidationError located under loc.
func validateStruct(s any, loc string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating %T: %w", s, err)
	}

	fieldErrs := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrs = append(fieldErrs, translateFieldError(loc, fe))
	}

	return NewValidationError(fieldErrs...)
}

func translateFieldError(loc string, fe validator.FieldError) FieldError {
	out := FieldError{Loc: []string{loc, fe.Field()}}

	switch fe.Tag() {
	case "required":
		out.Type = ErrTypeMissing
		out.Msg = "Field required"
	case "min":
		out.Type = ErrTypeStringTooShort
		out.Msg = fmt.Sprintf("String should have at least %s %s", fe.Param(), plural(fe.Param(), "character"))
	case "max":
		out.Type = ErrTypeStringTooLong
		out.Msg = fmt.Sprintf("String should have at most %s %s", fe.Param(), plural(fe.Param(), "character"))
	case "gt":
		out.Type = ErrTypeGreaterThan
		out.Msg = "Input should be greater than " + fe.Param()
	case "gte":
		out.Type = ErrTypeGreaterThanEqual
		out.Msg = "Input should be greater than or equal to " + fe.Param()
	case "lte":
		out.Type = ErrTypeLessThanEqual
		out.Msg = "Input should be less than or equal to " + fe.Param()
	default:
		out.Type = ErrTypeValue
		out.Msg = fe.Error()
	}

	return out
}

func plural(n, word string) string {
	if n == "1" {
		return word
	}
	return word + "s"
}

func missingField(loc, field string) FieldError {
	return FieldError{Loc: []string{loc, field}, Msg: "Field required", Type: ErrTypeMissing}
}

func stringTypeError(loc, field string) FieldError {
	return FieldError{Loc: []string{loc, field}, Msg: "Input should be a valid string", Type: ErrTypeStringType}
}

func numberTypeError(loc, field string) FieldError {
	return FieldError{Loc: []string{loc, field}, Msg: "Input should be a valid number", Type: ErrTypeFloatType}
}

func intParsingError(loc, field string) FieldError {
	return FieldError{
		Loc:  []string{loc, field},
		Msg:  "Input should be a valid integer, unable to parse string as an integer",
		Type: ErrTypeIntParsing,
	}
}
