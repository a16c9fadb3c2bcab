// Package model defines data structures used throughout the application.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Validation constants.
const (
	MinNameLength = 1
	MaxNameLength = 50
)

// ItemCreate is the payload accepted when creating an item.
type ItemCreate struct {
	Name        string   `json:"name" validate:"min=1,max=50"`
	Description *string  `json:"description"`
	Price       float64  `json:"price" validate:"gt=0"`
	Tax         *float64 `json:"tax" validate:"omitempty,gte=0"`
}

// Item is a stored item. IDs are assigned by the store.
type Item struct {
	ID int64 `json:"id"`
	ItemCreate
}

// Validate checks the value constraints of the payload.
// Type and presence checks happen in DecodeItemCreate.
func (c *ItemCreate) Validate() error {
	return validateStruct(c, LocBody)
}

// Clone returns a deep copy of the payload.
func (c ItemCreate) Clone() ItemCreate {
	out := c
	if c.Description != nil {
		d := *c.Description
		out.Description = &d
	}
	if c.Tax != nil {
		t := *c.Tax
		out.Tax = &t
	}
	return out
}

// DecodeItemCreate parses a request body into an ItemCreate.
// Every field is checked and all failures are reported together.
func DecodeItemCreate(body []byte) (ItemCreate, error) {
	var in ItemCreate

	if !gjson.ValidBytes(body) {
		return in, NewValidationError(FieldError{
			Loc:  []string{LocBody},
			Msg:  "JSON decode error",
			Type: ErrTypeJSONInvalid,
		})
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return in, NewValidationError(FieldError{
			Loc:  []string{LocBody},
			Msg:  "Input should be a valid dictionary or object to extract fields from",
			Type: ErrTypeModelAttributes,
		})
	}

	var errs []FieldError

	name := doc.Get("name")
	switch {
	case !name.Exists():
		errs = append(errs, missingField(LocBody, "name"))
	case name.Type != gjson.String:
		errs = append(errs, stringTypeError(LocBody, "name"))
	default:
		in.Name = name.Str
	}

	if desc := doc.Get("description"); desc.Exists() && desc.Type != gjson.Null {
		if desc.Type != gjson.String {
			errs = append(errs, stringTypeError(LocBody, "description"))
		} else {
			d := desc.Str
			in.Description = &d
		}
	}

	price := doc.Get("price")
	if !price.Exists() {
		errs = append(errs, missingField(LocBody, "price"))
	} else if f, ok := parseNumber(price); ok {
		in.Price = f
	} else {
		errs = append(errs, numberTypeError(LocBody, "price"))
	}

	if tax := doc.Get("tax"); tax.Exists() && tax.Type != gjson.Null {
		if f, ok := parseNumber(tax); ok {
			in.Tax = &f
		} else {
			errs = append(errs, numberTypeError(LocBody, "tax"))
		}
	}

	if len(errs) > 0 {
		return ItemCreate{}, NewValidationError(errs...)
	}

	if err := in.Validate(); err != nil {
		return ItemCreate{}, err
	}

	return in, nil
}

// parseNumber reads a finite number given either as a JSON number or as
// a string holding a decimal number, e.g. "10" or " 1.5e2 ".
func parseNumber(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		text := strings.TrimSpace(v.Str)
		if text == "" || strings.ContainsAny(text, "xXpP_") {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// HealthStatus is returned by the health check.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse is the body of non-validation error responses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WebSocketMessage represents a message sent over WebSocket connection.
type WebSocketMessage struct {
	Type      string    `json:"type"`
	Item      *Item     `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WebSocket message types.
const (
	WSMessageTypeItemCreated = "item_created"
)

// NewItemCreatedMessage creates a WebSocket message announcing a new item.
func NewItemCreatedMessage(item Item) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeItemCreated,
		Item:      &item,
		Timestamp: time.Now().UTC(),
	}
}
