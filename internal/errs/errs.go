package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrNotFound           = errors.New("not found")
	ErrStoreWrite         = errors.New("store write failed")
	ErrNothingSellable    = errors.New("no available items to sell")
	ErrNothingPurchasable = errors.New("no items could be purchased")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// FieldError is a ValidationError bound to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

func (e *FieldError) Unwrap() error { return ErrValidation }

// Validation returns a field-level validation error.
func Validation(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// StockError reports how much of a product was available when a request was rejected.
type StockError struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
}

func (e *StockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("product %s is out of stock", e.ProductID)
	}
	return fmt.Sprintf("only %d of product %s available", e.Available, e.ProductID)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientStock returns an error wrapping ErrInsufficientStock.
func InsufficientStock(productID string, available int) error {
	return &StockError{ProductID: productID, Available: available}
}

// StoreWrite marks err as a transient store failure.
func StoreWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreWrite) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreWrite, err)
}

// HTTPStatus maps an error from any service to a response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrNothingSellable),
		errors.Is(err, ErrNothingPurchasable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrStoreWrite):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body renders err as the JSON error body the handlers return.
func Body(err error) map[string]interface{} {
	body := map[string]interface{}{"error": err.Error()}
	var fe *FieldError
	if errors.As(err, &fe) {
		body["field"] = fe.Field
	}
	var se *StockError
	if errors.As(err, &se) {
		body["available"] = se.Available
	}
	if errors.Is(err, ErrStoreWrite) {
		body["retry"] = true
	}
	return body
}
