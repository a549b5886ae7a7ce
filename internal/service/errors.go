package service

import "errors"

// Закрытый набор ошибок бизнес-логики. HTTP-слой сопоставляет их с кодами ответа через errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrProductNotFound  = errors.New("product not found")
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrForbidden        = errors.New("cart item belongs to another user")
	ErrOutOfStock       = errors.New("not enough stock available")
	ErrEmptyCart        = errors.New("cart is empty")
)

// ValidationError описывает некорректный входной параметр.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is позволяет сравнивать любую ValidationError с ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
