// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"

	"github.com/google/uuid"
)

// IsValidID проверяет, что строка является UUID.
func IsValidID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// IDError возвращает текст ошибки для поля-идентификатора или пустую строку, если значение корректно.
func IDError(field, value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return field + " is required"
	case !IsValidID(value):
		return field + " must be a valid id"
	default:
		return ""
	}
}

// QuantityError возвращает текст ошибки для количества или пустую строку.
// Верхнюю границу задаёт только остаток товара.
func QuantityError(quantity int) string {
	if quantity < 1 {
		return "quantity must be at least 1"
	}
	return ""
}

// IsValidPaymentMethod проверяет способ оплаты: непустая строка без пробелов по краям и разумной длины.
func IsValidPaymentMethod(method string) bool {
	method = strings.TrimSpace(method)
	return method != "" && len(method) <= 64
}
