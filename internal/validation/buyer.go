// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"strings"
	"unicode"

	"github.com/mmeshcher/bookstore-system/internal/model"
)

// Ошибки валидации данных покупателя.
var (
	ErrFullNameRequired = errors.New("full name is required")
	ErrAddressRequired  = errors.New("address is required")
	ErrInvalidPincode   = errors.New("pincode must be 6 digits")
	ErrInvalidMobile    = errors.New("mobile must be 10 digits")
	ErrInvalidEmail     = errors.New("invalid email address")
)

// ValidateBuyerDetails проверяет данные покупателя перед созданием заказа.
func ValidateBuyerDetails(d model.BuyerDetails) error {
	if strings.TrimSpace(d.FullName) == "" {
		return ErrFullNameRequired
	}
	if strings.TrimSpace(d.Address) == "" {
		return ErrAddressRequired
	}
	if !isDigits(d.Pincode, 6) {
		return ErrInvalidPincode
	}
	if !isDigits(d.Mobile, 10) {
		return ErrInvalidMobile
	}
	if !isValidEmail(d.Email) {
		return ErrInvalidEmail
	}
	return nil
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, ch := range s {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

func isValidEmail(s string) bool {
	at := strings.Index(s, "@")
	if at < 1 || at != strings.LastIndex(s, "@") {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
