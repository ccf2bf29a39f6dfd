package service

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"clinicdesk/internal/apperr"
	"clinicdesk/internal/models"
)

const (
	phoneCountryPrefix = "380"
	phoneDigits        = 12

	msgInvalidPhone     = "Enter a valid phone number in the format +380 XX XXX XX XX"
	msgInvalidEmail     = "Enter a valid email address"
	msgInvalidBirthDate = "Birth date cannot be in the future"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizePhone strips formatting and returns "+380XXXXXXXXX", or a validation error when
// the digits are not a 12-digit number starting with 380.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != phoneDigits || !strings.HasPrefix(digits, phoneCountryPrefix) {
		return "", apperr.Validation(msgInvalidPhone)
	}
	return "+" + digits, nil
}

func validateCredential(c models.Credential) (models.Credential, error) {
	phone, err := NormalizePhone(c.PhoneNumber)
	if err != nil {
		return models.Credential{}, err
	}
	if c.Password == "" {
		return models.Credential{}, apperr.Validation("Password is required")
	}
	return models.Credential{PhoneNumber: phone, Password: c.Password}, nil
}

func validateRegistration(in models.RegisterInput, now time.Time) (models.RegisterInput, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	if in.FirstName == "" || in.LastName == "" {
		return models.RegisterInput{}, apperr.Validation("First and last name are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return models.RegisterInput{}, apperr.Validation(msgInvalidEmail)
	}

	birth, err := parseDate(in.BirthDate)
	if err != nil {
		return models.RegisterInput{}, apperr.Validation("Birth date is required")
	}
	if birth.After(now) {
		return models.RegisterInput{}, apperr.Validation(msgInvalidBirthDate)
	}

	phone, err := NormalizePhone(in.PhoneNumber)
	if err != nil {
		return models.RegisterInput{}, err
	}
	in.PhoneNumber = phone

	if in.Password == "" {
		return models.RegisterInput{}, apperr.Validation("Password is required")
	}
	return in, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
