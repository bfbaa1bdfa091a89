package models

import (
	"fmt"
	"strings"
	"unicode"
)

// Phone holds the phone details of a contact.
type Phone struct {
	Number     string `json:"number"`
	SMSEnabled bool   `json:"sms_enabled"`
}

// Contact is a contact person at a pickup or dropoff.
type Contact struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *Phone `json:"phone,omitempty"`
}

// ContactOptions configures NewContact. Strict rejects phone numbers that
// cannot be normalized to E.164 instead of passing them through untouched.
type ContactOptions struct {
	Strict bool
}

// NewContact validates a contact and normalizes its phone number to E.164.
// Numbers without a country code are assumed to be US numbers, since the
// service currently only operates there.
func NewContact(c Contact, opts ...ContactOptions) (*Contact, error) {
	strict := len(opts) > 0 && opts[0].Strict

	if err := checkStruct(c); err != nil {
		return nil, err
	}

	if c.Phone != nil && c.Phone.Number != "" {
		normalized, err := NormalizePhone(c.Phone.Number)
		if err != nil {
			if strict {
				return nil, err
			}
			normalized = c.Phone.Number
		}
		c.Phone = &Phone{Number: normalized, SMSEnabled: c.Phone.SMSEnabled}
	}

	return &c, nil
}

// NormalizePhone converts a loosely formatted phone number into E.164,
// assuming +1 when ten or more digits arrive without a country code.
func NormalizePhone(number string) (string, error) {
	hasPlus := strings.HasPrefix(strings.TrimSpace(number), "+")

	var digits strings.Builder
	for _, r := range number {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	n := digits.String()
	switch {
	case n == "":
		return "", fmt.Errorf("phone number %q has no digits", number)
	case hasPlus:
		return "+" + n, nil
	case len(n) == 10:
		return "+1" + n, nil
	case len(n) == 11 && strings.HasPrefix(n, "1"):
		return "+" + n, nil
	default:
		return "", fmt.Errorf("unable to normalize phone number %q", number)
	}
}
