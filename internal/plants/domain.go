// Package plants manages the plant master: the four-digit site codes
// that plant-scoped accounts are assigned to.
package plants

import (
	"errors"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when no plant matches the requested code.
	ErrNotFound = errors.New("plant not found")
	// ErrDuplicateCode is returned when a plant code is already taken.
	ErrDuplicateCode = errors.New("plant code already exists")
	// ErrInvalidCode is returned when a code is not four digits.
	ErrInvalidCode = errors.New("plant code must be four digits")
)

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidCode reports whether code has the plant master format.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Plant is one site in the plant master.
type Plant struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
