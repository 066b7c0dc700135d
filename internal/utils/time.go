package utils

import (
	"fmt"
	"time"
)

// ClientDateLayout is the datetime format the frontend sends for event
// filters and updates ("21.01.2025 15:30").
const ClientDateLayout = "02.01.2006 15:04"

// ParseClientDate parses an optional datetime in the client format.
// An empty string yields a zero time and no error.
func ParseClientDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(ClientDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected format 'DD.MM.YYYY HH:MM', got %q", value)
	}
	return t, nil
}
