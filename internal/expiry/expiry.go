package expiry

import (
    "fmt"
    "time"
)

// DateLayout is the wire format for card expiry dates and history bounds.
const DateLayout = "2006-01-02"

var defaultLoc = time.UTC

// SetDefaultLocation sets the location used when parsing dates (fallback UTC).
func SetDefaultLocation(loc *time.Location) {
    if loc != nil {
        defaultLoc = loc
    }
}

// ParseDate parses a YYYY-MM-DD date into midnight of that day in the default
// location.
func ParseDate(s string) (time.Time, error) {
    t, err := time.ParseInLocation(DateLayout, s, defaultLoc)
    if err != nil {
        return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
    }
    return t, nil
}

// IsExpired reports whether the expiry date is strictly before 'at'. An expiry
// equal to 'at' is still valid.
func IsExpired(date string, at time.Time) (bool, error) {
    t, err := ParseDate(date)
    if err != nil {
        return false, err
    }
    return t.Before(at), nil
}

// ParseBound parses an optional YYYY-MM-DD history bound. An empty string
// means the bound is absent and yields a nil time.
func ParseBound(s string) (*time.Time, error) {
    if s == "" {
        return nil, nil
    }
    t, err := ParseDate(s)
    if err != nil {
        return nil, err
    }
    return &t, nil
}
