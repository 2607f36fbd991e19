package model

import (
	"fmt"
	"strings"
)

// Status is the result class of one check.
type Status int

const (
	// StatusPass means the screenshot matched its baseline, or a new
	// baseline was recorded.
	StatusPass Status = iota

	// StatusFail means the screenshot differs from its baseline.
	StatusFail

	// StatusError means the check could not complete (navigation error,
	// unexpected HTTP status, snapshot engine failure).
	StatusError
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseStatus converts a status name back into a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "pass":
		return StatusPass, nil
	case "fail":
		return StatusFail, nil
	case "error":
		return StatusError, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Outcome is the result of one (page, viewport) check.
type Outcome struct {
	Status Status `json:"status"`

	// Error describes why the check could not complete.
	// Only set when Status is StatusError.
	Error string `json:"error,omitempty"`
}

// Match converts a snapshot comparison result into an Outcome.
func Match(matched bool) Outcome {
	if matched {
		return Outcome{Status: StatusPass}
	}
	return Outcome{Status: StatusFail}
}

// Failed returns an error Outcome for err.
func Failed(err error) Outcome {
	return Outcome{Status: StatusError, Error: err.Error()}
}

// Passed reports whether the check passed.
func (o Outcome) Passed() bool {
	return o.Status == StatusPass
}

// String returns the status, followed by the error message if any.
func (o Outcome) String() string {
	if o.Error != "" {
		return o.Status.String() + ": " + o.Error
	}
	return o.Status.String()
}
