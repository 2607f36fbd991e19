package snapshot

import (
	"context"
	"fmt"
)

// Engine compares a capture against the baseline stored under a name.
type Engine interface {
	// CompareOrRecord compares png with the baseline called name.
	// When no baseline exists yet, png is recorded and the capture counts
	// as a match. onReport, if non-nil, receives a human-readable account
	// of what happened.
	CompareOrRecord(ctx context.Context, name string, png []byte, onReport func(Report)) (bool, error)
}

// Kind tells what CompareOrRecord did with a capture.
type Kind int

const (
	// KindRecorded means no baseline existed and the capture was stored.
	KindRecorded Kind = iota
	// KindMatched means the capture matched the baseline.
	KindMatched
	// KindMismatched means the capture differs from the baseline.
	KindMismatched
	// KindUpdated means the baseline was overwritten in update mode.
	KindUpdated
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindRecorded:
		return "recorded"
	case KindMatched:
		return "matched"
	case KindMismatched:
		return "mismatched"
	case KindUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Report describes the result of one comparison.
type Report struct {
	// Name is the baseline name.
	Name string

	Kind Kind

	// MismatchRatio is the fraction of differing pixels, in [0, 1].
	// It is 1 when the image dimensions differ.
	MismatchRatio float64

	// Threshold is the ratio the comparison was held to.
	Threshold float64
}

// String returns a one-line summary of the report.
func (r Report) String() string {
	switch r.Kind {
	case KindMatched, KindMismatched:
		return fmt.Sprintf("%s: %s (%.4f%% of pixels differ, threshold %.4f%%)",
			r.Name, r.Kind, r.MismatchRatio*100, r.Threshold*100)
	default:
		return fmt.Sprintf("%s: %s", r.Name, r.Kind)
	}
}
