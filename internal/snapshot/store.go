package snapshot

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/vrscan/internal/database"
)

// DefaultThreshold is the fraction of pixels allowed to differ before a
// capture counts as a visual change.
const DefaultThreshold = 0.001

// BaselineStore persists baselines by name. *database.DB implements it.
type BaselineStore interface {
	// GetBaseline returns nil, nil when name has no baseline.
	GetBaseline(ctx context.Context, name string) (*database.Baseline, error)
	PutBaseline(ctx context.Context, b *database.Baseline) error
}

// Store is an Engine backed by a BaselineStore.
// It is safe for concurrent use as long as the BaselineStore is.
type Store struct {
	baselines BaselineStore
	threshold float64
	update    bool
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithThreshold sets the tolerated fraction of differing pixels.
func WithThreshold(threshold float64) Option {
	return func(s *Store) {
		s.threshold = threshold
	}
}

// WithUpdate makes every capture overwrite its baseline and pass.
func WithUpdate(update bool) Option {
	return func(s *Store) {
		s.update = update
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store on top of baselines.
func NewStore(baselines BaselineStore, opts ...Option) *Store {
	s := &Store{
		baselines: baselines,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompareOrRecord implements Engine.
func (s *Store) CompareOrRecord(ctx context.Context, name string, data []byte, onReport func(Report)) (bool, error) {
	if name == "" {
		return false, ErrEmptyName
	}

	current, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("%w: capture for %s: %v", ErrInvalidImage, name, err)
	}
	digest := digestOf(data)

	emit := func(r Report) {
		r.Name = name
		r.Threshold = s.threshold
		s.logger.Debug("snapshot compared", "baseline", name, "result", r.Kind.String(), "mismatch", r.MismatchRatio)
		if onReport != nil {
			onReport(r)
		}
	}

	record := func() error {
		bounds := current.Bounds()
		return s.baselines.PutBaseline(ctx, &database.Baseline{
			Name:   name,
			PNG:    data,
			Digest: digest,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}

	if s.update {
		if err := record(); err != nil {
			return false, err
		}
		emit(Report{Kind: KindUpdated})
		return true, nil
	}

	baseline, err := s.baselines.GetBaseline(ctx, name)
	if err != nil {
		return false, err
	}
	if baseline == nil {
		if err := record(); err != nil {
			return false, err
		}
		emit(Report{Kind: KindRecorded})
		return true, nil
	}

	if baseline.Digest == digest {
		emit(Report{Kind: KindMatched})
		return true, nil
	}

	reference, err := png.Decode(bytes.NewReader(baseline.PNG))
	if err != nil {
		return false, fmt.Errorf("%w: baseline %s: %v", ErrInvalidImage, name, err)
	}

	ratio := MismatchRatio(reference, current)
	if ratio <= s.threshold {
		emit(Report{Kind: KindMatched, MismatchRatio: ratio})
		return true, nil
	}
	emit(Report{Kind: KindMismatched, MismatchRatio: ratio})
	return false, nil
}

// MismatchRatio returns the fraction of pixels that differ between a and b.
// Images of different dimensions are entirely different.
func MismatchRatio(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 1
	}

	total := ab.Dx() * ab.Dy()
	if total == 0 {
		return 0
	}

	diff := 0
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				diff++
			}
		}
	}
	return float64(diff) / float64(total)
}

// digestOf returns the hex SHA3-256 digest of data.
func digestOf(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
