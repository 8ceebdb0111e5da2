package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// ErrInvalidLimits is returned when a limits file holds values outside 0..255 or a min above its max
var ErrInvalidLimits = errors.New("invalid color limits")

// Range is the accepted interval of a single color channel
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Limits holds the calibrated BGR thresholds of the marker color
type Limits struct {
	B Range `json:"B"`
	G Range `json:"G"`
	R Range `json:"R"`
}

// limitsFile is the on-disk layout: {"limits": {"B": {...}, "G": {...}, "R": {...}}}
type limitsFile struct {
	Limits Limits `json:"limits"`
}

// storedRange and storedLimits decode a limits file with every value required
type storedRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

type storedLimits struct {
	Limits *struct {
		B *storedRange `json:"B"`
		G *storedRange `json:"G"`
		R *storedRange `json:"R"`
	} `json:"limits"`
}

func (s storedLimits) limits() (Limits, error) {
	if s.Limits == nil {
		return Limits{}, fmt.Errorf("%w: missing \"limits\" object", ErrInvalidLimits)
	}

	var limits Limits
	channels := []struct {
		name   string
		stored *storedRange
		dst    *Range
	}{
		{"B", s.Limits.B, &limits.B},
		{"G", s.Limits.G, &limits.G},
		{"R", s.Limits.R, &limits.R},
	}
	for _, ch := range channels {
		if ch.stored == nil {
			return Limits{}, fmt.Errorf("%w: missing channel %s", ErrInvalidLimits, ch.name)
		}
		if ch.stored.Min == nil || ch.stored.Max == nil {
			return Limits{}, fmt.Errorf("%w: channel %s needs both min and max", ErrInvalidLimits, ch.name)
		}
		*ch.dst = Range{Min: *ch.stored.Min, Max: *ch.stored.Max}
	}
	return limits, nil
}

// FullRange returns limits that accept every pixel
func FullRange() Limits {
	full := Range{Min: 0, Max: 255}
	return Limits{B: full, G: full, R: full}
}

// Validate checks that every channel is inside 0..255 with min <= max
func (l Limits) Validate() error {
	channels := []struct {
		name string
		r    Range
	}{
		{"B", l.B},
		{"G", l.G},
		{"R", l.R},
	}

	for _, ch := range channels {
		if ch.r.Min < 0 || ch.r.Max > 255 {
			return fmt.Errorf("%w: channel %s out of range [%d, %d]", ErrInvalidLimits, ch.name, ch.r.Min, ch.r.Max)
		}
		if ch.r.Min > ch.r.Max {
			return fmt.Errorf("%w: channel %s min %d above max %d", ErrInvalidLimits, ch.name, ch.r.Min, ch.r.Max)
		}
	}
	return nil
}

// Lower returns the lower bound in B, G, R order
func (l Limits) Lower() gocv.Scalar {
	return gocv.NewScalar(float64(l.B.Min), float64(l.G.Min), float64(l.R.Min), 0)
}

// Upper returns the upper bound in B, G, R order
func (l Limits) Upper() gocv.Scalar {
	return gocv.NewScalar(float64(l.B.Max), float64(l.G.Max), float64(l.R.Max), 0)
}

// Threshold writes a binary mask of the pixels of a BGR frame that fall inside the limits
func (l Limits) Threshold(frame gocv.Mat, mask *gocv.Mat) {
	gocv.InRangeWithScalar(frame, l.Lower(), l.Upper(), mask)
}

// LoadLimits reads and validates a limits file
func LoadLimits(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("failed to read limits file: %w", err)
	}

	var stored storedLimits
	if err := json.Unmarshal(data, &stored); err != nil {
		return Limits{}, fmt.Errorf("failed to parse limits file %s: %w", path, err)
	}

	limits, err := stored.limits()
	if err != nil {
		return Limits{}, fmt.Errorf("limits file %s: %w", path, err)
	}
	if err := limits.Validate(); err != nil {
		return Limits{}, err
	}
	return limits, nil
}

// SaveLimits validates the limits and writes them to path
func SaveLimits(path string, limits Limits) error {
	if err := limits.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(limitsFile{Limits: limits}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode limits: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write limits file: %w", err)
	}
	return nil
}
