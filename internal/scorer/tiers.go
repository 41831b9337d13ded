// Package scorer ranks declarations by importance and truncates them to a
// budget that depends on the size of the file they came from.
//
// Everything here is a pure function of its inputs.
package scorer

import (
	"errors"
	"fmt"
)

// Tier is a file-size class.
type Tier string

const (
	TierTiny    Tier = "tiny"
	TierSmall   Tier = "small"
	TierMedium  Tier = "medium"
	TierLarge   Tier = "large"
	TierXLarge  Tier = "xlarge"
	TierXXLarge Tier = "xxlarge"
	TierHuge    Tier = "huge"
)

// Tiers lists every tier from smallest to largest.
var Tiers = []Tier{TierTiny, TierSmall, TierMedium, TierLarge, TierXLarge, TierXXLarge, TierHuge}

var (
	// ErrThresholdOrder indicates tier bounds that are not strictly increasing.
	ErrThresholdOrder = errors.New("tier thresholds must be strictly increasing")

	// ErrLimitOrder indicates budgets that shrink as files grow.
	ErrLimitOrder = errors.New("tier limits must be non-decreasing")

	// ErrInvalidLimit indicates a zero or negative budget.
	ErrInvalidLimit = errors.New("tier limits must be positive")
)

// Options configures tiering. Thresholds hold the inclusive upper line bound
// of every tier but the last; Limits hold the symbol budget of every tier.
// Tiers missing from either map take the default.
type Options struct {
	Thresholds map[Tier]int
	Limits     map[Tier]int
}

// DefaultOptions returns the default bounds (100/500/1500/3000/5000/8000
// lines) and budgets (5 through 150 symbols).
func DefaultOptions() Options {
	return Options{
		Thresholds: map[Tier]int{
			TierTiny:    100,
			TierSmall:   500,
			TierMedium:  1500,
			TierLarge:   3000,
			TierXLarge:  5000,
			TierXXLarge: 8000,
		},
		Limits: map[Tier]int{
			TierTiny:    5,
			TierSmall:   10,
			TierMedium:  20,
			TierLarge:   40,
			TierXLarge:  70,
			TierXXLarge: 100,
			TierHuge:    150,
		},
	}
}

func (o Options) threshold(t Tier) int {
	if n, ok := o.Thresholds[t]; ok {
		return n
	}
	return DefaultOptions().Thresholds[t]
}

// Limit returns the symbol budget for t.
func (o Options) Limit(t Tier) int {
	if n, ok := o.Limits[t]; ok {
		return n
	}
	return DefaultOptions().Limits[t]
}

// TierFor classifies a file by its line count.
func (o Options) TierFor(fileLines int) Tier {
	last := len(Tiers) - 1
	for _, t := range Tiers[:last] {
		if fileLines <= o.threshold(t) {
			return t
		}
	}
	return Tiers[last]
}

// Validate checks that bounds increase and budgets are positive and
// non-decreasing.
func (o Options) Validate() error {
	var errs []error

	prev := 0
	for _, t := range Tiers[:len(Tiers)-1] {
		n := o.threshold(t)
		if n <= prev {
			errs = append(errs, fmt.Errorf("%w: %s=%d after %d", ErrThresholdOrder, t, n, prev))
		}
		prev = n
	}

	prev = 0
	for _, t := range Tiers {
		n := o.Limit(t)
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s=%d", ErrInvalidLimit, t, n))
			continue
		}
		if n < prev {
			errs = append(errs, fmt.Errorf("%w: %s=%d after %d", ErrLimitOrder, t, n, prev))
		}
		prev = n
	}

	return errors.Join(errs...)
}
