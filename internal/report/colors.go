package report

import (
	"github.com/mgutz/ansi"
)

const (
	highRateThreshold   = 50.0
	mediumRateThreshold = 20.0
)

// Colorizer is a colorizer for the console summary output.
type Colorizer struct {
	headingColorizer     func(string) string
	separatorColorizer   func(string) string
	descriptionColorizer func(string) string
	locationColorizer    func(string) string
	highRateColorizer    func(string) string
	mediumRateColorizer  func(string) string
	lowRateColorizer     func(string) string
	messageColorizer     func(string) string
	successColorizer     func(string) string
}

// NewColorizer creates a new Colorizer. When shouldColor is false every colorizer returns its input unchanged.
func NewColorizer(shouldColor bool) *Colorizer {
	if !shouldColor {
		identity := func(s string) string { return s }

		return &Colorizer{
			headingColorizer:     identity,
			separatorColorizer:   identity,
			descriptionColorizer: identity,
			locationColorizer:    identity,
			highRateColorizer:    identity,
			mediumRateColorizer:  identity,
			lowRateColorizer:     identity,
			messageColorizer:     identity,
			successColorizer:     identity,
		}
	}

	return &Colorizer{
		headingColorizer:     ansi.ColorFunc("yellow+bh"),
		separatorColorizer:   ansi.ColorFunc("gray"),
		descriptionColorizer: ansi.ColorFunc("white+bh"),
		locationColorizer:    ansi.ColorFunc("cyan"),
		highRateColorizer:    ansi.ColorFunc("red+bh"),
		mediumRateColorizer:  ansi.ColorFunc("yellow+bh"),
		lowRateColorizer:     ansi.ColorFunc("green+bh"),
		messageColorizer:     ansi.ColorFunc("gray"),
		successColorizer:     ansi.ColorFunc("green+bh"),
	}
}

// colorRate returns the rate as a percentage string, colored by how often the spec fails.
func (c *Colorizer) colorRate(rate float64) string {
	text := FormatRate(rate) + "%"

	switch {
	case rate >= highRateThreshold:
		return c.highRateColorizer(text)
	case rate >= mediumRateThreshold:
		return c.mediumRateColorizer(text)
	default:
		return c.lowRateColorizer(text)
	}
}
