// Package utils provides shared utility functions.
package utils

import (
	"math"
	"strconv"
)

// scorePrecision is the number of decimals kept when normalising accumulated scores.
const scorePrecision = 9

// RoundTo rounds value to the given number of decimal places.
func RoundTo(value float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(value*p) / p
}

// NormalizeScore strips binary floating point noise from a sum of rule deltas,
// so that e.g. -0.5 + 0.2 compares equal to -0.3.
func NormalizeScore(score float64) float64 {
	s := RoundTo(score, scorePrecision)
	if s == 0 {
		return 0 // no negative zero
	}
	return s
}

// FormatScore formats a score with the shortest exact representation ("-0.3", "0.7", "0").
func FormatScore(score float64) string {
	return strconv.FormatFloat(NormalizeScore(score), 'f', -1, 64)
}

// FormatPrice formats a price without padding or trailing zeros ("65000", "1.08452").
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
