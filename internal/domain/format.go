package domain

import (
	"math"

	"github.com/dustin/go-humanize"
)

// integerTolerance is how close a total must be to a whole number to be shown without decimals.
const integerTolerance = 1e-9

// FormatTotal renders a total for edge labels. Values within 1e-9 of an
// integer are shown as that integer, everything else with two decimals.
// Both forms use thousands separators.
func FormatTotal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return humanize.FormatFloat("", v)
	}

	rounded := math.Round(v)
	if math.Abs(v-rounded) <= integerTolerance {
		return humanize.Comma(int64(rounded))
	}

	return humanize.FormatFloat("#,###.##", v)
}
