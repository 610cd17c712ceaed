// Package stance represents a speaker's position toward a topic on a -1..+1 scale.
package stance

import (
	"math"
	"strings"
)

// Score is a stance in [-1, 1]: -1 opposed, 0 neutral, +1 in favour.
type Score float64

// Labels for the three stance bands.
const (
	LabelOpposed = "反対"
	LabelNeutral = "中立"
	LabelFavour  = "賛成"
)

// New clamps v into [-1, 1]. NaN becomes neutral.
func New(v float64) Score {
	switch {
	case math.IsNaN(v):
		return 0
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return Score(v)
}

// Label maps the score onto 反対 / 中立 / 賛成 using ±1/3 thresholds.
func (s Score) Label() string {
	switch {
	case float64(s) <= -1.0/3:
		return LabelOpposed
	case float64(s) >= 1.0/3:
		return LabelFavour
	default:
		return LabelNeutral
	}
}

// Bar renders a text gauge such as "反対 [----●-----] 賛成".
// width is the number of cells between the brackets (minimum 3).
func (s Score) Bar(width int) string {
	if width < 3 {
		width = 3
	}
	norm := (float64(New(float64(s))) + 1) / 2
	pos := int(math.Round(norm * float64(width-1)))

	var b strings.Builder
	b.WriteString(LabelOpposed)
	b.WriteString(" [")
	for i := 0; i < width; i++ {
		if i == pos {
			b.WriteString("●")
		} else {
			b.WriteString("-")
		}
	}
	b.WriteString("] ")
	b.WriteString(LabelFavour)
	return b.String()
}
