package stance

import (
	"math"
	"testing"
)

func TestNew_Clamps(t *testing.T) {
	tests := []struct {
		in   float64
		want Score
	}{
		{-3, -1},
		{-1, -1},
		{0.6, 0.6},
		{2, 1},
		{math.NaN(), 0},
	}
	for _, tc := range tests {
		if got := New(tc.in); got != tc.want {
			t.Errorf("New(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		score Score
		want  string
	}{
		{-1, LabelOpposed},
		{-0.4, LabelOpposed},
		{0, LabelNeutral},
		{0.3, LabelNeutral},
		{0.6, LabelFavour},
		{1, LabelFavour},
	}
	for _, tc := range tests {
		if got := tc.score.Label(); got != tc.want {
			t.Errorf("Score(%v).Label() = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		score Score
		width int
		want  string
	}{
		{-1, 5, "反対 [●----] 賛成"},
		{0, 5, "反対 [--●--] 賛成"},
		{1, 5, "反対 [----●] 賛成"},
		{0, 1, "反対 [-●-] 賛成"},
	}
	for _, tc := range tests {
		if got := tc.score.Bar(tc.width); got != tc.want {
			t.Errorf("Score(%v).Bar(%d) = %q, want %q", tc.score, tc.width, got, tc.want)
		}
	}
}
