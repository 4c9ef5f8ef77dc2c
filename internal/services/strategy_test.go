package services

import (
	"reflect"
	"testing"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

func TestRoundToIncrement(t *testing.T) {
	tests := []struct {
		amount    int64
		increment int64
		want      int64
	}{
		{0, 1000, 0},
		{1, 1000, 1000},
		{999, 1000, 1000},
		{1000, 1000, 1000},
		{1001, 1000, 2000},
		{1850000, 1000, 1850000},
		{1850001, 1000, 1851000},
		{-500, 1000, 0},
		{735, 1, 735},
		{735, 0, 735},
	}

	for _, tt := range tests {
		if got := roundToIncrement(tt.amount, tt.increment); got != tt.want {
			t.Errorf("roundToIncrement(%d, %d) = %d, want %d", tt.amount, tt.increment, got, tt.want)
		}
	}
}

func TestRedistribute(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		weights []int64
		want    []int64
	}{
		{
			name:    "proportional split",
			total:   100,
			weights: []int64{300, 100},
			want:    []int64{75, 25},
		},
		{
			name:    "largest remainder absorbs leftover",
			total:   100,
			weights: []int64{1, 1, 1},
			want:    []int64{34, 33, 33},
		},
		{
			name:    "zero weights split evenly",
			total:   10,
			weights: []int64{0, 0, 0},
			want:    []int64{4, 3, 3},
		},
		{
			name:    "negative total",
			total:   -100,
			weights: []int64{300, 100},
			want:    []int64{-75, -25},
		},
		{
			name:    "single weight takes all",
			total:   77,
			weights: []int64{5},
			want:    []int64{77},
		},
		{
			name:    "empty weights",
			total:   100,
			weights: nil,
			want:    []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redistribute(tt.total, tt.weights)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("redistribute(%d, %v) = %v, want %v", tt.total, tt.weights, got, tt.want)
			}
			var sum int64
			for _, s := range got {
				sum += s
			}
			if len(got) > 0 && sum != tt.total {
				t.Errorf("shares sum to %d, want %d", sum, tt.total)
			}
		})
	}
}

func TestNormalStrategyRoundsNetSpend(t *testing.T) {
	inputs := []allocationInput{
		{Account: core.Account{ID: "a"}, NetSpend: 1850500},
		{Account: core.Account{ID: "b"}, NetSpend: 0},
	}

	got := normalStrategy{}.allocate(inputs, 1000)
	if got["a"] != 1851000 {
		t.Errorf("suggestion a = %d, want 1851000", got["a"])
	}
	if got["b"] != 0 {
		t.Errorf("suggestion b = %d, want 0", got["b"])
	}
}

func TestNormalStrategyPinsFixedLimit(t *testing.T) {
	limit := int64(450000)
	inputs := []allocationInput{
		{Account: core.Account{ID: "rent", Profile: core.ProfileFixedSpending, FixedLimit: &limit}, NetSpend: 321500},
		{Account: core.Account{ID: "food", Profile: core.ProfileDynamicSpending}, NetSpend: 321500},
	}

	got := normalStrategy{}.allocate(inputs, 1000)
	if got["rent"] != 450000 {
		t.Errorf("suggestion rent = %d, want the 450000 limit", got["rent"])
	}
	if got["food"] != 322000 {
		t.Errorf("suggestion food = %d, want 322000", got["food"])
	}
}

func TestShiftedStrategyRedistributesGap(t *testing.T) {
	dynamic := func(id string) core.Account {
		return core.Account{ID: id, Profile: core.ProfileDynamicSpending}
	}

	// Aggregate gap +200000 split across two dynamic accounts 3:1 by spend.
	inputs := []allocationInput{
		{Account: dynamic("a"), NetSpend: 300000, Gap: 150000, HasGap: true},
		{Account: dynamic("b"), NetSpend: 100000, Gap: 50000, HasGap: true},
		{Account: core.Account{ID: "fixed", Profile: core.ProfileFixedSpending}, NetSpend: 80000},
	}

	got := shiftedStrategy{}.allocate(inputs, 1000)
	if got["a"] != 450000 {
		t.Errorf("suggestion a = %d, want 450000", got["a"])
	}
	if got["b"] != 150000 {
		t.Errorf("suggestion b = %d, want 150000", got["b"])
	}
	if got["fixed"] != 80000 {
		t.Errorf("fixed account suggestion = %d, want normal 80000", got["fixed"])
	}
}

func TestShiftedStrategySkipsNoLimitAccounts(t *testing.T) {
	inputs := []allocationInput{
		{
			Account:  core.Account{ID: "a", Profile: core.ProfileDynamicSpending, IsNoLimit: true},
			NetSpend: 300000, Gap: 100000, HasGap: true,
		},
		{
			Account:  core.Account{ID: "b", Profile: core.ProfileDynamicSpending},
			NetSpend: 100000, Gap: 0, HasGap: true,
		},
	}

	got := shiftedStrategy{}.allocate(inputs, 1000)
	if got["a"] != 300000 {
		t.Errorf("no-limit suggestion = %d, want normal 300000", got["a"])
	}
	// The whole 100000 gap moves to the only movable account.
	if got["b"] != 200000 {
		t.Errorf("movable suggestion = %d, want 200000", got["b"])
	}
}

func TestShiftedStrategyFloorsAtZero(t *testing.T) {
	inputs := []allocationInput{
		{
			Account:  core.Account{ID: "a", Profile: core.ProfileDynamicSpending},
			NetSpend: 50000, Gap: -200000, HasGap: true,
		},
	}

	got := shiftedStrategy{}.allocate(inputs, 1000)
	if got["a"] != 0 {
		t.Errorf("suggestion = %d, want 0", got["a"])
	}
}

func TestStrategyFor(t *testing.T) {
	if _, err := strategyFor(""); err != nil {
		t.Errorf("strategyFor(\"\") error: %v", err)
	}
	if _, err := strategyFor(ModeShifted); err != nil {
		t.Errorf("strategyFor(shifted) error: %v", err)
	}
	if _, err := strategyFor("aggressive"); err == nil {
		t.Error("strategyFor(aggressive) expected error")
	}
}
