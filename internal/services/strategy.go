package services

import (
	"sort"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
)

// Reconciliation modes selecting the suggestion strategy.
const (
	ModeNormal  = "normal"
	ModeShifted = "shifted"
)

// allocationInput is one account's window figures fed to a strategy.
type allocationInput struct {
	Account  core.Account
	NetSpend int64
	Gap      int64
	HasGap   bool
}

// allocationStrategy computes the suggested budget per account id.
// Strategies are pure; the engine owns all storage access.
type allocationStrategy interface {
	allocate(inputs []allocationInput, roundIncrement int64) map[string]int64
}

func strategyFor(mode string) (allocationStrategy, error) {
	switch mode {
	case "", ModeNormal:
		return normalStrategy{}, nil
	case ModeShifted:
		return shiftedStrategy{}, nil
	}
	return nil, core.Invalidf("invalid mode %q", mode)
}

// normalStrategy suggests what the account actually consumed this
// cycle, rounded up to a stable increment. Fixed-spending accounts with
// an explicit limit are pinned to that limit.
type normalStrategy struct{}

func (normalStrategy) allocate(inputs []allocationInput, roundIncrement int64) map[string]int64 {
	out := make(map[string]int64, len(inputs))
	for _, in := range inputs {
		if in.Account.Profile == core.ProfileFixedSpending && in.Account.FixedLimit != nil {
			out[in.Account.ID] = *in.Account.FixedLimit
			continue
		}
		out[in.Account.ID] = roundToIncrement(in.NetSpend, roundIncrement)
	}
	return out
}

// shiftedStrategy starts from the normal suggestion, then redistributes
// the aggregate budget gap across dynamic-spending accounts in
// proportion to their spend share. Fixed-spending and no-limit accounts
// keep their normal suggestion.
type shiftedStrategy struct{}

func (shiftedStrategy) allocate(inputs []allocationInput, roundIncrement int64) map[string]int64 {
	out := normalStrategy{}.allocate(inputs, roundIncrement)

	var totalGap int64
	var movable []allocationInput
	for _, in := range inputs {
		if !in.HasGap {
			continue
		}
		totalGap += in.Gap
		if in.Account.Profile == core.ProfileDynamicSpending && !in.Account.IsNoLimit {
			movable = append(movable, in)
		}
	}
	if totalGap == 0 || len(movable) == 0 {
		return out
	}

	spends := make([]int64, len(movable))
	for i, in := range movable {
		spends[i] = in.NetSpend
	}
	shares := redistribute(totalGap, spends)
	for i, in := range movable {
		suggested := in.NetSpend + shares[i]
		if suggested < 0 {
			suggested = 0
		}
		out[in.Account.ID] = roundToIncrement(suggested, roundIncrement)
	}
	return out
}

// redistribute splits total across weights proportionally using
// largest-remainder rounding, so the shares always sum to total
// exactly. Zero weights split the total evenly.
func redistribute(total int64, weights []int64) []int64 {
	n := len(weights)
	shares := make([]int64, n)
	if n == 0 {
		return shares
	}

	var weightSum int64
	for _, w := range weights {
		if w > 0 {
			weightSum += w
		}
	}

	if weightSum == 0 {
		base := total / int64(n)
		rem := total - base*int64(n)
		for i := range shares {
			shares[i] = base
		}
		for i := int64(0); i < rem; i++ {
			shares[i]++
		}
		if rem < 0 {
			for i := int64(0); i < -rem; i++ {
				shares[i]--
			}
		}
		return shares
	}

	type remainder struct {
		index int
		frac  int64
	}
	var assigned int64
	remainders := make([]remainder, 0, n)
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		num := total * w
		shares[i] = num / weightSum
		assigned += shares[i]
		frac := num % weightSum
		if frac < 0 {
			frac = -frac
		}
		remainders = append(remainders, remainder{index: i, frac: frac})
	}

	leftover := total - assigned
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].frac > remainders[j].frac
	})

	step := int64(1)
	if leftover < 0 {
		step = -1
		leftover = -leftover
	}
	for i := int64(0); i < leftover; i++ {
		shares[remainders[i%int64(n)].index] += step
	}
	return shares
}

// roundToIncrement rounds up to the next multiple of increment.
// Suggestions never round a real spend figure down.
func roundToIncrement(amount, increment int64) int64 {
	if increment <= 1 || amount <= 0 {
		if amount < 0 {
			return 0
		}
		return amount
	}
	rem := amount % increment
	if rem == 0 {
		return amount
	}
	return amount + increment - rem
}
