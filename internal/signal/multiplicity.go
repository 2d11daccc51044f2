package signal

import "sort"

// BenjaminiHochberg returns step-up FDR adjusted p-values aligned with the input.
// The adjusted value at sorted rank i of m is min over j >= i of p_(j)*m/j, capped at 1.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	adjusted := make([]float64, m)
	if m == 0 {
		return adjusted
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return pValues[order[i]] < pValues[order[j]]
	})

	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		q := pValues[idx] * float64(m) / float64(rank)
		if q < running {
			running = q
		}
		adjusted[idx] = running
	}

	return adjusted
}

// Reject reports which hypotheses are rejected at FDR level alpha
func Reject(adjusted []float64, alpha float64) []bool {
	rejected := make([]bool, len(adjusted))
	for i, q := range adjusted {
		rejected[i] = q <= alpha
	}
	return rejected
}
